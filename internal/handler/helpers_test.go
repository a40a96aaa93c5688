package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shopapi/internal/domain/model"
	"shopapi/internal/handler"
	"shopapi/internal/middleware"
	repo "shopapi/internal/repository"
	"shopapi/internal/usecase"
	auth "shopapi/internal/usecase/auth_usecase"
	"shopapi/internal/validator"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	hdrUser = "X-Test-User"
	hdrRole = "X-Test-Role"
)

type caller struct {
	id   uuid.UUID
	role model.Role
}

var anonymous = caller{}

func customer() caller { return caller{id: uuid.New(), role: model.RoleCustomer} }
func admin() caller    { return caller{id: uuid.New(), role: model.RoleAdmin} }

// testGuards trusts identity headers instead of verifying tokens.
func testGuards() handler.Guards {
	authn := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := uuid.Parse(c.Request().Header.Get(hdrUser))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, handler.ErrorResponse{Error: "missing bearer token"})
			}
			c.Set(middleware.CtxUserIDKey, id)
			c.Set(middleware.CtxUserRoleKey, model.Role(c.Request().Header.Get(hdrRole)))
			return next(c)
		}
	}
	pass := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	return handler.Guards{Auth: authn, Active: pass, Admin: middleware.AdminRoleGuard()}
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validator.New()
	return e
}

func doJSON(t *testing.T, e *echo.Echo, as caller, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if as.id != uuid.Nil {
		req.Header.Set(hdrUser, as.id.String())
		req.Header.Set(hdrRole, string(as.role))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var r handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&r))
	return r
}

// =====================
// OrderService mock
// =====================

type OrderServiceMock struct{ mock.Mock }

func (m *OrderServiceMock) Create(ctx context.Context, in usecase.CreateOrderInput) (*model.Order, error) {
	args := m.Called(ctx, in)
	o, _ := args.Get(0).(*model.Order)
	return o, args.Error(1)
}

func (m *OrderServiceMock) FindOne(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*model.Order)
	return o, args.Error(1)
}

func (m *OrderServiceMock) FindAll(ctx context.Context) ([]model.Order, error) {
	args := m.Called(ctx)
	os, _ := args.Get(0).([]model.Order)
	return os, args.Error(1)
}

func (m *OrderServiceMock) FindByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	args := m.Called(ctx, userID)
	os, _ := args.Get(0).([]model.Order)
	return os, args.Error(1)
}

func (m *OrderServiceMock) FindByStatus(ctx context.Context, status string) ([]model.Order, error) {
	args := m.Called(ctx, status)
	os, _ := args.Get(0).([]model.Order)
	return os, args.Error(1)
}

func (m *OrderServiceMock) FindRecent(ctx context.Context, limit int) ([]model.Order, error) {
	args := m.Called(ctx, limit)
	os, _ := args.Get(0).([]model.Order)
	return os, args.Error(1)
}

func (m *OrderServiceMock) FindByDateRange(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	args := m.Called(ctx, from, to)
	os, _ := args.Get(0).([]model.Order)
	return os, args.Error(1)
}

func (m *OrderServiceMock) Update(ctx context.Context, actorID, id uuid.UUID, in usecase.UpdateOrderInput) (*model.Order, error) {
	args := m.Called(ctx, actorID, id, in)
	o, _ := args.Get(0).(*model.Order)
	return o, args.Error(1)
}

func (m *OrderServiceMock) UpdateStatus(ctx context.Context, actorID, id uuid.UUID, status string) (*model.Order, error) {
	args := m.Called(ctx, actorID, id, status)
	o, _ := args.Get(0).(*model.Order)
	return o, args.Error(1)
}

func (m *OrderServiceMock) Cancel(ctx context.Context, actorID, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, actorID, id)
	o, _ := args.Get(0).(*model.Order)
	return o, args.Error(1)
}

func (m *OrderServiceMock) Remove(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *OrderServiceMock) GetStats(ctx context.Context) (model.OrderStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.OrderStats), args.Error(1)
}

func (m *OrderServiceMock) AddItem(ctx context.Context, orderID uuid.UUID, in usecase.AddOrderItemInput) (*model.Order, error) {
	args := m.Called(ctx, orderID, in)
	o, _ := args.Get(0).(*model.Order)
	return o, args.Error(1)
}

func (m *OrderServiceMock) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, orderID, itemID)
	o, _ := args.Get(0).(*model.Order)
	return o, args.Error(1)
}

func (m *OrderServiceMock) UpdateItemQuantity(ctx context.Context, orderID, itemID uuid.UUID, quantity int64) (*model.Order, error) {
	args := m.Called(ctx, orderID, itemID, quantity)
	o, _ := args.Get(0).(*model.Order)
	return o, args.Error(1)
}

func (m *OrderServiceMock) CalculateOrderTotal(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// =====================
// ProductService mock
// =====================

type ProductServiceMock struct{ mock.Mock }

func (m *ProductServiceMock) Create(ctx context.Context, in usecase.CreateProductInput) (*model.Product, error) {
	args := m.Called(ctx, in)
	p, _ := args.Get(0).(*model.Product)
	return p, args.Error(1)
}

func (m *ProductServiceMock) FindAll(ctx context.Context, f repo.ProductFilter) ([]model.Product, error) {
	args := m.Called(ctx, f)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Error(1)
}

func (m *ProductServiceMock) Count(ctx context.Context, f repo.ProductFilter) (int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ProductServiceMock) FindOne(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*model.Product)
	return p, args.Error(1)
}

func (m *ProductServiceMock) FindBySlug(ctx context.Context, slug string) (*model.Product, error) {
	args := m.Called(ctx, slug)
	p, _ := args.Get(0).(*model.Product)
	return p, args.Error(1)
}

func (m *ProductServiceMock) SearchByName(ctx context.Context, q string) ([]model.Product, error) {
	args := m.Called(ctx, q)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Error(1)
}

func (m *ProductServiceMock) FindLowStock(ctx context.Context, threshold int64) ([]model.Product, error) {
	args := m.Called(ctx, threshold)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Error(1)
}

func (m *ProductServiceMock) Update(ctx context.Context, id uuid.UUID, in usecase.UpdateProductInput) (*model.Product, error) {
	args := m.Called(ctx, id, in)
	p, _ := args.Get(0).(*model.Product)
	return p, args.Error(1)
}

func (m *ProductServiceMock) UpdateStock(ctx context.Context, actorID, id uuid.UUID, stock int64) (*model.Product, error) {
	args := m.Called(ctx, actorID, id, stock)
	p, _ := args.Get(0).(*model.Product)
	return p, args.Error(1)
}

func (m *ProductServiceMock) Remove(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// =====================
// UserService mock
// =====================

type UserServiceMock struct{ mock.Mock }

func (m *UserServiceMock) Create(ctx context.Context, in usecase.CreateUserInput) (*model.User, error) {
	args := m.Called(ctx, in)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserServiceMock) FindAll(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	us, _ := args.Get(0).([]model.User)
	return us, args.Error(1)
}

func (m *UserServiceMock) FindOne(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserServiceMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserServiceMock) Update(ctx context.Context, id uuid.UUID, in usecase.UpdateUserInput, asAdmin bool) (*model.User, error) {
	args := m.Called(ctx, id, in, asAdmin)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserServiceMock) ToggleStatus(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserServiceMock) Remove(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *UserServiceMock) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	return m.Called(ctx, id, current, next).Error(0)
}

func (m *UserServiceMock) UploadPhoto(ctx context.Context, id uuid.UUID, data []byte) (*model.User, error) {
	args := m.Called(ctx, id, data)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

// =====================
// AuthService mock
// =====================

type AuthServiceMock struct {
	mock.Mock
	revocation bool
}

func (m *AuthServiceMock) Login(ctx context.Context, in auth.LoginInput) (*auth.TokenPair, error) {
	args := m.Called(ctx, in)
	p, _ := args.Get(0).(*auth.TokenPair)
	return p, args.Error(1)
}

func (m *AuthServiceMock) Refresh(ctx context.Context, refreshToken string) (*auth.AccessToken, error) {
	args := m.Called(ctx, refreshToken)
	a, _ := args.Get(0).(*auth.AccessToken)
	return a, args.Error(1)
}

func (m *AuthServiceMock) Logout(ctx context.Context, refreshToken string) error {
	return m.Called(ctx, refreshToken).Error(0)
}

func (m *AuthServiceMock) Me(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *AuthServiceMock) RevocationEnabled() bool { return m.revocation }

var (
	_ handler.OrderService   = (*OrderServiceMock)(nil)
	_ handler.ProductService = (*ProductServiceMock)(nil)
	_ handler.UserService    = (*UserServiceMock)(nil)
	_ handler.AuthService    = (*AuthServiceMock)(nil)
)
