package auth_test

import (
	"context"
	"testing"
	"time"

	"shopapi/internal/config"
	"shopapi/internal/domain/model"
	"shopapi/internal/infra/cache"
	"shopapi/internal/repository"
	auth "shopapi/internal/usecase/auth_usecase"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// =====================
// UserRepository モック
// =====================

type MockUserRepo struct{ mock.Mock }

func (m *MockUserRepo) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepo) List(ctx context.Context) ([]model.User, error) {
	panic("not used in auth tests")
}

func (m *MockUserRepo) Update(ctx context.Context, user *model.User) error {
	panic("not used in auth tests")
}

func (m *MockUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	panic("not used in auth tests")
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

// =====================
// helper
// =====================

type authFixture struct {
	users  *MockUserRepo
	clock  *fakeClock
	issuer *auth.JWTIssuer
	redis  *miniredis.Miniredis
	uc     *auth.AuthUsecase
	user   *model.User
}

func newAuthFixture(t *testing.T, withDenylist bool, field config.LoginField) *authFixture {
	t.Helper()

	hash, err := auth.NewBcryptPasswordHasher(bcrypt.MinCost).Hash("correct-horse")
	require.NoError(t, err)

	f := &authFixture{
		users: new(MockUserRepo),
		clock: &fakeClock{now: time.Now()},
		user: &model.User{
			ID:           uuid.New(),
			Username:     "ana",
			Email:        "ana@example.com",
			PasswordHash: hash,
			Role:         model.RoleCustomer,
			IsActive:     true,
		},
	}
	f.issuer = newIssuer(f.clock)

	var denylist auth.RefreshDenylist
	if withDenylist {
		f.redis = miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: f.redis.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		denylist = cache.NewRefreshDenylistRedis(rdb)
	}

	f.uc = auth.NewAuthUsecase(f.users, auth.NewBcryptPasswordVerifier(), f.issuer, denylist, field)
	return f
}

func (f *authFixture) login(t *testing.T) *auth.TokenPair {
	t.Helper()
	f.users.On("FindByEmail", mock.Anything, "ana@example.com").Return(f.user, nil).Once()
	pair, err := f.uc.Login(context.Background(), auth.LoginInput{Identifier: "ana@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	return pair
}

// =====================
// Login
// =====================

func TestAuthUsecase_Login_Success(t *testing.T) {
	f := newAuthFixture(t, false, config.LoginByEmail)
	pair := f.login(t)

	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, 900, pair.ExpiresIn)

	claims, err := f.issuer.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID.String(), claims.Subject)
	assert.Equal(t, model.RoleCustomer, claims.Role)

	_, err = f.issuer.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
}

func TestAuthUsecase_Login_NormalizesEmail(t *testing.T) {
	f := newAuthFixture(t, false, config.LoginByEmail)
	f.users.On("FindByEmail", mock.Anything, "ana@example.com").Return(f.user, nil)

	_, err := f.uc.Login(context.Background(), auth.LoginInput{Identifier: "  ANA@example.com ", Password: "correct-horse"})
	require.NoError(t, err)
}

func TestAuthUsecase_Login_ByUsername(t *testing.T) {
	f := newAuthFixture(t, false, config.LoginByUsername)
	f.users.On("FindByUsername", mock.Anything, "ana").Return(f.user, nil)

	_, err := f.uc.Login(context.Background(), auth.LoginInput{Identifier: "ana", Password: "correct-horse"})
	require.NoError(t, err)
	f.users.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
}

func TestAuthUsecase_Login_WrongPassword(t *testing.T) {
	f := newAuthFixture(t, false, config.LoginByEmail)
	f.users.On("FindByEmail", mock.Anything, "ana@example.com").Return(f.user, nil)

	_, err := f.uc.Login(context.Background(), auth.LoginInput{Identifier: "ana@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestAuthUsecase_Login_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t, false, config.LoginByEmail)
	f.users.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, repository.ErrNotFound)

	_, err := f.uc.Login(context.Background(), auth.LoginInput{Identifier: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

type spyVerifier struct {
	inner  auth.PasswordVerifier
	hashes []string
}

func (s *spyVerifier) Verify(plain, hashed string) bool {
	s.hashes = append(s.hashes, hashed)
	return s.inner.Verify(plain, hashed)
}

func TestAuthUsecase_Login_UnknownEmailStillComparesHash(t *testing.T) {
	f := newAuthFixture(t, false, config.LoginByEmail)
	spy := &spyVerifier{inner: auth.NewBcryptPasswordVerifier()}
	f.uc = auth.NewAuthUsecase(f.users, spy, f.issuer, nil, config.LoginByEmail)
	f.users.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, repository.ErrNotFound)

	_, err := f.uc.Login(context.Background(), auth.LoginInput{Identifier: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	// same bcrypt work as a wrong password on a real account
	require.Len(t, spy.hashes, 1)
	cost, err := bcrypt.Cost([]byte(spy.hashes[0]))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestAuthUsecase_Login_Inactive(t *testing.T) {
	f := newAuthFixture(t, false, config.LoginByEmail)
	f.user.IsActive = false
	f.users.On("FindByEmail", mock.Anything, "ana@example.com").Return(f.user, nil)

	_, err := f.uc.Login(context.Background(), auth.LoginInput{Identifier: "ana@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, auth.ErrUserInactive)
}

func TestAuthUsecase_ValidateUser_EmptyInput(t *testing.T) {
	f := newAuthFixture(t, false, config.LoginByEmail)

	u, err := f.uc.ValidateUser(context.Background(), "", "pw")
	require.NoError(t, err)
	assert.Nil(t, u)
	f.users.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
}

// =====================
// Refresh
// =====================

func TestAuthUsecase_Refresh_Success(t *testing.T) {
	f := newAuthFixture(t, true, config.LoginByEmail)
	pair := f.login(t)
	f.users.On("FindByID", mock.Anything, f.user.ID).Return(f.user, nil)

	out, err := f.uc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	_, err = f.issuer.ParseAccess(out.AccessToken)
	require.NoError(t, err)
}

func TestAuthUsecase_Refresh_Expired(t *testing.T) {
	f := newAuthFixture(t, false, config.LoginByEmail)
	pair := f.login(t)

	f.clock.now = f.clock.now.Add(25 * time.Hour)
	_, err := f.uc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestAuthUsecase_Refresh_AccessTokenRejected(t *testing.T) {
	f := newAuthFixture(t, false, config.LoginByEmail)
	pair := f.login(t)

	_, err := f.uc.Refresh(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestAuthUsecase_Refresh_UnknownUser(t *testing.T) {
	f := newAuthFixture(t, false, config.LoginByEmail)
	pair := f.login(t)
	f.users.On("FindByID", mock.Anything, f.user.ID).Return(nil, repository.ErrNotFound)

	_, err := f.uc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrUnknownUser)
}

func TestAuthUsecase_Refresh_InactiveUser(t *testing.T) {
	f := newAuthFixture(t, false, config.LoginByEmail)
	pair := f.login(t)
	inactive := *f.user
	inactive.IsActive = false
	f.users.On("FindByID", mock.Anything, f.user.ID).Return(&inactive, nil)

	_, err := f.uc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrUserInactive)
}

// =====================
// Logout
// =====================

func TestAuthUsecase_Logout_RevokesRefreshToken(t *testing.T) {
	f := newAuthFixture(t, true, config.LoginByEmail)
	pair := f.login(t)

	require.NoError(t, f.uc.Logout(context.Background(), pair.RefreshToken))

	_, err := f.uc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)
	f.users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestAuthUsecase_Logout_ExpiredTokenIsAccepted(t *testing.T) {
	f := newAuthFixture(t, true, config.LoginByEmail)
	pair := f.login(t)

	f.clock.now = f.clock.now.Add(48 * time.Hour)
	assert.NoError(t, f.uc.Logout(context.Background(), pair.RefreshToken))
}

func TestAuthUsecase_Logout_WithoutDenylist(t *testing.T) {
	f := newAuthFixture(t, false, config.LoginByEmail)
	assert.False(t, f.uc.RevocationEnabled())
	assert.ErrorIs(t, f.uc.Logout(context.Background(), "anything"), auth.ErrRevocationDisabled)
}

func TestAuthUsecase_Logout_RedisDown(t *testing.T) {
	f := newAuthFixture(t, true, config.LoginByEmail)
	pair := f.login(t)
	f.redis.Close()

	assert.Error(t, f.uc.Logout(context.Background(), pair.RefreshToken))
}

// =====================
// Me
// =====================

func TestAuthUsecase_Me_StripsPasswordHash(t *testing.T) {
	f := newAuthFixture(t, false, config.LoginByEmail)
	f.users.On("FindByID", mock.Anything, f.user.ID).Return(f.user, nil)

	me, err := f.uc.Me(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, me.PasswordHash)
	assert.Equal(t, f.user.Email, me.Email)
	assert.NotEmpty(t, f.user.PasswordHash, "stored user must not be mutated")
}

func TestAuthUsecase_Me_UnknownUser(t *testing.T) {
	f := newAuthFixture(t, false, config.LoginByEmail)
	id := uuid.New()
	f.users.On("FindByID", mock.Anything, id).Return(nil, repository.ErrNotFound)

	_, err := f.uc.Me(context.Background(), id)
	assert.ErrorIs(t, err, auth.ErrUnknownUser)
}
