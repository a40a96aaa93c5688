package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"shopapi/internal/domain/model"
	"shopapi/internal/middleware"
	"shopapi/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type UserService interface {
	Create(ctx context.Context, in usecase.CreateUserInput) (*model.User, error)
	FindAll(ctx context.Context) ([]model.User, error)
	FindOne(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, id uuid.UUID, in usecase.UpdateUserInput, asAdmin bool) (*model.User, error)
	ToggleStatus(ctx context.Context, id uuid.UUID) (*model.User, error)
	Remove(ctx context.Context, id uuid.UUID) error
	ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error
	UploadPhoto(ctx context.Context, id uuid.UUID, data []byte) (*model.User, error)
}

// multipartOverhead is the room left for boundaries and part headers on top
// of the file itself.
const multipartOverhead = 64 << 10

type UserHandler struct {
	svc            UserService
	maxUploadBytes int64
}

func NewUserHandler(svc UserService, maxUploadBytes int64) *UserHandler {
	return &UserHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

type createUserRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Phone     string `json:"phone" validate:"max=30"`
}

type updateUserRequest struct {
	Username  *string `json:"username" validate:"omitempty,min=3,max=50"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Password  *string `json:"password" validate:"omitempty,min=8,max=72"`
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=30"`
	Role      *string `json:"role" validate:"omitempty,oneof=customer admin"`
	IsActive  *bool   `json:"is_active"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

func (h *UserHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	u := e.Group("/usuario")

	u.POST("", h.create)

	auth := g.authenticated()
	admin := append(g.authenticated(), g.Admin)

	u.GET("", h.list, admin...)
	u.GET("/email/:email", h.byEmail, admin...)
	u.PATCH("/deactivate/:id", h.toggleStatus, admin...)
	u.DELETE("/deactivate/:id", h.toggleStatus, admin...)
	u.PUT("/change-password/:id", h.changePassword, auth...)

	u.GET("/:id", h.get, auth...)
	u.PUT("/:id", h.update, auth...)
	u.DELETE("/:id", h.remove, admin...)
	photo := append(g.authenticated(), echomw.BodyLimit(strconv.FormatInt(h.maxUploadBytes+multipartOverhead, 10)))
	u.POST("/:id/foto", h.uploadPhoto, photo...)
}

func (h *UserHandler) create(c echo.Context) error {
	var req createUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.svc.Create(c.Request().Context(), usecase.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *UserHandler) list(c echo.Context) error {
	out, err := h.svc.FindAll(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) byEmail(c echo.Context) error {
	out, err := h.svc.FindByEmail(c.Request().Context(), c.Param("email"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) get(c echo.Context) error {
	id, err := selfOrAdmin(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.svc.FindOne(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) update(c echo.Context) error {
	id, err := selfOrAdmin(c)
	if err != nil {
		return writeError(c, err)
	}
	var req updateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	in := usecase.UpdateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		IsActive:  req.IsActive,
	}
	if req.Role != nil {
		r := model.Role(*req.Role)
		in.Role = &r
	}

	out, err := h.svc.Update(c.Request().Context(), id, in, middleware.IsAdmin(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) toggleStatus(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.svc.ToggleStatus(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) remove(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.svc.Remove(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "user deleted"})
}

func (h *UserHandler) changePassword(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	// only the account owner knows the current password
	if callerID, _ := middleware.UserID(c); callerID != id {
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	}

	var req changePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	if err := h.svc.ChangePassword(c.Request().Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "password updated"})
}

func (h *UserHandler) uploadPhoto(c echo.Context) error {
	id, err := selfOrAdmin(c)
	if err != nil {
		return writeError(c, err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file is required"})
	}
	if fh.Size > h.maxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "file is too large"})
	}
	f, err := fh.Open()
	if err != nil {
		return writeError(c, err)
	}
	defer f.Close()

	// one extra byte lets the usecase notice an oversized body
	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.svc.UploadPhoto(c.Request().Context(), id, data)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// selfOrAdmin returns the :id param when the caller is that user or an admin.
func selfOrAdmin(c echo.Context) (uuid.UUID, error) {
	id, err := uuidParam(c, "id")
	if err != nil {
		return uuid.Nil, err
	}
	if callerID, _ := middleware.UserID(c); callerID != id && !middleware.IsAdmin(c) {
		return uuid.Nil, usecase.NewHTTPError(http.StatusForbidden, "forbidden")
	}
	return id, nil
}
