package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"shopapi/internal/domain/model"
	"shopapi/internal/middleware"
	"shopapi/internal/usecase"
	auth "shopapi/internal/usecase/auth_usecase"
	"shopapi/internal/validator"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type AuthService interface {
	Login(ctx context.Context, in auth.LoginInput) (*auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.AccessToken, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID uuid.UUID) (*model.User, error)
	RevocationEnabled() bool
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type loginRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Username string `json:"username" validate:"required_without=Email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	a := e.Group("/auth")
	a.POST("/login", h.login)
	a.POST("/refresh", h.refresh)
	if h.svc.RevocationEnabled() {
		a.POST("/logout", h.logout)
	}
	a.GET("/me", h.me, g.authenticated()...)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	identifier := req.Email
	if identifier == "" {
		identifier = req.Username
	}
	out, err := h.svc.Login(c.Request().Context(), auth.LoginInput{
		Identifier: identifier,
		Password:   req.Password,
	})
	if err != nil {
		return writeAuthError(c, "login", err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) refresh(c echo.Context) error {
	token, err := refreshTokenFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.svc.Refresh(c.Request().Context(), token)
	if err != nil {
		return writeAuthError(c, "refresh", err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) logout(c echo.Context) error {
	token, err := refreshTokenFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	if err := h.svc.Logout(c.Request().Context(), token); err != nil {
		return writeAuthError(c, "logout", err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "logged out"})
}

func (h *AuthHandler) me(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	user, err := h.svc.Me(c.Request().Context(), userID)
	if err != nil {
		return writeAuthError(c, "me", err)
	}
	return c.JSON(http.StatusOK, user)
}

// refreshTokenFrom reads the refresh token from the bearer header, falling
// back to a JSON body.
func refreshTokenFrom(c echo.Context) (string, error) {
	if token, ok := middleware.BearerToken(c); ok {
		return token, nil
	}
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return "", usecase.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		return "", validator.FieldErrors{"refresh_token": "is required"}
	}
	return token, nil
}

func writeAuthError(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenRevoked),
		errors.Is(err, auth.ErrUnknownUser):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrUserInactive):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrRevocationDisabled):
		return c.JSON(http.StatusNotImplemented, ErrorResponse{Error: err.Error()})
	}

	log.Ctx(c.Request().Context()).Error().Err(err).Str("op", op).Msg("auth failure")
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: op + " failed"})
}
