package middleware

import (
	"errors"
	"net/http"
	"strings"

	"shopapi/internal/domain/model"
	auth "shopapi/internal/usecase/auth_usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey    = "user_id"    // uuid.UUID
	CtxUserRoleKey  = "user_role"  // model.Role
	CtxUserEmailKey = "user_email" // string
)

// AccessTokenParser verifies an access token and returns its claims.
type AccessTokenParser interface {
	ParseAccess(raw string) (*auth.Claims, error)
}

// AuthJWT requires a valid bearer access token and stores its subject,
// role and email on the echo context.
func AuthJWT(parser AccessTokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := BearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("missing bearer token"))
			}

			claims, err := parser.ParseAccess(raw)
			if errors.Is(err, auth.ErrTokenExpired) {
				return c.JSON(http.StatusUnauthorized, errorJSON("token expired"))
			}
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("invalid token"))
			}

			userID, err := claims.UserID()
			if err != nil || !claims.Role.Valid() {
				return c.JSON(http.StatusUnauthorized, errorJSON("invalid token"))
			}

			c.Set(CtxUserIDKey, userID)
			c.Set(CtxUserRoleKey, claims.Role)
			c.Set(CtxUserEmailKey, claims.Email)
			return next(c)
		}
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c echo.Context) (string, bool) {
	authz := c.Request().Header.Get(echo.HeaderAuthorization)
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func UserID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(CtxUserIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func UserRole(c echo.Context) model.Role {
	role, _ := c.Get(CtxUserRoleKey).(model.Role)
	return role
}

func IsAdmin(c echo.Context) bool {
	return UserRole(c) == model.RoleAdmin
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
