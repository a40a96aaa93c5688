package middleware

import (
	"errors"
	"net/http"

	"shopapi/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ActiveUserGuard reloads the token subject and rejects deleted or
// deactivated accounts. The role on the context is refreshed from the row,
// so a demoted admin loses access before their token expires.
func ActiveUserGuard(users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := UserID(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			ctx := c.Request().Context()
			user, err := users.FindByID(ctx, userID)
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusUnauthorized, errorJSON("user no longer exists"))
			}
			if err != nil {
				log.Ctx(ctx).Error().Err(err).Msg("active user guard: load user")
				return c.JSON(http.StatusBadRequest, errorJSON("authentication failed"))
			}
			if !user.IsActive {
				return c.JSON(http.StatusForbidden, errorJSON("user is inactive"))
			}

			c.Set(CtxUserRoleKey, user.Role)
			return next(c)
		}
	}
}
