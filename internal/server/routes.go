package server

import (
	"context"
	"net/http"
	"time"

	"shopapi/internal/handler"

	"github.com/labstack/echo/v4"
)

// RouteRegistrar is implemented by every handler.
type RouteRegistrar interface {
	RegisterRoutes(e *echo.Echo, g handler.Guards)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Routes struct {
	Guards    handler.Guards
	Handlers  []RouteRegistrar
	UploadDir string
	Checks    map[string]HealthCheck
}

func RegisterRoutes(e *echo.Echo, r Routes) {
	e.GET("/healthz", healthz(r.Checks))
	if r.UploadDir != "" {
		e.Static("/uploads", r.UploadDir)
	}
	for _, h := range r.Handlers {
		h.RegisterRoutes(e, r.Guards)
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthz(checks map[string]HealthCheck) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		res := healthResponse{Status: "ok", Checks: map[string]string{}}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				res.Checks[name] = err.Error()
				res.Status = "unavailable"
				code = http.StatusServiceUnavailable
				continue
			}
			res.Checks[name] = "ok"
		}
		return c.JSON(code, res)
	}
}
