package handler

import (
	"errors"
	"net/http"
	"time"

	"shopapi/internal/usecase"
	"shopapi/internal/validator"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// writeError answers with the status carried by domain errors, per-field
// messages for validation failures and a generic 400 for anything else.
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}
	var fe validator.FieldErrors
	if errors.As(err, &fe) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation error", Fields: fe})
	}

	log.Ctx(c.Request().Context()).Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "operation failed"})
}

// bindAndValidate decodes the body into req and runs the struct rules.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return c.Validate(req)
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// parseDate accepts RFC3339 timestamps or plain dates. A plain end date
// covers the whole day.
func parseDate(s string, endOfDay bool) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, true
}
