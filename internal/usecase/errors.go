package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	repo "shopapi/internal/repository"

	"github.com/rs/zerolog/log"
)

// HTTPError is a domain error carrying the status the handler should answer with.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func notFound(what string) error {
	return NewHTTPError(http.StatusNotFound, what+" not found")
}

func badRequest(msg string) error {
	return NewHTTPError(http.StatusBadRequest, msg)
}

func conflict(msg string) error {
	return NewHTTPError(http.StatusConflict, msg)
}

func forbidden(msg string) error {
	return NewHTTPError(http.StatusForbidden, msg)
}

// fail lets domain errors through and turns anything else into a logged,
// generic "<op> failed" BadRequest.
func fail(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	log.Ctx(ctx).Error().Err(err).Str("op", op).Msg("unexpected error")
	return NewHTTPError(http.StatusBadRequest, op+" failed")
}

// lookup maps repo.ErrNotFound to a 404 for what and keeps other errors.
func lookup(err error, what string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return notFound(what)
	}
	return err
}

// duplicate maps repo.ErrDuplicate to a 409 with msg and keeps other errors.
func duplicate(err error, msg string) error {
	if errors.Is(err, repo.ErrDuplicate) {
		return conflict(msg)
	}
	return err
}
