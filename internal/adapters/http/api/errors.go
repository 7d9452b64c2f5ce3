package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/matchmaker/internal/adapters/repository"
	service "github.com/okian/matchmaker/internal/app"
	"github.com/okian/matchmaker/internal/domain/matching"
	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/internal/domain/scoring"
)

// ErrBadRequest marks malformed input detected by the transport itself.
var ErrBadRequest = errors.New("bad request")

func badRequest(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, ErrBadRequest)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err)
}

// statusFor maps an error returned by the service to a status and a stable
// error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidProfile),
		errors.Is(err, model.ErrInvalidEvent),
		errors.Is(err, model.ErrInvalidEventKind),
		errors.Is(err, matching.ErrInvalidLimit),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, scoring.ErrUnknownStrategy):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
