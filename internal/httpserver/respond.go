package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/storekit/shopcore/internal/engine"
	"github.com/storekit/shopcore/internal/events"
	"github.com/storekit/shopcore/internal/logging"
)

// engineError maps the engine taxonomy onto HTTP statuses. ResourceBusy is
// the one retryable condition and says so with Retry-After.
func engineError(c echo.Context, err error) error {
	var (
		constraint  *engine.ConstraintViolation
		referential *engine.ReferentialViolation
		transition  *engine.InvalidStateTransition
		stock       *engine.InsufficientStock
		discount    *engine.DiscountNotApplicable
		busy        *engine.ResourceBusy
	)

	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrNotFound):
		code = http.StatusNotFound
	case errors.As(err, &constraint):
		code = http.StatusBadRequest
	case errors.As(err, &referential):
		code = http.StatusConflict
	case errors.As(err, &transition):
		code = http.StatusConflict
	case errors.As(err, &stock):
		code = http.StatusConflict
	case errors.As(err, &discount):
		code = http.StatusUnprocessableEntity
	case errors.As(err, &busy):
		c.Response().Header().Set("Retry-After", "1")
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]any{"error": err.Error()})
}

// publish emits a committed-state event; delivery failure is logged, never
// surfaced, because the mutation has already committed.
func publish(c echo.Context, p *events.Producer, key string, event map[string]any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := p.Publish(ctx, key, event); err != nil {
		logging.FromContext(ctx).ErrorContext(ctx, "kafka publish failed", "error", err)
	}
}
