package analytics

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/campus-canteen/canteen/internal/entity"
	"github.com/campus-canteen/canteen/internal/presentation/http/response"
	service "github.com/campus-canteen/canteen/internal/service/analytics"
	"github.com/campus-canteen/canteen/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/campus-canteen/canteen/transport/http/analytics")

// Handler exposes analytics endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an analytics Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/analytics/daily", h.daily)
}

func (h *Handler) daily(c echo.Context) error {
	b := response.New(c)

	day := time.Now()
	if raw := c.QueryParam("date"); raw != "" {
		parsed, err := time.Parse(entity.CounterDateLayout, raw)
		if err != nil {
			return b.WithError(errorbank.BadRequest("invalid date; expected YYYY-MM-DD", errorbank.WithCause(err))).Build()
		}
		day = parsed
	}
	merchantID := c.QueryParam("merchant_id")

	ctx, span := httpTracer.Start(c.Request().Context(), "analytics.daily", trace.WithAttributes(
		attribute.String("merchant_id", merchantID),
	))
	defer span.End()

	summary, err := h.svc.Daily(ctx, merchantID, day)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(summary).Build()
}
