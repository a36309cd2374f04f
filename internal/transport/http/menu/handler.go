package menu

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/campus-canteen/canteen/internal/dto"
	"github.com/campus-canteen/canteen/internal/entity"
	"github.com/campus-canteen/canteen/internal/presentation/http/response"
	service "github.com/campus-canteen/canteen/internal/service/menu"
	"github.com/campus-canteen/canteen/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/campus-canteen/canteen/transport/http/menu")

// Handler exposes menu endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a menu Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/menu")
	g.GET("", h.list)
	g.PUT("/:id", h.upsert)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)
	merchantID := c.QueryParam("merchant_id")

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.list", trace.WithAttributes(
		attribute.String("merchant_id", merchantID),
	))
	defer span.End()

	items, err := h.svc.List(ctx, merchantID)
	if err != nil {
		return b.WithError(err).Build()
	}

	payload := make([]dto.MenuItemPayload, 0, len(items))
	for _, item := range items {
		payload = append(payload, toPayload(item))
	}
	return b.WithData(payload).WithMeta("count", len(payload)).Build()
}

func (h *Handler) upsert(c echo.Context) error {
	b := response.New(c)

	var payload dto.MenuItemPayload
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	payload.ID = c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "menu.upsert", trace.WithAttributes(
		attribute.String("item.id", payload.ID),
	))
	defer span.End()

	item, err := h.svc.Upsert(ctx, entity.MenuItem{
		ID:         payload.ID,
		MerchantID: payload.MerchantID,
		Name:       payload.Name,
		Price:      payload.Price,
		Available:  payload.Available,
	})
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusOK).WithData(toPayload(*item)).Build()
}

func toPayload(item entity.MenuItem) dto.MenuItemPayload {
	return dto.MenuItemPayload{
		ID:         item.ID,
		MerchantID: item.MerchantID,
		Name:       item.Name,
		Price:      item.Price,
		Available:  item.Available,
	}
}
