package order

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/campus-canteen/canteen/internal/dto"
	"github.com/campus-canteen/canteen/internal/entity"
	"github.com/campus-canteen/canteen/internal/presentation/http/response"
	service "github.com/campus-canteen/canteen/internal/service/order"
	"github.com/campus-canteen/canteen/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/campus-canteen/canteen/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.POST("", h.create)
	g.GET("", h.list)
	g.PATCH("/:id/status", h.setStatus)
	g.DELETE("/:id", h.cancel)
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.CreateOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.OwnerID == "" || payload.MerchantID == "" {
		return b.WithError(errorbank.BadRequest("owner_id and merchant_id are required")).Build()
	}

	items := make([]entity.LineItem, 0, len(payload.Items))
	for _, it := range payload.Items {
		items = append(items, entity.LineItem{
			ItemID:    it.ItemID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(
		attribute.String("order.owner_id", payload.OwnerID),
	))
	defer span.End()

	order, err := h.svc.Create(ctx, service.CreateInput{
		OwnerID:       payload.OwnerID,
		MerchantID:    payload.MerchantID,
		Items:         items,
		TotalAmount:   payload.TotalAmount,
		PaymentMethod: payload.PaymentMethod,
		Fulfillment:   entity.FulfillmentMode(payload.Fulfillment),
		ScheduledAt:   payload.ScheduledAt,
	})
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(dto.OrderCreatedResponse{
		ID:        order.ID,
		Code:      order.Code,
		PickupOTP: order.PickupOTP,
		Status:    string(order.Status),
		CreatedAt: order.CreatedAt,
	}).Build()
}

func (h *Handler) setStatus(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	var payload dto.SetStatusRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	status, err := entity.ParseStatus(payload.Status)
	if err != nil {
		return b.WithError(errorbank.BadRequest("unknown order status", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.setStatus", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.next_status", payload.Status),
	))
	defer span.End()

	order, err := h.svc.SetStatus(ctx, id, status)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.OrderStatusResponse{
		Status:    string(order.Status),
		UpdatedAt: order.UpdatedAt,
	}).Build()
}

func (h *Handler) cancel(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.cancel", trace.WithAttributes(
		attribute.String("order.id", id),
	))
	defer span.End()

	order, err := h.svc.Cancel(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.OrderStatusResponse{
		Status:    string(order.Status),
		UpdatedAt: order.UpdatedAt,
	}).Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	filter := service.Filter{
		OwnerID:    c.QueryParam("owner_id"),
		MerchantID: c.QueryParam("merchant_id"),
		Status:     entity.OrderStatus(c.QueryParam("status")),
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list")
	defer span.End()

	orders, err := h.svc.List(ctx, filter)
	if err != nil {
		return b.WithError(err).Build()
	}

	items := make([]dto.OrderListItem, 0, len(orders))
	for _, o := range orders {
		items = append(items, toListItem(o))
	}
	return b.WithData(items).WithMeta("count", len(items)).Build()
}

func toListItem(o service.EnrichedOrder) dto.OrderListItem {
	items := make([]dto.LineItemPayload, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, dto.LineItemPayload{
			ItemID:    it.ItemID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return dto.OrderListItem{
		ID:          o.ID,
		Code:        o.Code,
		OwnerID:     o.OwnerID,
		OwnerName:   o.OwnerName,
		OwnerPhone:  o.OwnerPhone,
		MerchantID:  o.MerchantID,
		Items:       items,
		TotalAmount: o.TotalAmount,
		Fulfillment: string(o.Fulfillment),
		ScheduledAt: o.ScheduledAt,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}
