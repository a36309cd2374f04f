package order

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/campus-canteen/canteen/internal/entity"
	"github.com/campus-canteen/canteen/internal/idgen"
	"github.com/campus-canteen/canteen/internal/mirror"
	"github.com/campus-canteen/canteen/internal/notifier"
	orderrepo "github.com/campus-canteen/canteen/internal/repository/order"
	userrepo "github.com/campus-canteen/canteen/internal/repository/user"
	"github.com/campus-canteen/canteen/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/campus-canteen/canteen/service/order")

// Service owns the order state machine. It orchestrates creation, status
// transitions, and cancellation against the flat-file store (source of
// truth), then best-effort mirrors the touched record and fires the
// notification hook. Mirror and notification failures never surface.
type Service struct {
	orders   *orderrepo.Repository
	users    *userrepo.Repository
	codes    *idgen.Allocator
	mirror   mirror.Store
	notifier notifier.Client
	logger   *zap.Logger
	otp      func() string
	now      func() time.Time
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Orders   *orderrepo.Repository
	Users    *userrepo.Repository
	Codes    *idgen.Allocator
	Mirror   mirror.Store
	Notifier notifier.Client
	Logger   *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		orders:   p.Orders,
		users:    p.Users,
		codes:    p.Codes,
		mirror:   p.Mirror,
		notifier: p.Notifier,
		logger:   p.Logger,
		otp:      newPickupOTP,
		now:      time.Now,
	}
}

// CreateInput carries a placement request. Owner and merchant references
// arrive already authenticated; the engine only resolves them.
type CreateInput struct {
	OwnerID       string
	MerchantID    string
	Items         []entity.LineItem
	TotalAmount   float64
	PaymentMethod string
	Fulfillment   entity.FulfillmentMode
	ScheduledAt   *time.Time
}

// Create places a new order: allocates the daily code, mints a pickup OTP,
// persists the record as pending, mirrors it, and notifies the owner.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(
		attribute.String("order.owner_id", in.OwnerID),
		attribute.String("order.merchant_id", in.MerchantID),
	))
	defer span.End()

	if len(in.Items) == 0 {
		return nil, errorbank.BadRequest("order needs at least one line item")
	}
	if in.Fulfillment == "" {
		in.Fulfillment = entity.FulfillmentInstant
	}
	switch in.Fulfillment {
	case entity.FulfillmentInstant, entity.FulfillmentPreorder:
	default:
		return nil, errorbank.BadRequest("unknown fulfillment mode", errorbank.WithDetail("fulfillment", string(in.Fulfillment)))
	}
	if in.Fulfillment == entity.FulfillmentPreorder && in.ScheduledAt == nil {
		return nil, errorbank.BadRequest("preorder requires a scheduled time")
	}
	if in.Fulfillment == entity.FulfillmentInstant {
		in.ScheduledAt = nil
	}

	owner, err := s.users.GetByID(ctx, in.OwnerID)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, errorbank.NotFound("owner not found", errorbank.WithDetail("owner_id", in.OwnerID))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "owner lookup failed")
		return nil, errorbank.Internal("failed to resolve owner", errorbank.WithCause(err))
	}

	code, err := s.codes.Next(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "code allocation failed")
		return nil, errorbank.Internal("failed to allocate order code", errorbank.WithCause(err))
	}

	now := s.now().UTC()
	order := &entity.Order{
		ID:            uuid.NewString(),
		Code:          code,
		OwnerID:       in.OwnerID,
		MerchantID:    in.MerchantID,
		Items:         in.Items,
		TotalAmount:   in.TotalAmount,
		PaymentMethod: in.PaymentMethod,
		Fulfillment:   in.Fulfillment,
		ScheduledAt:   in.ScheduledAt,
		PickupOTP:     s.otp(),
		Status:        entity.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.orders.Append(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, errorbank.Internal("failed to persist order", errorbank.WithCause(err))
	}

	s.mirrorOrder(ctx, order)
	s.notify(ctx, owner.Email, notifier.EventOrderCreated, map[string]any{
		"order_code":   order.Code,
		"pickup_otp":   order.PickupOTP,
		"total_amount": order.TotalAmount,
	})

	return order, nil
}

// SetStatus applies one legal transition of the state machine. Unknown
// statuses and illegal edges are rejected without touching the order.
func (s *Service) SetStatus(ctx context.Context, id string, next entity.OrderStatus) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.SetStatus", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.next_status", string(next)),
	))
	defer span.End()

	if !next.Valid() {
		return nil, errorbank.BadRequest("unknown order status", errorbank.WithDetail("status", string(next)))
	}

	order, err := s.loadOrder(ctx, span, id)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(next) {
		return nil, errorbank.Unprocessable("illegal status transition",
			errorbank.WithDetail("from", string(order.Status)),
			errorbank.WithDetail("to", string(next)),
		)
	}

	order.Status = next
	order.UpdatedAt = s.now().UTC()

	if err := s.orders.Update(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, errorbank.Internal("failed to persist status change", errorbank.WithCause(err))
	}

	s.mirrorOrder(ctx, order)

	payload := map[string]any{
		"order_code": order.Code,
		"status":     string(order.Status),
	}
	if next == entity.StatusReady {
		// The pickup OTP travels with the ready notice so the student can
		// present it at the counter.
		payload["pickup_otp"] = order.PickupOTP
	}
	s.notifyOwner(ctx, order.OwnerID, statusEvent(next), payload)

	return order, nil
}

// Cancel marks an order cancelled. Only pending and confirmed orders qualify;
// the record is never deleted.
func (s *Service) Cancel(ctx context.Context, id string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Cancel", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := s.loadOrder(ctx, span, id)
	if err != nil {
		return nil, err
	}

	if !order.Status.Cancellable() {
		return nil, errorbank.Conflict("order can no longer be cancelled",
			errorbank.WithDetail("status", string(order.Status)))
	}

	order.Status = entity.StatusCancelled
	order.UpdatedAt = s.now().UTC()

	if err := s.orders.Update(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, errorbank.Internal("failed to persist cancellation", errorbank.WithCause(err))
	}

	s.mirrorOrder(ctx, order)
	s.notifyOwner(ctx, order.OwnerID, notifier.EventOrderCancelled, map[string]any{
		"order_code": order.Code,
		"status":     string(order.Status),
	})

	return order, nil
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	OwnerID    string
	MerchantID string
	Status     entity.OrderStatus
}

// EnrichedOrder is an order with denormalized owner display fields.
type EnrichedOrder struct {
	entity.Order
	OwnerName  string `json:"owner_name"`
	OwnerPhone string `json:"owner_phone"`
}

// List returns matching orders newest-first, enriched with the owner's name
// and phone for the kitchen display.
func (s *Service) List(ctx context.Context, f Filter) ([]EnrichedOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List")
	defer span.End()

	if f.Status != "" && !f.Status.Valid() {
		return nil, errorbank.BadRequest("unknown order status", errorbank.WithDetail("status", string(f.Status)))
	}

	orders, err := s.orders.All(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, errorbank.Internal("failed to load orders", errorbank.WithCause(err))
	}

	users, err := s.users.All(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "directory load failed")
		return nil, errorbank.Internal("failed to load directory", errorbank.WithCause(err))
	}
	byID := make(map[string]entity.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	// The snapshot is oldest-first by construction; walk it backwards for
	// newest-first results.
	result := make([]EnrichedOrder, 0, len(orders))
	for i := len(orders) - 1; i >= 0; i-- {
		o := orders[i]
		if f.OwnerID != "" && o.OwnerID != f.OwnerID {
			continue
		}
		if f.MerchantID != "" && o.MerchantID != f.MerchantID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		enriched := EnrichedOrder{Order: o}
		if owner, ok := byID[o.OwnerID]; ok {
			enriched.OwnerName = owner.Name
			enriched.OwnerPhone = owner.Phone
		}
		result = append(result, enriched)
	}
	return result, nil
}

func (s *Service) loadOrder(ctx context.Context, span trace.Span, id string) (*entity.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, orderrepo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found", errorbank.WithDetail("order_id", id))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}
	return order, nil
}

func (s *Service) mirrorOrder(ctx context.Context, order *entity.Order) {
	if err := s.mirror.Upsert(ctx, orderrepo.Collection, order.ID, order); err != nil {
		s.logger.Warn("order mirror write failed", zap.String("id", order.ID), zap.Error(err))
	}
}

// notifyOwner resolves the owner's address and emits the event. A missing
// owner only skips the notification; the state change already committed.
func (s *Service) notifyOwner(ctx context.Context, ownerID string, event notifier.Event, payload map[string]any) {
	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		s.logger.Warn("notification skipped; owner unresolved", zap.String("owner_id", ownerID), zap.Error(err))
		return
	}
	s.notify(ctx, owner.Email, event, payload)
}

func (s *Service) notify(ctx context.Context, recipient string, event notifier.Event, payload map[string]any) {
	if err := s.notifier.Notify(ctx, recipient, event, payload); err != nil {
		s.logger.Warn("notification failed",
			zap.String("recipient", recipient),
			zap.String("event", string(event)),
			zap.Error(err),
		)
	}
}

func statusEvent(status entity.OrderStatus) notifier.Event {
	switch status {
	case entity.StatusConfirmed:
		return notifier.EventOrderConfirmed
	case entity.StatusPreparing:
		return notifier.EventOrderPreparing
	case entity.StatusReady:
		return notifier.EventOrderReady
	case entity.StatusDelivered:
		return notifier.EventOrderDelivered
	case entity.StatusCancelled:
		return notifier.EventOrderCancelled
	default:
		return notifier.EventOrderCreated
	}
}

// newPickupOTP mints a 4-digit code, zero-padded, uniform over 0000-9999.
// Collisions across live orders are acceptable: the OTP is checked per order,
// never globally.
func newPickupOTP() string {
	return fmt.Sprintf("%04d", rand.IntN(10000))
}
