package analytics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/campus-canteen/canteen/internal/entity"
	orderrepo "github.com/campus-canteen/canteen/internal/repository/order"
	"github.com/campus-canteen/canteen/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/campus-canteen/canteen/service/analytics")

// DailySummary aggregates one merchant-day of orders. Revenue trusts the
// stored totalAmount; the engine does not re-price line items.
type DailySummary struct {
	Date       string         `json:"date"`
	MerchantID string         `json:"merchant_id,omitempty"`
	Orders     int            `json:"orders"`
	Revenue    float64        `json:"revenue"`
	Cancelled  int            `json:"cancelled"`
	ByStatus   map[string]int `json:"by_status"`
}

// Service computes read-only summaries over the orders collection.
type Service struct {
	orders *orderrepo.Repository
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Orders *orderrepo.Repository
}

// Module provides the analytics service to Fx.
var Module = fx.Provide(NewService)

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{orders: p.Orders}
}

// Daily summarises orders created on the given calendar day, optionally for a
// single merchant. Cancelled orders count separately and contribute no
// revenue.
func (s *Service) Daily(ctx context.Context, merchantID string, day time.Time) (*DailySummary, error) {
	ctx, span := serviceTracer.Start(ctx, "AnalyticsService.Daily", trace.WithAttributes(
		attribute.String("merchant_id", merchantID),
	))
	defer span.End()

	orders, err := s.orders.All(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, errorbank.Internal("failed to load orders", errorbank.WithCause(err))
	}

	date := day.Format(entity.CounterDateLayout)
	summary := &DailySummary{
		Date:       date,
		MerchantID: merchantID,
		ByStatus:   make(map[string]int),
	}

	for _, o := range orders {
		if o.CreatedAt.Format(entity.CounterDateLayout) != date {
			continue
		}
		if merchantID != "" && o.MerchantID != merchantID {
			continue
		}
		summary.Orders++
		summary.ByStatus[string(o.Status)]++
		if o.Status == entity.StatusCancelled {
			summary.Cancelled++
			continue
		}
		summary.Revenue += o.TotalAmount
	}

	return summary, nil
}
