package menu

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/campus-canteen/canteen/internal/entity"
	"github.com/campus-canteen/canteen/internal/mirror"
	menurepo "github.com/campus-canteen/canteen/internal/repository/menu"
	"github.com/campus-canteen/canteen/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/campus-canteen/canteen/service/menu")

// Service manages per-merchant menus on top of the flat-file store.
type Service struct {
	items  *menurepo.Repository
	mirror mirror.Store
	logger *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Items  *menurepo.Repository
	Mirror mirror.Store
	Logger *zap.Logger
}

// Module provides the menu service to Fx.
var Module = fx.Provide(NewService)

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{items: p.Items, mirror: p.Mirror, logger: p.Logger}
}

// List returns the menu, optionally narrowed to one merchant.
func (s *Service) List(ctx context.Context, merchantID string) ([]entity.MenuItem, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.List", trace.WithAttributes(attribute.String("merchant_id", merchantID)))
	defer span.End()

	items, err := s.items.All(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, errorbank.Internal("failed to load menu", errorbank.WithCause(err))
	}
	if merchantID == "" {
		return items, nil
	}

	filtered := make([]entity.MenuItem, 0, len(items))
	for _, item := range items {
		if item.MerchantID == merchantID {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

// Upsert creates or replaces a menu item and mirrors the record.
func (s *Service) Upsert(ctx context.Context, item entity.MenuItem) (*entity.MenuItem, error) {
	ctx, span := serviceTracer.Start(ctx, "MenuService.Upsert", trace.WithAttributes(attribute.String("item.id", item.ID)))
	defer span.End()

	if item.Name == "" {
		return nil, errorbank.BadRequest("menu item name is required")
	}
	if item.MerchantID == "" {
		return nil, errorbank.BadRequest("menu item merchant is required")
	}
	if item.Price < 0 {
		return nil, errorbank.BadRequest("menu item price must not be negative")
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	if err := s.items.Upsert(ctx, item); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, errorbank.Internal("failed to persist menu item", errorbank.WithCause(err))
	}

	if err := s.mirror.Upsert(ctx, menurepo.Collection, item.ID, item); err != nil {
		s.logger.Warn("menu mirror write failed", zap.String("id", item.ID), zap.Error(err))
	}

	return &item, nil
}
