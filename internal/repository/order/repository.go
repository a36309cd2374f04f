package order

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/campus-canteen/canteen/internal/entity"
	"github.com/campus-canteen/canteen/internal/storage"
)

var repoTracer = otel.Tracer("github.com/campus-canteen/canteen/repository/order")

// Collection is the snapshot the orders live in.
const Collection = "orders"

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// Repository encapsulates read/write access for the orders collection.
// Orders are appended in creation order, so the snapshot is oldest-first.
type Repository struct {
	store *storage.Store
}

// NewRepository wires a repository backed by the flat-file store.
func NewRepository(store *storage.Store) *Repository {
	return &Repository{store: store}
}

// All returns every order in insertion order.
func (r *Repository) All(ctx context.Context) ([]entity.Order, error) {
	_, span := repoTracer.Start(ctx, "OrderRepository.All")
	defer span.End()

	var orders []entity.Order
	if err := r.store.Load(Collection, &orders); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, err
	}
	return orders, nil
}

// GetByID fetches an order by its internal identifier.
func (r *Repository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	orders, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].ID == id {
			return &orders[i], nil
		}
	}
	span.SetStatus(codes.Error, "not found")
	return nil, ErrNotFound
}

// Append persists a new order at the end of the collection.
func (r *Repository) Append(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Append", trace.WithAttributes(attribute.String("order.code", order.Code)))
	defer span.End()

	orders, err := r.All(ctx)
	if err != nil {
		return err
	}
	orders = append(orders, *order)
	if err := r.store.Save(Collection, orders); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return err
	}
	return nil
}

// Update replaces the stored order with the same internal identifier.
func (r *Repository) Update(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Update", trace.WithAttributes(attribute.String("order.id", order.ID)))
	defer span.End()

	orders, err := r.All(ctx)
	if err != nil {
		return err
	}
	for i := range orders {
		if orders[i].ID == order.ID {
			orders[i] = *order
			if err := r.store.Save(Collection, orders); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "save failed")
				return err
			}
			return nil
		}
	}
	span.SetStatus(codes.Error, "not found")
	return ErrNotFound
}
