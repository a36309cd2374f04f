package menu

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/campus-canteen/canteen/internal/entity"
	"github.com/campus-canteen/canteen/internal/storage"
)

var repoTracer = otel.Tracer("github.com/campus-canteen/canteen/repository/menu")

// Collection is the snapshot the menu items live in.
const Collection = "menu-items"

// Repository reads and writes the menu items collection.
type Repository struct {
	store *storage.Store
}

// NewRepository wires a repository backed by the flat-file store.
func NewRepository(store *storage.Store) *Repository {
	return &Repository{store: store}
}

// All returns every menu item across merchants.
func (r *Repository) All(ctx context.Context) ([]entity.MenuItem, error) {
	_, span := repoTracer.Start(ctx, "MenuRepository.All")
	defer span.End()

	var items []entity.MenuItem
	if err := r.store.Load(Collection, &items); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, err
	}
	return items, nil
}

// Upsert inserts or replaces a menu item by id.
func (r *Repository) Upsert(ctx context.Context, item entity.MenuItem) error {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.Upsert", trace.WithAttributes(attribute.String("item.id", item.ID)))
	defer span.End()

	items, err := r.All(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, item)
	}
	if err := r.store.Save(Collection, items); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return err
	}
	return nil
}
