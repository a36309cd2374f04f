package counter

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/campus-canteen/canteen/internal/entity"
	"github.com/campus-canteen/canteen/internal/storage"
)

var repoTracer = otel.Tracer("github.com/campus-canteen/canteen/repository/counter")

// Collection is the singleton snapshot behind order code allocation.
const Collection = "order-counter"

// Repository checkpoints the daily counter. The id allocator is its only
// caller and owns all mutation.
type Repository struct {
	store *storage.Store
}

// NewRepository wires a repository backed by the flat-file store.
func NewRepository(store *storage.Store) *Repository {
	return &Repository{store: store}
}

// Get returns the last checkpointed counter, or a zero counter when no
// checkpoint exists yet.
func (r *Repository) Get(ctx context.Context) (entity.DailyCounter, error) {
	_, span := repoTracer.Start(ctx, "CounterRepository.Get")
	defer span.End()

	var c entity.DailyCounter
	if err := r.store.Load(Collection, &c); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return entity.DailyCounter{}, err
	}
	return c, nil
}

// Put checkpoints the counter.
func (r *Repository) Put(ctx context.Context, c entity.DailyCounter) error {
	_, span := repoTracer.Start(ctx, "CounterRepository.Put")
	defer span.End()

	if err := r.store.Save(Collection, c); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return err
	}
	return nil
}
