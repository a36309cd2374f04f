package user

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

var repoTracer = otel.Tracer("github.com/campus-canteen/canteen/repository/user")

// Collection is the snapshot the directory accounts live in.
const Collection = "users"

// ErrNotFound is returned when an account is missing.
var ErrNotFound = errors.New("user not found")

// Repository reads and writes the directory accounts collection.
type Repository struct {
	store *storage.Store
}

// NewRepository wires a repository backed by the flat-file store.
func NewRepository(store *storage.Store) *Repository {
	return &Repository{store: store}
}

// All returns every directory account.
func (r *Repository) All(ctx context.Context) ([]entity.User, error) {
	_, span := repoTracer.Start(ctx, "UserRepository.All")
	defer span.End()

	var users []entity.User
	if err := r.store.Load(Collection, &users); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, err
	}
	return users, nil
}

// GetByID resolves an account reference.
func (r *Repository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	ctx, span := repoTracer.Start(ctx, "UserRepository.GetByID", trace.WithAttributes(attribute.String("user.id", id)))
	defer span.End()

	users, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	span.SetStatus(codes.Error, "not found")
	return nil, ErrNotFound
}

// Put inserts or replaces an account by id.
func (r *Repository) Put(ctx context.Context, u entity.User) error {
	ctx, span := repoTracer.Start(ctx, "UserRepository.Put", trace.WithAttributes(attribute.String("user.id", u.ID)))
	defer span.End()

	users, err := r.All(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range users {
		if users[i].ID == u.ID {
			users[i] = u
			replaced = true
			break
		}
	}
	if !replaced {
		users = append(users, u)
	}
	if err := r.store.Save(Collection, users); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return err
	}
	return nil
}
