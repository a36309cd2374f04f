package mirror

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/campus-canteen/canteen/internal/config"
)

// Store is the best-effort replica of individual records in an external
// keyed table. It is a cache/analytics replica, never a correctness
// dependency: callers log upsert failures and move on, and the engine must
// keep working with the mirror permanently unavailable.
type Store interface {
	Upsert(ctx context.Context, table, key string, record any) error
}

// Module provides the mirror store to the Fx graph.
var Module = fx.Provide(NewStore)

// NewStore initialises the configured mirror backend (redis, table, or noop).
func NewStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.Mirror.Driver {
	case "noop":
		if logger != nil {
			logger.Info("mirror disabled; using noop store")
		}
		return noopStore{}, nil
	case "redis":
		return newRedisStore(lc, cfg.Mirror, logger)
	case "table":
		return newTableStore(lc, cfg.Mirror.Table, logger)
	default:
		return nil, fmt.Errorf("unsupported mirror driver: %s", cfg.Mirror.Driver)
	}
}

type noopStore struct{}

func (noopStore) Upsert(context.Context, string, string, any) error {
	return nil
}
