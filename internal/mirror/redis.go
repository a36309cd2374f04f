package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/campus-canteen/canteen/internal/config"
)

// redisStore keeps one JSON value per record under "<table>:<key>". Values
// never expire; the mirror is a replica, not a cache.
type redisStore struct {
	client *goredis.Client
}

func newRedisStore(lc fx.Lifecycle, cfg config.Mirror, logger *zap.Logger) (Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				// Reachability is checked but not required: the mirror is
				// allowed to be down for the whole process lifetime.
				if logger != nil {
					logger.Warn("redis mirror unreachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
				}
				return nil
			}
			if logger != nil {
				logger.Info("redis mirror connected", zap.String("addr", cfg.Redis.Addr))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if logger != nil {
				logger.Info("closing redis mirror")
			}
			return client.Close()
		},
	})

	return &redisStore{client: client}, nil
}

func (s *redisStore) Upsert(ctx context.Context, table, key string, record any) error {
	if table == "" || key == "" {
		return errors.New("mirror: table and key are required")
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("mirror: encode record: %w", err)
	}
	return s.client.Set(ctx, table+":"+key, raw, 0).Err()
}
