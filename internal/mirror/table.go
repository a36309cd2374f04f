package mirror

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/schema"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/campus-canteen/canteen/internal/config"
)

// Record is one mirrored row. Every logical table shares the same physical
// table keyed by (table_name, record_key); the payload is the record's JSON.
type Record struct {
	bun.BaseModel `bun:"table:mirror_records"`

	TableName string    `bun:"table_name,pk"`
	RecordKey string    `bun:"record_key,pk"`
	Payload   string    `bun:"payload"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// tableStore replicates records into a SQL table via bun.
type tableStore struct {
	db     *bun.DB
	driver string
}

func newTableStore(lc fx.Lifecycle, cfg config.MirrorTable, logger *zap.Logger) (Store, error) {
	db, err := OpenTableDB(cfg)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := db.DB.PingContext(pingCtx); err != nil {
				if logger != nil {
					logger.Warn("table mirror unreachable at startup", zap.String("driver", cfg.Driver), zap.Error(err))
				}
				return nil
			}
			if logger != nil {
				logger.Info("table mirror connected", zap.String("driver", cfg.Driver))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if logger != nil {
				logger.Info("closing table mirror")
			}
			return db.Close()
		},
	})

	return &tableStore{db: db, driver: cfg.Driver}, nil
}

func (s *tableStore) Upsert(ctx context.Context, table, key string, record any) error {
	if table == "" || key == "" {
		return errors.New("mirror: table and key are required")
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("mirror: encode record: %w", err)
	}

	row := &Record{
		TableName: table,
		RecordKey: key,
		Payload:   string(raw),
		UpdatedAt: time.Now().UTC(),
	}

	insert := s.db.NewInsert().Model(row)
	if s.driver == "mysql" {
		insert = insert.On("DUPLICATE KEY UPDATE").
			Set("payload = VALUES(payload)").
			Set("updated_at = VALUES(updated_at)")
	} else {
		insert = insert.On("CONFLICT (table_name, record_key) DO UPDATE").
			Set("payload = EXCLUDED.payload").
			Set("updated_at = EXCLUDED.updated_at")
	}

	_, err = insert.Exec(ctx)
	return err
}

// OpenTableDB opens a bun connection for the mirror table. The migrator
// shares it to manage the mirror schema.
func OpenTableDB(cfg config.MirrorTable) (*bun.DB, error) {
	dial, err := selectDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	sqlDB, err := openSQLDB(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open mirror table: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxConnLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}

	return bun.NewDB(sqlDB, dial), nil
}

func selectDialect(driver string) (schema.Dialect, error) {
	switch driver {
	case "postgres":
		return pgdialect.New(), nil
	case "mysql":
		return mysqldialect.New(), nil
	case "sqlite":
		return sqlitedialect.New(), nil
	default:
		return nil, fmt.Errorf("unsupported mirror table driver: %s", driver)
	}
}

func openSQLDB(driver, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("empty DSN")
	}

	switch driver {
	case "postgres":
		connector := pgdriver.NewConnector(pgdriver.WithDSN(dsn))
		return sql.OpenDB(connector), nil
	case "mysql":
		return sql.Open("mysql", dsn)
	case "sqlite":
		return sql.Open("sqlite3", dsn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}
