package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/campus-canteen/canteen/internal/config"
)

// Store is the authoritative flat-file record store. Each collection is a
// whole-file JSON snapshot; callers read the full collection, mutate in
// memory, and write the full collection back. The store itself performs no
// locking, so concurrent read-modify-write cycles on the same collection can
// lose updates. Callers that cannot tolerate that must serialize themselves.
type Store struct {
	dir    string
	logger *zap.Logger
}

// Module provides the store to Fx.
var Module = fx.Provide(New)

// New creates the store and ensures the data directory exists.
func New(cfg config.Config, logger *zap.Logger) (*Store, error) {
	return NewAt(cfg.Storage.DataDir, logger)
}

// NewAt creates a store rooted at an explicit directory.
func NewAt(dir string, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("storage: empty data directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Load reads a collection snapshot into out. A missing or unreadable snapshot
// degrades to the zero value of out: the caller sees an empty collection and
// the failure is only logged.
func (s *Store) Load(collection string, out any) error {
	path, err := s.snapshotPath(collection)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		s.logger.Warn("storage read failed; returning empty collection",
			zap.String("collection", collection), zap.Error(err))
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Warn("storage snapshot corrupt; returning empty collection",
			zap.String("collection", collection), zap.Error(err))
		return nil
	}
	return nil
}

// Save replaces a collection snapshot. Unlike reads, write failures are
// surfaced: callers depend on durability and must not report success for a
// record that never hit the disk.
func (s *Store) Save(collection string, in any) error {
	path, err := s.snapshotPath(collection)
	if err != nil {
		return err
	}

	raw, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", collection, err)
	}

	// Write-then-rename keeps the last successful snapshot intact if the
	// process dies mid-write.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		s.logger.Error("storage write failed", zap.String("collection", collection), zap.Error(err))
		return fmt.Errorf("storage: write %s: %w", collection, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		s.logger.Error("storage rename failed", zap.String("collection", collection), zap.Error(err))
		return fmt.Errorf("storage: commit %s: %w", collection, err)
	}
	return nil
}

func (s *Store) snapshotPath(collection string) (string, error) {
	if collection == "" || strings.ContainsAny(collection, `/\`) {
		return "", fmt.Errorf("storage: invalid collection name: %q", collection)
	}
	return filepath.Join(s.dir, collection+".json"), nil
}
