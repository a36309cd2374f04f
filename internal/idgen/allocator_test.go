package idgen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-canteen/canteen/internal/entity"
	counterrepo "github.com/campus-canteen/canteen/internal/repository/counter"
	"github.com/campus-canteen/canteen/internal/storage"
)

type noopMirror struct{}

func (noopMirror) Upsert(context.Context, string, string, any) error { return nil }

type failingMirror struct{}

func (failingMirror) Upsert(context.Context, string, string, any) error {
	return errors.New("mirror down")
}

func newTestAllocator(t *testing.T) *Allocator {
	t.Helper()
	store, err := storage.NewAt(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return NewAllocator(Params{
		Counters: counterrepo.NewRepository(store),
		Mirror:   noopMirror{},
		Logger:   zap.NewNop(),
	})
}

func TestFirstCodeOfTheDay(t *testing.T) {
	alloc := newTestAllocator(t)

	code, err := alloc.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "CC-#1", code)
}

func TestCodesIncreaseSequentially(t *testing.T) {
	alloc := newTestAllocator(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		code, err := alloc.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("CC-#%d", i), code)
	}
}

func TestConcurrentAllocationsAreDistinctAndContiguous(t *testing.T) {
	alloc := newTestAllocator(t)
	ctx := context.Background()

	const n = 50
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = make(map[string]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, err := alloc.Next(ctx)
			assert.NoError(t, err)
			mu.Lock()
			codes[code] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, codes, n, "codes must be pairwise distinct")
	for i := 1; i <= n; i++ {
		assert.Contains(t, codes, fmt.Sprintf("CC-#%d", i))
	}
}

func TestDayRolloverResetsCounter(t *testing.T) {
	alloc := newTestAllocator(t)
	ctx := context.Background()

	day1 := time.Date(2026, 8, 28, 23, 59, 0, 0, time.UTC)
	alloc.now = func() time.Time { return day1 }

	for i := 0; i < 7; i++ {
		_, err := alloc.Next(ctx)
		require.NoError(t, err)
	}

	alloc.now = func() time.Time { return day1.Add(2 * time.Minute) }

	code, err := alloc.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "CC-#1", code, "counter must reset to 1 on a new calendar day")
}

func TestRolloverComparesDateAtAllocationTime(t *testing.T) {
	alloc := newTestAllocator(t)
	ctx := context.Background()

	alloc.now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }
	_, err := alloc.Next(ctx)
	require.NoError(t, err)

	// Same day later on: no reset.
	alloc.now = func() time.Time { return time.Date(2026, 8, 28, 19, 30, 0, 0, time.UTC) }
	code, err := alloc.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "CC-#2", code)
}

func TestCounterSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewAt(dir, zap.NewNop())
	require.NoError(t, err)
	repo := counterrepo.NewRepository(store)

	alloc := NewAllocator(Params{Counters: repo, Mirror: noopMirror{}, Logger: zap.NewNop()})
	ctx := context.Background()

	_, err = alloc.Next(ctx)
	require.NoError(t, err)
	_, err = alloc.Next(ctx)
	require.NoError(t, err)

	// A fresh allocator over the same data directory continues the sequence.
	store2, err := storage.NewAt(dir, zap.NewNop())
	require.NoError(t, err)
	alloc2 := NewAllocator(Params{Counters: counterrepo.NewRepository(store2), Mirror: noopMirror{}, Logger: zap.NewNop()})

	code, err := alloc2.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "CC-#3", code)
}

func TestMirrorFailureDoesNotAffectAllocation(t *testing.T) {
	store, err := storage.NewAt(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	alloc := NewAllocator(Params{
		Counters: counterrepo.NewRepository(store),
		Mirror:   failingMirror{},
		Logger:   zap.NewNop(),
	})

	code, err := alloc.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "CC-#1", code)

	// The checkpoint landed despite the mirror being down.
	c, err := counterrepo.NewRepository(store).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.DailyCounter{Date: time.Now().Format(entity.CounterDateLayout), Counter: 1}, c)
}
