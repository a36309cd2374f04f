package idgen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/campus-canteen/canteen/internal/entity"
	"github.com/campus-canteen/canteen/internal/mirror"
	counterrepo "github.com/campus-canteen/canteen/internal/repository/counter"
)

var allocTracer = otel.Tracer("github.com/campus-canteen/canteen/idgen")

// codeFormat renders the human-readable order code shown to staff and
// students, e.g. "CC-#7".
const codeFormat = "CC-#%d"

// Allocator mints daily-resetting, strictly increasing order codes. Every
// allocation goes through one in-process mutex: the checkpointed counter file
// is read-modify-write over a whole snapshot and provides no isolation of its
// own, so the lock is the sole thing standing between two concurrent
// allocations and a duplicate code.
type Allocator struct {
	mu       sync.Mutex
	counters *counterrepo.Repository
	mirror   mirror.Store
	logger   *zap.Logger
	now      func() time.Time
}

// Params defines dependencies for constructing an Allocator.
type Params struct {
	fx.In

	Counters *counterrepo.Repository
	Mirror   mirror.Store
	Logger   *zap.Logger
}

// Module provides the allocator to Fx.
var Module = fx.Provide(NewAllocator)

// NewAllocator wires an Allocator on the wall clock.
func NewAllocator(p Params) *Allocator {
	return &Allocator{
		counters: p.Counters,
		mirror:   p.Mirror,
		logger:   p.Logger,
		now:      time.Now,
	}
}

// Next allocates the next order code. The counter resets to 1 whenever the
// checkpointed date differs from the calendar date at the instant of
// allocation, which is also what resolves the midnight rollover.
func (a *Allocator) Next(ctx context.Context) (string, error) {
	ctx, span := allocTracer.Start(ctx, "Allocator.Next")
	defer span.End()

	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.counters.Get(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "counter load failed")
		return "", err
	}

	today := a.now().Format(entity.CounterDateLayout)
	if c.Date != today {
		c = entity.DailyCounter{Date: today, Counter: 1}
	} else {
		c.Counter++
	}

	// The checkpoint must land before the code is handed out; a crash after
	// this point can skip codes but never repeat one.
	if err := a.counters.Put(ctx, c); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "counter checkpoint failed")
		return "", err
	}

	if err := a.mirror.Upsert(ctx, counterrepo.Collection, c.Date, c); err != nil {
		a.logger.Warn("counter mirror write failed", zap.String("date", c.Date), zap.Error(err))
	}

	span.SetAttributes(attribute.Int("counter.value", c.Counter))
	return fmt.Sprintf(codeFormat, c.Counter), nil
}
