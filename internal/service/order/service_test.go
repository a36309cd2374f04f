package order

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-canteen/canteen/internal/entity"
	"github.com/campus-canteen/canteen/internal/idgen"
	"github.com/campus-canteen/canteen/internal/notifier"
	counterrepo "github.com/campus-canteen/canteen/internal/repository/counter"
	orderrepo "github.com/campus-canteen/canteen/internal/repository/order"
	userrepo "github.com/campus-canteen/canteen/internal/repository/user"
	"github.com/campus-canteen/canteen/internal/storage"
	"github.com/campus-canteen/canteen/pkg/errorbank"
)

type recordedNote struct {
	recipient string
	event     notifier.Event
	payload   map[string]any
}

// captureNotifier records every emitted notification; it can also be told to
// fail to prove notification errors never surface.
type captureNotifier struct {
	mu    sync.Mutex
	notes []recordedNote
	fail  bool
}

func (c *captureNotifier) Notify(_ context.Context, recipient string, event notifier.Event, payload map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("smtp down")
	}
	c.notes = append(c.notes, recordedNote{recipient: recipient, event: event, payload: payload})
	return nil
}

func (c *captureNotifier) Consume(ctx context.Context, _ notifier.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (c *captureNotifier) Topic() string { return "test" }

func (c *captureNotifier) last(t *testing.T) recordedNote {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.notes)
	return c.notes[len(c.notes)-1]
}

type recordingMirror struct {
	mu      sync.Mutex
	upserts map[string]int
	fail    bool
}

func (m *recordingMirror) Upsert(_ context.Context, table, _ string, _ any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("replica unavailable")
	}
	if m.upserts == nil {
		m.upserts = make(map[string]int)
	}
	m.upserts[table]++
	return nil
}

type fixture struct {
	svc      *Service
	store    *storage.Store
	notifier *captureNotifier
	mirror   *recordingMirror
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewAt(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	users := userrepo.NewRepository(store)
	require.NoError(t, users.Put(context.Background(), entity.User{
		ID:    "student-1",
		Role:  entity.RoleStudent,
		Name:  "Asha Rao",
		Phone: "222-222-2222",
		Email: "asha@campus-canteen.test",
	}))

	m := &recordingMirror{}
	n := &captureNotifier{}
	alloc := idgen.NewAllocator(idgen.Params{
		Counters: counterrepo.NewRepository(store),
		Mirror:   m,
		Logger:   zap.NewNop(),
	})

	svc := NewService(Params{
		Orders:   orderrepo.NewRepository(store),
		Users:    users,
		Codes:    alloc,
		Mirror:   m,
		Notifier: n,
		Logger:   zap.NewNop(),
	})

	return &fixture{svc: svc, store: store, notifier: n, mirror: m}
}

func validInput() CreateInput {
	return CreateInput{
		OwnerID:       "student-1",
		MerchantID:    "admin-1",
		Items:         []entity.LineItem{{ItemID: "A", Quantity: 2, UnitPrice: 50}},
		TotalAmount:   100,
		PaymentMethod: "wallet",
		Fulfillment:   entity.FulfillmentInstant,
	}
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "CC-#1", order.Code)
	assert.Equal(t, entity.StatusPending, order.Status)
	assert.Regexp(t, regexp.MustCompile(`^\d{4}$`), order.PickupOTP)
	assert.Equal(t, 100.0, order.TotalAmount)
	assert.False(t, order.CreatedAt.IsZero())
	assert.Equal(t, order.CreatedAt, order.UpdatedAt)

	note := f.notifier.last(t)
	assert.Equal(t, "asha@campus-canteen.test", note.recipient)
	assert.Equal(t, notifier.EventOrderCreated, note.event)
	assert.Equal(t, order.Code, note.payload["order_code"])
	assert.Equal(t, order.PickupOTP, note.payload["pickup_otp"])
	assert.Equal(t, order.TotalAmount, note.payload["total_amount"])

	// Both the order and the counter checkpoint were mirrored.
	assert.Equal(t, 1, f.mirror.upserts[orderrepo.Collection])
	assert.Equal(t, 1, f.mirror.upserts[counterrepo.Collection])
}

func TestSecondOrderSameDayGetsNextCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)

	assert.Equal(t, "CC-#1", first.Code)
	assert.Equal(t, "CC-#2", second.Code)
}

func TestCreateOrderUnknownOwner(t *testing.T) {
	f := newFixture(t)

	in := validInput()
	in.OwnerID = "ghost"
	_, err := f.svc.Create(context.Background(), in)

	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validInput()
	in.Items = nil
	_, err := f.svc.Create(ctx, in)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	in = validInput()
	in.Fulfillment = entity.FulfillmentPreorder
	_, err = f.svc.Create(ctx, in)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	in = validInput()
	in.Fulfillment = entity.FulfillmentPreorder
	scheduled := time.Now().Add(2 * time.Hour)
	in.ScheduledAt = &scheduled
	order, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, order.ScheduledAt)
}

func TestCreateOrderSurvivesMirrorOutage(t *testing.T) {
	f := newFixture(t)
	f.mirror.fail = true

	order, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "CC-#1", order.Code)

	// The durable store has the order even though every mirror write failed.
	var stored []entity.Order
	require.NoError(t, f.store.Load(orderrepo.Collection, &stored))
	require.Len(t, stored, 1)
	assert.Equal(t, order.ID, stored[0].ID)
}

func TestCreateOrderSurvivesNotifierOutage(t *testing.T) {
	f := newFixture(t)
	f.notifier.fail = true

	order, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, order.Status)
}

func TestSetStatusHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)

	for _, next := range []entity.OrderStatus{
		entity.StatusConfirmed, entity.StatusPreparing, entity.StatusReady, entity.StatusDelivered,
	} {
		updated, err := f.svc.SetStatus(ctx, order.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}
}

func TestSetStatusIllegalTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, order.ID, entity.StatusReady)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindUnprocessableEntity, errorbank.From(err).Kind())

	// The order is untouched after the rejected transition.
	listed, err := f.svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, entity.StatusPending, listed[0].Status)
}

func TestSetStatusUnknownStatusRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, order.ID, entity.OrderStatus("shipped"))
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestSetStatusOrderNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SetStatus(context.Background(), "missing", entity.StatusConfirmed)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestReadyNotificationCarriesPickupOTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, order.ID, entity.StatusConfirmed)
	require.NoError(t, err)
	note := f.notifier.last(t)
	assert.Equal(t, notifier.EventOrderConfirmed, note.event)
	assert.NotContains(t, note.payload, "pickup_otp")

	_, err = f.svc.SetStatus(ctx, order.ID, entity.StatusPreparing)
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, order.ID, entity.StatusReady)
	require.NoError(t, err)

	note = f.notifier.last(t)
	assert.Equal(t, notifier.EventOrderReady, note.event)
	assert.Equal(t, order.PickupOTP, note.payload["pickup_otp"])
}

func TestTerminalStatesRejectAllTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)
	for _, next := range []entity.OrderStatus{
		entity.StatusConfirmed, entity.StatusPreparing, entity.StatusReady, entity.StatusDelivered,
	} {
		_, err = f.svc.SetStatus(ctx, order.ID, next)
		require.NoError(t, err)
	}

	for _, next := range []entity.OrderStatus{
		entity.StatusPending, entity.StatusConfirmed, entity.StatusPreparing,
		entity.StatusReady, entity.StatusDelivered, entity.StatusCancelled,
	} {
		_, err := f.svc.SetStatus(ctx, order.ID, next)
		require.Error(t, err, "delivered must reject transition to %s", next)
		assert.Equal(t, errorbank.KindUnprocessableEntity, errorbank.From(err).Kind())
	}
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("pending is cancellable", func(t *testing.T) {
		order, err := f.svc.Create(ctx, validInput())
		require.NoError(t, err)

		cancelled, err := f.svc.Cancel(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusCancelled, cancelled.Status)

		note := f.notifier.last(t)
		assert.Equal(t, notifier.EventOrderCancelled, note.event)
	})

	t.Run("confirmed is cancellable", func(t *testing.T) {
		order, err := f.svc.Create(ctx, validInput())
		require.NoError(t, err)
		_, err = f.svc.SetStatus(ctx, order.ID, entity.StatusConfirmed)
		require.NoError(t, err)

		cancelled, err := f.svc.Cancel(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusCancelled, cancelled.Status)
	})

	t.Run("preparing is not cancellable", func(t *testing.T) {
		order, err := f.svc.Create(ctx, validInput())
		require.NoError(t, err)
		_, err = f.svc.SetStatus(ctx, order.ID, entity.StatusConfirmed)
		require.NoError(t, err)
		_, err = f.svc.SetStatus(ctx, order.ID, entity.StatusPreparing)
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, order.ID)
		require.Error(t, err)
		assert.Equal(t, errorbank.KindConflict, errorbank.From(err).Kind())
	})

	t.Run("cancellation is terminal", func(t *testing.T) {
		order, err := f.svc.Create(ctx, validInput())
		require.NoError(t, err)
		_, err = f.svc.Cancel(ctx, order.ID)
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, order.ID)
		require.Error(t, err)
		assert.Equal(t, errorbank.KindConflict, errorbank.From(err).Kind())

		_, err = f.svc.SetStatus(ctx, order.ID, entity.StatusConfirmed)
		require.Error(t, err)
		assert.Equal(t, errorbank.KindUnprocessableEntity, errorbank.From(err).Kind())
	})
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var created []*entity.Order
	for i := 0; i < 3; i++ {
		order, err := f.svc.Create(ctx, validInput())
		require.NoError(t, err)
		created = append(created, order)
	}

	listed, err := f.svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, listed, 3)

	// Newest first: reverse of creation order.
	assert.Equal(t, created[2].ID, listed[0].ID)
	assert.Equal(t, created[1].ID, listed[1].ID)
	assert.Equal(t, created[0].ID, listed[2].ID)

	// Enriched with owner display fields.
	assert.Equal(t, "Asha Rao", listed[0].OwnerName)
	assert.Equal(t, "222-222-2222", listed[0].OwnerPhone)
}

func TestListOrdersFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)

	in := validInput()
	in.MerchantID = "admin-2"
	b, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, b.ID, entity.StatusConfirmed)
	require.NoError(t, err)

	byMerchant, err := f.svc.List(ctx, Filter{MerchantID: "admin-2"})
	require.NoError(t, err)
	require.Len(t, byMerchant, 1)
	assert.Equal(t, b.ID, byMerchant[0].ID)

	byStatus, err := f.svc.List(ctx, Filter{Status: entity.StatusPending})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, a.ID, byStatus[0].ID)

	byOwner, err := f.svc.List(ctx, Filter{OwnerID: "student-1"})
	require.NoError(t, err)
	assert.Len(t, byOwner, 2)

	_, err = f.svc.List(ctx, Filter{Status: entity.OrderStatus("bogus")})
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestCancelledOrdersStayInTheCollection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, validInput())
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, order.ID)
	require.NoError(t, err)

	listed, err := f.svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, entity.StatusCancelled, listed[0].Status)
}
