package menu

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-canteen/canteen/internal/entity"
	menurepo "github.com/campus-canteen/canteen/internal/repository/menu"
	"github.com/campus-canteen/canteen/internal/storage"
	"github.com/campus-canteen/canteen/pkg/errorbank"
)

type stubMirror struct {
	fail bool
}

func (m stubMirror) Upsert(context.Context, string, string, any) error {
	if m.fail {
		return errors.New("replica unavailable")
	}
	return nil
}

func newTestService(t *testing.T, mirrorFails bool) *Service {
	t.Helper()
	store, err := storage.NewAt(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return NewService(Params{
		Items:  menurepo.NewRepository(store),
		Mirror: stubMirror{fail: mirrorFails},
		Logger: zap.NewNop(),
	})
}

func TestUpsertAndList(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()

	item, err := svc.Upsert(ctx, entity.MenuItem{MerchantID: "m1", Name: "Veg Thali", Price: 90, Available: true})
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID, "missing id gets generated")

	item.Price = 95
	_, err = svc.Upsert(ctx, *item)
	require.NoError(t, err)

	items, err := svc.List(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 95.0, items[0].Price)
}

func TestListFiltersByMerchant(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, entity.MenuItem{MerchantID: "m1", Name: "Dosa", Price: 60})
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, entity.MenuItem{MerchantID: "m2", Name: "Coffee", Price: 25})
	require.NoError(t, err)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	m2, err := svc.List(ctx, "m2")
	require.NoError(t, err)
	require.Len(t, m2, 1)
	assert.Equal(t, "Coffee", m2[0].Name)
}

func TestUpsertValidation(t *testing.T) {
	svc := newTestService(t, false)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, entity.MenuItem{MerchantID: "m1", Price: 10})
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	_, err = svc.Upsert(ctx, entity.MenuItem{Name: "Dosa", Price: 10})
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	_, err = svc.Upsert(ctx, entity.MenuItem{MerchantID: "m1", Name: "Dosa", Price: -1})
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestUpsertSurvivesMirrorOutage(t *testing.T) {
	svc := newTestService(t, true)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, entity.MenuItem{MerchantID: "m1", Name: "Dosa", Price: 60})
	require.NoError(t, err)

	items, err := svc.List(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
