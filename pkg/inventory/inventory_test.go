package inventory

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescris/logiflow/pkg/models"
	"github.com/andrescris/logiflow/pkg/store"
)

func newTestService() (*Service, *store.Memory) {
	db := store.NewMemory()
	log := logrus.New()
	log.SetOutput(io.Discard)
	svc := NewService(db, log)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, db
}

func TestCreateRejectsDuplicateSKU(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, models.InventoryItem{SKU: "KIT-01", Nombre: "Kit", Stock: 3})
	require.NoError(t, err)

	_, err = svc.Create(ctx, models.InventoryItem{SKU: "KIT-01", Nombre: "Otro"})
	assert.ErrorIs(t, err, models.ErrAlreadyExists)

	_, err = svc.Create(ctx, models.InventoryItem{SKU: "NEG", Nombre: "Negativo", Stock: -1})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestQuickEditProtectsSKU(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Create(ctx, models.InventoryItem{SKU: "KIT-01", Nombre: "Kit", Stock: 3, PrecioVenta: 50})
	require.NoError(t, err)

	item, err := svc.Update(ctx, "KIT-01", map[string]interface{}{"sku": "HACK", "stock": 10, "precio_venta": 55.5})
	require.NoError(t, err)
	assert.Equal(t, "KIT-01", item.SKU)
	assert.Equal(t, 10, item.Stock)

	stored, err := svc.Get(ctx, "KIT-01")
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Stock)
	assert.Equal(t, 55.5, stored.PrecioVenta)

	_, err = svc.Update(ctx, "KIT-01", map[string]interface{}{"stock": -4})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Update(ctx, "MISSING", map[string]interface{}{"stock": 1})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDiscontinueAndLowStock(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	for _, it := range []models.InventoryItem{
		{SKU: "A", Nombre: "A", Stock: 1, StockMinimo: 2},
		{SKU: "B", Nombre: "B", Stock: 10, StockMinimo: 2},
		{SKU: "C", Nombre: "C", Stock: 0, StockMinimo: 0},
	} {
		_, err := svc.Create(ctx, it)
		require.NoError(t, err)
	}

	require.NoError(t, svc.Discontinue(ctx, "C"))
	assert.ErrorIs(t, svc.Discontinue(ctx, "Z"), models.ErrNotFound)

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "A", low[0].SKU)

	active, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	all, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[2].Descontinuado)
}

func TestBulkImport(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Create(ctx, models.InventoryItem{SKU: "A", Nombre: "A", Stock: 1})
	require.NoError(t, err)
	created, err := svc.Get(ctx, "A")
	require.NoError(t, err)

	report := svc.BulkImport(ctx, []models.InventoryItem{
		{SKU: "A", Nombre: "A v2", Stock: 7},
		{SKU: "", Nombre: "sin sku"},
		{SKU: "B", Nombre: "B", Stock: 2},
	})
	assert.Equal(t, 2, report.Imported)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, 2, report.Failed[0].Row)

	a, err := svc.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 7, a.Stock)
	assert.Equal(t, "A v2", a.Nombre)
	assert.Equal(t, created.CreatedAt, a.CreatedAt)

	b, err := svc.Get(ctx, "B")
	require.NoError(t, err)
	assert.False(t, b.CreatedAt.IsZero())
}
