package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescris/logiflow/pkg/models"
)

func TestMemoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Create(ctx, "clients", "12345678", map[string]interface{}{"nombre": "Ana", "stock": 3}))
	err := m.Create(ctx, "clients", "12345678", map[string]interface{}{"nombre": "Otra"})
	assert.True(t, errors.Is(err, models.ErrAlreadyExists))

	doc, err := m.Get(ctx, "clients", "12345678")
	require.NoError(t, err)
	assert.Equal(t, "Ana", doc.Data["nombre"])
	assert.Equal(t, float64(3), doc.Data["stock"])

	_, err = m.Get(ctx, "clients", "nope")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestMemorySetMergeIsDeep(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SetMerge(ctx, "shopify_leads", "1", map[string]interface{}{
		"call_status": "CONTACTADO",
		"pago":        map[string]interface{}{"total": 10.0, "metodo": "cod"},
		"productos":   []interface{}{"a", "b"},
	}))
	require.NoError(t, m.SetMerge(ctx, "shopify_leads", "1", map[string]interface{}{
		"pago":      map[string]interface{}{"total": 12.5},
		"productos": []interface{}{"c"},
	}))

	doc, err := m.Get(ctx, "shopify_leads", "1")
	require.NoError(t, err)
	assert.Equal(t, "CONTACTADO", doc.Data["call_status"])
	assert.Equal(t, map[string]interface{}{"total": 12.5, "metodo": "cod"}, doc.Data["pago"])
	assert.Equal(t, []interface{}{"c"}, doc.Data["productos"])
}

func TestMemoryUpdateAppends(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	err := m.Update(ctx, "orders", "x", map[string]interface{}{"estado": "PENDIENTE"})
	assert.True(t, errors.Is(err, models.ErrNotFound))

	require.NoError(t, m.Create(ctx, "orders", "x", map[string]interface{}{"historial": []interface{}{}}))
	entry := map[string]interface{}{"id": "h1", "accion": "creada"}
	require.NoError(t, m.Update(ctx, "orders", "x", map[string]interface{}{
		"estado":    "EN_PREPARACION",
		"historial": ArrayAppend(entry),
	}))
	require.NoError(t, m.Update(ctx, "orders", "x", map[string]interface{}{"historial": ArrayAppend(entry)}))

	doc, err := m.Get(ctx, "orders", "x")
	require.NoError(t, err)
	assert.Equal(t, "EN_PREPARACION", doc.Data["estado"])
	assert.Len(t, doc.Data["historial"], 1)
}

func TestMemoryQuery(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.SetMerge(ctx, "webhooks", "b", map[string]interface{}{"event": "order.created", "active": true}))
	require.NoError(t, m.SetMerge(ctx, "webhooks", "a", map[string]interface{}{"event": "order.created", "active": false}))
	require.NoError(t, m.SetMerge(ctx, "webhooks", "c", map[string]interface{}{"event": "lead.created", "active": true}))

	docs, err := m.Query(ctx, "webhooks", QueryFilter{Field: "event", Operator: "==", Value: "order.created"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)

	docs, err = m.Query(ctx, "webhooks",
		QueryFilter{Field: "event", Operator: "==", Value: "order.created"},
		QueryFilter{Field: "active", Operator: "==", Value: true})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0].ID)

	docs, err = m.Query(ctx, "webhooks", QueryFilter{Field: "event", Operator: "in", Value: []string{"lead.created"}})
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = m.Query(ctx, "webhooks", QueryFilter{Field: "event", Operator: ">", Value: 1})
	assert.Error(t, err)
}

func TestMemoryWatch(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var sizes []int
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx, "clients", func(docs []Document) {
			mu.Lock()
			sizes = append(sizes, len(docs))
			mu.Unlock()
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sizes) >= 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.SetMerge(context.Background(), "clients", "1", map[string]interface{}{"nombre": "Ana"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return sizes[len(sizes)-1] == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestDocumentRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC)
	lead := models.Lead{ID: "1", Nombre: "Ana", Source: models.SourceShopify, CreatedAt: &now}

	data, err := ToDocument(lead)
	require.NoError(t, err)
	assert.NotContains(t, data, "updated_at")

	var back models.Lead
	require.NoError(t, FromDocument(Document{ID: "1", Data: data}, &back))
	assert.Equal(t, lead, back)
}
