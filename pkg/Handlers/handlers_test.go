package Handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescris/logiflow/pkg/ingest"
	"github.com/andrescris/logiflow/pkg/inventory"
	"github.com/andrescris/logiflow/pkg/models"
	"github.com/andrescris/logiflow/pkg/orders"
	"github.com/andrescris/logiflow/pkg/queue"
	"github.com/andrescris/logiflow/pkg/signature"
	"github.com/andrescris/logiflow/pkg/store"
	"github.com/andrescris/logiflow/pkg/webhooks"
)

const apiKey = "ingest-key"

const shopifyOrder = `{
  "id": 5550001,
  "name": "#2001",
  "total_price": "120.00",
  "created_at": "2024-06-10T23:30:00-05:00",
  "shipping_address": {"first_name": "Rosa", "last_name": "Quispe", "city": "Cusco", "province": "Cusco", "phone": "+51 984 111 222"},
  "line_items": [{"id": 9, "sku": "KIT-01", "title": "Kit", "quantity": 2, "price": "60.00"}]
}`

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	db     *store.Memory
	server *Server
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	db := store.NewMemory()
	log := logrus.New()
	log.SetOutput(io.Discard)

	projection := queue.NewProjection(db, log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = projection.Run(ctx) }()
	require.NoError(t, projection.WaitReady(ctx))

	dispatcher := webhooks.NewDispatcher(db, nil, time.Second, log)
	t.Cleanup(dispatcher.Wait)

	s := &Server{
		Stores:    signature.NewStoreTable(map[string]string{"cusco": "shpss_cusco", "nosecret": ""}),
		Ingest:    ingest.NewService(db, nil, dispatcher, log),
		Queue:     projection,
		Tables:    queue.NewTableConfigs(db),
		Orders:    orders.NewService(db, nil, 0, dispatcher, log),
		Inventory: inventory.NewService(db, log),
		Webhooks:  webhooks.NewConfigs(db),
		Location:  time.FixedZone("PET", -5*3600),
		Log:       log,
	}
	r := gin.New()
	s.Register(r, RouterConfig{IngestionAPIKey: apiKey, AuthDisabled: true})
	return testEnv{router: r, db: db, server: s}
}

func (e testEnv) do(method, path, contentType, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestShopifyWebhook(t *testing.T) {
	e := newTestEnv(t)
	sig := signature.Sign([]byte(shopifyOrder), "shpss_cusco")

	w := e.do(http.MethodPost, "/api/webhooks/shopify/lima", "application/json", shopifyOrder, signature.HeaderShopify, sig)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodPost, "/api/webhooks/shopify/cusco", "application/json", shopifyOrder, signature.HeaderShopify, "bad")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodPost, "/api/webhooks/shopify/nosecret", "application/json", shopifyOrder, signature.HeaderShopify, signature.Sign([]byte(shopifyOrder), ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodPost, "/api/webhooks/shopify/cusco", "application/json", shopifyOrder, signature.HeaderShopify, sig)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, true, data["created"])

	doc, err := e.db.Get(context.Background(), models.CollectionShopifyLeads, "5550001")
	require.NoError(t, err)
	assert.Equal(t, "Rosa Quispe", doc.Data["nombre"])
	assert.Equal(t, "984111222", doc.Data["telefono"])
	assert.Equal(t, "cusco", doc.Data["tienda"])

	w = e.do(http.MethodPost, "/api/webhooks/shopify/cusco", "application/json", shopifyOrder, signature.HeaderShopify, sig)
	require.Equal(t, http.StatusOK, w.Code)
	again, err := e.db.Get(context.Background(), models.CollectionShopifyLeads, "5550001")
	require.NoError(t, err)
	assert.Equal(t, doc.Data, again.Data)
}

func TestDataIngestion(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodPost, "/api/data-ingestion", "application/json", shopifyOrder)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodPost, "/api/data-ingestion?api_key="+apiKey, "application/json", `{"foo": 1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/api/data-ingestion?api_key="+apiKey+"&store=cusco", "application/json", shopifyOrder)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "shopify", decode(t, w)["source"])

	noDNI := `{"id": 10, "name": "Sin DNI", "custom_fields_values": [{"field_code": "PHONE", "values": [{"value": "999000111"}]}]}`
	w = e.do(http.MethodPost, "/api/data-ingestion?api_key="+apiKey, "application/json", noDNI)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	docs, err := e.db.Query(context.Background(), models.CollectionClients)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestKommoWebhook(t *testing.T) {
	e := newTestEnv(t)

	withDNI := `{"id": 11, "name": "Luis", "custom_fields_values": [{"field_code": "DNI", "values": [{"value": "44556677"}]}]}`
	w := e.do(http.MethodPost, "/api/kommo-webhook?api_key="+apiKey, "application/json", withDNI)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, err := e.db.Get(context.Background(), models.CollectionClients, "44556677")
	assert.NoError(t, err)

	w = e.do(http.MethodPost, "/api/kommo-webhook?api_key="+apiKey, "application/json", `{"id": 12, "name": "Sin DNI"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	form := "leads%5Bstatus%5D%5B0%5D%5Bid%5D=991"
	w = e.do(http.MethodPost, "/api/kommo-webhook?api_key="+apiKey, "application/x-www-form-urlencoded", form)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = e.do(http.MethodPost, "/api/kommo-webhook?api_key="+apiKey, "application/x-www-form-urlencoded", "account%5Bid%5D=1")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestKommoWebhookDetectsShopifyOrder(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodPost, "/api/kommo-webhook?api_key="+apiKey+"&store=cusco", "application/json", shopifyOrder)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "shopify", decode(t, w)["source"])

	doc, err := e.db.Get(context.Background(), models.CollectionShopifyLeads, "5550001")
	require.NoError(t, err)
	assert.Equal(t, "cusco", doc.Data["tienda"])
}

func TestKommoWebhookJSONWithoutContentType(t *testing.T) {
	e := newTestEnv(t)

	withDNI := `  {"id": 11, "name": "Luis", "custom_fields_values": [{"field_code": "DNI", "values": [{"value": "44556677"}]}]}`
	w := e.do(http.MethodPost, "/api/kommo-webhook?api_key="+apiKey, "", withDNI)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, err := e.db.Get(context.Background(), models.CollectionClients, "44556677")
	assert.NoError(t, err)

	w = e.do(http.MethodPost, "/api/kommo-webhook?api_key="+apiKey, "text/plain", `{"foo": 1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueueAndConfirmFlow(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sig := signature.Sign([]byte(shopifyOrder), "shpss_cusco")
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/api/webhooks/shopify/cusco", "application/json", shopifyOrder, signature.HeaderShopify, sig).Code)

	require.Eventually(t, func() bool {
		w := e.do(http.MethodGet, "/api/call-center/queue", "", "")
		return w.Code == http.StatusOK && decode(t, w)["count"] == 1.0
	}, time.Second, 10*time.Millisecond)

	w := e.do(http.MethodGet, "/api/call-center/queue?time_from=22:00&time_to=02:00&tienda=cusco", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode(t, w)["count"])

	w = e.do(http.MethodGet, "/api/call-center/queue?time_from=09:00&time_to=18:00", "", "")
	assert.Equal(t, 0.0, decode(t, w)["count"])

	w = e.do(http.MethodGet, "/api/call-center/queue?time_from=9", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, "/api/call-center/queue/options/tienda", "", "")
	assert.Equal(t, []interface{}{"cusco"}, decode(t, w)["data"])

	w = e.do(http.MethodPatch, "/api/leads/shopify_leads/5550001/call-status", "application/json", `{"call_status": "INTERESADO"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(http.MethodPost, "/api/leads/shopify_leads/5550001/confirm", "application/json", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode(t, w)["data"].(map[string]interface{})
	orderID := order["id"].(string)

	w = e.do(http.MethodPost, "/api/leads/shopify_leads/5550001/confirm", "application/json", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	require.Eventually(t, func() bool {
		w := e.do(http.MethodGet, "/api/call-center/queue", "", "")
		return decode(t, w)["count"] == 0.0
	}, time.Second, 10*time.Millisecond)

	w = e.do(http.MethodPatch, "/api/orders/"+orderID+"/status", "application/json", `{"estado": "ENTREGADO"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(http.MethodPatch, "/api/orders/"+orderID+"/status", "application/json", `{"estado": "EN_PREPARACION", "nota": "empacado"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(http.MethodGet, "/api/orders?estado=EN_PREPARACION", "", "")
	assert.Equal(t, 1.0, decode(t, w)["count"])

	w = e.do(http.MethodGet, "/api/orders/missing", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	lead, err := e.db.Get(ctx, models.CollectionShopifyLeads, "5550001")
	require.NoError(t, err)
	assert.Equal(t, orderID, lead.Data["order_id"])
}

func TestInventoryRoutes(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodPost, "/api/inventory", "application/json", `{"sku": "KIT-01", "nombre": "Kit", "stock": 1, "stock_minimo": 3}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(http.MethodPost, "/api/inventory", "application/json", `{"sku": "KIT-01", "nombre": "Kit"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(http.MethodPost, "/api/inventory", "application/json", `{"sku": "X"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	details := decode(t, w)["details"].(map[string]interface{})
	assert.Equal(t, "required", details["Nombre"])

	w = e.do(http.MethodGet, "/api/inventory/low-stock", "", "")
	assert.Equal(t, 1.0, decode(t, w)["count"])

	w = e.do(http.MethodPatch, "/api/inventory/KIT-01", "application/json", `{"stock": 9}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodPost, "/api/inventory/import", "application/json", `[{"sku": "B", "nombre": "B"}, {"nombre": "sin sku"}]`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])

	w = e.do(http.MethodDelete, "/api/inventory/KIT-01", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodGet, "/api/inventory", "", "")
	assert.Equal(t, 1.0, decode(t, w)["count"])
	w = e.do(http.MethodGet, "/api/inventory?include_discontinued=true", "", "")
	assert.Equal(t, 2.0, decode(t, w)["count"])
}

func TestWebhookConfigRoutes(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodPost, "/api/webhook-configs", "application/json", `{"name": "erp", "url": "https://erp.example.com", "event": "order.created", "active": true}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["data"].(map[string]interface{})["id"].(string)

	w = e.do(http.MethodPatch, "/api/webhook-configs/"+id, "application/json", `{"event": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, "/api/webhook-configs", "", "")
	assert.Len(t, decode(t, w)["data"], 1)

	w = e.do(http.MethodDelete, "/api/webhook-configs/"+id, "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.do(http.MethodDelete, "/api/webhook-configs/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTableConfigRoutes(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodPut, "/api/table-configs/dev-user", "application/json", `{"visible_columns": ["nombre", "tienda"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(http.MethodGet, "/api/table-configs/dev-user", "", "")
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{"nombre", "tienda"}, data["visible_columns"])

	w = e.do(http.MethodPut, "/api/table-configs/dev-user", "application/json", `{"visible_columns": ["secreto"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
