package normalizer

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescris/logiflow/pkg/models"
)

const shopifyOrderJSON = `{
  "id": 5512345678901234567,
  "name": "#1042",
  "email": "maria.perez91@gmail.com",
  "currency": "PEN",
  "total_price": "149.80",
  "total_outstanding": "149.80",
  "financial_status": "pending",
  "gateway": "manual",
  "payment_gateway_names": ["Pago contra entrega"],
  "created_at": "2024-05-01T10:15:00-05:00",
  "updated_at": "2024-05-01T10:20:00-05:00",
  "note_attributes": [{"name": "DNI", "value": "45678912"}],
  "shipping_address": {
    "first_name": "María", "last_name": "Pérez",
    "address1": "Av. Arequipa 1234", "address2": "Dpto 301",
    "city": "Miraflores", "province": "Lima", "phone": "+51 987 654 321"
  },
  "line_items": [
    {"id": 1, "sku": "CREMA-01", "title": "Crema facial", "quantity": 2, "price": "49.90"},
    {"id": 2, "sku": "SERUM-02", "name": "Serum - 30ml", "quantity": "1", "price": 50}
  ]
}`

func TestNormalizeShopifyOrder(t *testing.T) {
	var order ShopifyOrder
	require.NoError(t, json.Unmarshal([]byte(shopifyOrderJSON), &order))

	lead, err := NormalizeShopifyOrder(order, "lima")
	require.NoError(t, err)

	assert.Equal(t, "5512345678901234567", lead.ID)
	assert.Equal(t, "45678912", lead.DNI)
	assert.Equal(t, "María Pérez", lead.Nombre)
	assert.Equal(t, "987654321", lead.Telefono)
	assert.Equal(t, "Av. Arequipa 1234, Dpto 301", lead.Direccion)
	assert.Equal(t, "Miraflores", lead.Distrito)
	assert.Equal(t, "Lima", lead.Provincia)
	assert.Equal(t, models.SourceShopify, lead.Source)
	assert.Equal(t, "lima", lead.Tienda)
	assert.Equal(t, "#1042", lead.ShopifyOrderName)

	require.Len(t, lead.Productos, 2)
	assert.Equal(t, 99.8, lead.Productos[0].Subtotal)
	assert.Equal(t, "Serum - 30ml", lead.Productos[1].Producto)
	assert.Equal(t, 1, lead.Productos[1].Cantidad)
	assert.Equal(t, models.ItemPendiente, lead.Productos[0].EstadoItem)

	require.NotNil(t, lead.Pago)
	assert.Equal(t, 149.8, lead.Pago.Total)
	assert.Equal(t, "Pago contra entrega", lead.Pago.Metodo)
	assert.Equal(t, "pending", lead.Pago.Estado)

	require.NotNil(t, lead.CreatedAt)
	assert.Equal(t, time.Date(2024, 5, 1, 15, 15, 0, 0, time.UTC), *lead.CreatedAt)
}

func TestNormalizeShopifyOrderRequiresID(t *testing.T) {
	_, err := NormalizeShopifyOrder(ShopifyOrder{}, "lima")
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestExtractPaymentDefaults(t *testing.T) {
	var order ShopifyOrder
	require.NoError(t, json.Unmarshal([]byte(`{"id": 1, "total_price": "abc", "total_outstanding": null}`), &order))

	p := ExtractPayment(order)
	assert.Equal(t, models.Payment{}, p)
}

func TestExtractClientNameChain(t *testing.T) {
	cases := []struct {
		name  string
		order ShopifyOrder
		want  string
	}{
		{"shipping", ShopifyOrder{ShippingAddress: &ShopifyAddress{Name: "Ana Ruiz"}, BillingAddress: &ShopifyAddress{Name: "B"}}, "Ana Ruiz"},
		{"billing", ShopifyOrder{ShippingAddress: &ShopifyAddress{}, BillingAddress: &ShopifyAddress{FirstName: "Luis", LastName: "Soto"}}, "Luis Soto"},
		{"customer", ShopifyOrder{Customer: &ShopifyCustomer{FirstName: "Rosa"}}, "Rosa"},
		{"default address", ShopifyOrder{Customer: &ShopifyCustomer{DefaultAddress: &ShopifyAddress{Name: "Juan Diaz"}}}, "Juan Diaz"},
		{"email", ShopifyOrder{Email: "carla_mendoza22@hotmail.com"}, "Carla Mendoza"},
		{"customer email", ShopifyOrder{Customer: &ShopifyCustomer{Email: "pedro@x.pe"}}, "Pedro"},
		{"nothing", ShopifyOrder{Email: "123@x.pe"}, UnknownClientName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractClientName(tc.order))
		})
	}
}

func TestFormatPhoneNumber(t *testing.T) {
	assert.Equal(t, "987654321", FormatPhoneNumber("+51987654321"))
	assert.Equal(t, "987654321", FormatPhoneNumber("51987654321"))
	assert.Equal(t, "987654321", FormatPhoneNumber("987654321"))
	assert.Equal(t, "+34600111222", FormatPhoneNumber("+34600111222"))
	assert.Equal(t, "", FormatPhoneNumber(""))
	assert.Equal(t, "987654321", NormalizePhone(" +51 (987) 654-321 "))
}

const kommoContactJSON = `{
  "id": 7788,
  "name": "Jorge Quispe",
  "updated_at": 1714580000,
  "custom_fields_values": [
    {"field_code": "PHONE", "values": [{"value": "+51 912 345 678", "enum_code": "WORK"}]},
    {"field_code": "EMAIL", "values": [{"value": "jorge@correo.pe"}]},
    {"field_code": "DNI", "values": [{"value": 70123456}]},
    {"field_name": "Dirección", "values": [{"value": "Jr. Cusco 55"}]},
    {"field_code": "DISTRICT", "values": [{"value": ""}, {"value": "Cercado"}]}
  ]
}`

func TestNormalizeKommo(t *testing.T) {
	var contact KommoContact
	require.NoError(t, json.Unmarshal([]byte(kommoContactJSON), &contact))
	lead := &KommoLead{ID: "991", CreatedAt: 1714570000}

	out, err := NormalizeKommo(lead, contact, KommoOptions{})
	require.NoError(t, err)
	assert.Equal(t, "70123456", out.ID)
	assert.Equal(t, "70123456", out.DNI)
	assert.Equal(t, "Jorge Quispe", out.Nombre)
	assert.Equal(t, "912345678", out.Telefono)
	assert.Equal(t, "jorge@correo.pe", out.Email)
	assert.Equal(t, "Jr. Cusco 55", out.Direccion)
	assert.Equal(t, "Cercado", out.Distrito)
	assert.Equal(t, "991", out.KommoLeadID)
	assert.Equal(t, "7788", out.KommoContactID)
	assert.Equal(t, models.SourceKommo, out.Source)
	require.NotNil(t, out.CreatedAt)
	assert.Equal(t, int64(1714570000), out.CreatedAt.Unix())
}

func TestNormalizeKommoMissingDNI(t *testing.T) {
	contact := KommoContact{ID: "55", Name: "Sin Doc"}

	_, err := NormalizeKommo(nil, contact, KommoOptions{})
	assert.True(t, errors.Is(err, models.ErrMissingDNI))

	out, err := NormalizeKommo(nil, contact, KommoOptions{SyntheticKey: true})
	require.NoError(t, err)
	assert.Equal(t, "KOMMO-55", out.ID)
	assert.Empty(t, out.DNI)
}

func TestKommoLeadLenientNumbers(t *testing.T) {
	var lead KommoLead
	body := `{"id": 1, "status_id": "142", "pipeline_id": 9, "created_at": "1714570000", "updated_at": "nunca"}`
	require.NoError(t, json.Unmarshal([]byte(body), &lead))

	assert.Equal(t, FlexInt64(142), lead.StatusID)
	assert.Equal(t, FlexInt64(1714570000), lead.CreatedAt)
	assert.Zero(t, lead.UpdatedAt)
	assert.True(t, lead.IsLead())
	assert.False(t, KommoLead{ID: "5"}.IsLead())
}

func TestKommoMainContact(t *testing.T) {
	var lead KommoLead
	require.NoError(t, json.Unmarshal([]byte(`{"id": 1, "_embedded": {"contacts": [{"id": 2}, {"id": 3, "is_main": true}]}}`), &lead))

	c, ok := lead.MainContact()
	require.True(t, ok)
	assert.Equal(t, FlexID("3"), c.ID)

	_, ok = KommoLead{}.MainContact()
	assert.False(t, ok)
}
