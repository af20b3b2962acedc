package models

import "time"

// OrderStatus mueve la orden por el tablero Kanban.
type OrderStatus string

const (
	OrderPendiente           OrderStatus = "PENDIENTE"
	OrderEnPreparacion       OrderStatus = "EN_PREPARACION"
	OrderEnTransitoLima      OrderStatus = "EN_TRANSITO_LIMA"
	OrderEnTransitoProvincia OrderStatus = "EN_TRANSITO_PROVINCIA"
	OrderEntregado           OrderStatus = "ENTREGADO"
	OrderAnulado             OrderStatus = "ANULADO"
	OrderRetenido            OrderStatus = "RETENIDO"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPendiente:           {OrderEnPreparacion, OrderRetenido, OrderAnulado},
	OrderEnPreparacion:       {OrderEnTransitoLima, OrderEnTransitoProvincia, OrderRetenido, OrderAnulado},
	OrderEnTransitoLima:      {OrderEntregado, OrderRetenido, OrderAnulado},
	OrderEnTransitoProvincia: {OrderEntregado, OrderRetenido, OrderAnulado},
	OrderRetenido:            {OrderPendiente, OrderEnPreparacion, OrderAnulado},
	OrderEntregado:           nil,
	OrderAnulado:             nil,
}

// Valid reporta si s es un estado del tablero.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransition indica si el tablero permite mover la orden de s a to.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ItemStatus es el estado de despacho por ítem.
type ItemStatus string

const (
	ItemPendiente  ItemStatus = "PENDIENTE"
	ItemEnStock    ItemStatus = "EN_STOCK"
	ItemSinStock   ItemStatus = "SIN_STOCK"
	ItemDespachado ItemStatus = "DESPACHADO"
)

type OrderItem struct {
	SKU            string     `json:"sku"`
	Producto       string     `json:"producto"`
	Cantidad       int        `json:"cantidad" validate:"gte=0"`
	PrecioUnitario float64    `json:"precio_unitario" validate:"gte=0"`
	Subtotal       float64    `json:"subtotal"`
	EstadoItem     ItemStatus `json:"estado_item"`
	LineItemID     string     `json:"line_item_id,omitempty"`
	VariantID      string     `json:"variant_id,omitempty"`
}

// Payment: resumen de pago. Los campos ausentes en el origen quedan en cero.
type Payment struct {
	Total          float64 `json:"total"`
	MontoPendiente float64 `json:"monto_pendiente"`
	Metodo         string  `json:"metodo"`
	Estado         string  `json:"estado"`
	Moneda         string  `json:"moneda,omitempty"`
}

// ClientSnapshot es una copia desnormalizada del cliente al momento de la venta.
type ClientSnapshot struct {
	DNI       string `json:"dni,omitempty"`
	Nombre    string `json:"nombre"`
	Telefono  string `json:"telefono,omitempty"`
	Email     string `json:"email,omitempty"`
	Direccion string `json:"direccion,omitempty"`
	Distrito  string `json:"distrito,omitempty"`
	Provincia string `json:"provincia,omitempty"`
}

type Shipping struct {
	Courier   string  `json:"courier,omitempty"`
	Direccion string  `json:"direccion,omitempty"`
	Distrito  string  `json:"distrito,omitempty"`
	Provincia string  `json:"provincia,omitempty"`
	Tracking  string  `json:"tracking,omitempty"`
	Costo     float64 `json:"costo,omitempty"`
}

// HistoryEntry es una línea del historial (solo se agregan, nunca se editan).
type HistoryEntry struct {
	ID             string      `json:"id"`
	Fecha          time.Time   `json:"fecha"`
	Accion         string      `json:"accion"`
	Usuario        string      `json:"usuario,omitempty"`
	Detalle        string      `json:"detalle,omitempty"`
	EstadoAnterior OrderStatus `json:"estado_anterior,omitempty"`
	EstadoNuevo    OrderStatus `json:"estado_nuevo,omitempty"`
}

type Order struct {
	ID             string         `json:"id"`
	Cliente        ClientSnapshot `json:"cliente"`
	Productos      []OrderItem    `json:"productos"`
	Pago           Payment        `json:"pago"`
	Envio          Shipping       `json:"envio"`
	Estado         OrderStatus    `json:"estado"`
	Historial      []HistoryEntry `json:"historial"`
	Source         LeadSource     `json:"source"`
	LeadID         string         `json:"lead_id"`
	LeadCollection string         `json:"lead_collection"`
	ShopifyOrderID string         `json:"shopify_order_id,omitempty"`
	KommoLeadID    string         `json:"kommo_lead_id,omitempty"`
	Notas          string         `json:"notas,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
