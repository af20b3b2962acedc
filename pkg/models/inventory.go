package models

import "time"

// InventoryItem es un registro de stock identificado por SKU.
type InventoryItem struct {
	SKU          string  `json:"sku" validate:"required"`
	Nombre       string  `json:"nombre" validate:"required"`
	Descripcion  string  `json:"descripcion,omitempty"`
	Categoria    string  `json:"categoria,omitempty"`
	PrecioCompra float64 `json:"precio_compra" validate:"gte=0"`
	PrecioVenta  float64 `json:"precio_venta" validate:"gte=0"`
	Stock        int     `json:"stock" validate:"gte=0"`
	StockMinimo  int     `json:"stock_minimo" validate:"gte=0"`
	// Descontinuado reemplaza al borrado: un SKU nunca se elimina.
	Descontinuado bool      `json:"descontinuado"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LowStock: stock en o bajo el mínimo, solo para SKUs vigentes.
func (i InventoryItem) LowStock() bool {
	return !i.Descontinuado && i.Stock <= i.StockMinimo
}

// Covers indica si hay stock para despachar qty unidades.
func (i InventoryItem) Covers(qty int) bool {
	return !i.Descontinuado && i.Stock >= qty
}
