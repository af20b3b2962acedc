package models

import "time"

// Eventos de aplicación que disparan webhooks salientes.
const (
	EventLeadCreated        = "lead.created"
	EventLeadUpdated        = "lead.updated"
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// WebhookEvents lista los eventos válidos para una configuración.
var WebhookEvents = []string{EventLeadCreated, EventLeadUpdated, EventOrderCreated, EventOrderStatusChanged}

// WebhookConfig es un destino definido por el usuario (colección "webhooks").
type WebhookConfig struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required"`
	URL       string    `json:"url" validate:"required,url"`
	Event     string    `json:"event" validate:"required,oneof=lead.created lead.updated order.created order.status_changed"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserTableConfig guarda la configuración de columnas de la cola por usuario.
type UserTableConfig struct {
	UserID  string              `json:"user_id"`
	Visible []string            `json:"visible_columns"`
	Widths  map[string]int      `json:"column_widths,omitempty"`
	Filters map[string][]string `json:"filters,omitempty"`
	Updated time.Time           `json:"updated_at"`
}
