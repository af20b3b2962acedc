package models

import (
	"strings"
	"time"
)

// Colecciones de Firestore.
const (
	CollectionClients           = "clients"
	CollectionShopifyLeads      = "shopify_leads"
	CollectionOrders            = "orders"
	CollectionInventory         = "inventory"
	CollectionUsers             = "users"
	CollectionWebhooks          = "webhooks"
	CollectionTableConfigs      = "user_table_configs"
	CollectionIntegrationTokens = "integration_tokens"
)

// LeadCollections son las colecciones que alimentan la cola del call center.
var LeadCollections = []string{CollectionClients, CollectionShopifyLeads}

// IsLeadCollection indica si name es una colección de leads.
func IsLeadCollection(name string) bool {
	for _, c := range LeadCollections {
		if c == name {
			return true
		}
	}
	return false
}

type LeadSource string

const (
	SourceManual  LeadSource = "manual"
	SourceShopify LeadSource = "shopify"
	SourceKommo   LeadSource = "kommo"
)

// CallStatus es el avance del lead en el call center.
type CallStatus string

const (
	CallNuevo           CallStatus = "NUEVO"
	CallContactado      CallStatus = "CONTACTADO"
	CallNoContesta      CallStatus = "NO_CONTESTA"
	CallVolverALlamar   CallStatus = "VOLVER_A_LLAMAR"
	CallInteresado      CallStatus = "INTERESADO"
	CallVentaConfirmada CallStatus = "VENTA_CONFIRMADA"
	CallHibernacion     CallStatus = "HIBERNACION"
)

var callStatuses = map[CallStatus]bool{
	CallNuevo: true, CallContactado: true, CallNoContesta: true, CallVolverALlamar: true,
	CallInteresado: true, CallVentaConfirmada: true, CallHibernacion: true,
}

// Valid reporta si s es un estado conocido.
func (s CallStatus) Valid() bool { return callStatuses[s] }

// Terminal: el lead ya no aparece en la cola.
func (s CallStatus) Terminal() bool {
	return s == CallVentaConfirmada || s == CallHibernacion
}

// Lead es un cliente potencial (o existente). El ID del documento es la clave
// natural: DNI, ID de orden de Shopify o KOMMO-<contactId>.
type Lead struct {
	ID               string      `json:"id" validate:"required"`
	DNI              string      `json:"dni,omitempty"`
	Nombre           string      `json:"nombre" validate:"required"`
	Telefono         string      `json:"telefono,omitempty"`
	Email            string      `json:"email,omitempty"`
	Direccion        string      `json:"direccion,omitempty"`
	Distrito         string      `json:"distrito,omitempty"`
	Provincia        string      `json:"provincia,omitempty"`
	Referencia       string      `json:"referencia,omitempty"`
	Source           LeadSource  `json:"source" validate:"required,oneof=manual shopify kommo"`
	CallStatus       CallStatus  `json:"call_status,omitempty"`
	Tienda           string      `json:"tienda,omitempty"`
	ShopifyOrderID   string      `json:"shopify_order_id,omitempty"`
	ShopifyOrderName string      `json:"shopify_order_name,omitempty"`
	KommoLeadID      string      `json:"kommo_lead_id,omitempty"`
	KommoContactID   string      `json:"kommo_contact_id,omitempty"`
	Productos        []OrderItem `json:"productos,omitempty" validate:"dive"`
	Pago             *Payment    `json:"pago,omitempty"`
	Notas            string      `json:"notas,omitempty"`
	OrderID          string      `json:"order_id,omitempty"`
	AsignadoA        string      `json:"asignado_a,omitempty"`
	CreatedAt        *time.Time  `json:"created_at,omitempty"`
	UpdatedAt        *time.Time  `json:"updated_at,omitempty"`
}

// LastModified es la marca usada para ordenar la cola.
func (l Lead) LastModified() time.Time {
	if l.UpdatedAt != nil {
		return *l.UpdatedAt
	}
	if l.CreatedAt != nil {
		return *l.CreatedAt
	}
	return time.Time{}
}

// Column devuelve el valor de una columna filtrable de la cola.
func (l Lead) Column(name string) string {
	switch strings.ToLower(name) {
	case "id":
		return l.ID
	case "dni":
		return l.DNI
	case "nombre":
		return l.Nombre
	case "telefono":
		return l.Telefono
	case "email":
		return l.Email
	case "distrito":
		return l.Distrito
	case "provincia":
		return l.Provincia
	case "source":
		return string(l.Source)
	case "call_status":
		return string(l.CallStatus)
	case "tienda":
		return l.Tienda
	case "asignado_a":
		return l.AsignadoA
	}
	return ""
}

// FilterableColumns lista las columnas aceptadas por Column.
var FilterableColumns = []string{
	"id", "dni", "nombre", "telefono", "email", "distrito", "provincia",
	"source", "call_status", "tienda", "asignado_a",
}
