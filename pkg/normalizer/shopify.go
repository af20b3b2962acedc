// Package normalizer traduce los payloads de Shopify y Kommo al Lead interno.
package normalizer

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/andrescris/logiflow/pkg/models"
)

// UnknownClientName es el último recurso de ExtractClientName.
const UnknownClientName = "Usuario Desconocido"

type ShopifyAddress struct {
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Country   string `json:"country"`
	Zip       string `json:"zip"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
}

// FullName: name, o nombre + apellido.
func (a *ShopifyAddress) FullName() string {
	if a == nil {
		return ""
	}
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	return joinNonEmpty(" ", a.FirstName, a.LastName)
}

type ShopifyCustomer struct {
	ID             FlexID          `json:"id"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	DefaultAddress *ShopifyAddress `json:"default_address"`
}

type ShopifyLineItem struct {
	ID           FlexID  `json:"id"`
	SKU          string  `json:"sku"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	VariantTitle string  `json:"variant_title"`
	VariantID    FlexID  `json:"variant_id"`
	ProductID    FlexID  `json:"product_id"`
	Quantity     FlexInt `json:"quantity"`
	Price        Amount  `json:"price"`
}

type NoteAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ShopifyOrder es el subconjunto del webhook orders/create que usamos.
type ShopifyOrder struct {
	ID                  FlexID            `json:"id"`
	Name                string            `json:"name"`
	OrderNumber         FlexID            `json:"order_number"`
	Email               string            `json:"email"`
	ContactEmail        string            `json:"contact_email"`
	Phone               string            `json:"phone"`
	Currency            string            `json:"currency"`
	TotalPrice          Amount            `json:"total_price"`
	SubtotalPrice       Amount            `json:"subtotal_price"`
	TotalOutstanding    Amount            `json:"total_outstanding"`
	FinancialStatus     string            `json:"financial_status"`
	Gateway             string            `json:"gateway"`
	PaymentGatewayNames []string          `json:"payment_gateway_names"`
	Note                string            `json:"note"`
	NoteAttributes      []NoteAttribute   `json:"note_attributes"`
	CreatedAt           string            `json:"created_at"`
	UpdatedAt           string            `json:"updated_at"`
	Customer            *ShopifyCustomer  `json:"customer"`
	ShippingAddress     *ShopifyAddress   `json:"shipping_address"`
	BillingAddress      *ShopifyAddress   `json:"billing_address"`
	LineItems           []ShopifyLineItem `json:"line_items"`
}

// ExtractClientName nunca devuelve vacío. Orden de prioridad: envío,
// facturación, cliente, dirección por defecto, email, "Usuario Desconocido".
func ExtractClientName(order ShopifyOrder) string {
	candidates := []func() string{
		order.ShippingAddress.FullName,
		order.BillingAddress.FullName,
		func() string {
			if order.Customer == nil {
				return ""
			}
			return joinNonEmpty(" ", order.Customer.FirstName, order.Customer.LastName)
		},
		func() string {
			if order.Customer == nil {
				return ""
			}
			return order.Customer.DefaultAddress.FullName()
		},
		func() string { return nameFromEmail(orderEmail(order)) },
	}
	for _, candidate := range candidates {
		if name := strings.TrimSpace(candidate()); name != "" {
			return name
		}
	}
	return UnknownClientName
}

var emailSeparators = regexp.MustCompile(`[._+\-0-9]+`)

// nameFromEmail: "maria.perez91@gmail.com" -> "Maria Perez".
func nameFromEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return ""
	}
	local := strings.TrimSpace(emailSeparators.ReplaceAllString(email[:at], " "))
	if local == "" {
		return ""
	}
	return cases.Title(language.Spanish).String(strings.Join(strings.Fields(local), " "))
}

func orderEmail(order ShopifyOrder) string {
	for _, e := range []string{order.Email, order.ContactEmail} {
		if e = strings.TrimSpace(e); e != "" {
			return e
		}
	}
	if order.Customer != nil {
		return strings.TrimSpace(order.Customer.Email)
	}
	return ""
}

func orderPhone(order ShopifyOrder) string {
	phones := []string{}
	if order.ShippingAddress != nil {
		phones = append(phones, order.ShippingAddress.Phone)
	}
	phones = append(phones, order.Phone)
	if order.Customer != nil {
		phones = append(phones, order.Customer.Phone)
	}
	if order.BillingAddress != nil {
		phones = append(phones, order.BillingAddress.Phone)
	}
	for _, p := range phones {
		if p = strings.TrimSpace(p); p != "" {
			return NormalizePhone(p)
		}
	}
	return ""
}

// ProcessShopifyItems mapea 1:1 los line items. subtotal = precio_unitario * cantidad.
func ProcessShopifyItems(items []ShopifyLineItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		price := item.Price.Float()
		qty := int(item.Quantity)
		producto := strings.TrimSpace(item.Name)
		if producto == "" {
			producto = joinNonEmpty(" - ", item.Title, item.VariantTitle)
		}
		out = append(out, models.OrderItem{
			SKU:            strings.TrimSpace(item.SKU),
			Producto:       producto,
			Cantidad:       qty,
			PrecioUnitario: price,
			Subtotal:       price * float64(qty),
			EstadoItem:     models.ItemPendiente,
			LineItemID:     item.ID.String(),
			VariantID:      item.VariantID.String(),
		})
	}
	return out
}

// ExtractPayment arma el resumen de pago; lo que falte queda en cero o vacío.
func ExtractPayment(order ShopifyOrder) models.Payment {
	method := strings.TrimSpace(order.Gateway)
	for _, name := range order.PaymentGatewayNames {
		if name = strings.TrimSpace(name); name != "" {
			method = name
			break
		}
	}
	return models.Payment{
		Total:          order.TotalPrice.Float(),
		MontoPendiente: order.TotalOutstanding.Float(),
		Metodo:         method,
		Estado:         strings.TrimSpace(order.FinancialStatus),
		Moneda:         strings.TrimSpace(order.Currency),
	}
}

var dniAttributeNames = map[string]bool{
	"dni": true, "documento": true, "nro_documento": true, "numero de documento": true, "documento de identidad": true,
}

var digitsOnly = regexp.MustCompile(`^[0-9]{8,12}$`)

// ExtractDNI busca el documento en note_attributes o en shipping_address.company.
func ExtractDNI(order ShopifyOrder) string {
	for _, attr := range order.NoteAttributes {
		if dniAttributeNames[strings.ToLower(strings.TrimSpace(attr.Name))] {
			if v := strings.TrimSpace(attr.Value); v != "" {
				return v
			}
		}
	}
	if order.ShippingAddress != nil {
		if company := strings.TrimSpace(order.ShippingAddress.Company); digitsOnly.MatchString(company) {
			return company
		}
	}
	return ""
}

// NormalizeShopifyOrder convierte una orden en un Lead de shopify_leads,
// con el ID de la orden como clave.
func NormalizeShopifyOrder(order ShopifyOrder, storeID string) (models.Lead, error) {
	if order.ID == "" {
		return models.Lead{}, fmt.Errorf("%w: shopify order id is required", models.ErrValidation)
	}

	lead := models.Lead{
		ID:               order.ID.String(),
		DNI:              ExtractDNI(order),
		Nombre:           ExtractClientName(order),
		Telefono:         orderPhone(order),
		Email:            orderEmail(order),
		Source:           models.SourceShopify,
		Tienda:           storeID,
		ShopifyOrderID:   order.ID.String(),
		ShopifyOrderName: strings.TrimSpace(order.Name),
		Productos:        ProcessShopifyItems(order.LineItems),
		Notas:            strings.TrimSpace(order.Note),
		CreatedAt:        parseTime(order.CreatedAt),
		UpdatedAt:        parseTime(order.UpdatedAt),
	}
	payment := ExtractPayment(order)
	lead.Pago = &payment

	addr := order.ShippingAddress
	if addr == nil {
		addr = order.BillingAddress
	}
	if addr != nil {
		lead.Direccion = joinNonEmpty(", ", addr.Address1, addr.Address2)
		lead.Distrito = strings.TrimSpace(addr.City)
		lead.Provincia = strings.TrimSpace(addr.Province)
	}
	return lead, nil
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
