// Package orders convierte leads confirmados en órdenes y las mueve por el
// tablero de despacho.
package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/andrescris/logiflow/pkg/kommo"
	"github.com/andrescris/logiflow/pkg/models"
	"github.com/andrescris/logiflow/pkg/store"
)

// Notifier recibe los eventos de órdenes.
type Notifier interface {
	Notify(ctx context.Context, event string, payload interface{})
}

// ConfirmInput es lo que envía el agente al cerrar la venta. Si Productos
// viene vacío se usan los del lead.
type ConfirmInput struct {
	Productos []models.OrderItem `json:"productos" validate:"dive"`
	Pago      *models.Payment    `json:"pago"`
	Envio     models.Shipping    `json:"envio"`
	Notas     string             `json:"notas"`
	Usuario   string             `json:"-"`
}

// StatusChange es el payload de order.status_changed.
type StatusChange struct {
	OrderID  string             `json:"order_id"`
	Anterior models.OrderStatus `json:"estado_anterior"`
	Nuevo    models.OrderStatus `json:"estado_nuevo"`
	Usuario  string             `json:"usuario,omitempty"`
}

type Service struct {
	db             store.Store
	kommo          kommo.API
	kommoConfirmed int64
	notifier       Notifier
	validate       *validator.Validate
	log            *logrus.Logger
	now            func() time.Time
}

// NewService crea el servicio. kommoAPI y notifier pueden ser nil; con
// kommoConfirmed en cero no se actualiza Kommo.
func NewService(db store.Store, kommoAPI kommo.API, kommoConfirmed int64, notifier Notifier, log *logrus.Logger) *Service {
	return &Service{
		db:             db,
		kommo:          kommoAPI,
		kommoConfirmed: kommoConfirmed,
		notifier:       notifier,
		validate:       validator.New(),
		log:            log,
		now:            time.Now,
	}
}

func (s *Service) loadLead(ctx context.Context, collection, id string) (models.Lead, error) {
	if !models.IsLeadCollection(collection) {
		return models.Lead{}, fmt.Errorf("%w: %q is not a lead collection", models.ErrValidation, collection)
	}
	doc, err := s.db.Get(ctx, collection, id)
	if err != nil {
		return models.Lead{}, err
	}
	var lead models.Lead
	if err := store.FromDocument(doc, &lead); err != nil {
		return models.Lead{}, err
	}
	lead.ID = doc.ID
	return lead, nil
}

// ConfirmLead crea la orden de un lead y lo marca VENTA_CONFIRMADA.
func (s *Service) ConfirmLead(ctx context.Context, collection, leadID string, in ConfirmInput) (models.Order, error) {
	if err := s.validate.Struct(in); err != nil {
		return models.Order{}, fmt.Errorf("%w: %w", models.ErrValidation, err)
	}
	lead, err := s.loadLead(ctx, collection, leadID)
	if err != nil {
		return models.Order{}, err
	}
	if lead.CallStatus == models.CallVentaConfirmada {
		return models.Order{}, fmt.Errorf("%w: lead %s already has order %s", models.ErrInvalidTransition, lead.ID, lead.OrderID)
	}

	items := in.Productos
	if len(items) == 0 {
		items = lead.Productos
	}
	if len(items) == 0 {
		return models.Order{}, fmt.Errorf("%w: order needs at least one product", models.ErrValidation)
	}
	items, err = s.checkStock(ctx, items)
	if err != nil {
		return models.Order{}, err
	}

	now := s.now().UTC()
	order := models.Order{
		ID:             uuid.New().String(),
		Cliente:        snapshotOf(lead),
		Productos:      items,
		Pago:           paymentFor(in.Pago, lead.Pago, items),
		Envio:          shippingFor(in.Envio, lead),
		Estado:         models.OrderPendiente,
		Source:         lead.Source,
		LeadID:         lead.ID,
		LeadCollection: collection,
		ShopifyOrderID: lead.ShopifyOrderID,
		KommoLeadID:    lead.KommoLeadID,
		Notas:          in.Notas,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	order.Historial = []models.HistoryEntry{{
		ID:          uuid.New().String(),
		Fecha:       now,
		Accion:      "CREADA",
		Usuario:     in.Usuario,
		Detalle:     fmt.Sprintf("venta confirmada desde %s/%s", collection, lead.ID),
		EstadoNuevo: models.OrderPendiente,
	}}

	data, err := store.ToDocument(order)
	if err != nil {
		return models.Order{}, err
	}
	if err := s.db.Create(ctx, models.CollectionOrders, order.ID, data); err != nil {
		return models.Order{}, fmt.Errorf("create order: %w", err)
	}
	if err := s.db.Update(ctx, collection, lead.ID, map[string]interface{}{
		"call_status": models.CallVentaConfirmada,
		"order_id":    order.ID,
		"updated_at":  now,
	}); err != nil {
		return models.Order{}, fmt.Errorf("mark lead confirmed: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"lead_id":    lead.ID,
		"collection": collection,
		"items":      len(items),
	}).Info("order created")

	s.syncKommo(ctx, lead)
	if s.notifier != nil {
		s.notifier.Notify(ctx, models.EventOrderCreated, order)
	}
	return order, nil
}

// checkStock marca cada ítem EN_STOCK o SIN_STOCK según inventario. No
// descuenta stock.
func (s *Service) checkStock(ctx context.Context, items []models.OrderItem) ([]models.OrderItem, error) {
	out := make([]models.OrderItem, len(items))
	for i, it := range items {
		it.Subtotal = it.PrecioUnitario * float64(it.Cantidad)
		it.EstadoItem = models.ItemSinStock
		if it.SKU != "" {
			doc, err := s.db.Get(ctx, models.CollectionInventory, it.SKU)
			switch {
			case err == nil:
				var inv models.InventoryItem
				if err := store.FromDocument(doc, &inv); err != nil {
					return nil, err
				}
				if inv.Covers(it.Cantidad) {
					it.EstadoItem = models.ItemEnStock
				}
			case !errors.Is(err, models.ErrNotFound):
				return nil, fmt.Errorf("check stock %s: %w", it.SKU, err)
			}
		}
		out[i] = it
	}
	return out, nil
}

func (s *Service) syncKommo(ctx context.Context, lead models.Lead) {
	if s.kommo == nil || s.kommoConfirmed == 0 || lead.KommoLeadID == "" {
		return
	}
	if err := s.kommo.UpdateLeadStatus(ctx, lead.KommoLeadID, s.kommoConfirmed); err != nil {
		s.log.WithError(err).WithField("kommo_lead_id", lead.KommoLeadID).Warn("kommo status update failed")
	}
}

func snapshotOf(lead models.Lead) models.ClientSnapshot {
	return models.ClientSnapshot{
		DNI:       lead.DNI,
		Nombre:    lead.Nombre,
		Telefono:  lead.Telefono,
		Email:     lead.Email,
		Direccion: lead.Direccion,
		Distrito:  lead.Distrito,
		Provincia: lead.Provincia,
	}
}

func paymentFor(in, fromLead *models.Payment, items []models.OrderItem) models.Payment {
	if in != nil {
		return *in
	}
	if fromLead != nil {
		return *fromLead
	}
	var total float64
	for _, it := range items {
		total += it.Subtotal
	}
	return models.Payment{Total: total, MontoPendiente: total, Estado: "pending", Moneda: "PEN"}
}

func shippingFor(in models.Shipping, lead models.Lead) models.Shipping {
	if in.Direccion == "" {
		in.Direccion = lead.Direccion
	}
	if in.Distrito == "" {
		in.Distrito = lead.Distrito
	}
	if in.Provincia == "" {
		in.Provincia = lead.Provincia
	}
	return in
}

// ChangeStatus mueve la orden en el tablero y agrega una línea de historial.
func (s *Service) ChangeStatus(ctx context.Context, orderID string, to models.OrderStatus, user, note string) (models.Order, error) {
	if !to.Valid() {
		return models.Order{}, fmt.Errorf("%w: unknown order status %q", models.ErrValidation, to)
	}
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	from := order.Estado
	if !from.CanTransition(to) {
		return models.Order{}, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, from, to)
	}

	now := s.now().UTC()
	entry := models.HistoryEntry{
		ID:             uuid.New().String(),
		Fecha:          now,
		Accion:         "CAMBIO_ESTADO",
		Usuario:        user,
		Detalle:        note,
		EstadoAnterior: from,
		EstadoNuevo:    to,
	}
	if err := s.db.Update(ctx, models.CollectionOrders, orderID, map[string]interface{}{
		"estado":     to,
		"updated_at": now,
		"historial":  store.ArrayAppend(entry),
	}); err != nil {
		return models.Order{}, fmt.Errorf("update order status: %w", err)
	}

	order.Estado = to
	order.UpdatedAt = now
	order.Historial = append(order.Historial, entry)

	s.log.WithFields(logrus.Fields{"order_id": orderID, "from": from, "to": to}).Info("order status changed")
	if s.notifier != nil {
		s.notifier.Notify(ctx, models.EventOrderStatusChanged, StatusChange{OrderID: orderID, Anterior: from, Nuevo: to, Usuario: user})
	}
	return order, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Order, error) {
	doc, err := s.db.Get(ctx, models.CollectionOrders, id)
	if err != nil {
		return models.Order{}, err
	}
	var order models.Order
	if err := store.FromDocument(doc, &order); err != nil {
		return models.Order{}, err
	}
	order.ID = doc.ID
	return order, nil
}

// List devuelve las órdenes (opcionalmente de un estado), las más nuevas primero.
func (s *Service) List(ctx context.Context, estado models.OrderStatus) ([]models.Order, error) {
	var filters []store.QueryFilter
	if estado != "" {
		if !estado.Valid() {
			return nil, fmt.Errorf("%w: unknown order status %q", models.ErrValidation, estado)
		}
		filters = append(filters, store.QueryFilter{Field: "estado", Operator: "==", Value: estado})
	}
	docs, err := s.db.Query(ctx, models.CollectionOrders, filters...)
	if err != nil {
		return nil, err
	}
	out := make([]models.Order, 0, len(docs))
	for _, doc := range docs {
		var order models.Order
		if err := store.FromDocument(doc, &order); err != nil {
			return nil, err
		}
		order.ID = doc.ID
		out = append(out, order)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
