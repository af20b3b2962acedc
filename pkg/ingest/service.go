// Package ingest normaliza los webhooks entrantes y los persiste con upsert + merge.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/andrescris/logiflow/pkg/kommo"
	"github.com/andrescris/logiflow/pkg/models"
	"github.com/andrescris/logiflow/pkg/normalizer"
	"github.com/andrescris/logiflow/pkg/store"
)

// ErrKommoDisabled: llegó una notificación de Kommo sin integración configurada.
var ErrKommoDisabled = errors.New("kommo integration is not configured")

// Notifier recibe los eventos de aplicación (webhooks salientes).
type Notifier interface {
	Notify(ctx context.Context, event string, payload interface{})
}

// Result describe una escritura de lead.
type Result struct {
	ID         string      `json:"id"`
	Collection string      `json:"collection"`
	Created    bool        `json:"created"`
	Lead       models.Lead `json:"-"`
}

// SyncReport es el resultado de procesar una notificación de Kommo con varios leads.
type SyncReport struct {
	Synced []Result         `json:"synced"`
	Failed map[string]string `json:"failed,omitempty"`
}

// Service es el pipeline verificar -> normalizar -> persistir.
type Service struct {
	db       store.Store
	kommo    kommo.API
	notifier Notifier
	validate *validator.Validate
	log      *logrus.Logger
	now      func() time.Time
}

// NewService crea el pipeline. kommoAPI y notifier pueden ser nil.
func NewService(db store.Store, kommoAPI kommo.API, notifier Notifier, log *logrus.Logger) *Service {
	return &Service{
		db:       db,
		kommo:    kommoAPI,
		notifier: notifier,
		validate: validator.New(),
		log:      log,
		now:      time.Now,
	}
}

// UpsertLead persiste un lead normalizado con clave natural y merge por campo.
// Los valores iniciales (call_status, created_at) se escriben solo si el
// documento no existía, así una reentrega no pisa el avance del call center
// y deja el documento idéntico.
func (s *Service) UpsertLead(ctx context.Context, collection string, lead models.Lead) (Result, error) {
	if err := s.validate.Struct(lead); err != nil {
		return Result{}, fmt.Errorf("%w: %w", models.ErrValidation, err)
	}

	createdAt := s.now().UTC()
	if lead.CreatedAt != nil {
		createdAt = *lead.CreatedAt
	}
	defaults := map[string]interface{}{
		"call_status": models.CallNuevo,
		"created_at":  createdAt,
	}
	created := true
	if err := s.db.Create(ctx, collection, lead.ID, defaults); err != nil {
		if !errors.Is(err, models.ErrAlreadyExists) {
			return Result{}, fmt.Errorf("create lead defaults: %w", err)
		}
		created = false
	}

	// campos que maneja el call center, nunca la ingesta
	lead.CallStatus = ""
	lead.OrderID = ""
	lead.AsignadoA = ""
	data, err := store.ToDocument(lead)
	if err != nil {
		return Result{}, err
	}
	if err := s.db.SetMerge(ctx, collection, lead.ID, data); err != nil {
		return Result{}, fmt.Errorf("merge lead: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"source":     lead.Source,
		"store":      lead.Tienda,
		"key":        lead.ID,
		"collection": collection,
		"created":    created,
	}).Info("lead ingested")

	event := models.EventLeadUpdated
	if created {
		event = models.EventLeadCreated
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, event, lead)
	}
	return Result{ID: lead.ID, Collection: collection, Created: created, Lead: lead}, nil
}

// IngestShopify procesa una orden de Shopify ya verificada.
func (s *Service) IngestShopify(ctx context.Context, storeID string, body []byte) (Result, error) {
	var order normalizer.ShopifyOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return Result{}, fmt.Errorf("%w: invalid shopify payload: %v", models.ErrValidation, err)
	}
	lead, err := normalizer.NormalizeShopifyOrder(order, storeID)
	if err != nil {
		return Result{}, err
	}
	return s.UpsertLead(ctx, models.CollectionShopifyLeads, lead)
}

// IngestKommoLead procesa un lead o contacto de Kommo enviado como JSON.
// El DNI es obligatorio: sin él no se escribe nada.
func (s *Service) IngestKommoLead(ctx context.Context, body []byte) (Result, error) {
	var top normalizer.KommoLead
	if err := json.Unmarshal(body, &top); err != nil {
		return Result{}, fmt.Errorf("%w: invalid kommo payload: %v", models.ErrValidation, err)
	}

	var lead *normalizer.KommoLead
	contact, ok := top.MainContact()
	switch {
	case ok:
		lead = &top
	case top.IsLead():
		// lead sin contactos embebidos: los campos vienen en el lead
		lead = &top
		contact = normalizer.KommoContact{}
	default:
		// sin _embedded.contacts ni marcas de lead, el cuerpo es el contacto
		contact = normalizer.KommoContact{
			ID:                 top.ID,
			Name:               top.Name,
			CustomFieldsValues: top.CustomFieldsValues,
			CreatedAt:          top.CreatedAt,
			UpdatedAt:          top.UpdatedAt,
		}
	}

	normalized, err := normalizer.NormalizeKommo(lead, contact, normalizer.KommoOptions{})
	if err != nil {
		return Result{}, err
	}
	return s.UpsertLead(ctx, models.CollectionClients, normalized)
}

// Ingest despacha un payload ya decodificado.
func (s *Service) Ingest(ctx context.Context, p Payload) (Result, error) {
	switch p.Kind {
	case KindShopify:
		return s.IngestShopify(ctx, p.Store, p.Raw)
	case KindKommo:
		return s.IngestKommoLead(ctx, p.Raw)
	}
	return Result{}, models.ErrUnknownPayload
}

// SyncKommoLeads trae cada lead desde la API de Kommo y lo guarda. Cada lead es
// independiente: un fallo no detiene a los demás.
func (s *Service) SyncKommoLeads(ctx context.Context, leadIDs []string) (SyncReport, error) {
	report := SyncReport{Synced: []Result{}}
	if s.kommo == nil {
		return report, ErrKommoDisabled
	}
	for _, id := range leadIDs {
		res, err := s.syncKommoLead(ctx, id)
		if err != nil {
			s.log.WithError(err).WithField("kommo_lead_id", id).Warn("kommo lead sync failed")
			if report.Failed == nil {
				report.Failed = make(map[string]string)
			}
			report.Failed[id] = err.Error()
			continue
		}
		report.Synced = append(report.Synced, res)
	}
	return report, nil
}

func (s *Service) syncKommoLead(ctx context.Context, id string) (Result, error) {
	lead, err := s.kommo.GetLead(ctx, id)
	if err != nil {
		return Result{}, err
	}
	ref, ok := lead.MainContact()
	if !ok {
		return Result{}, fmt.Errorf("%w: kommo lead %s has no contacts", models.ErrValidation, id)
	}
	contact, err := s.kommo.GetContact(ctx, ref.ID.String())
	if err != nil {
		return Result{}, err
	}
	normalized, err := normalizer.NormalizeKommo(&lead, contact, normalizer.KommoOptions{SyntheticKey: true})
	if err != nil {
		return Result{}, err
	}
	return s.UpsertLead(ctx, models.CollectionClients, normalized)
}
