// Package inventory administra el stock por SKU. Un SKU nunca se borra: se
// marca como descontinuado.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/andrescris/logiflow/pkg/models"
	"github.com/andrescris/logiflow/pkg/store"
)

// Campos que la edición rápida no puede tocar.
var protectedFields = []string{"sku", "created_at", "updated_at"}

// RowError es un fallo de una fila en la importación masiva.
type RowError struct {
	Row   int    `json:"row"`
	SKU   string `json:"sku,omitempty"`
	Error string `json:"error"`
}

// ImportReport resume una importación masiva.
type ImportReport struct {
	Imported int        `json:"imported"`
	Failed   []RowError `json:"failed"`
}

type Service struct {
	db       store.Store
	validate *validator.Validate
	log      *logrus.Logger
	now      func() time.Time
}

func NewService(db store.Store, log *logrus.Logger) *Service {
	return &Service{db: db, validate: validator.New(), log: log, now: time.Now}
}

// Create da de alta un SKU nuevo; si ya existe devuelve ErrAlreadyExists.
func (s *Service) Create(ctx context.Context, item models.InventoryItem) (models.InventoryItem, error) {
	item.SKU = strings.TrimSpace(item.SKU)
	if err := s.validate.Struct(item); err != nil {
		return models.InventoryItem{}, fmt.Errorf("%w: %w", models.ErrValidation, err)
	}
	now := s.now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	data, err := store.ToDocument(item)
	if err != nil {
		return models.InventoryItem{}, err
	}
	if err := s.db.Create(ctx, models.CollectionInventory, item.SKU, data); err != nil {
		return models.InventoryItem{}, err
	}
	s.log.WithField("sku", item.SKU).Info("inventory item created")
	return item, nil
}

func (s *Service) Get(ctx context.Context, sku string) (models.InventoryItem, error) {
	doc, err := s.db.Get(ctx, models.CollectionInventory, sku)
	if err != nil {
		return models.InventoryItem{}, err
	}
	var item models.InventoryItem
	if err := store.FromDocument(doc, &item); err != nil {
		return models.InventoryItem{}, err
	}
	item.SKU = doc.ID
	return item, nil
}

// Update es la edición rápida de la tabla: aplica solo los campos enviados
// y valida el resultado.
func (s *Service) Update(ctx context.Context, sku string, updates map[string]interface{}) (models.InventoryItem, error) {
	current, err := s.Get(ctx, sku)
	if err != nil {
		return models.InventoryItem{}, err
	}
	for _, f := range protectedFields {
		delete(updates, f)
	}
	if len(updates) == 0 {
		return current, nil
	}

	merged, err := store.ToDocument(current)
	if err != nil {
		return models.InventoryItem{}, err
	}
	for k, v := range updates {
		merged[k] = v
	}
	var next models.InventoryItem
	if err := store.FromDocument(store.Document{ID: sku, Data: merged}, &next); err != nil {
		return models.InventoryItem{}, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if err := s.validate.Struct(next); err != nil {
		return models.InventoryItem{}, fmt.Errorf("%w: %w", models.ErrValidation, err)
	}

	next.UpdatedAt = s.now().UTC()
	fields, err := store.ToDocument(next)
	if err != nil {
		return models.InventoryItem{}, err
	}
	for _, f := range []string{"sku", "created_at"} {
		delete(fields, f)
	}
	if err := s.db.Update(ctx, models.CollectionInventory, sku, fields); err != nil {
		return models.InventoryItem{}, err
	}
	return next, nil
}

// Discontinue es el "borrado" de inventario.
func (s *Service) Discontinue(ctx context.Context, sku string) error {
	if err := s.db.Update(ctx, models.CollectionInventory, sku, map[string]interface{}{
		"descontinuado": true,
		"updated_at":    s.now().UTC(),
	}); err != nil {
		return err
	}
	s.log.WithField("sku", sku).Info("inventory item discontinued")
	return nil
}

// List devuelve el inventario ordenado por SKU. Los descontinuados se
// incluyen solo si se piden.
func (s *Service) List(ctx context.Context, includeDiscontinued bool) ([]models.InventoryItem, error) {
	docs, err := s.db.Query(ctx, models.CollectionInventory)
	if err != nil {
		return nil, err
	}
	out := make([]models.InventoryItem, 0, len(docs))
	for _, doc := range docs {
		var item models.InventoryItem
		if err := store.FromDocument(doc, &item); err != nil {
			return nil, err
		}
		item.SKU = doc.ID
		if item.Descontinuado && !includeDiscontinued {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

// LowStock lista los SKUs vigentes con stock en o bajo el mínimo.
func (s *Service) LowStock(ctx context.Context) ([]models.InventoryItem, error) {
	items, err := s.List(ctx, false)
	if err != nil {
		return nil, err
	}
	low := make([]models.InventoryItem, 0)
	for _, it := range items {
		if it.LowStock() {
			low = append(low, it)
		}
	}
	return low, nil
}

// BulkImport hace merge-upsert de cada fila. Una fila inválida no detiene
// a las demás.
func (s *Service) BulkImport(ctx context.Context, items []models.InventoryItem) ImportReport {
	report := ImportReport{Failed: []RowError{}}
	now := s.now().UTC()
	for i, item := range items {
		item.SKU = strings.TrimSpace(item.SKU)
		if err := s.importRow(ctx, item, now); err != nil {
			report.Failed = append(report.Failed, RowError{Row: i + 1, SKU: item.SKU, Error: err.Error()})
			continue
		}
		report.Imported++
	}
	s.log.WithFields(logrus.Fields{"imported": report.Imported, "failed": len(report.Failed)}).Info("inventory import finished")
	return report
}

func (s *Service) importRow(ctx context.Context, item models.InventoryItem, now time.Time) error {
	if err := s.validate.Struct(item); err != nil {
		return fmt.Errorf("%w: %w", models.ErrValidation, err)
	}
	item.UpdatedAt = now
	data, err := store.ToDocument(item)
	if err != nil {
		return err
	}
	delete(data, "created_at")
	if err := s.db.Create(ctx, models.CollectionInventory, item.SKU, map[string]interface{}{"created_at": now}); err != nil && !errors.Is(err, models.ErrAlreadyExists) {
		return err
	}
	return s.db.SetMerge(ctx, models.CollectionInventory, item.SKU, data)
}
