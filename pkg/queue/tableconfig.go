package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andrescris/logiflow/pkg/models"
	"github.com/andrescris/logiflow/pkg/store"
)

// DefaultVisibleColumns se usa cuando el usuario no guardó su configuración.
var DefaultVisibleColumns = []string{"nombre", "telefono", "distrito", "source", "call_status", "tienda"}

// TableConfigs guarda la configuración de columnas por usuario.
type TableConfigs struct {
	db  store.Store
	now func() time.Time
}

func NewTableConfigs(db store.Store) *TableConfigs {
	return &TableConfigs{db: db, now: time.Now}
}

// Get devuelve la configuración del usuario o la de defecto.
func (t *TableConfigs) Get(ctx context.Context, uid string) (models.UserTableConfig, error) {
	doc, err := t.db.Get(ctx, models.CollectionTableConfigs, uid)
	if errors.Is(err, models.ErrNotFound) {
		return models.UserTableConfig{UserID: uid, Visible: DefaultVisibleColumns}, nil
	}
	if err != nil {
		return models.UserTableConfig{}, err
	}
	var cfg models.UserTableConfig
	if err := store.FromDocument(doc, &cfg); err != nil {
		return models.UserTableConfig{}, err
	}
	cfg.UserID = uid
	return cfg, nil
}

// Put reemplaza la configuración. Solo acepta columnas filtrables.
func (t *TableConfigs) Put(ctx context.Context, uid string, cfg models.UserTableConfig) (models.UserTableConfig, error) {
	for _, col := range cfg.Visible {
		if !isColumn(col) {
			return models.UserTableConfig{}, fmt.Errorf("%w: unknown column %q", models.ErrValidation, col)
		}
	}
	for col := range cfg.Filters {
		if !isColumn(col) {
			return models.UserTableConfig{}, fmt.Errorf("%w: unknown filter column %q", models.ErrValidation, col)
		}
	}
	cfg.UserID = uid
	cfg.Updated = t.now().UTC()

	data, err := store.ToDocument(cfg)
	if err != nil {
		return models.UserTableConfig{}, err
	}
	// Put reemplaza mapas completos: se borra antes de escribir
	if err := t.db.Delete(ctx, models.CollectionTableConfigs, uid); err != nil && !errors.Is(err, models.ErrNotFound) {
		return models.UserTableConfig{}, err
	}
	if err := t.db.SetMerge(ctx, models.CollectionTableConfigs, uid, data); err != nil {
		return models.UserTableConfig{}, fmt.Errorf("save table config: %w", err)
	}
	return cfg, nil
}

func isColumn(name string) bool {
	for _, c := range models.FilterableColumns {
		if c == name {
			return true
		}
	}
	return false
}
