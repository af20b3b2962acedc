package webhooks

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/andrescris/logiflow/pkg/models"
	"github.com/andrescris/logiflow/pkg/store"
)

// ConfigPatch es una edición parcial; los campos nil no cambian.
type ConfigPatch struct {
	Name   *string `json:"name"`
	URL    *string `json:"url"`
	Event  *string `json:"event"`
	Active *bool   `json:"active"`
}

// Configs es el CRUD de la colección "webhooks".
type Configs struct {
	db       store.Store
	validate *validator.Validate
	now      func() time.Time
}

func NewConfigs(db store.Store) *Configs {
	return &Configs{db: db, validate: validator.New(), now: time.Now}
}

func (c *Configs) List(ctx context.Context) ([]models.WebhookConfig, error) {
	docs, err := c.db.Query(ctx, models.CollectionWebhooks)
	if err != nil {
		return nil, err
	}
	out := make([]models.WebhookConfig, 0, len(docs))
	for _, doc := range docs {
		var cfg models.WebhookConfig
		if err := store.FromDocument(doc, &cfg); err != nil {
			return nil, err
		}
		cfg.ID = doc.ID
		out = append(out, cfg)
	}
	return out, nil
}

func (c *Configs) Get(ctx context.Context, id string) (models.WebhookConfig, error) {
	doc, err := c.db.Get(ctx, models.CollectionWebhooks, id)
	if err != nil {
		return models.WebhookConfig{}, err
	}
	var cfg models.WebhookConfig
	if err := store.FromDocument(doc, &cfg); err != nil {
		return models.WebhookConfig{}, err
	}
	cfg.ID = doc.ID
	return cfg, nil
}

// Create genera el ID y guarda la configuración.
func (c *Configs) Create(ctx context.Context, cfg models.WebhookConfig) (models.WebhookConfig, error) {
	if err := c.validate.Struct(cfg); err != nil {
		return models.WebhookConfig{}, fmt.Errorf("%w: %w", models.ErrValidation, err)
	}
	now := c.now().UTC()
	cfg.ID = uuid.New().String()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	data, err := store.ToDocument(cfg)
	if err != nil {
		return models.WebhookConfig{}, err
	}
	if err := c.db.Create(ctx, models.CollectionWebhooks, cfg.ID, data); err != nil {
		return models.WebhookConfig{}, fmt.Errorf("create webhook: %w", err)
	}
	return cfg, nil
}

// Update aplica un patch y valida el resultado completo.
func (c *Configs) Update(ctx context.Context, id string, patch ConfigPatch) (models.WebhookConfig, error) {
	cfg, err := c.Get(ctx, id)
	if err != nil {
		return models.WebhookConfig{}, err
	}
	if patch.Name != nil {
		cfg.Name = *patch.Name
	}
	if patch.URL != nil {
		cfg.URL = *patch.URL
	}
	if patch.Event != nil {
		cfg.Event = *patch.Event
	}
	if patch.Active != nil {
		cfg.Active = *patch.Active
	}
	if err := c.validate.Struct(cfg); err != nil {
		return models.WebhookConfig{}, fmt.Errorf("%w: %w", models.ErrValidation, err)
	}
	cfg.UpdatedAt = c.now().UTC()

	data, err := store.ToDocument(cfg)
	if err != nil {
		return models.WebhookConfig{}, err
	}
	if err := c.db.Update(ctx, models.CollectionWebhooks, id, data); err != nil {
		return models.WebhookConfig{}, err
	}
	return cfg, nil
}

func (c *Configs) Delete(ctx context.Context, id string) error {
	if _, err := c.db.Get(ctx, models.CollectionWebhooks, id); err != nil {
		return err
	}
	return c.db.Delete(ctx, models.CollectionWebhooks, id)
}
