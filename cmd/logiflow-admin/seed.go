package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/andrescris/logiflow/pkg/ingest"
	"github.com/andrescris/logiflow/pkg/inventory"
	"github.com/andrescris/logiflow/pkg/logger"
	"github.com/andrescris/logiflow/pkg/models"
	"github.com/andrescris/logiflow/pkg/store"
)

//go:embed seed/seed.yaml
var defaultSeed []byte

// Fixture es el contenido del YAML de semilla. Las filas se leen como mapas
// y se convierten a los modelos con el mismo JSON que usa el store.
type Fixture struct {
	Inventory []map[string]interface{} `yaml:"inventory"`
	Clients   []map[string]interface{} `yaml:"clients"`
	Webhooks  []map[string]interface{} `yaml:"webhooks"`
}

// SeedReport resume lo escrito.
type SeedReport struct {
	Inventory int
	Clients   int
	Webhooks  int
	Errors    []string
}

func newSeedCmd(fb *firebaseFlags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed-firestore",
		Short: "Carga datos de ejemplo (inventario, clientes y webhooks)",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := defaultSeed
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				raw = b
			}
			fixture, err := parseFixture(raw)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			clients, err := fb.connect(ctx)
			if err != nil {
				return err
			}
			defer clients.db.Close()

			report := seedFirestore(ctx, clients.db, fixture, logger.GetLogger("seed"))
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d inventory items, %d clients, %d webhooks\n",
				report.Inventory, report.Clients, report.Webhooks)
			if len(report.Errors) > 0 {
				return fmt.Errorf("%d seed rows failed", len(report.Errors))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", os.Getenv("SEED_FILE"), "YAML fixture to load instead of the embedded one (SEED_FILE)")
	return cmd
}

func parseFixture(raw []byte) (Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse seed yaml: %w", err)
	}
	return f, nil
}

func rowTo(row map[string]interface{}, out interface{}) error {
	return store.FromDocument(store.Document{Data: row}, out)
}

// seedFirestore hace merge de cada fila: correrlo dos veces no duplica nada
// ni pisa el avance de los leads.
func seedFirestore(ctx context.Context, db store.Store, f Fixture, log *logrus.Logger) SeedReport {
	var report SeedReport

	items := make([]models.InventoryItem, 0, len(f.Inventory))
	for i, row := range f.Inventory {
		var item models.InventoryItem
		if err := rowTo(row, &item); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("inventory[%d]: %v", i, err))
			continue
		}
		items = append(items, item)
	}
	imported := inventory.NewService(db, log).BulkImport(ctx, items)
	report.Inventory = imported.Imported
	for _, failed := range imported.Failed {
		report.Errors = append(report.Errors, fmt.Sprintf("inventory %s: %s", failed.SKU, failed.Error))
	}

	leads := ingest.NewService(db, nil, nil, log)
	for i, row := range f.Clients {
		var lead models.Lead
		if err := rowTo(row, &lead); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("clients[%d]: %v", i, err))
			continue
		}
		if lead.Source == "" {
			lead.Source = models.SourceManual
		}
		if _, err := leads.UpsertLead(ctx, models.CollectionClients, lead); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("clients %s: %v", lead.ID, err))
			continue
		}
		report.Clients++
	}

	validate := validator.New()
	now := time.Now().UTC()
	for i, row := range f.Webhooks {
		var cfg models.WebhookConfig
		if err := rowTo(row, &cfg); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("webhooks[%d]: %v", i, err))
			continue
		}
		if cfg.ID == "" {
			report.Errors = append(report.Errors, fmt.Sprintf("webhooks[%d]: id is required", i))
			continue
		}
		if err := validate.Struct(cfg); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("webhooks %s: %v", cfg.ID, err))
			continue
		}
		cfg.CreatedAt, cfg.UpdatedAt = now, now
		data, err := store.ToDocument(cfg)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("webhooks %s: %v", cfg.ID, err))
			continue
		}
		if err := db.SetMerge(ctx, models.CollectionWebhooks, cfg.ID, data); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("webhooks %s: %v", cfg.ID, err))
			continue
		}
		report.Webhooks++
	}

	for _, e := range report.Errors {
		log.Warn(e)
	}
	return report
}
