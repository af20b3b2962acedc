// Package Handlers expone el servicio por HTTP con gin.
package Handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/andrescris/logiflow/pkg/ingest"
	"github.com/andrescris/logiflow/pkg/inventory"
	"github.com/andrescris/logiflow/pkg/middleware"
	"github.com/andrescris/logiflow/pkg/orders"
	"github.com/andrescris/logiflow/pkg/queue"
	"github.com/andrescris/logiflow/pkg/signature"
	"github.com/andrescris/logiflow/pkg/webhooks"
)

// Server agrupa las dependencias de los handlers.
type Server struct {
	Stores    signature.StoreTable
	Ingest    *ingest.Service
	Queue     *queue.Projection
	Tables    *queue.TableConfigs
	Orders    *orders.Service
	Inventory *inventory.Service
	Webhooks  *webhooks.Configs
	Location  *time.Location
	Log       *logrus.Logger
}

// RouterConfig es la configuración de los middlewares.
type RouterConfig struct {
	IngestionAPIKey string
	Verifier        middleware.TokenVerifier
	AuthDisabled    bool
	RateLimitRPS    float64
	RateLimitBurst  int
}

// Register monta todas las rutas sobre r.
func (s *Server) Register(r *gin.Engine, cfg RouterConfig) {
	r.GET("/healthz", func(c *gin.Context) {
		if err := s.Queue.Healthy(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// --- Webhooks entrantes ---
	limited := api.Group("/")
	limited.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	{
		limited.POST("/webhooks/shopify/:store", s.ShopifyWebhook)

		withKey := limited.Group("/")
		withKey.Use(middleware.APIKeyAuthMiddleware(cfg.IngestionAPIKey))
		withKey.POST("/data-ingestion", s.DataIngestion)
		withKey.POST("/kommo-webhook", s.KommoWebhook)
	}

	// --- Rutas del panel (token de Firebase) ---
	panel := api.Group("/")
	panel.Use(middleware.FirebaseAuthMiddleware(cfg.Verifier, cfg.AuthDisabled))
	{
		panel.GET("/call-center/queue", s.GetQueue)
		panel.GET("/call-center/queue/options/:column", s.GetQueueOptions)
		panel.PATCH("/leads/:collection/:id/call-status", s.UpdateCallStatus)
		panel.POST("/leads/:collection/:id/confirm", s.ConfirmLead)

		panel.GET("/orders", s.ListOrders)
		panel.GET("/orders/:id", s.GetOrder)
		panel.PATCH("/orders/:id/status", s.ChangeOrderStatus)

		panel.GET("/inventory", s.ListInventory)
		panel.POST("/inventory", s.CreateInventoryItem)
		panel.GET("/inventory/low-stock", s.LowStock)
		panel.POST("/inventory/import", s.ImportInventory)
		panel.PATCH("/inventory/:sku", s.UpdateInventoryItem)
		panel.DELETE("/inventory/:sku", s.DiscontinueInventoryItem)

		panel.GET("/webhook-configs", s.ListWebhookConfigs)
		panel.POST("/webhook-configs", s.CreateWebhookConfig)
		panel.PATCH("/webhook-configs/:id", s.UpdateWebhookConfig)
		panel.DELETE("/webhook-configs/:id", s.DeleteWebhookConfig)

		panel.GET("/table-configs/:uid", s.GetTableConfig)
		panel.PUT("/table-configs/:uid", s.PutTableConfig)
	}
}
