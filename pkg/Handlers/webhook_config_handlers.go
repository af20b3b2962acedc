package Handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andrescris/logiflow/pkg/models"
	"github.com/andrescris/logiflow/pkg/webhooks"
)

func (s *Server) ListWebhookConfigs(c *gin.Context) {
	list, err := s.Webhooks.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": list, "events": models.WebhookEvents})
}

func (s *Server) CreateWebhookConfig(c *gin.Context) {
	var cfg models.WebhookConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		s.badRequest(c, "Invalid request body", err)
		return
	}
	created, err := s.Webhooks.Create(c.Request.Context(), cfg)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Webhook created successfully", "data": created})
}

func (s *Server) UpdateWebhookConfig(c *gin.Context) {
	var patch webhooks.ConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.badRequest(c, "Invalid request body", err)
		return
	}
	updated, err := s.Webhooks.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Webhook updated successfully", "data": updated})
}

func (s *Server) DeleteWebhookConfig(c *gin.Context) {
	if err := s.Webhooks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Webhook deleted successfully"})
}
