package Handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andrescris/logiflow/pkg/models"
)

func (s *Server) ListInventory(c *gin.Context) {
	items, err := s.Inventory.List(c.Request.Context(), c.Query("include_discontinued") == "true")
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "data": items})
}

func (s *Server) CreateInventoryItem(c *gin.Context) {
	var item models.InventoryItem
	if err := c.ShouldBindJSON(&item); err != nil {
		s.badRequest(c, "Invalid request body", err)
		return
	}
	created, err := s.Inventory.Create(c.Request.Context(), item)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Inventory item created successfully", "data": created})
}

// UpdateInventoryItem es la edición rápida: solo cambian los campos enviados.
func (s *Server) UpdateInventoryItem(c *gin.Context) {
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		s.badRequest(c, "Invalid JSON format", err)
		return
	}
	item, err := s.Inventory.Update(c.Request.Context(), c.Param("sku"), updates)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Inventory item updated successfully", "data": item})
}

// DiscontinueInventoryItem no borra el SKU, lo marca descontinuado.
func (s *Server) DiscontinueInventoryItem(c *gin.Context) {
	if err := s.Inventory.Discontinue(c.Request.Context(), c.Param("sku")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Inventory item discontinued successfully"})
}

func (s *Server) LowStock(c *gin.Context) {
	items, err := s.Inventory.LowStock(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "data": items})
}

func (s *Server) ImportInventory(c *gin.Context) {
	var items []models.InventoryItem
	if err := c.ShouldBindJSON(&items); err != nil {
		s.badRequest(c, "Invalid request body", err)
		return
	}
	report := s.Inventory.BulkImport(c.Request.Context(), items)
	status := http.StatusOK
	if report.Imported == 0 && len(report.Failed) > 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"success": len(report.Failed) == 0, "data": report})
}
