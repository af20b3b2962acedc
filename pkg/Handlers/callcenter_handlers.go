package Handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andrescris/logiflow/pkg/middleware"
	"github.com/andrescris/logiflow/pkg/models"
	"github.com/andrescris/logiflow/pkg/orders"
	"github.com/andrescris/logiflow/pkg/queue"
)

// GetQueue devuelve la cola del call center con los filtros de la query.
func (s *Server) GetQueue(c *gin.Context) {
	filter, err := queue.ParseFilter(c.Request.URL.Query(), s.Location)
	if err != nil {
		s.respondError(c, err)
		return
	}
	items := s.Queue.Snapshot(filter)
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "data": items})
}

// GetQueueOptions lista los valores de una columna para armar el filtro.
func (s *Server) GetQueueOptions(c *gin.Context) {
	column := c.Param("column")
	known := false
	for _, col := range models.FilterableColumns {
		if col == column {
			known = true
			break
		}
	}
	if !known {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown column", "column": column})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": s.Queue.DistinctValues(column)})
}

func (s *Server) UpdateCallStatus(c *gin.Context) {
	var in orders.CallStatusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.badRequest(c, "Invalid request body", err)
		return
	}
	in.Usuario = middleware.CurrentUID(c)

	lead, err := s.Orders.UpdateCallStatus(c.Request.Context(), c.Param("collection"), c.Param("id"), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": lead})
}

// ConfirmLead cierra la venta y crea la orden.
func (s *Server) ConfirmLead(c *gin.Context) {
	var in orders.ConfirmInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			s.badRequest(c, "Invalid request body", err)
			return
		}
	}
	in.Usuario = middleware.CurrentUID(c)

	order, err := s.Orders.ConfirmLead(c.Request.Context(), c.Param("collection"), c.Param("id"), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Order created successfully", "data": order})
}

func (s *Server) GetTableConfig(c *gin.Context) {
	uid := c.Param("uid")
	if !s.ownsResource(c, uid) {
		return
	}
	cfg, err := s.Tables.Get(c.Request.Context(), uid)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": cfg})
}

func (s *Server) PutTableConfig(c *gin.Context) {
	uid := c.Param("uid")
	if !s.ownsResource(c, uid) {
		return
	}
	var cfg models.UserTableConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		s.badRequest(c, "Invalid request body", err)
		return
	}
	saved, err := s.Tables.Put(c.Request.Context(), uid, cfg)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": saved})
}

// ownsResource: cada usuario solo ve su configuración, salvo admin.
func (s *Server) ownsResource(c *gin.Context, uid string) bool {
	if middleware.CurrentUID(c) == uid || isAdmin(c) {
		return true
	}
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource."})
	return false
}

func isAdmin(c *gin.Context) bool {
	claims, ok := c.Get(middleware.ContextClaims)
	if !ok {
		return false
	}
	m, ok := claims.(map[string]interface{})
	return ok && m["role"] == "admin"
}
