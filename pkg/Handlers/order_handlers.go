package Handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andrescris/logiflow/pkg/middleware"
	"github.com/andrescris/logiflow/pkg/models"
)

func (s *Server) ListOrders(c *gin.Context) {
	list, err := s.Orders.List(c.Request.Context(), models.OrderStatus(c.Query("estado")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(list), "data": list})
}

func (s *Server) GetOrder(c *gin.Context) {
	order, err := s.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
}

type statusRequest struct {
	Estado models.OrderStatus `json:"estado" binding:"required"`
	Nota   string             `json:"nota"`
}

// ChangeOrderStatus mueve la orden a otra columna del tablero.
func (s *Server) ChangeOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "Invalid request body", err)
		return
	}
	order, err := s.Orders.ChangeStatus(c.Request.Context(), c.Param("id"), req.Estado, middleware.CurrentUID(c), req.Nota)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
}
