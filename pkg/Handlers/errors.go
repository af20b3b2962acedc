package Handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/andrescris/logiflow/pkg/ingest"
	"github.com/andrescris/logiflow/pkg/models"
)

// respondError traduce un error de servicio a su status HTTP.
func (s *Server) respondError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": details})
	case errors.Is(err, models.ErrMissingDNI):
		c.JSON(http.StatusBadRequest, gin.H{"error": "DNI is required", "details": err.Error()})
	case errors.Is(err, models.ErrUnknownPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown payload format", "details": err.Error()})
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
	case errors.Is(err, models.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found", "details": err.Error()})
	case errors.Is(err, models.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "Already exists", "details": err.Error()})
	case errors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Invalid state transition", "details": err.Error()})
	case errors.Is(err, models.ErrUpstream):
		s.Log.WithError(err).WithField("path", c.FullPath()).Warn("upstream call failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream service failed", "details": err.Error()})
	case errors.Is(err, ingest.ErrKommoDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Kommo integration is not configured"})
	default:
		s.Log.WithError(err).WithField("path", c.FullPath()).Error("internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func (s *Server) badRequest(c *gin.Context, msg string, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "details": err.Error()})
}
