package Handlers

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/andrescris/logiflow/pkg/ingest"
	"github.com/andrescris/logiflow/pkg/signature"
)

// Tope para cuerpos de webhook.
const maxWebhookBody = 2 << 20

func readBody(c *gin.Context) ([]byte, error) {
	return io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
}

// ShopifyWebhook recibe órdenes de cualquier tienda configurada. La firma se
// verifica sobre el cuerpo crudo, antes de parsear nada.
func (s *Server) ShopifyWebhook(c *gin.Context) {
	storeID := c.Param("store")
	if _, ok := s.Stores.Lookup(storeID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown store", "store": storeID})
		return
	}

	body, err := readBody(c)
	if err != nil {
		s.badRequest(c, "Could not read request body", err)
		return
	}
	if !s.Stores.Verify(storeID, body, c.GetHeader(signature.HeaderShopify)) {
		s.Log.WithFields(logrus.Fields{"store": storeID, "source": "shopify"}).Warn("rejected webhook with invalid signature")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	res, err := s.Ingest.IngestShopify(c.Request.Context(), storeID, body)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

// DataIngestion acepta un payload de Shopify o Kommo y lo despacha según su forma.
func (s *Server) DataIngestion(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		s.badRequest(c, "Could not read request body", err)
		return
	}
	s.ingestJSON(c, body)
}

func (s *Server) ingestJSON(c *gin.Context, body []byte) {
	payload, err := ingest.DecodePayload(body)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if payload.Kind == ingest.KindShopify && payload.Store == "" {
		payload.Store = c.Query("store")
	}

	res, err := s.Ingest.Ingest(c.Request.Context(), payload)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "source": payload.Kind, "data": res})
}

// looksLikeJSON mira el cuerpo y no el Content-Type: hay integradores que
// mandan JSON como text/plain o sin cabecera.
func looksLikeJSON(c *gin.Context, body []byte) bool {
	if strings.HasPrefix(c.ContentType(), "application/json") {
		return true
	}
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// KommoWebhook recibe JSON (lead de Kommo u orden de Shopify, según su forma)
// o las notificaciones form-urlencoded de Kommo, que se sincronizan por API.
func (s *Server) KommoWebhook(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		s.badRequest(c, "Could not read request body", err)
		return
	}

	if looksLikeJSON(c, body) {
		s.ingestJSON(c, body)
		return
	}

	ids, err := ingest.ParseKommoNotification(body)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if len(ids) == 0 {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "No leads in notification"})
		return
	}
	report, err := s.Ingest.SyncKommoLeads(c.Request.Context(), ids)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": len(report.Failed) == 0, "data": report})
}
