package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
)

// Claves de contexto que dejan los middlewares de autenticación.
const (
	ContextUID    = "uid"
	ContextClaims = "claims"
)

// DevUID es el usuario que se inyecta cuando la autenticación está desactivada.
const DevUID = "dev-user"

// APIKeyAuthMiddleware verifica la API Key de ingesta. Se acepta en ?api_key=
// (así la configuran Kommo y los integradores) o en X-API-KEY.
func APIKeyAuthMiddleware(requiredAPIKey string) gin.HandlerFunc {
	if requiredAPIKey == "" {
		panic("CRITICAL: ingestion API key is not defined.")
	}

	return func(c *gin.Context) {
		clientKey := c.Query("api_key")
		if clientKey == "" {
			clientKey = c.GetHeader("X-API-KEY")
		}
		if subtle.ConstantTimeCompare([]byte(clientKey), []byte(requiredAPIKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing API Key."})
			return
		}
		c.Next()
	}
}

// TokenVerifier valida ID tokens de Firebase (*auth.Client lo implementa).
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseAuthMiddleware exige un ID token de Firebase en Authorization:
// Bearer y deja uid y claims en el contexto. Con disabled (solo desarrollo)
// deja pasar todo como DevUID.
func FirebaseAuthMiddleware(verifier TokenVerifier, disabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if disabled {
			c.Set(ContextUID, DevUID)
			c.Set(ContextClaims, map[string]interface{}{"role": "admin"})
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		idToken, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(idToken) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token."})
			return
		}

		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(idToken))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token."})
			return
		}

		c.Set(ContextUID, token.UID)
		c.Set(ContextClaims, token.Claims)
		c.Next()
	}
}

// CurrentUID devuelve el uid autenticado o "".
func CurrentUID(c *gin.Context) string {
	return c.GetString(ContextUID)
}
