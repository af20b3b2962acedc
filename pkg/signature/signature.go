// Package signature verifica webhooks firmados con HMAC-SHA256 (formato Shopify:
// base64 del HMAC del cuerpo crudo, en el header X-Shopify-Hmac-Sha256).
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"sort"
	"strings"
)

// HeaderShopify es el header con la firma de Shopify.
const HeaderShopify = "X-Shopify-Hmac-Sha256"

// Sign calcula base64(HMAC-SHA256(secret, body)).
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify compara en tiempo constante. Sin secreto o sin firma siempre es false.
func Verify(body []byte, header, secret string) bool {
	if secret == "" || header == "" {
		return false
	}
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(header)))
}

// Store es una tienda de Shopify registrada.
type Store struct {
	ID     string
	Secret string
}

// StoreTable reemplaza los endpoints por tienda: la ruta trae el ID y el
// secreto se busca aquí.
type StoreTable map[string]Store

// NewStoreTable construye la tabla desde el mapa id -> secreto de la configuración.
func NewStoreTable(secrets map[string]string) StoreTable {
	table := make(StoreTable, len(secrets))
	for id, secret := range secrets {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		table[id] = Store{ID: id, Secret: strings.TrimSpace(secret)}
	}
	return table
}

func (t StoreTable) Lookup(id string) (Store, bool) {
	s, ok := t[id]
	return s, ok
}

// Verify falla cerrado para tiendas desconocidas o sin secreto.
func (t StoreTable) Verify(storeID string, body []byte, header string) bool {
	s, ok := t.Lookup(storeID)
	if !ok {
		return false
	}
	return Verify(body, header, s.Secret)
}

// IDs devuelve los IDs ordenados (para logs de arranque).
func (t StoreTable) IDs() []string {
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
