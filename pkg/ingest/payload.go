package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/andrescris/logiflow/pkg/models"
)

// Kind identifica el origen de un payload de /api/data-ingestion.
type Kind string

const (
	KindShopify Kind = "shopify"
	KindKommo   Kind = "kommo"
)

// Payload es el resultado de decodificar en el borde HTTP: un origen
// explícito y el cuerpo que le corresponde.
type Payload struct {
	Kind  Kind
	Store string
	Raw   []byte
}

// DecodePayload decide el origen. Un campo "source" explícito manda (con el
// cuerpo opcionalmente dentro de "payload"); si no, se reconoce por forma.
// Formas desconocidas devuelven models.ErrUnknownPayload.
func DecodePayload(body []byte) (Payload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Payload{}, fmt.Errorf("%w: invalid JSON body: %v", models.ErrValidation, err)
	}

	if rawSource, ok := fields["source"]; ok {
		var source, store string
		if err := json.Unmarshal(rawSource, &source); err != nil {
			return Payload{}, fmt.Errorf("%w: source must be a string", models.ErrUnknownPayload)
		}
		if rawStore, ok := fields["store"]; ok {
			_ = json.Unmarshal(rawStore, &store)
		}
		raw := body
		if inner, ok := fields["payload"]; ok {
			raw = inner
		}
		switch Kind(strings.ToLower(strings.TrimSpace(source))) {
		case KindShopify:
			return Payload{Kind: KindShopify, Store: store, Raw: raw}, nil
		case KindKommo:
			return Payload{Kind: KindKommo, Raw: raw}, nil
		}
		return Payload{}, fmt.Errorf("%w: unknown source %q", models.ErrUnknownPayload, source)
	}

	_, hasID := fields["id"]
	if _, hasItems := fields["line_items"]; hasItems && hasID {
		return Payload{Kind: KindShopify, Raw: body}, nil
	}
	if _, ok := fields["custom_fields_values"]; ok {
		return Payload{Kind: KindKommo, Raw: body}, nil
	}
	if embedded, ok := fields["_embedded"]; ok {
		var e struct {
			Contacts json.RawMessage `json:"contacts"`
		}
		if json.Unmarshal(embedded, &e) == nil && len(e.Contacts) > 0 && !bytes.Equal(e.Contacts, []byte("null")) {
			return Payload{Kind: KindKommo, Raw: body}, nil
		}
	}
	return Payload{}, models.ErrUnknownPayload
}

var kommoLeadKey = regexp.MustCompile(`^leads\[(add|update|status)\]\[\d+\]\[id\]$`)

// ParseKommoNotification extrae los IDs de lead de un webhook de Kommo
// (form-urlencoded, p. ej. leads[status][0][id]=991). Sin duplicados y en
// orden de aparición.
func ParseKommoNotification(body []byte) ([]string, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid form body: %v", models.ErrValidation, err)
	}

	// url.Values es un mapa; recorremos el cuerpo crudo para conservar el orden.
	seen := make(map[string]bool)
	var ids []string
	for _, pair := range strings.Split(string(body), "&") {
		key, _, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(key)
		if err != nil || !kommoLeadKey.MatchString(key) {
			continue
		}
		for _, id := range values[key] {
			id = strings.TrimSpace(id)
			if id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}
