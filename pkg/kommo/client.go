package kommo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/andrescris/logiflow/pkg/models"
	"github.com/andrescris/logiflow/pkg/normalizer"
)

// API es lo que el pipeline de ingesta necesita de Kommo.
type API interface {
	GetLead(ctx context.Context, id string) (normalizer.KommoLead, error)
	GetContact(ctx context.Context, id string) (normalizer.KommoContact, error)
	UpdateLeadStatus(ctx context.Context, id string, statusID int64) error
}

// Client es un cliente mínimo de la API v4.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient crea un cliente autenticado con tokens (el bearer lo inyecta x/oauth2).
func NewClient(baseURL string, tokens oauth2.TokenSource) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: oauth2.NewClient(context.Background(), tokens),
	}
}

func (c *Client) GetLead(ctx context.Context, id string) (normalizer.KommoLead, error) {
	var lead normalizer.KommoLead
	err := c.do(ctx, http.MethodGet, "/api/v4/leads/"+id+"?with=contacts", nil, &lead)
	return lead, err
}

func (c *Client) GetContact(ctx context.Context, id string) (normalizer.KommoContact, error) {
	var contact normalizer.KommoContact
	err := c.do(ctx, http.MethodGet, "/api/v4/contacts/"+id, nil, &contact)
	return contact, err
}

func (c *Client) UpdateLeadStatus(ctx context.Context, id string, statusID int64) error {
	return c.do(ctx, http.MethodPatch, "/api/v4/leads/"+id, map[string]int64{"status_id": statusID}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: kommo %s %s: %v", models.ErrUpstream, method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || (resp.StatusCode == http.StatusNoContent && out != nil):
		return fmt.Errorf("kommo %s: %w", path, models.ErrNotFound)
	case resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: kommo %s %s returned %d: %s", models.ErrUpstream, method, path, resp.StatusCode, snippet)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode kommo %s: %v", models.ErrUpstream, path, err)
	}
	return nil
}
