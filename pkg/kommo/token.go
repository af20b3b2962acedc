// Package kommo habla con la API REST v4 de Kommo usando OAuth2 con refresh token.
package kommo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/andrescris/logiflow/pkg/models"
)

// TokenPersister guarda los tokens rotados (Kommo invalida el refresh token anterior).
type TokenPersister interface {
	SaveToken(ctx context.Context, token *oauth2.Token) error
}

// RefreshConfig son las credenciales de la integración.
type RefreshConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// RefreshSource implementa oauth2.TokenSource con el grant refresh_token de
// Kommo (JSON, incluye redirect_uri, que x/oauth2 no manda).
type RefreshSource struct {
	cfg        RefreshConfig
	httpClient *http.Client
	persister  TokenPersister

	mu           sync.Mutex
	refreshToken string
}

func NewRefreshSource(cfg RefreshConfig, refreshToken string, httpClient *http.Client, persister TokenPersister) *RefreshSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &RefreshSource{
		cfg:          cfg,
		httpClient:   httpClient,
		persister:    persister,
		refreshToken: refreshToken,
	}
}

type refreshRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
	RefreshToken string `json:"refresh_token"`
	RedirectURI  string `json:"redirect_uri"`
}

type refreshResponse struct {
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Token pide un access token nuevo. oauth2.ReuseTokenSource lo llama solo
// cuando el token cacheado está por vencer.
func (s *RefreshSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(refreshRequest{
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		GrantType:    "refresh_token",
		RefreshToken: s.refreshToken,
		RedirectURI:  s.cfg.RedirectURI,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	url := strings.TrimRight(s.cfg.BaseURL, "/") + "/oauth2/access_token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: kommo token refresh: %v", models.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: kommo token refresh returned %d", models.ErrUpstream, resp.StatusCode)
	}

	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode kommo token: %v", models.ErrUpstream, err)
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("%w: kommo token refresh returned empty access token", models.ErrUpstream)
	}

	token := &oauth2.Token{
		AccessToken:  out.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: out.RefreshToken,
		Expiry:       time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}
	if out.RefreshToken != "" {
		s.refreshToken = out.RefreshToken
	}
	if s.persister != nil {
		// un fallo al persistir no invalida el token recién obtenido
		_ = s.persister.SaveToken(ctx, token)
	}
	return token, nil
}

// NewTokenCache envuelve src en un cache seguro para uso concurrente que
// refresca early antes del vencimiento. initial puede ser nil.
func NewTokenCache(initial *oauth2.Token, src oauth2.TokenSource, early time.Duration) oauth2.TokenSource {
	return oauth2.ReuseTokenSourceWithExpiry(initial, src, early)
}
