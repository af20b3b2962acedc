package kommo

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"

	"github.com/andrescris/logiflow/pkg/models"
	"github.com/andrescris/logiflow/pkg/store"
)

const tokenDocID = "kommo"

// StoredToken es el documento integration_tokens/kommo.
type StoredToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TokenStore persiste los tokens de Kommo en el document store.
type TokenStore struct {
	db store.Store
}

func NewTokenStore(db store.Store) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) SaveToken(ctx context.Context, token *oauth2.Token) error {
	data, err := store.ToDocument(StoredToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry.UTC(),
		UpdatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return s.db.SetMerge(ctx, models.CollectionIntegrationTokens, tokenDocID, data)
}

// LoadToken devuelve el último token guardado, o nil si nunca se guardó.
func (s *TokenStore) LoadToken(ctx context.Context) (*oauth2.Token, error) {
	doc, err := s.db.Get(ctx, models.CollectionIntegrationTokens, tokenDocID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored StoredToken
	if err := store.FromDocument(doc, &stored); err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken:  stored.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: stored.RefreshToken,
		Expiry:       stored.Expiry,
	}, nil
}
