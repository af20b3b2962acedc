// Package config lee la configuración del servicio desde variables de entorno.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contiene todo lo necesario para levantar el servidor de ingesta.
type Config struct {
	Port string `env:"PORT" envDefault:"8082"`

	FirebaseProjectID       string `env:"FIREBASE_PROJECT_ID,notEmpty"`
	FirebaseCredentialsPath string `env:"FIREBASE_CREDENTIALS_PATH"`

	// IngestionAPIKey protege /api/data-ingestion y /api/kommo-webhook (?api_key=).
	IngestionAPIKey string `env:"INGESTION_API_KEY,notEmpty"`

	// ShopifyStores es la tabla de tiendas: "tienda1:secreto1,tienda2:secreto2".
	ShopifyStores map[string]string `env:"SHOPIFY_STORES" envKeyValSeparator:":"`

	KommoBaseURL           string `env:"KOMMO_BASE_URL"`
	KommoClientID          string `env:"KOMMO_CLIENT_ID"`
	KommoClientSecret      string `env:"KOMMO_CLIENT_SECRET"`
	KommoRedirectURI       string `env:"KOMMO_REDIRECT_URI"`
	KommoAccessToken       string `env:"KOMMO_ACCESS_TOKEN"`
	KommoRefreshToken      string `env:"KOMMO_REFRESH_TOKEN"`
	KommoConfirmedStatusID int64  `env:"KOMMO_CONFIRMED_STATUS_ID" envDefault:"0"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogOutput string `env:"LOG_OUTPUT" envDefault:"stdout"`
	LogPath   string `env:"LOG_PATH" envDefault:"logs"`

	TimezoneOffsetHours int `env:"TIMEZONE_OFFSET_HOURS" envDefault:"-5"`

	WebhookTimeoutSeconds int     `env:"WEBHOOK_TIMEOUT_SECONDS" envDefault:"10"`
	RateLimitRPS          float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst        int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// AuthDisabled solo para desarrollo local: no se verifican tokens de Firebase.
	AuthDisabled bool `env:"AUTH_DISABLED" envDefault:"false"`
}

// Load parsea las variables de entorno. Se asume que godotenv ya cargó el .env.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.WebhookTimeoutSeconds <= 0 {
		cfg.WebhookTimeoutSeconds = 10
	}
	return &cfg, nil
}

// KommoEnabled indica si hay credenciales suficientes para hablar con la API de Kommo.
func (c *Config) KommoEnabled() bool {
	return c.KommoBaseURL != "" && c.KommoClientID != "" && c.KommoRefreshToken != ""
}

// Location devuelve la zona horaria del negocio (Lima no usa horario de verano).
func (c *Config) Location() *time.Location {
	return time.FixedZone("PET", c.TimezoneOffsetHours*3600)
}

// WebhookTimeout es el timeout por entrega saliente.
func (c *Config) WebhookTimeout() time.Duration {
	return time.Duration(c.WebhookTimeoutSeconds) * time.Second
}
