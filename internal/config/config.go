// Package config loads the binaries' settings from environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvProduction is the ACTIVITYBOARD_ENV / ACTIVITYAPI_ENV value that turns on
// secure cookies and mandatory secrets.
const EnvProduction = "production"

// Board configures cmd/server.
type Board struct {
	Addr   string `env:"ACTIVITYBOARD_ADDR" envDefault:":8080"`
	APIURL string `env:"ACTIVITYBOARD_API_URL" envDefault:"http://localhost:8000"`
	Env    string `env:"ACTIVITYBOARD_ENV" envDefault:"development"`
	// CSRFKey is 64 hex characters; empty generates a per-process key outside production.
	CSRFKey        string        `env:"ACTIVITYBOARD_CSRF_KEY"`
	TrustedOrigins []string      `env:"ACTIVITYBOARD_TRUSTED_ORIGINS" envSeparator:","`
	RateLimit      int           `env:"ACTIVITYBOARD_RATE_LIMIT" envDefault:"10"`
	SlowRequest    time.Duration `env:"ACTIVITYBOARD_SLOW_REQUEST" envDefault:"200ms"`
	SessionTTL     time.Duration `env:"ACTIVITYBOARD_SESSION_TTL" envDefault:"24h"`
	OTelEndpoint   string        `env:"ACTIVITYBOARD_OTEL_ENDPOINT"`
}

// API configures cmd/api.
type API struct {
	Addr         string        `env:"ACTIVITYAPI_ADDR" envDefault:":8000"`
	Env          string        `env:"ACTIVITYAPI_ENV" envDefault:"development"`
	DBPath       string        `env:"ACTIVITYAPI_DB_PATH" envDefault:"activities.db"`
	BoardURL     string        `env:"ACTIVITYAPI_BOARD_URL" envDefault:"http://localhost:8080/"`
	SlowQuery    time.Duration `env:"ACTIVITYAPI_SLOW_QUERY" envDefault:"50ms"`
	SlowRequest  time.Duration `env:"ACTIVITYAPI_SLOW_REQUEST" envDefault:"200ms"`
	ResendAPIKey string        `env:"ACTIVITYAPI_RESEND_KEY"`
	EmailFrom    string        `env:"ACTIVITYAPI_EMAIL_FROM" envDefault:"Mergington High School <activities@mergington.edu>"`
	OTelEndpoint string        `env:"ACTIVITYAPI_OTEL_ENDPOINT"`
}

var (
	ErrCSRFKeyRequired = errors.New("ACTIVITYBOARD_CSRF_KEY is required in production")
	ErrCSRFKeyLength   = errors.New("ACTIVITYBOARD_CSRF_KEY must decode to 32 bytes")
)

// LoadBoard parses the board's environment.
func LoadBoard() (Board, error) {
	var cfg Board
	if err := env.Parse(&cfg); err != nil {
		return Board{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadAPI parses the Activities API's environment.
func LoadAPI() (API, error) {
	var cfg API
	if err := env.Parse(&cfg); err != nil {
		return API{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether the board runs in production.
func (c Board) IsProduction() bool { return c.Env == EnvProduction }

// IsProduction reports whether the API runs in production.
func (c API) IsProduction() bool { return c.Env == EnvProduction }

// CSRFAuthKey decodes the configured key. An empty key yields nil outside
// production; the caller then generates one.
// POST: a non-nil key is 32 bytes
func (c Board) CSRFAuthKey() ([]byte, error) {
	if c.CSRFKey == "" {
		if c.IsProduction() {
			return nil, ErrCSRFKeyRequired
		}
		return nil, nil
	}
	key, err := hex.DecodeString(c.CSRFKey)
	if err != nil {
		return nil, fmt.Errorf("decode ACTIVITYBOARD_CSRF_KEY: %w", err)
	}
	if len(key) != 32 {
		return nil, ErrCSRFKeyLength
	}
	return key, nil
}
