// Package config loads the application configuration from an optional
// YAML file with environment variable overrides. A local .env file is
// honored when present.
package config

import (
	"os"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Server holds the HTTP listener settings
type Server struct {
	Address string `json:"address" yaml:"address"`
}

// Auth holds token signing settings
type Auth struct {
	SigningKey      string   `json:"signing_key" yaml:"signing_key"`
	SigningMethod   string   `json:"signing_method" yaml:"signing_method"`
	ContextKey      string   `json:"context_key" yaml:"context_key"`
	TokenExpiration int      `json:"token_expiration" yaml:"token_expiration"`
	TokenLookup     string   `json:"token_lookup" yaml:"token_lookup"`
	AuthScheme      string   `json:"auth_scheme" yaml:"auth_scheme"`
	Issuer          string   `json:"issuer" yaml:"issuer"`
	Audience        []string `json:"audience" yaml:"audience"`
}

// Storage holds database settings
type Storage struct {
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`
}

// SMTP holds email delivery settings
type SMTP struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	From     string `json:"from" yaml:"from"`
	SSL      bool   `json:"ssl" yaml:"ssl"`
}

// Logging holds logger settings
type Logging struct {
	Level  string `json:"level" yaml:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

// App is the root configuration
type App struct {
	Server  Server  `json:"server" yaml:"server"`
	Auth    Auth    `json:"auth" yaml:"auth"`
	Storage Storage `json:"storage" yaml:"storage"`
	SMTP    SMTP    `json:"smtp" yaml:"smtp"`
	Logging Logging `json:"logging" yaml:"logging"`
}

// Load reads the configuration from the given YAML path, a missing
// file is fine. Environment variables override file values.
func Load(path string) (*App, error) {
	_ = godotenv.Load()

	app := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, app); err != nil {
				return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse config file").
					WithMetadata(map[string]any{"path": path})
			}
		} else if !os.IsNotExist(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to read config file").
				WithMetadata(map[string]any{"path": path})
		}
	}

	applyEnv(app)

	return app, nil
}

func defaults() *App {
	return &App{
		Server: Server{
			Address: ":8080",
		},
		Auth: Auth{
			SigningMethod:   "HS256",
			ContextKey:      "user",
			TokenExpiration: 24,
			TokenLookup:     "header:Authorization",
			AuthScheme:      "Bearer",
		},
		Storage: Storage{
			Driver: "sqlite",
			DSN:    "file:identity.db?cache=shared&_pragma=foreign_keys(1)",
		},
		SMTP: SMTP{
			Port: 587,
		},
		Logging: Logging{
			Level:  "info",
			Pretty: false,
		},
	}
}

func applyEnv(app *App) {
	setString(&app.Server.Address, "SERVER_ADDRESS")

	setString(&app.Auth.SigningKey, "AUTH_SIGNING_KEY")
	setString(&app.Auth.SigningMethod, "AUTH_SIGNING_METHOD")
	setString(&app.Auth.ContextKey, "AUTH_CONTEXT_KEY")
	setInt(&app.Auth.TokenExpiration, "AUTH_TOKEN_EXPIRATION")
	setString(&app.Auth.TokenLookup, "AUTH_TOKEN_LOOKUP")
	setString(&app.Auth.AuthScheme, "AUTH_SCHEME")
	setString(&app.Auth.Issuer, "AUTH_ISSUER")
	if v := os.Getenv("AUTH_AUDIENCE"); v != "" {
		parts := strings.Split(v, ",")
		audience := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				audience = append(audience, p)
			}
		}
		app.Auth.Audience = audience
	}

	setString(&app.Storage.Driver, "STORAGE_DRIVER")
	setString(&app.Storage.DSN, "STORAGE_DSN")

	setString(&app.SMTP.Host, "SMTP_HOST")
	setInt(&app.SMTP.Port, "SMTP_PORT")
	setString(&app.SMTP.Username, "SMTP_USERNAME")
	setString(&app.SMTP.Password, "SMTP_PASSWORD")
	setString(&app.SMTP.From, "SMTP_FROM")
	setBool(&app.SMTP.SSL, "SMTP_SSL")

	setString(&app.Logging.Level, "LOG_LEVEL")
	setBool(&app.Logging.Pretty, "LOG_PRETTY")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// GetSigningKey returns the token signing key
func (a *App) GetSigningKey() string {
	return a.Auth.SigningKey
}

// GetSigningMethod returns the signing algorithm name
func (a *App) GetSigningMethod() string {
	return a.Auth.SigningMethod
}

// GetContextKey returns the key claims are stored under
func (a *App) GetContextKey() string {
	return a.Auth.ContextKey
}

// GetTokenExpiration returns the token lifetime in hours
func (a *App) GetTokenExpiration() int {
	return a.Auth.TokenExpiration
}

// GetTokenLookup returns the token extraction sources
func (a *App) GetTokenLookup() string {
	return a.Auth.TokenLookup
}

// GetAuthScheme returns the Authorization header scheme
func (a *App) GetAuthScheme() string {
	return a.Auth.AuthScheme
}

// GetIssuer returns the token issuer
func (a *App) GetIssuer() string {
	return a.Auth.Issuer
}

// GetAudience returns the expected token audience
func (a *App) GetAudience() []string {
	return a.Auth.Audience
}
