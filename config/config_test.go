package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-identity/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	app, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", app.Server.Address)
	assert.Equal(t, "HS256", app.Auth.SigningMethod)
	assert.Equal(t, "user", app.Auth.ContextKey)
	assert.Equal(t, 24, app.Auth.TokenExpiration)
	assert.Equal(t, "header:Authorization", app.Auth.TokenLookup)
	assert.Equal(t, "Bearer", app.Auth.AuthScheme)
	assert.Equal(t, "sqlite", app.Storage.Driver)
	assert.Equal(t, 587, app.SMTP.Port)
	assert.Equal(t, "info", app.Logging.Level)
}

func TestLoadMissingFileIsFine(t *testing.T) {
	app, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", app.Server.Address)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  address: ":9090"
auth:
  signing_key: "file-key"
  issuer: "identity-api"
  audience:
    - "web"
    - "mobile"
storage:
  driver: "postgres"
  dsn: "postgres://localhost/identity"
smtp:
  host: "smtp.example.com"
  port: 465
  ssl: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	app, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", app.Server.Address)
	assert.Equal(t, "file-key", app.Auth.SigningKey)
	assert.Equal(t, "identity-api", app.Auth.Issuer)
	assert.Equal(t, []string{"web", "mobile"}, app.Auth.Audience)
	assert.Equal(t, "postgres", app.Storage.Driver)
	assert.Equal(t, "smtp.example.com", app.SMTP.Host)
	assert.Equal(t, 465, app.SMTP.Port)
	assert.True(t, app.SMTP.SSL)

	// untouched values keep their defaults
	assert.Equal(t, "HS256", app.Auth.SigningMethod)
	assert.Equal(t, 24, app.Auth.TokenExpiration)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":7070")
	t.Setenv("AUTH_SIGNING_KEY", "env-key")
	t.Setenv("AUTH_TOKEN_EXPIRATION", "48")
	t.Setenv("AUTH_AUDIENCE", "web, mobile ,")
	t.Setenv("SMTP_SSL", "true")
	t.Setenv("LOG_PRETTY", "1")

	app, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7070", app.Server.Address)
	assert.Equal(t, "env-key", app.Auth.SigningKey)
	assert.Equal(t, 48, app.Auth.TokenExpiration)
	assert.Equal(t, []string{"web", "mobile"}, app.Auth.Audience)
	assert.True(t, app.SMTP.SSL)
	assert.True(t, app.Logging.Pretty)
}

func TestEnvOverridesFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  address: \":9090\"\n"), 0o600))

	t.Setenv("SERVER_ADDRESS", ":6060")

	app, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":6060", app.Server.Address)
}

func TestConfigContract(t *testing.T) {
	t.Setenv("AUTH_SIGNING_KEY", "contract-key")
	t.Setenv("AUTH_ISSUER", "identity-api")

	app, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "contract-key", app.GetSigningKey())
	assert.Equal(t, "HS256", app.GetSigningMethod())
	assert.Equal(t, "user", app.GetContextKey())
	assert.Equal(t, 24, app.GetTokenExpiration())
	assert.Equal(t, "header:Authorization", app.GetTokenLookup())
	assert.Equal(t, "Bearer", app.GetAuthScheme())
	assert.Equal(t, "identity-api", app.GetIssuer())
}
