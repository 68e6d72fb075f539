// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-sovereign.
//
// go-sovereign is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-sovereign/pkg/rp"
)

func staticSecretsEnv(t *testing.T) {
	t.Helper()
	key := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	t.Setenv("SOVEREIGN_SECRETS_KDF_KEY", key)
	t.Setenv("SOVEREIGN_SECRETS_DID_SALT", key)
	t.Setenv("SOVEREIGN_SECRETS_TOKEN_KEY", key)
}

func TestLoad_Defaults(t *testing.T) {
	staticSecretsEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8443, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "localhost", cfg.WebAuthn.RPID)
	assert.Equal(t, 5*time.Minute, cfg.WebAuthn.ChallengeTTL)
	assert.Equal(t, "static", cfg.Secrets.Provider)
	assert.Equal(t, 5*time.Minute, cfg.Revocation.TTL)
	assert.False(t, cfg.Revocation.FailOpen)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 15*time.Minute, cfg.Token.TTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	staticSecretsEnv(t)
	t.Setenv("SOVEREIGN_SERVER_PORT", "9090")
	t.Setenv("SOVEREIGN_LOGGING_LEVEL", "debug")
	t.Setenv("SOVEREIGN_REVOCATION_FAIL_OPEN", "true")
	t.Setenv("SOVEREIGN_WEBAUTHN_ID", "id.example.org")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Revocation.FailOpen)
	assert.Equal(t, "id.example.org", cfg.WebAuthn.RPID)
}

func TestLoad_YAMLFile(t *testing.T) {
	staticSecretsEnv(t)

	yaml := `
server:
  host: 127.0.0.1
  port: 8080
logging:
  level: warn
  format: text
webauthn:
  id: id.example.org
  display_name: Example Identity
  origins:
    - https://id.example.org
  challenge_ttl: 3m
revocation:
  ttl: 10m
  fail_open: true
disclosure:
  require_consent: true
ratelimit:
  enabled: true
  requests_per_minute: 120
relying_parties:
  - id: bank.example
    name: Example Bank
    requested_fields: [name, country]
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "id.example.org", cfg.WebAuthn.RPID)
	assert.Equal(t, []string{"https://id.example.org"}, cfg.WebAuthn.RPOrigins)
	assert.Equal(t, 3*time.Minute, cfg.WebAuthn.ChallengeTTL)
	assert.Equal(t, 10*time.Minute, cfg.Revocation.TTL)
	assert.True(t, cfg.Revocation.FailOpen)
	assert.True(t, cfg.Disclosure.RequireConsent)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 120, cfg.RateLimit.RequestsPerMinute)

	require.Len(t, cfg.RelyingParties, 1)
	assert.Equal(t, "bank.example", cfg.RelyingParties[0].ID)
	assert.Equal(t, []string{"name", "country"}, cfg.RelyingParties[0].RequestedFields)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := New()
		cfg.Secrets.KDFKey = "a2V5"
		cfg.Secrets.DIDSalt = "c2FsdA=="
		cfg.Secrets.TokenKey = "dG9rZW4="
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = -1 }, "port"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "log level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "log format"},
		{"tls missing cert", func(c *Config) { c.Server.TLSEnabled = true }, "tls_cert_file"},
		{"bad provider", func(c *Config) { c.Secrets.Provider = "kms" }, "secrets provider"},
		{"static missing keys", func(c *Config) { c.Secrets.KDFKey = "" }, "static secrets"},
		{"vault missing address", func(c *Config) {
			c.Secrets.Provider = "vault"
			c.Secrets.VaultPath = "sovereign"
		}, "vault_address"},
		{"rp missing id", func(c *Config) {
			c.RelyingParties = append(c.RelyingParties, rp.RelyingParty{Name: "No ID"})
		}, "ID is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSecretsConfig_Material(t *testing.T) {
	cfg := SecretsConfig{
		KDFKey:   base64.StdEncoding.EncodeToString([]byte("kdf")),
		DIDSalt:  base64.StdEncoding.EncodeToString([]byte("salt")),
		TokenKey: base64.StdEncoding.EncodeToString([]byte("token")),
	}

	material, err := cfg.Material()
	require.NoError(t, err)
	assert.Equal(t, []byte("kdf"), material.KDFKey)
	assert.Equal(t, []byte("salt"), material.DIDSalt)
	assert.Equal(t, []byte("token"), material.TokenKey)

	cfg.KDFKey = "not base64!!"
	_, err = cfg.Material()
	assert.Error(t, err)
}
