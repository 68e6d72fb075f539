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

// Package config loads server configuration from a YAML file with
// SOVEREIGN_ environment variable overrides.
package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-sovereign/pkg/enrollment"
	"github.com/jeremyhahn/go-sovereign/pkg/ratelimit"
	"github.com/jeremyhahn/go-sovereign/pkg/revocation"
	"github.com/jeremyhahn/go-sovereign/pkg/rp"
	"github.com/jeremyhahn/go-sovereign/pkg/secrets"
)

// envPrefix is the environment variable prefix for overrides, e.g.
// SOVEREIGN_SERVER_PORT overrides server.port.
const envPrefix = "SOVEREIGN"

// Config represents the complete server configuration.
type Config struct {
	Server         ServerConfig      `yaml:"server" mapstructure:"server"`
	Logging        LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	WebAuthn       enrollment.Config `yaml:"webauthn" mapstructure:"webauthn"`
	Secrets        SecretsConfig     `yaml:"secrets" mapstructure:"secrets"`
	Token          TokenConfig       `yaml:"token" mapstructure:"token"`
	Revocation     revocation.Config `yaml:"revocation" mapstructure:"revocation"`
	Disclosure     DisclosureConfig  `yaml:"disclosure" mapstructure:"disclosure"`
	RateLimit      ratelimit.Config  `yaml:"ratelimit" mapstructure:"ratelimit"`
	Metrics        MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`
	Audit          AuditConfig       `yaml:"audit" mapstructure:"audit"`
	RelyingParties []rp.RelyingParty `yaml:"relying_parties" mapstructure:"relying_parties"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// TLS settings. When enabled the server requires both files.
	TLSEnabled  bool   `yaml:"tls_enabled" mapstructure:"tls_enabled"`
	TLSCertFile string `yaml:"tls_cert_file" mapstructure:"tls_cert_file"`
	TLSKeyFile  string `yaml:"tls_key_file" mapstructure:"tls_key_file"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error, fatal.
	Level string `yaml:"level" mapstructure:"level"`

	// Format is json or text.
	Format string `yaml:"format" mapstructure:"format"`

	// AddSource includes source locations in log records.
	AddSource bool `yaml:"add_source" mapstructure:"add_source"`
}

// SecretsConfig selects and configures the secrets provider.
type SecretsConfig struct {
	// Provider is "static" or "vault".
	Provider string `yaml:"provider" mapstructure:"provider"`

	// Static material, base64 (std encoding). Used when Provider is
	// "static". Intended for development; production should use Vault.
	KDFKey   string `yaml:"kdf_key" mapstructure:"kdf_key"`
	DIDSalt  string `yaml:"did_salt" mapstructure:"did_salt"`
	TokenKey string `yaml:"token_key" mapstructure:"token_key"`

	// Vault settings. Used when Provider is "vault".
	VaultAddress string `yaml:"vault_address" mapstructure:"vault_address"`
	VaultToken   string `yaml:"vault_token" mapstructure:"vault_token"`
	VaultMount   string `yaml:"vault_mount" mapstructure:"vault_mount"`
	VaultPath    string `yaml:"vault_path" mapstructure:"vault_path"`
}

// TokenConfig controls relying-party access tokens.
type TokenConfig struct {
	// Issuer is the iss claim value.
	Issuer string `yaml:"issuer" mapstructure:"issuer"`

	// TTL is the token lifetime.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// DisclosureConfig controls the selective disclosure filter.
type DisclosureConfig struct {
	// RequireConsent makes an empty consent list disclose nothing
	// instead of everything the relying party requested.
	RequireConsent bool `yaml:"require_consent" mapstructure:"require_consent"`
}

// MetricsConfig controls the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// AuditConfig controls the audit trail.
type AuditConfig struct {
	// BufferSize is the trail's event buffer capacity.
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size"`

	// Persist writes events to the storage backend in addition to
	// the structured log.
	Persist bool `yaml:"persist" mapstructure:"persist"`
}

// New returns a Config populated with defaults.
func New() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills in zero-valued fields.
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8443
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Secrets.Provider == "" {
		c.Secrets.Provider = "static"
	}
	if c.Token.Issuer == "" {
		c.Token.Issuer = "sovereign"
	}
	if c.Token.TTL == 0 {
		c.Token.TTL = 15 * time.Minute
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.WebAuthn.RPID == "" {
		c.WebAuthn.RPID = "localhost"
	}
	if c.WebAuthn.RPDisplayName == "" {
		c.WebAuthn.RPDisplayName = "Sovereign Identity"
	}
	if len(c.WebAuthn.RPOrigins) == 0 {
		c.WebAuthn.RPOrigins = []string{"http://localhost:8443"}
	}
	c.WebAuthn.SetDefaults()
	c.Revocation.SetDefaults()
}

// Load reads configuration from the given YAML file, applies
// SOVEREIGN_ environment overrides and validates the result. An empty
// path loads defaults plus environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults must be registered so AutomaticEnv can override them.
	defaults := New()
	bindDefaults(v, defaults)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// bindDefaults registers every key so environment overrides apply even
// without a config file.
func bindDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", cfg.Server.IdleTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("server.tls_enabled", cfg.Server.TLSEnabled)
	v.SetDefault("server.tls_cert_file", cfg.Server.TLSCertFile)
	v.SetDefault("server.tls_key_file", cfg.Server.TLSKeyFile)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.add_source", cfg.Logging.AddSource)

	v.SetDefault("webauthn.id", cfg.WebAuthn.RPID)
	v.SetDefault("webauthn.display_name", cfg.WebAuthn.RPDisplayName)
	v.SetDefault("webauthn.origins", cfg.WebAuthn.RPOrigins)
	v.SetDefault("webauthn.timeout", cfg.WebAuthn.Timeout)
	v.SetDefault("webauthn.challenge_ttl", cfg.WebAuthn.ChallengeTTL)
	v.SetDefault("webauthn.user_verification", cfg.WebAuthn.UserVerification)
	v.SetDefault("webauthn.attestation", cfg.WebAuthn.AttestationPreference)
	v.SetDefault("webauthn.resident_key", cfg.WebAuthn.ResidentKeyRequirement)
	v.SetDefault("webauthn.authenticator_attachment", cfg.WebAuthn.AuthenticatorAttachment)

	v.SetDefault("secrets.provider", cfg.Secrets.Provider)
	v.SetDefault("secrets.kdf_key", cfg.Secrets.KDFKey)
	v.SetDefault("secrets.did_salt", cfg.Secrets.DIDSalt)
	v.SetDefault("secrets.token_key", cfg.Secrets.TokenKey)
	v.SetDefault("secrets.vault_address", cfg.Secrets.VaultAddress)
	v.SetDefault("secrets.vault_token", cfg.Secrets.VaultToken)
	v.SetDefault("secrets.vault_mount", cfg.Secrets.VaultMount)
	v.SetDefault("secrets.vault_path", cfg.Secrets.VaultPath)

	v.SetDefault("token.issuer", cfg.Token.Issuer)
	v.SetDefault("token.ttl", cfg.Token.TTL)

	v.SetDefault("revocation.ttl", cfg.Revocation.TTL)
	v.SetDefault("revocation.fail_open", cfg.Revocation.FailOpen)
	v.SetDefault("revocation.max_retries", cfg.Revocation.MaxRetries)
	v.SetDefault("revocation.retry_interval", cfg.Revocation.RetryInterval)

	v.SetDefault("disclosure.require_consent", cfg.Disclosure.RequireConsent)

	v.SetDefault("ratelimit.enabled", cfg.RateLimit.Enabled)
	v.SetDefault("ratelimit.requests_per_minute", cfg.RateLimit.RequestsPerMinute)
	v.SetDefault("ratelimit.burst", cfg.RateLimit.Burst)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)

	v.SetDefault("audit.buffer_size", cfg.Audit.BufferSize)
	v.SetDefault("audit.persist", cfg.Audit.Persist)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.TLSEnabled {
		if c.Server.TLSCertFile == "" {
			return fmt.Errorf("tls_cert_file is required when TLS is enabled")
		}
		if c.Server.TLSKeyFile == "" {
			return fmt.Errorf("tls_key_file is required when TLS is enabled")
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "fatal":
		// Valid
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
		// Valid
	default:
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	if err := c.WebAuthn.Validate(); err != nil {
		return fmt.Errorf("webauthn: %w", err)
	}

	switch c.Secrets.Provider {
	case "static":
		if c.Secrets.KDFKey == "" || c.Secrets.DIDSalt == "" || c.Secrets.TokenKey == "" {
			return fmt.Errorf("static secrets provider requires kdf_key, did_salt and token_key")
		}
	case "vault":
		if c.Secrets.VaultAddress == "" {
			return fmt.Errorf("vault secrets provider requires vault_address")
		}
		if c.Secrets.VaultPath == "" {
			return fmt.Errorf("vault secrets provider requires vault_path")
		}
	default:
		return fmt.Errorf("invalid secrets provider: %s (must be static or vault)", c.Secrets.Provider)
	}

	for i := range c.RelyingParties {
		if c.RelyingParties[i].ID == "" {
			return fmt.Errorf("relying party %d: ID is required", i)
		}
	}

	return nil
}

// Material decodes the static secret material. Only valid when the
// provider is "static".
func (s *SecretsConfig) Material() (*secrets.Material, error) {
	kdfKey, err := base64.StdEncoding.DecodeString(s.KDFKey)
	if err != nil {
		return nil, fmt.Errorf("invalid kdf_key: %w", err)
	}
	didSalt, err := base64.StdEncoding.DecodeString(s.DIDSalt)
	if err != nil {
		return nil, fmt.Errorf("invalid did_salt: %w", err)
	}
	tokenKey, err := base64.StdEncoding.DecodeString(s.TokenKey)
	if err != nil {
		return nil, fmt.Errorf("invalid token_key: %w", err)
	}

	material := &secrets.Material{
		KDFKey:   kdfKey,
		DIDSalt:  didSalt,
		TokenKey: tokenKey,
	}
	if err := material.Validate(); err != nil {
		return nil, err
	}
	return material, nil
}
