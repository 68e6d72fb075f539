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

package server

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-sovereign/internal/config"
	"github.com/jeremyhahn/go-sovereign/pkg/rp"
)

func testConfig() *config.Config {
	key := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

	cfg := config.New()
	cfg.SetDefaults()
	cfg.Secrets.KDFKey = key
	cfg.Secrets.DIDSalt = key
	cfg.Secrets.TokenKey = key
	cfg.RelyingParties = []rp.RelyingParty{
		{ID: "bank.example", Name: "Example Bank", RequestedFields: []string{"name"}},
	}
	return cfg
}

func TestNew_WiresEngine(t *testing.T) {
	srv, err := New(testConfig(), "test")
	require.NoError(t, err)
	defer srv.Shutdown()

	require.NotNil(t, srv.REST())
	require.NotNil(t, srv.Logger())

	ts := httptest.NewServer(srv.REST().Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Metrics are mounted at the configured path when enabled.
	if testConfig().Metrics.Enabled {
		resp, err = http.Get(ts.URL + testConfig().Metrics.Path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil, "test")
	assert.Error(t, err)
}

func TestNew_BadSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.Secrets.KDFKey = "not base64!!"

	_, err := New(cfg, "test")
	assert.Error(t, err)
}

func TestNew_BadTLS(t *testing.T) {
	cfg := testConfig()
	cfg.Server.TLSEnabled = true
	cfg.Server.TLSCertFile = "/nonexistent/cert.pem"
	cfg.Server.TLSKeyFile = "/nonexistent/key.pem"

	_, err := New(cfg, "test")
	assert.Error(t, err)
}

func TestShutdown_Idempotent(t *testing.T) {
	srv, err := New(testConfig(), "test")
	require.NoError(t, err)

	require.NoError(t, srv.Shutdown())
}
