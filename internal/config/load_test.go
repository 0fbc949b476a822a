package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `{
  "version": "v1",
  "store": {
    "baseURL": "https://shop.example.com",
    "addr": ":8080",
    "name": "atelierline",
    "sessionTtl": "12h",
    "signingKey": {"$env": "TEST_SIGNING_KEY"}
  },
  "commerce": {
    "domain": "atelierline.myshopify.com",
    "storefrontToken": {"$env": "TEST_STOREFRONT_TOKEN"}
  },
  "customerAuth": {
    "clientId": "shp_11111111",
    "authorizeUrl": "https://account.example.com/oauth/authorize",
    "tokenUrl": "https://account.example.com/oauth/token",
    "logoutUrl": "https://account.example.com/logout",
    "redirectUri": "https://shop.example.com/auth/callback",
    "scopes": ["openid", "email"]
  }
}`

func TestLoadValidConfig(t *testing.T) {
	t.Setenv("TEST_SIGNING_KEY", "signing-key-value")
	t.Setenv("TEST_STOREFRONT_TOKEN", "shpat_token")

	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com", cfg.Store.BaseURL)
	assert.Equal(t, ":8080", cfg.Store.Addr)
	assert.Equal(t, StorageKindMemory, cfg.Store.Storage)
	assert.Equal(t, 12*time.Hour, cfg.Store.SessionTTL)
	assert.Equal(t, Secret("signing-key-value"), cfg.Store.SigningKey)

	assert.Equal(t, "atelierline.myshopify.com", cfg.Commerce.Domain)
	assert.Equal(t, "2024-01", cfg.Commerce.APIVersion)
	assert.Equal(t, Secret("shpat_token"), cfg.Commerce.StorefrontToken)

	assert.Equal(t, "shp_11111111", cfg.Auth.ClientID)
	assert.Equal(t, []string{"openid", "email"}, cfg.Auth.Scopes)
}

func TestLoadRejectsInlineSecret(t *testing.T) {
	_, err := Load(writeConfig(t, `{
	  "version": "v1",
	  "store": {"baseURL": "https://shop.example.com", "addr": ":8080", "signingKey": "inline-secret"},
	  "commerce": {"domain": "x.myshopify.com", "storefrontToken": {"$env": "TEST_STOREFRONT_TOKEN"}},
	  "customerAuth": {"clientId": "c", "authorizeUrl": "https://a/a", "tokenUrl": "https://a/t", "redirectUri": "https://a/cb"}
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment variable reference")
}

func TestLoadRejectsUnsetEnvVar(t *testing.T) {
	t.Setenv("TEST_SIGNING_KEY", "signing-key-value")
	os.Unsetenv("TEST_STOREFRONT_TOKEN")

	_, err := Load(writeConfig(t, validConfig))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unset environment variable")
}

func TestLoadRejectsMissingVersion(t *testing.T) {
	_, err := Load(writeConfig(t, `{"store": {}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version is required")
}

func TestLoadRejectsBadSessionTTL(t *testing.T) {
	t.Setenv("TEST_SIGNING_KEY", "k")
	t.Setenv("TEST_STOREFRONT_TOKEN", "t")

	bad := `{
	  "version": "v1",
	  "store": {"baseURL": "https://shop.example.com", "addr": ":8080", "sessionTtl": "soon", "signingKey": {"$env": "TEST_SIGNING_KEY"}},
	  "commerce": {"domain": "x.myshopify.com", "storefrontToken": {"$env": "TEST_STOREFRONT_TOKEN"}},
	  "customerAuth": {"clientId": "c", "authorizeUrl": "https://a/a", "tokenUrl": "https://a/t", "redirectUri": "https://a/cb"}
	}`
	_, err := Load(writeConfig(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sessionTtl")
}

func TestAdminPasswordHashedAtLoad(t *testing.T) {
	t.Setenv("TEST_SIGNING_KEY", "k")
	t.Setenv("TEST_STOREFRONT_TOKEN", "t")
	t.Setenv("TEST_ADMIN_PASSWORD", "hunter2hunter2")

	withAdmin := `{
	  "version": "v1",
	  "store": {
	    "baseURL": "https://shop.example.com",
	    "addr": ":8080",
	    "signingKey": {"$env": "TEST_SIGNING_KEY"},
	    "admin": {"enabled": true, "username": "ops", "password": {"$env": "TEST_ADMIN_PASSWORD"}}
	  },
	  "commerce": {"domain": "x.myshopify.com", "storefrontToken": {"$env": "TEST_STOREFRONT_TOKEN"}},
	  "customerAuth": {"clientId": "c", "authorizeUrl": "https://a/a", "tokenUrl": "https://a/t", "redirectUri": "https://a/cb"}
	}`

	cfg, err := Load(writeConfig(t, withAdmin))
	require.NoError(t, err)
	require.NotNil(t, cfg.Store.Admin)
	assert.NoError(t, bcrypt.CompareHashAndPassword(cfg.Store.Admin.HashedPassword, []byte("hunter2hunter2")))
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("very-secret")
	assert.Equal(t, "***", s.String())

	data, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"***"`, string(data))

	empty := Secret("")
	assert.Equal(t, "", empty.String())
}
