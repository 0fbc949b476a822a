package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateConfig validates the resolved configuration. Required identifiers
// and URLs are never silently defaulted; a storefront that cannot reach its
// platform or validate a login must refuse to start.
func ValidateConfig(config *Config) error {
	if config.Store.BaseURL == "" {
		return fmt.Errorf("store.baseURL is required")
	}
	if err := validateURL(config.Store.BaseURL, "store.baseURL"); err != nil {
		return err
	}
	if config.Store.Addr == "" {
		return fmt.Errorf("store.addr is required")
	}
	if config.Store.SigningKey == "" {
		return fmt.Errorf("store.signingKey is required")
	}

	switch config.Store.Storage {
	case StorageKindMemory:
	case StorageKindFirestore:
		if config.Store.Firestore == nil || config.Store.Firestore.ProjectID == "" {
			return fmt.Errorf("store.firestore.projectId is required for firestore storage")
		}
		if config.Store.EncryptionKey == "" {
			return fmt.Errorf("store.encryptionKey is required when using firestore storage")
		}
	default:
		return fmt.Errorf("unsupported storage kind: %s", config.Store.Storage)
	}

	if config.Store.Admin != nil && config.Store.Admin.Enabled {
		if config.Store.Admin.Username == "" {
			return fmt.Errorf("store.admin.username is required when admin is enabled")
		}
	}

	if config.Commerce.Domain == "" {
		return fmt.Errorf("commerce.domain is required")
	}
	if strings.Contains(config.Commerce.Domain, "/") {
		return fmt.Errorf("commerce.domain must be a bare hostname, got %q", config.Commerce.Domain)
	}
	if config.Commerce.StorefrontToken == "" {
		return fmt.Errorf("commerce.storefrontToken is required")
	}

	auth := config.Auth
	if auth.ClientID == "" {
		return fmt.Errorf("customerAuth.clientId is required")
	}
	for _, field := range []struct {
		value string
		name  string
	}{
		{auth.AuthorizeURL, "customerAuth.authorizeUrl"},
		{auth.TokenURL, "customerAuth.tokenUrl"},
		{auth.RedirectURI, "customerAuth.redirectUri"},
	} {
		if field.value == "" {
			return fmt.Errorf("%s is required", field.name)
		}
		if err := validateURL(field.value, field.name); err != nil {
			return err
		}
	}
	if auth.LogoutURL != "" {
		if err := validateURL(auth.LogoutURL, "customerAuth.logoutUrl"); err != nil {
			return err
		}
	}

	return nil
}

func validateURL(raw, field string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host: %q", field, raw)
	}
	return nil
}
