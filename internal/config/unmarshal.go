package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// envRef is the {"$env": "VAR_NAME"} form used for secret values
type envRef struct {
	Env string `json:"$env"`
}

// resolveSecret resolves a raw JSON value into a Secret. Plain strings are
// accepted for non-sensitive values; {"$env": "VAR"} references are resolved
// against the environment and fail loudly when the variable is unset.
func resolveSecret(raw json.RawMessage, field string) (Secret, error) {
	if len(raw) == 0 {
		return "", nil
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return Secret(plain), nil
	}

	var ref envRef
	if err := json.Unmarshal(raw, &ref); err != nil || ref.Env == "" {
		return "", fmt.Errorf("%s must be a string or {\"$env\": \"VAR_NAME\"}", field)
	}

	value, ok := os.LookupEnv(ref.Env)
	if !ok {
		return "", fmt.Errorf("%s references unset environment variable %s", field, ref.Env)
	}
	return Secret(value), nil
}

// UnmarshalJSON resolves env references and derived fields for StoreConfig
func (c *StoreConfig) UnmarshalJSON(data []byte) error {
	type rawStoreConfig StoreConfig
	var raw rawStoreConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = StoreConfig(raw)

	if c.Storage == "" {
		c.Storage = StorageKindMemory
	}

	c.SessionTTL = 24 * time.Hour
	if c.SessionTTLRaw != "" {
		ttl, err := time.ParseDuration(c.SessionTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing sessionTtl: %w", err)
		}
		c.SessionTTL = ttl
	}

	var err error
	if c.SigningKey, err = resolveSecret(c.SigningKeyRaw, "signingKey"); err != nil {
		return err
	}
	if c.EncryptionKey, err = resolveSecret(c.EncryptionKeyRaw, "encryptionKey"); err != nil {
		return err
	}

	return nil
}

// UnmarshalJSON resolves the admin password and hashes it immediately so the
// plaintext never outlives config load
func (a *AdminConfig) UnmarshalJSON(data []byte) error {
	type rawAdminConfig AdminConfig
	var raw rawAdminConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = AdminConfig(raw)

	password, err := resolveSecret(a.PasswordRaw, "admin.password")
	if err != nil {
		return err
	}
	a.Password = password

	if a.Enabled {
		if password == "" {
			return fmt.Errorf("admin.password is required when admin is enabled")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing admin password: %w", err)
		}
		a.HashedPassword = hashed
	}

	return nil
}

// UnmarshalJSON resolves the storefront token for CommerceConfig
func (c *CommerceConfig) UnmarshalJSON(data []byte) error {
	type rawCommerceConfig CommerceConfig
	var raw rawCommerceConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = CommerceConfig(raw)

	if c.APIVersion == "" {
		c.APIVersion = "2024-01"
	}

	var err error
	if c.StorefrontToken, err = resolveSecret(c.StorefrontTokenRaw, "storefrontToken"); err != nil {
		return err
	}

	return nil
}
