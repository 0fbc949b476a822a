package config

import (
	"encoding/json"
	"time"
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// StorageKind selects the session store backend
type StorageKind string

const (
	StorageKindMemory    StorageKind = "memory"
	StorageKindFirestore StorageKind = "firestore"
)

// Config is the root storefront configuration
type Config struct {
	Version  string         `json:"version"`
	Store    StoreConfig    `json:"store"`
	Commerce CommerceConfig `json:"commerce"`
	Auth     AuthConfig     `json:"customerAuth"`
}

// StoreConfig configures the HTTP server and session store
type StoreConfig struct {
	BaseURL    string           `json:"baseURL"`
	Addr       string           `json:"addr"`
	Name       string           `json:"name,omitempty"`
	Storage    StorageKind      `json:"storage,omitempty"`
	Firestore  *FirestoreConfig `json:"firestore,omitempty"`
	SessionTTL time.Duration    `json:"-"`
	SigningKey Secret           `json:"-"`
	// EncryptionKey protects tokens at rest in non-memory storage
	EncryptionKey Secret       `json:"-"`
	Admin         *AdminConfig `json:"admin,omitempty"`

	SessionTTLRaw    string          `json:"sessionTtl,omitempty"`
	SigningKeyRaw    json.RawMessage `json:"signingKey,omitempty"`
	EncryptionKeyRaw json.RawMessage `json:"encryptionKey,omitempty"`
}

// FirestoreConfig configures the Firestore session store backend
type FirestoreConfig struct {
	ProjectID       string `json:"projectId"`
	Database        string `json:"database,omitempty"`
	Collection      string `json:"collection,omitempty"`
	CredentialsFile string `json:"credentialsFile,omitempty"`
}

// AdminConfig configures the basic-auth protected status page
type AdminConfig struct {
	Enabled  bool   `json:"enabled"`
	Username string `json:"username"`
	Password Secret `json:"-"`
	// HashedPassword is computed at load time; only the bcrypt hash is
	// kept around after that
	HashedPassword []byte `json:"-"`

	PasswordRaw json.RawMessage `json:"password,omitempty"`
}

// CommerceConfig configures the Storefront GraphQL API client
type CommerceConfig struct {
	Domain          string `json:"domain"`
	APIVersion      string `json:"apiVersion,omitempty"`
	StorefrontToken Secret `json:"-"`

	StorefrontTokenRaw json.RawMessage `json:"storefrontToken,omitempty"`
}

// AuthConfig configures the customer-account OAuth client
type AuthConfig struct {
	ClientID     string   `json:"clientId"`
	AuthorizeURL string   `json:"authorizeUrl"`
	TokenURL     string   `json:"tokenUrl"`
	LogoutURL    string   `json:"logoutUrl,omitempty"`
	RedirectURI  string   `json:"redirectUri"`
	AccountAPI   string   `json:"accountApiUrl,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
}
