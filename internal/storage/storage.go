package storage

import (
	"context"
	"errors"
	"time"
)

// ErrHandshakeNotFound is returned when no login handshake exists for an id,
// including when it existed but was already consumed or expired
var ErrHandshakeNotFound = errors.New("handshake not found")

// ErrSessionNotFound is returned when a customer session doesn't exist or
// has expired
var ErrSessionNotFound = errors.New("session not found")

// ErrCartNotFound is returned when a cart doesn't exist
var ErrCartNotFound = errors.New("cart not found")

// HandshakeTTL bounds how long an initiated login may wait for the provider
// to redirect back. The user can take their time at the identity provider,
// but an abandoned handshake should not linger.
const HandshakeTTL = 10 * time.Minute

// Handshake holds the ephemeral secrets of one login attempt between the
// authorize redirect and the callback. Both values are single-use: reading a
// handshake deletes it.
type Handshake struct {
	State     string    `json:"state"`
	Verifier  string    `json:"verifier"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CustomerProfile is the cached profile fetched after a successful login
type CustomerProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// CustomerSession is the persisted result of a successful token exchange.
// ExpiresAt is absolute; a session read past it is deleted, not returned.
type CustomerSession struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time        `json:"expires_at"`
	Profile      *CustomerProfile `json:"profile,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Expired reports whether the session is past its expiry
func (s *CustomerSession) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// CartLine is one persisted cart entry. ID is the platform's variant id;
// checkout fails for anything else.
type CartLine struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	UnitPrice    float64 `json:"unitPrice"`
	Quantity     int     `json:"quantity"`
	ImageURL     string  `json:"imageUrl,omitempty"`
	VariantTitle string  `json:"variantTitle,omitempty"`
	Href         string  `json:"href,omitempty"`
}

// CartRecord is a whole persisted cart. Line order is insertion order and is
// preserved for display.
type CartRecord struct {
	Lines []CartLine `json:"lines"`
	// Open mirrors whether the cart drawer was left open, so a page
	// rendered after a mutation restores the same view
	Open      bool      `json:"open"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemCount is the total number of units across all lines. It is always
// derived from the lines, never stored.
func (c *CartRecord) ItemCount() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}

// Total is the cart subtotal, derived the same way
func (c *CartRecord) Total() float64 {
	total := 0.0
	for _, line := range c.Lines {
		total += line.UnitPrice * float64(line.Quantity)
	}
	return total
}

// Stats summarizes the store contents for the admin status page
type Stats struct {
	Sessions   int `json:"sessions"`
	Carts      int `json:"carts"`
	Handshakes int `json:"handshakes"`
}

// Storage is the session store behind the storefront: login handshakes,
// customer sessions, and carts. Implementations must treat malformed
// persisted data as absence, never as an error that escapes to a handler.
type Storage interface {
	// StoreHandshake persists the secrets of a login attempt before the
	// browser is redirected away
	StoreHandshake(ctx context.Context, id string, hs Handshake) error

	// ConsumeHandshake returns the handshake for id and deletes it in the
	// same step, whether or not the caller's validation then succeeds
	ConsumeHandshake(ctx context.Context, id string) (*Handshake, error)

	// GetSession returns the session for id. Expired sessions are deleted
	// and reported as ErrSessionNotFound.
	GetSession(ctx context.Context, id string) (*CustomerSession, error)
	PutSession(ctx context.Context, id string, session *CustomerSession) error
	DeleteSession(ctx context.Context, id string) error

	GetCart(ctx context.Context, id string) (*CartRecord, error)
	PutCart(ctx context.Context, id string, cart *CartRecord) error
	DeleteCart(ctx context.Context, id string) error

	// CleanupExpired removes expired handshakes and sessions, returning how
	// many records were dropped
	CleanupExpired(ctx context.Context) (int, error)

	Stats(ctx context.Context) (Stats, error)

	Close() error
}
