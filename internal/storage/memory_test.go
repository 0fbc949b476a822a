package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumeHandshakeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	hs := Handshake{
		State:     "state-value",
		Verifier:  "verifier-value",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(HandshakeTTL),
	}
	require.NoError(t, store.StoreHandshake(ctx, "hs-1", hs))

	got, err := store.ConsumeHandshake(ctx, "hs-1")
	require.NoError(t, err)
	assert.Equal(t, "state-value", got.State)
	assert.Equal(t, "verifier-value", got.Verifier)

	// Second read must fail: the handshake was deleted on first read
	_, err = store.ConsumeHandshake(ctx, "hs-1")
	assert.ErrorIs(t, err, ErrHandshakeNotFound)
}

func TestConsumeHandshakeExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	hs := Handshake{
		State:     "state-value",
		ExpiresAt: time.Now().Add(-time.Second),
	}
	require.NoError(t, store.StoreHandshake(ctx, "hs-1", hs))

	_, err := store.ConsumeHandshake(ctx, "hs-1")
	assert.ErrorIs(t, err, ErrHandshakeNotFound)

	// Expired handshake is gone after the failed read too
	_, err = store.ConsumeHandshake(ctx, "hs-1")
	assert.ErrorIs(t, err, ErrHandshakeNotFound)
}

func TestStoreHandshakeRequiresID(t *testing.T) {
	err := NewMemoryStorage().StoreHandshake(context.Background(), "", Handshake{})
	assert.Error(t, err)
}

func TestGetSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	session := &CustomerSession{
		AccessToken: "token",
		ExpiresAt:   time.Now().Add(time.Hour),
		Profile:     &CustomerProfile{ID: "cust-1", Email: "a@example.com"},
		CreatedAt:   time.Now(),
	}
	require.NoError(t, store.PutSession(ctx, "sess-1", session))

	got, err := store.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "token", got.AccessToken)
	assert.Equal(t, "a@example.com", got.Profile.Email)
}

func TestGetSessionExpiredIsDeleted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	session := &CustomerSession{
		AccessToken: "x",
		ExpiresAt:   time.Now().Add(-time.Second),
	}
	require.NoError(t, store.PutSession(ctx, "sess-1", session))

	_, err := store.GetSession(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// The record was removed, not just skipped
	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Sessions)
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	require.NoError(t, store.PutSession(ctx, "sess-1", &CustomerSession{
		AccessToken: "x",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))
	require.NoError(t, store.DeleteSession(ctx, "sess-1"))

	_, err := store.GetSession(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Deleting a missing session is a no-op
	assert.NoError(t, store.DeleteSession(ctx, "sess-1"))
}

func TestCartRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	record := &CartRecord{
		Lines: []CartLine{
			{ID: "v1", Name: "Oversized Hoodie", UnitPrice: 120, Quantity: 2},
			{ID: "v2", Name: "Relaxed Tee", UnitPrice: 45, Quantity: 1},
		},
		UpdatedAt: time.Now(),
	}
	require.NoError(t, store.PutCart(ctx, "cart-1", record))

	got, err := store.GetCart(ctx, "cart-1")
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	// Insertion order is preserved
	assert.Equal(t, "v1", got.Lines[0].ID)
	assert.Equal(t, "v2", got.Lines[1].ID)

	// Returned record is a copy; mutating it does not affect the store
	got.Lines[0].Quantity = 99
	again, err := store.GetCart(ctx, "cart-1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Lines[0].Quantity)
}

func TestGetCartMissing(t *testing.T) {
	_, err := NewMemoryStorage().GetCart(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestCleanupExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	require.NoError(t, store.StoreHandshake(ctx, "live", Handshake{ExpiresAt: time.Now().Add(time.Minute)}))
	require.NoError(t, store.StoreHandshake(ctx, "dead", Handshake{ExpiresAt: time.Now().Add(-time.Minute)}))
	require.NoError(t, store.PutSession(ctx, "live", &CustomerSession{ExpiresAt: time.Now().Add(time.Minute)}))
	require.NoError(t, store.PutSession(ctx, "dead", &CustomerSession{ExpiresAt: time.Now().Add(-time.Minute)}))

	removed, err := store.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sessions)
	assert.Equal(t, 1, stats.Handshakes)
}
