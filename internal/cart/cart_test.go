package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atelierline/storefront/internal/commerce"
	"github.com/atelierline/storefront/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, handler http.HandlerFunc) (*Service, *storage.MemoryStorage) {
	t.Helper()

	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unexpected platform call", http.StatusInternalServerError)
		}
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := storage.NewMemoryStorage()
	return NewService(store, commerce.NewClientForEndpoint(server.URL, "shpat_test")), store
}

func tee(price float64) storage.CartLine {
	return storage.CartLine{
		ID:        "gid://shopify/ProductVariant/1",
		Name:      "Linen Tee",
		UnitPrice: price,
		Quantity:  1,
	}
}

func TestGetMissingCartIsEmpty(t *testing.T) {
	svc, _ := newService(t, nil)

	record, err := svc.Get(context.Background(), "cart-1")
	require.NoError(t, err)
	assert.Empty(t, record.Lines)
	assert.Equal(t, 0, record.ItemCount())
	assert.Equal(t, 0.0, record.Total())
}

func TestAddItemMergesByID(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "cart-1", tee(10))
	require.NoError(t, err)
	record, err := svc.AddItem(ctx, "cart-1", tee(10))
	require.NoError(t, err)

	require.Len(t, record.Lines, 1)
	assert.Equal(t, 2, record.Lines[0].Quantity)
	assert.Equal(t, 2, record.ItemCount())
	assert.Equal(t, 20.0, record.Total())
}

func TestAddItemPreservesInsertionOrder(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "cart-1", storage.CartLine{ID: "v1", Name: "Tee", UnitPrice: 10, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "cart-1", storage.CartLine{ID: "v2", Name: "Coat", UnitPrice: 120, Quantity: 1})
	require.NoError(t, err)
	record, err := svc.AddItem(ctx, "cart-1", storage.CartLine{ID: "v1", Name: "Tee", UnitPrice: 10, Quantity: 1})
	require.NoError(t, err)

	require.Len(t, record.Lines, 2)
	assert.Equal(t, "v1", record.Lines[0].ID)
	assert.Equal(t, "v2", record.Lines[1].ID)
	assert.Equal(t, 140.0, record.Total())
}

func TestAddItemDefaultsQuantityToOne(t *testing.T) {
	svc, _ := newService(t, nil)

	line := tee(10)
	line.Quantity = 0
	record, err := svc.AddItem(context.Background(), "cart-1", line)
	require.NoError(t, err)
	assert.Equal(t, 1, record.Lines[0].Quantity)
}

func TestAddItemRequiresID(t *testing.T) {
	svc, _ := newService(t, nil)

	_, err := svc.AddItem(context.Background(), "cart-1", storage.CartLine{Name: "mystery"})
	assert.Error(t, err)
}

func TestAddItemOpensDrawer(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.SetOpen(ctx, "cart-1", false)
	require.NoError(t, err)

	record, err := svc.AddItem(ctx, "cart-1", tee(10))
	require.NoError(t, err)
	assert.True(t, record.Open)
}

func TestRemoveItem(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "cart-1", storage.CartLine{ID: "v1", UnitPrice: 10, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "cart-1", storage.CartLine{ID: "v2", UnitPrice: 5, Quantity: 1})
	require.NoError(t, err)

	record, err := svc.RemoveItem(ctx, "cart-1", "v1")
	require.NoError(t, err)
	require.Len(t, record.Lines, 1)
	assert.Equal(t, "v2", record.Lines[0].ID)

	// Removing something absent changes nothing
	record, err = svc.RemoveItem(ctx, "cart-1", "v1")
	require.NoError(t, err)
	assert.Len(t, record.Lines, 1)
}

func TestSetQuantity(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "cart-1", tee(10))
	require.NoError(t, err)

	record, err := svc.SetQuantity(ctx, "cart-1", "gid://shopify/ProductVariant/1", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, record.Lines[0].Quantity)
	assert.Equal(t, 50.0, record.Total())
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "cart-1", tee(10))
	require.NoError(t, err)

	record, err := svc.SetQuantity(ctx, "cart-1", "gid://shopify/ProductVariant/1", 0)
	require.NoError(t, err)
	assert.Empty(t, record.Lines)
}

func TestSetOpenPersists(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	record, err := svc.SetOpen(ctx, "cart-1", true)
	require.NoError(t, err)
	assert.True(t, record.Open)

	record, err = svc.SetOpen(ctx, "cart-1", false)
	require.NoError(t, err)
	assert.False(t, record.Open)

	record, err = svc.Get(ctx, "cart-1")
	require.NoError(t, err)
	assert.False(t, record.Open)
}

func TestClear(t *testing.T) {
	svc, store := newService(t, nil)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "cart-1", tee(10))
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, "cart-1"))
	_, err = store.GetCart(ctx, "cart-1")
	assert.ErrorIs(t, err, storage.ErrCartNotFound)

	// Clearing a cart that never existed is fine
	assert.NoError(t, svc.Clear(ctx, "cart-2"))
}

func TestCheckoutSuccess(t *testing.T) {
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"cartCreate": {"cart": {"checkoutUrl": "https://shop.example.com/checkouts/abc"}, "userErrors": []}}}`))
	})
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "cart-1", tee(10))
	require.NoError(t, err)

	checkoutURL, err := svc.Checkout(ctx, "cart-1")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/checkouts/abc", checkoutURL)

	// The local cart survives the handoff
	record, err := svc.Get(ctx, "cart-1")
	require.NoError(t, err)
	assert.Len(t, record.Lines, 1)
}

func TestCheckoutUserErrorLeavesCartIntact(t *testing.T) {
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"cartCreate": {"cart": null, "userErrors": [{"field": ["lines"], "message": "Out of stock"}]}}}`))
	})
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "cart-1", tee(10))
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, "cart-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Out of stock")

	record, err := svc.Get(ctx, "cart-1")
	require.NoError(t, err)
	require.Len(t, record.Lines, 1)
	assert.Equal(t, 1, record.Lines[0].Quantity)
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc, _ := newService(t, nil)

	_, err := svc.Checkout(context.Background(), "cart-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}
