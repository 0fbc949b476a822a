// Package cart holds the shopping cart state machine: line mutations, the
// drawer flag, and the handoff to the commerce platform's checkout.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atelierline/storefront/internal/commerce"
	"github.com/atelierline/storefront/internal/log"
	"github.com/atelierline/storefront/internal/storage"
)

// Service applies cart mutations against the session store. Every mutation
// loads the record, rewrites it, and persists the whole thing; carts are
// small enough that read-modify-write beats partial updates.
type Service struct {
	store    storage.Storage
	commerce *commerce.Client
}

func NewService(store storage.Storage, commerceClient *commerce.Client) *Service {
	return &Service{
		store:    store,
		commerce: commerceClient,
	}
}

// Get returns the cart for the given ID. A missing cart is an empty cart,
// never an error: the cookie may outlive the record.
func (s *Service) Get(ctx context.Context, cartID string) (*storage.CartRecord, error) {
	record, err := s.store.GetCart(ctx, cartID)
	if err != nil {
		if errors.Is(err, storage.ErrCartNotFound) {
			return &storage.CartRecord{}, nil
		}
		return nil, fmt.Errorf("loading cart: %w", err)
	}
	return record, nil
}

// AddItem adds a line to the cart. An item already in the cart has its
// quantity increased instead of producing a duplicate line; new items are
// appended, preserving the order things were added in. Adding also opens
// the drawer so the next render shows the result.
func (s *Service) AddItem(ctx context.Context, cartID string, item storage.CartLine) (*storage.CartRecord, error) {
	if item.ID == "" {
		return nil, fmt.Errorf("cart item requires an id")
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	record, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range record.Lines {
		if record.Lines[i].ID == item.ID {
			record.Lines[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		record.Lines = append(record.Lines, item)
	}
	record.Open = true

	if err := s.put(ctx, cartID, record); err != nil {
		return nil, err
	}

	log.LogDebugWithFields("cart", "Added item", map[string]any{
		"item":  item.ID,
		"count": record.ItemCount(),
	})
	return record, nil
}

// RemoveItem deletes a line outright. Removing an item that is not in the
// cart is a no-op.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID string) (*storage.CartRecord, error) {
	record, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}

	kept := record.Lines[:0]
	for _, line := range record.Lines {
		if line.ID != itemID {
			kept = append(kept, line)
		}
	}
	record.Lines = kept

	if err := s.put(ctx, cartID, record); err != nil {
		return nil, err
	}
	return record, nil
}

// SetQuantity replaces a line's quantity. Zero or negative means remove
// the line; there is no such thing as a zero-quantity line.
func (s *Service) SetQuantity(ctx context.Context, cartID, itemID string, quantity int) (*storage.CartRecord, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, cartID, itemID)
	}

	record, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}

	for i := range record.Lines {
		if record.Lines[i].ID == itemID {
			record.Lines[i].Quantity = quantity
			break
		}
	}

	if err := s.put(ctx, cartID, record); err != nil {
		return nil, err
	}
	return record, nil
}

// SetOpen persists the drawer flag
func (s *Service) SetOpen(ctx context.Context, cartID string, open bool) (*storage.CartRecord, error) {
	record, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	record.Open = open

	if err := s.put(ctx, cartID, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Clear drops the cart record entirely
func (s *Service) Clear(ctx context.Context, cartID string) error {
	if err := s.store.DeleteCart(ctx, cartID); err != nil && !errors.Is(err, storage.ErrCartNotFound) {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}

// Checkout creates a platform checkout from the current cart lines and
// returns the URL to send the customer to. The local cart is left exactly
// as it was, success or failure: the platform owns the order from here,
// and a failed attempt must not cost the customer their cart.
func (s *Service) Checkout(ctx context.Context, cartID string) (string, error) {
	record, err := s.Get(ctx, cartID)
	if err != nil {
		return "", err
	}
	if len(record.Lines) == 0 {
		return "", fmt.Errorf("cart is empty")
	}

	lines := make([]commerce.CheckoutLine, 0, len(record.Lines))
	for _, line := range record.Lines {
		lines = append(lines, commerce.CheckoutLine{
			MerchandiseID: line.ID,
			Quantity:      line.Quantity,
		})
	}

	checkoutURL, err := s.commerce.CartCreate(ctx, lines)
	if err != nil {
		log.LogErrorWithFields("cart", "Checkout creation failed", map[string]any{
			"error": err.Error(),
			"lines": len(lines),
		})
		return "", err
	}

	log.LogInfoWithFields("cart", "Checkout created", map[string]any{
		"lines": len(lines),
		"units": record.ItemCount(),
	})
	return checkoutURL, nil
}

func (s *Service) put(ctx context.Context, cartID string, record *storage.CartRecord) error {
	record.UpdatedAt = time.Now()
	if err := s.store.PutCart(ctx, cartID, record); err != nil {
		return fmt.Errorf("storing cart: %w", err)
	}
	return nil
}
