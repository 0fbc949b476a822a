package commerce

import (
	"context"
	"fmt"
)

// CartCreate submits checkout lines to the platform's cartCreate mutation
// and returns the hosted checkout URL. A platform-reported userError comes
// back as a UserError so callers can surface its message verbatim.
func (c *Client) CartCreate(ctx context.Context, lines []CheckoutLine) (string, error) {
	if len(lines) == 0 {
		return "", fmt.Errorf("cannot create checkout for empty cart")
	}

	var data struct {
		CartCreate struct {
			Cart *struct {
				ID          string `json:"id"`
				CheckoutURL string `json:"checkoutUrl"`
			} `json:"cart"`
			UserErrors []UserError `json:"userErrors"`
		} `json:"cartCreate"`
	}

	if err := c.do(ctx, cartCreateMutation, map[string]any{"lineItems": lines}, &data); err != nil {
		return "", fmt.Errorf("creating checkout: %w", err)
	}

	if len(data.CartCreate.UserErrors) > 0 {
		return "", data.CartCreate.UserErrors[0]
	}

	if data.CartCreate.Cart == nil || data.CartCreate.Cart.CheckoutURL == "" {
		return "", fmt.Errorf("platform returned no checkout URL")
	}

	return data.CartCreate.Cart.CheckoutURL, nil
}
