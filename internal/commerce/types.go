package commerce

import (
	"fmt"
	"strconv"
)

// Wire shapes: GraphQL connections are edges-of-nodes. They are flattened
// into the public types below before leaving this package.

type edges[T any] struct {
	Edges []struct {
		Node T `json:"node"`
	} `json:"edges"`
}

func (e edges[T]) nodes() []T {
	out := make([]T, 0, len(e.Edges))
	for _, edge := range e.Edges {
		out = append(out, edge.Node)
	}
	return out
}

// Money is a platform price: decimal string amount plus currency code
type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

// Float parses the decimal amount. Display still uses the original string;
// this is for cart arithmetic only.
func (m Money) Float() (float64, error) {
	if m.Amount == "" {
		return 0, fmt.Errorf("empty amount")
	}
	value, err := strconv.ParseFloat(m.Amount, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", m.Amount, err)
	}
	return value, nil
}

// Image is a product image
type Image struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
}

// SelectedOption is one variant axis, e.g. Size=M
type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Variant is a purchasable product variant. ID is the merchandise id the
// checkout mutation requires.
type Variant struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	SelectedOptions []SelectedOption `json:"selectedOptions"`
}

// Product is a storefront product with its price range, images, and variants
type Product struct {
	ID          string
	Title       string
	Handle      string
	Description string
	MinPrice    Money
	Images      []Image
	Variants    []Variant
}

// Collection is a named grouping of products
type Collection struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CollectionDetail is a collection together with its products
type CollectionDetail struct {
	Collection
	Products []Product
}

// Customer is the profile behind a customer access token
type Customer struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// CheckoutLine is one line submitted to cart creation
type CheckoutLine struct {
	MerchandiseID string `json:"merchandiseId"`
	Quantity      int    `json:"quantity"`
}

// UserError is a platform-reported business error from a mutation, e.g. an
// out-of-stock variant at checkout
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// Error implements the error interface with the platform's message verbatim
func (e UserError) Error() string {
	return e.Message
}

// productWire is the GraphQL shape of a product node
type productWire struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Handle      string `json:"handle"`
	Description string `json:"description"`
	PriceRange  struct {
		MinVariantPrice Money `json:"minVariantPrice"`
	} `json:"priceRange"`
	Images   edges[Image]   `json:"images"`
	Variants edges[Variant] `json:"variants"`
}

func (w productWire) toProduct() Product {
	return Product{
		ID:          w.ID,
		Title:       w.Title,
		Handle:      w.Handle,
		Description: w.Description,
		MinPrice:    w.PriceRange.MinVariantPrice,
		Images:      w.Images.nodes(),
		Variants:    w.Variants.nodes(),
	}
}
