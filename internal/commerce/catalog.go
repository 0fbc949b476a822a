package commerce

import (
	"context"
	"fmt"
)

// Collections fetches the shop's collections (first 20)
func (c *Client) Collections(ctx context.Context) ([]Collection, error) {
	var data struct {
		Collections edges[Collection] `json:"collections"`
	}
	if err := c.do(ctx, collectionsQuery, nil, &data); err != nil {
		return nil, fmt.Errorf("fetching collections: %w", err)
	}
	return data.Collections.nodes(), nil
}

// CollectionProducts fetches one collection and its products by handle.
// Returns nil when the handle doesn't exist.
func (c *Client) CollectionProducts(ctx context.Context, handle string) (*CollectionDetail, error) {
	var data struct {
		Collection *struct {
			ID          string             `json:"id"`
			Title       string             `json:"title"`
			Description string             `json:"description"`
			Products    edges[productWire] `json:"products"`
		} `json:"collection"`
	}
	if err := c.do(ctx, collectionProductsQuery, map[string]any{"handle": handle}, &data); err != nil {
		return nil, fmt.Errorf("fetching collection %q: %w", handle, err)
	}
	if data.Collection == nil {
		return nil, nil
	}

	detail := &CollectionDetail{
		Collection: Collection{
			ID:          data.Collection.ID,
			Handle:      handle,
			Title:       data.Collection.Title,
			Description: data.Collection.Description,
		},
	}
	for _, wire := range data.Collection.Products.nodes() {
		detail.Products = append(detail.Products, wire.toProduct())
	}
	return detail, nil
}

// ProductByHandle fetches a single product. Returns nil when the handle
// doesn't exist.
func (c *Client) ProductByHandle(ctx context.Context, handle string) (*Product, error) {
	var data struct {
		Product *productWire `json:"product"`
	}
	if err := c.do(ctx, productByHandleQuery, map[string]any{"handle": handle}, &data); err != nil {
		return nil, fmt.Errorf("fetching product %q: %w", handle, err)
	}
	if data.Product == nil {
		return nil, nil
	}
	product := data.Product.toProduct()
	return &product, nil
}

// SearchProducts runs a free-text product search (first 20 matches)
func (c *Client) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	var data struct {
		Products edges[productWire] `json:"products"`
	}
	if err := c.do(ctx, searchProductsQuery, map[string]any{"query": query}, &data); err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}

	products := make([]Product, 0, len(data.Products.Edges))
	for _, wire := range data.Products.nodes() {
		products = append(products, wire.toProduct())
	}
	return products, nil
}

// Customer fetches the profile behind a customer access token
func (c *Client) Customer(ctx context.Context, accessToken string) (*Customer, error) {
	var data struct {
		Customer *Customer `json:"customer"`
	}
	if err := c.do(ctx, customerQuery, map[string]any{"customerAccessToken": accessToken}, &data); err != nil {
		return nil, fmt.Errorf("fetching customer: %w", err)
	}
	if data.Customer == nil {
		return nil, fmt.Errorf("customer not found for access token")
	}
	return data.Customer, nil
}
