package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/atelierline/storefront/internal/log"
)

// Client talks to the commerce platform's Storefront GraphQL API. Responses
// are parsed into explicit types per query at this boundary; nothing
// downstream touches raw GraphQL shapes.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewClient creates a Storefront API client for the given shop domain and
// API version
func NewClient(domain, apiVersion, token string) *Client {
	return &Client{
		endpoint:   fmt.Sprintf("https://%s/api/%s/graphql.json", domain, apiVersion),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewClientForEndpoint creates a client against an explicit GraphQL
// endpoint URL, bypassing domain/version assembly. Used by tests and local
// mock platforms.
func NewClientForEndpoint(endpoint, token string) *Client {
	return &Client{
		endpoint:   endpoint,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// graphqlError is one entry of the top-level errors list
type graphqlError struct {
	Message string `json:"message"`
}

// envelope is the standard GraphQL response wrapper
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors,omitempty"`
}

// do posts a query with variables and decodes the data payload into out
func (c *Client) do(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return fmt.Errorf("encoding GraphQL request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building GraphQL request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Storefront-Access-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("storefront API request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("reading storefront API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.LogErrorWithFields("commerce", "Storefront API returned non-200", map[string]any{
			"status": resp.StatusCode,
		})
		return fmt.Errorf("storefront API returned status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decoding storefront API response: %w", err)
	}

	if len(env.Errors) > 0 {
		messages := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			messages = append(messages, e.Message)
		}
		return fmt.Errorf("storefront API errors: %s", strings.Join(messages, "; "))
	}

	if env.Data == nil {
		return fmt.Errorf("storefront API returned no data")
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding %T: %w", out, err)
	}

	return nil
}
