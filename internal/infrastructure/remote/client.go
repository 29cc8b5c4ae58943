// Package remote is the HTTP client for the authoritative cart store. It
// speaks the storefront REST contract, classifies failures into the typed
// taxonomy in errors.go, and wraps every call in a circuit breaker so a
// flapping backend degrades quickly into the engine's local fallbacks.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

// Product is the wire shape of the embedded product on a cart line. Price
// stays untyped here: the backend emits it either as a number or as a
// formatted string, and normalization happens when the engine constructs the
// canonical product.
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       any    `json:"price"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
	Category    string `json:"category"`
	InStock     bool   `json:"in_stock"`
}

// Line is the wire shape of one cart line.
type Line struct {
	ID        int64    `json:"id"`
	ProductID int64    `json:"product_id"`
	Quantity  int      `json:"quantity"`
	Product   *Product `json:"product,omitempty"`
}

type addRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Client talks to the remote cart endpoints.
type Client struct {
	baseURL string
	httpc   *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewClient builds a client for the cart API rooted at baseURL (for example
// "http://localhost:8001/api"). The breaker opens after a run of transport
// failures; rejected requests do not count, only requests that never reached
// the backend.
func NewClient(baseURL string, timeout time.Duration) *Client {
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "cart-remote",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrNetwork)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[Remote] Circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

// FetchCart retrieves the full authoritative cart.
func (c *Client) FetchCart(ctx context.Context, token string) ([]Line, error) {
	data, err := c.do(ctx, http.MethodGet, "/cart", token, nil)
	if err != nil {
		return nil, err
	}
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("%w: unexpected cart payload: %v", ErrRemoteRejected, err)
	}
	return lines, nil
}

// AddItem adds a product to the remote cart and returns the resulting line.
// The backend merges duplicate adds into one line with a summed quantity.
func (c *Client) AddItem(ctx context.Context, token string, productID int64, quantity int) (*Line, error) {
	data, err := c.do(ctx, http.MethodPost, "/cart", token, addRequest{ProductID: productID, Quantity: quantity})
	if err != nil {
		return nil, err
	}
	var line Line
	if err := json.Unmarshal(data, &line); err != nil {
		return nil, fmt.Errorf("%w: unexpected cart line payload: %v", ErrRemoteRejected, err)
	}
	return &line, nil
}

// UpdateQuantity sets the quantity on an existing remote line.
func (c *Client) UpdateQuantity(ctx context.Context, token string, lineID int64, quantity int) (*Line, error) {
	path := fmt.Sprintf("/cart/%d?quantity=%d", lineID, quantity)
	data, err := c.do(ctx, http.MethodPut, path, token, nil)
	if err != nil {
		return nil, err
	}
	var line Line
	if err := json.Unmarshal(data, &line); err != nil {
		return nil, fmt.Errorf("%w: unexpected cart line payload: %v", ErrRemoteRejected, err)
	}
	return &line, nil
}

// RemoveLine deletes one remote line.
func (c *Client) RemoveLine(ctx context.Context, token string, lineID int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/cart/%d", lineID), token, nil)
	return err
}

// ClearCart issues the bulk clear. When the server exhibits the known route
// collision it comes back as ErrMalformedPath and the caller falls back to
// per-line deletes.
func (c *Client) ClearCart(ctx context.Context, token string) error {
	_, err := c.do(ctx, http.MethodDelete, "/cart/clear", token, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path, token string, body any) ([]byte, error) {
	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, token, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: circuit open", ErrNetwork)
	}
	return data, err
}

func (c *Client) roundTrip(ctx context.Context, method, path, token string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		log.Printf("[Remote] %s %s (%s) transport error: %v", method, path, requestID, err)
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[Remote] %s %s (%s) rejected with status %d", method, path, requestID, resp.StatusCode)
		return nil, classifyStatus(resp.StatusCode, data)
	}
	return data, nil
}
