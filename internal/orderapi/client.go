package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pos-sync/internal/models"
)

// envelope matches the order-service response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Client is the typed HTTP client for the order-service collaborator. It
// implements livesync.Fetcher and lifecycle.OrderAPI.
type Client struct {
	base   string
	client *http.Client
}

func NewClient(base string, timeout time.Duration) *Client {
	return &Client{
		base:   base,
		client: &http.Client{Timeout: timeout},
	}
}

// ListOrders fetches the complete order list.
func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListTables fetches the complete table list.
func (c *Client) ListTables(ctx context.Context) ([]models.Table, error) {
	var tbls []models.Table
	if err := c.do(ctx, http.MethodGet, "/tables", nil, &tbls); err != nil {
		return nil, err
	}
	return tbls, nil
}

// CreateOrder posts a new order and returns the authoritative record,
// including the generated ID and server-computed totals.
func (c *Client) CreateOrder(ctx context.Context, order models.Order) (*models.Order, error) {
	var created models.Order
	if err := c.do(ctx, http.MethodPost, "/orders", order, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateOrder applies a partial update and returns the authoritative record.
func (c *Client) UpdateOrder(ctx context.Context, id string, patch map[string]any) (*models.Order, error) {
	var updated models.Order
	if err := c.do(ctx, http.MethodPatch, "/orders/"+id, patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteOrder removes an order.
func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/orders/"+id, nil, nil)
}

// UpdateTable applies a partial update to a table.
func (c *Client) UpdateTable(ctx context.Context, id string, patch map[string]any) (*models.Table, error) {
	var updated models.Table
	if err := c.do(ctx, http.MethodPatch, "/tables/"+id, patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}
