// Package marketplace wraps the external marketplace's REST API. Thin read
// side only: order listings and order lines for the allocation core.
package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/evade6ix/ctfinal-sub000/internal/core/domain"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type orderPayload struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Buyer string `json:"buyer_name"`
}

type orderLinePayload struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

type orderDetailPayload struct {
	ID    string             `json:"id"`
	State string             `json:"state"`
	Items []orderLinePayload `json:"order_items"`
}

func (c *Client) FetchEligibleOrders(ctx context.Context, states []string) ([]domain.Order, error) {
	q := url.Values{}
	for _, state := range states {
		q.Add("state", state)
	}

	var payload []orderPayload
	if err := c.getJSON(ctx, "/api/v2/orders?"+q.Encode(), &payload); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(payload))
	for _, p := range payload {
		orders = append(orders, domain.Order{ID: p.ID, State: p.State, Buyer: p.Buyer})
	}
	return orders, nil
}

func (c *Client) FetchOrderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	var payload orderDetailPayload
	if err := c.getJSON(ctx, "/api/v2/orders/"+url.PathEscape(orderID), &payload); err != nil {
		return nil, err
	}

	lines := make([]domain.OrderLine, 0, len(payload.Items))
	for _, item := range payload.Items {
		lines = append(lines, domain.OrderLine{ProductID: item.ProductID, Name: item.Name, Quantity: item.Quantity})
	}
	return lines, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("marketplace request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("marketplace returned %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode marketplace response: %w", err)
	}
	return nil
}
