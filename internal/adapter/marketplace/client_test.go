package marketplace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchEligibleOrders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/orders" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		states := r.URL.Query()["state"]
		if len(states) != 2 || states[0] != "paid" || states[1] != "shipped" {
			t.Errorf("unexpected states %v", states)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"o-1","state":"paid","buyer_name":"alice"},{"id":"o-2","state":"shipped"}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	orders, err := client.FetchEligibleOrders(context.Background(), []string{"paid", "shipped"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0].ID != "o-1" || orders[0].Buyer != "alice" {
		t.Errorf("unexpected order %+v", orders[0])
	}
}

func TestFetchOrderLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/orders/o-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"o-1","state":"paid","order_items":[{"product_id":"p-9","name":"Black Lotus","quantity":1}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	lines, err := client.FetchOrderLines(context.Background(), "o-1")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if len(lines) != 1 || lines[0].ProductID != "p-9" || lines[0].Quantity != 1 {
		t.Errorf("unexpected lines %+v", lines)
	}
}

func TestFetchOrderLines_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	if _, err := client.FetchOrderLines(context.Background(), "o-1"); err == nil {
		t.Error("expected error for 502 response")
	}
}
