//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"testing"
	"time"

	"Storefront/internal/auth"
)

var baseURL = getenv("E2E_BASE_URL", "http://localhost:8080")

// TestSystem_E2E runs against a deployed storefront. JWT_SECRET must match the
// server's so the test can mint its own session.
func TestSystem_E2E(t *testing.T) {
	t.Parallel()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		t.Skip("JWT_SECRET not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	userID := fmt.Sprintf("e2e_%d_%d", time.Now().Unix(), rand.Intn(100000))
	token, err := auth.NewTokenMaker(secret).New(userID, userID+"@example.com", 10*time.Minute)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var products []map[string]any
	doJSON(t, http.MethodGet, baseURL+"/products/trending", nil, &products, 200)
	if len(products) == 0 {
		t.Fatalf("expected trending products")
	}

	pid, _ := products[0]["id"].(string)
	if pid == "" {
		t.Fatalf("product id missing in response: %#v", products[0])
	}

	doJSONAuth(t, http.MethodPost, baseURL+"/history/views", token, map[string]any{"product_id": pid}, nil, 204)

	var views []map[string]any
	doJSONAuth(t, http.MethodGet, baseURL+"/history/views", token, nil, &views, 200)
	if len(views) != 1 || views[0]["key"] != pid {
		t.Fatalf("views=%#v", views)
	}

	doJSONAuth(t, http.MethodPatch, baseURL+"/checkout/draft", token, map[string]any{
		"isHomeDelivery": true,
		"address": map[string]any{
			"street": "1 High St",
			"city":   "London",
			"phone":  "+440000000",
		},
		"paymentMethod": "card",
	}, nil, 202)

	if os.Getenv("E2E_RESTART") == "1" {
		// A restart must not lose the edit: shutdown flushes pending drafts.
		restartStorefrontContainer(t, ctx)
		waitReady(t, ctx, baseURL+"/readyz")
	} else {
		doJSONAuth(t, http.MethodPost, baseURL+"/checkout/draft/flush", token, nil, nil, 200)
	}

	var draft map[string]any
	doJSONAuth(t, http.MethodGet, baseURL+"/checkout/draft", token, nil, &draft, 200)
	if draft["paymentMethod"] != "card" {
		t.Fatalf("draft=%#v", draft)
	}

	var created map[string]any
	doJSONAuth(t, http.MethodPost, baseURL+"/orders", token, map[string]any{
		"items": []map[string]any{
			{"product_id": pid, "qty": 1},
		},
	}, &created, 201)

	orderID, _ := created["id"].(string)
	if orderID == "" {
		t.Fatalf("order id missing: %#v", created)
	}

	var got map[string]any
	doJSONAuth(t, http.MethodGet, baseURL+"/orders/"+orderID, token, nil, &got, 200)

	doJSONAuth(t, http.MethodGet, baseURL+"/checkout/draft", token, nil, &draft, 200)
	if len(draft) != 0 {
		t.Fatalf("draft survived order: %#v", draft)
	}
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func doJSON(t *testing.T, method, url string, body any, out any, want int) {
	t.Helper()
	doJSONAuth(t, method, url, "", body, out, want)
}

func doJSONAuth(t *testing.T, method, url, token string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, url, resp.StatusCode, want)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
