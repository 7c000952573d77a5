package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"signalhub/internal/config"
	"signalhub/internal/logging"
)

func TestFacilitatorVerify(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/verify" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body["payment_hash"] != "0xabc" {
			t.Errorf("unexpected hash: %s", body["payment_hash"])
		}
		_, _ = w.Write([]byte(`{"amount":0.002}`))
	}))
	defer server.Close()

	c := NewFacilitatorClient(config.PaymentConfig{FacilitatorURL: server.URL}, logging.Discard())

	verification, err := c.Verify(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if verification.PaymentHash != "0xabc" {
		t.Fatalf("unexpected hash: %s", verification.PaymentHash)
	}
	if verification.Amount != 0.002 {
		t.Fatalf("unexpected amount: %v", verification.Amount)
	}
}

func TestFacilitatorVerifyRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"unknown hash"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	c := NewFacilitatorClient(config.PaymentConfig{FacilitatorURL: server.URL}, logging.Discard())

	if _, err := c.Verify(context.Background(), "0xabc"); err == nil {
		t.Fatal("expected error on non-200 verify")
	}
}

func TestFacilitatorSettle(t *testing.T) {
	t.Parallel()

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/settle" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"status":"settled"}`))
	}))
	defer server.Close()

	c := NewFacilitatorClient(config.PaymentConfig{FacilitatorURL: server.URL}, logging.Discard())

	if err := c.Settle(context.Background(), "0xabc", 0.001); err != nil {
		t.Fatalf("Settle error: %v", err)
	}
	if got["payment_hash"] != "0xabc" {
		t.Fatalf("unexpected hash: %v", got["payment_hash"])
	}
	if got["amount"] != 0.001 {
		t.Fatalf("unexpected amount: %v", got["amount"])
	}
}

func TestShortHash(t *testing.T) {
	t.Parallel()

	if got := shortHash("0x0123456789abcdef0123"); got != "0x0123456789abcd" {
		t.Fatalf("unexpected short hash: %s", got)
	}
	if got := shortHash("0xabc"); got != "0xabc" {
		t.Fatalf("short input must pass through, got %s", got)
	}
}
