package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"signalhub/internal/config"
	"signalhub/internal/domain"
	"signalhub/internal/ports"
)

// FacilitatorClient talks to the external payment facilitator for the
// verify/settle handshake.
type FacilitatorClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var _ ports.Facilitator = (*FacilitatorClient)(nil)

// NewFacilitatorClient builds a client from configuration; logger may be nil.
func NewFacilitatorClient(cfg config.PaymentConfig, logger *slog.Logger) *FacilitatorClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &FacilitatorClient{
		baseURL: strings.TrimRight(cfg.FacilitatorURL, "/"),
		http:    &http.Client{Timeout: cfg.RequestTimeout.Std()},
		logger:  logger,
	}
}

// Verify asks the facilitator to authorize the payment hash.
func (c *FacilitatorClient) Verify(ctx context.Context, paymentHash string) (domain.PaymentVerification, error) {
	var reply struct {
		Amount float64 `json:"amount"`
	}
	err := c.post(ctx, "/verify", map[string]any{"payment_hash": paymentHash}, &reply)
	if err != nil {
		return domain.PaymentVerification{}, fmt.Errorf("verify payment: %w", err)
	}

	c.logger.Info("payment verified", "hash", shortHash(paymentHash))
	return domain.PaymentVerification{PaymentHash: paymentHash, Amount: reply.Amount}, nil
}

// Settle finalizes the charge after a successful response.
func (c *FacilitatorClient) Settle(ctx context.Context, paymentHash string, amount float64) error {
	payload := map[string]any{
		"payment_hash": paymentHash,
		"amount":       amount,
	}
	if err := c.post(ctx, "/settle", payload, nil); err != nil {
		return fmt.Errorf("settle payment: %w", err)
	}

	c.logger.Info("payment settled", "hash", shortHash(paymentHash), "amount", amount)
	return nil
}

func (c *FacilitatorClient) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		reply, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("facilitator error %s: %s", resp.Status, strings.TrimSpace(string(reply)))
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func shortHash(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
