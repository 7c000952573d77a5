package payment

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"signalhub/internal/config"
	"signalhub/internal/domain"
	"signalhub/internal/metrics"
	"signalhub/internal/ports"
)

// HashHeader carries the client's payment proof.
const HashHeader = "X-Payment-Hash"

// Gate enforces the x402 verify/settle handshake around paid handlers. Each
// request runs the state machine once: unpaid -> verified -> settled, with
// rejected as the terminal branch for failed verification. A handler failure
// or a failed settle leaves the transaction verified-but-unsettled; there is
// no automatic retry of settlement.
type Gate struct {
	facilitator ports.Facilitator
	store       ports.PaymentStore
	metrics     *metrics.Metrics
	logger      *slog.Logger

	facilitatorURL string
	price          float64
	currency       string
}

// NewGate wires the payment dependencies; metrics and logger may be nil.
func NewGate(cfg config.PaymentConfig, facilitator ports.Facilitator, store ports.PaymentStore, m *metrics.Metrics, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Gate{
		facilitator:    facilitator,
		store:          store,
		metrics:        m,
		logger:         logger,
		facilitatorURL: cfg.FacilitatorURL,
		price:          cfg.PricePerRequest,
		currency:       cfg.Currency,
	}
}

// Wrap gates a paid handler behind the payment state machine.
func (g *Gate) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := domain.PaymentUnpaid

		hash := r.Header.Get(HashHeader)
		if hash == "" {
			g.writeChallenge(w, r.URL.Path)
			return
		}

		verification, err := g.facilitator.Verify(r.Context(), hash)
		if err != nil {
			state = domain.PaymentRejected
			g.metrics.IncPaymentRejected()
			g.logger.Warn("payment verification failed",
				"endpoint", r.URL.Path, "hash", shortHash(hash), "state", state, "error", err)
			g.writeVerificationFailure(w, hash, err)
			return
		}

		amount := g.price
		if verification.Amount > 0 {
			amount = verification.Amount
		}

		state = domain.PaymentVerified
		g.metrics.IncPaymentVerified()

		now := time.Now().UTC()
		tx := domain.PaymentTransaction{
			PaymentHash:      hash,
			Endpoint:         r.URL.Path,
			Amount:           amount,
			Verified:         true,
			ClientIdentifier: clientIdentifier(r),
			VerifiedAt:       &now,
		}
		if err := g.store.RecordVerified(r.Context(), tx); err != nil {
			// The client already paid for this request; losing the audit row
			// must not fail it.
			g.logger.Error("record payment transaction", "hash", shortHash(hash), "error", err)
		}

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		if rec.Status() != http.StatusOK {
			g.logger.Warn("handler failed, leaving payment unsettled",
				"endpoint", r.URL.Path, "hash", shortHash(hash), "status", rec.Status(), "state", state)
			return
		}

		if err := g.facilitator.Settle(r.Context(), hash, amount); err != nil {
			g.metrics.IncSettlementFailure()
			g.logger.Error("payment settlement failed",
				"endpoint", r.URL.Path, "hash", shortHash(hash), "state", state, "error", err)
			return
		}

		state = domain.PaymentSettled
		g.metrics.IncPaymentSettled()

		settledAt := time.Now().UTC()
		if err := g.store.MarkSettled(r.Context(), hash, settledAt); err != nil {
			g.logger.Error("mark payment settled", "hash", shortHash(hash), "error", err)
		}
	})
}

func (g *Gate) writeChallenge(w http.ResponseWriter, endpoint string) {
	h := w.Header()
	h.Set("X-Accepts-Payment", "true")
	h.Set("X-Payment-Required", "true")
	h.Set("X-Payment-Amount", fmt.Sprintf("%g", g.price))
	h.Set("X-Payment-Currency", g.currency)
	h.Set("X-Payment-Facilitator", g.facilitatorURL)
	h.Set("X-Payment-Endpoint", endpoint)

	writeJSON(w, http.StatusPaymentRequired, map[string]any{
		"error":   "Payment Required",
		"message": "This endpoint requires payment. Include the " + HashHeader + " header.",
		"payment_details": map[string]any{
			"amount":      g.price,
			"currency":    g.currency,
			"facilitator": g.facilitatorURL,
		},
	})
}

func (g *Gate) writeVerificationFailure(w http.ResponseWriter, hash string, err error) {
	writeJSON(w, http.StatusPaymentRequired, map[string]any{
		"error":        "Payment Verification Failed",
		"message":      err.Error(),
		"payment_hash": hash,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func clientIdentifier(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusRecorder captures the status the wrapped handler wrote so the gate
// can decide whether to settle.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Status returns the recorded status, defaulting to 200 when the handler
// never called WriteHeader.
func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
