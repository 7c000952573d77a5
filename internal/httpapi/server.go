package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"signalhub/internal/domain"
	"signalhub/internal/metrics"
	"signalhub/internal/payment"
	"signalhub/internal/ports"
	"signalhub/internal/usecase"
)

const (
	serviceName    = "signalhub"
	serviceVersion = "1.0.0"

	healthProbeTimeout = 2 * time.Second
)

// Server exposes the market feeds over HTTP. The category endpoints sit
// behind the payment gate; health and root do not.
type Server struct {
	markets *usecase.Markets
	gate    *payment.Gate
	db      ports.Pinger
	cache   ports.Cache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewServer wires the handlers; metrics and logger may be nil.
func NewServer(markets *usecase.Markets, gate *payment.Gate, db ports.Pinger, cache ports.Cache, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Server{
		markets: markets,
		gate:    gate,
		db:      db,
		cache:   cache,
		metrics: m,
		logger:  logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	category := http.HandlerFunc(s.handleCategory)
	if s.gate != nil {
		mux.Handle("GET /markets/{category}", s.gate.Wrap(category))
	} else {
		mux.Handle("GET /markets/{category}", category)
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	return mux
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	category := domain.Category(r.PathValue("category"))
	if !category.Valid() {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "unknown category",
		})
		return
	}

	payload, err := s.markets.CategoryFeed(r.Context(), category)
	if err != nil {
		s.logger.Error("category feed failed", "category", category, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to build category feed",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	status := "healthy"
	components := map[string]string{}

	if s.db != nil && s.db.Ping(ctx) == nil {
		components["database"] = "connected"
	} else {
		components["database"] = "disconnected"
		status = "degraded"
	}

	if s.cache != nil && s.cache.Ping() == nil {
		components["cache"] = "connected"
	} else {
		components["cache"] = "disconnected"
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"components": components,
		"metrics":    s.metrics.Snapshot(),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	endpoints := make([]string, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		endpoints = append(endpoints, "/markets/"+string(c))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"service": serviceName,
		"version": serviceVersion,
		"endpoints": map[string]any{
			"markets": endpoints,
			"health":  []string{"/health"},
		},
		"payment": map[string]any{
			"protocol": "x402",
			"required": true,
			"header":   payment.HashHeader,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
