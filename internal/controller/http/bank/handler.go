package bank

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/billyapp/bankfeed/internal/gateway"
	"github.com/billyapp/bankfeed/internal/provider"
	"github.com/billyapp/bankfeed/pkg/common/logger"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	gw       *gateway.Gateway
	mappings healthChecker
	cache    healthChecker
}

type healthChecker interface {
	Health() error
}

// NewHandler constructs a Handler over the gateway. The two repositories are
// only consulted for the health endpoint.
func NewHandler(gw *gateway.Gateway, mappings, cache healthChecker) *Handler {
	return &Handler{gw: gw, mappings: mappings, cache: cache}
}

// Router returns a chi-based router for the /api endpoints.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/health", h.health)

	r.Get("/api/institutions", h.listInstitutions)

	// Bank-linking sessions
	r.Post("/api/sessions", h.createSession)
	r.Get("/api/sessions/resolve", h.resolveReference)

	// Requisitions and their transactions
	r.Get("/api/requisitions/{id}", h.getRequisition)
	r.Get("/api/requisitions/{id}/transactions", h.getTransactions)
	r.Get("/api/requisitions/{id}/transactions/summary", h.getTransactionsSummary)
	r.Get("/api/transactions/cached/{id}", h.getCachedTransactions)

	r.Get("/api/agreements/{id}", h.getAgreement)

	// Provider status probes
	r.Get("/api/ratelimit", h.quotaStatus)
	r.Get("/api/connection", h.connectionTest)
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	for name, repo := range map[string]healthChecker{"mappings": h.mappings, "cache": h.cache} {
		if err := repo.Health(); err != nil {
			logger.Error("health: %s repo unhealthy: %v", name, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// writeProviderError maps gateway/provider failures onto HTTP statuses:
// 429 keeps its rate-limit detail, auth failures surface as a bad gateway,
// provider 404s stay 404.
func writeProviderError(w http.ResponseWriter, err error, fallback string) {
	var rle *provider.RateLimitError
	if errors.As(err, &rle) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":      "provider rate limit exceeded",
			"rate_limit": rle.Info,
		})
		return
	}
	var authErr *provider.AuthError
	if errors.As(err, &authErr) {
		http.Error(w, "failed to authenticate with provider", http.StatusBadGateway)
		return
	}
	if errors.Is(err, provider.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, fallback, http.StatusInternalServerError)
}
