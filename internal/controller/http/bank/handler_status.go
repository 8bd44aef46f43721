package bank

import (
	"encoding/json"
	"net/http"

	"github.com/billyapp/bankfeed/pkg/common/logger"
)

func (h *Handler) quotaStatus(w http.ResponseWriter, r *http.Request) {
	status := h.gw.CheckQuotaStatus(r.Context())
	if status.RateLimited {
		logger.Warn("quota probe: provider reports rate limited")
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

func (h *Handler) connectionTest(w http.ResponseWriter, r *http.Request) {
	status := h.gw.TestConnection(r.Context())
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}
