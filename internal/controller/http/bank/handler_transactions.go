package bank

import (
	"encoding/json"
	"net/http"

	"github.com/billyapp/bankfeed/pkg/common/logger"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) getTransactions(w http.ResponseWriter, r *http.Request) {
	requisitionID := chi.URLParam(r, "id")
	forceRefresh := r.URL.Query().Get("refresh") == "true"
	logger.Debug("getTransactions: requisition=%s refresh=%t", requisitionID, forceRefresh)

	txs, err := h.gw.GetTransactions(r.Context(), requisitionID, forceRefresh)
	if err != nil {
		logger.Error("get transactions %s: %v", requisitionID, err)
		writeProviderError(w, err, "failed to fetch transactions")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(txs)
}

// getCachedTransactions never spends a provider call: 404 when the cache has
// nothing for this requisition.
func (h *Handler) getCachedTransactions(w http.ResponseWriter, r *http.Request) {
	requisitionID := chi.URLParam(r, "id")
	txs, ok, err := h.gw.CachedTransactions(r.Context(), requisitionID)
	if err != nil {
		logger.Error("cached transactions %s: %v", requisitionID, err)
		http.Error(w, "failed to read cached transactions", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no cached transactions", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(txs)
}

func (h *Handler) getTransactionsSummary(w http.ResponseWriter, r *http.Request) {
	requisitionID := chi.URLParam(r, "id")
	forceRefresh := r.URL.Query().Get("refresh") == "true"

	summary, err := h.gw.SummarizeTransactions(r.Context(), requisitionID, forceRefresh)
	if err != nil {
		logger.Error("summarize transactions %s: %v", requisitionID, err)
		writeProviderError(w, err, "failed to summarize transactions")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}
