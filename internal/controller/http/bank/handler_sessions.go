package bank

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/billyapp/bankfeed/pkg/common/logger"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) listInstitutions(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if country == "" {
		http.Error(w, "country query parameter is required", http.StatusBadRequest)
		return
	}
	logger.Debug("listInstitutions: country=%s", country)
	institutions, err := h.gw.ListInstitutions(r.Context(), country)
	if err != nil {
		logger.Error("list institutions: %v", err)
		writeProviderError(w, err, "failed to fetch institutions")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(institutions)
}

type createSessionRequest struct {
	InstitutionID string `json:"institution_id"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.InstitutionID) == "" {
		http.Error(w, "institution_id is required", http.StatusBadRequest)
		return
	}
	logger.Debug("createSession: institution=%s", req.InstitutionID)
	session, err := h.gw.CreateLinkSession(r.Context(), req.InstitutionID)
	if err != nil {
		logger.Error("create link session: %v", err)
		writeProviderError(w, err, "failed to initialize bank session")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(session)
}

func (h *Handler) resolveReference(w http.ResponseWriter, r *http.Request) {
	referenceID := r.URL.Query().Get("reference")
	if referenceID == "" {
		http.Error(w, "reference query parameter is required", http.StatusBadRequest)
		return
	}
	requisitionID, ok, err := h.gw.ResolveReferenceID(r.Context(), referenceID)
	if err != nil {
		logger.Error("resolve reference %s: %v", referenceID, err)
		http.Error(w, "failed to resolve reference", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "unknown reference", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"requisition_id": requisitionID})
}

func (h *Handler) getRequisition(w http.ResponseWriter, r *http.Request) {
	requisitionID := chi.URLParam(r, "id")
	req, err := h.gw.RequisitionExists(r.Context(), requisitionID)
	if err != nil {
		logger.Error("get requisition %s: %v", requisitionID, err)
		writeProviderError(w, err, "failed to fetch requisition")
		return
	}
	if req == nil {
		http.Error(w, "requisition not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(req)
}

func (h *Handler) getAgreement(w http.ResponseWriter, r *http.Request) {
	agreementID := chi.URLParam(r, "id")
	agreement, err := h.gw.GetAgreement(r.Context(), agreementID)
	if err != nil {
		logger.Error("get agreement %s: %v", agreementID, err)
		writeProviderError(w, err, "failed to fetch agreement details")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(agreement)
}
