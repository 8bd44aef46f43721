package bank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/billyapp/bankfeed/internal/gateway"
	"github.com/billyapp/bankfeed/internal/provider"
	txcacheRepo "github.com/billyapp/bankfeed/pkg/repositories/txcache"
	"github.com/stretchr/testify/require"
)

// ---- minimal fakes ----

type stubAPI struct {
	institutions []provider.Institution
	requisition  *provider.Requisition
	txResp       *provider.TransactionsResponse
	quota        *provider.QuotaStatus
	err          error
}

func (s *stubAPI) Institutions(ctx context.Context, country string) ([]provider.Institution, error) {
	return s.institutions, s.err
}
func (s *stubAPI) CreateEndUserAgreement(ctx context.Context, institutionID string) (*provider.Agreement, error) {
	return &provider.Agreement{ID: "agr-1"}, s.err
}
func (s *stubAPI) Agreement(ctx context.Context, agreementID string) (*provider.Agreement, error) {
	return &provider.Agreement{ID: agreementID}, s.err
}
func (s *stubAPI) CreateRequisition(ctx context.Context, p provider.CreateRequisitionParams) (*provider.Requisition, error) {
	return &provider.Requisition{ID: "req-1", Link: "https://bank.example/auth"}, s.err
}
func (s *stubAPI) Requisition(ctx context.Context, requisitionID string) (*provider.Requisition, error) {
	if s.requisition == nil && s.err == nil {
		return nil, &provider.APIError{StatusCode: 404, Status: "404 Not Found"}
	}
	return s.requisition, s.err
}
func (s *stubAPI) Transactions(ctx context.Context, accountID string) (*provider.TransactionsResponse, error) {
	return s.txResp, s.err
}
func (s *stubAPI) CheckRateLimit(ctx context.Context, requisitionID string) (*provider.QuotaStatus, error) {
	return s.quota, s.err
}

type stubMappings struct{ m map[string]string }

func (r *stubMappings) Health() error { return nil }
func (r *stubMappings) Disconnect()   {}
func (r *stubMappings) SaveMapping(ctx context.Context, referenceID, requisitionID string) error {
	r.m[referenceID] = requisitionID
	return nil
}
func (r *stubMappings) RequisitionIDByReference(ctx context.Context, referenceID string) (string, bool, error) {
	id, ok := r.m[referenceID]
	return id, ok, nil
}
func (r *stubMappings) AnyRequisitionID(ctx context.Context) (string, bool, error) {
	for _, id := range r.m {
		return id, true, nil
	}
	return "", false, nil
}

type stubCache struct{ entries map[string]*txcacheRepo.Entry }

func (r *stubCache) Health() error { return nil }
func (r *stubCache) Disconnect()   {}
func (r *stubCache) Get(ctx context.Context, requisitionID string) (*txcacheRepo.Entry, error) {
	return r.entries[requisitionID], nil
}
func (r *stubCache) Set(ctx context.Context, requisitionID string, data []byte) error {
	r.entries[requisitionID] = &txcacheRepo.Entry{RequisitionID: requisitionID, Data: data, Timestamp: time.Now()}
	return nil
}

func newTestHandler(api *stubAPI) (*Handler, *stubMappings, *stubCache) {
	mappings := &stubMappings{m: map[string]string{}}
	cache := &stubCache{entries: map[string]*txcacheRepo.Entry{}}
	gw := gateway.New(api, mappings, cache, "http://localhost:3000")
	return NewHandler(gw, mappings, cache), mappings, cache
}

func doRequest(t *testing.T, h *Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

// ---- TESTS ----

func TestHealthEndpoint(t *testing.T) {
	h, _, _ := newTestHandler(&stubAPI{})
	rec := doRequest(t, h, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestListInstitutionsRequiresCountry(t *testing.T) {
	h, _, _ := newTestHandler(&stubAPI{})
	rec := doRequest(t, h, http.MethodGet, "/api/institutions", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListInstitutions(t *testing.T) {
	h, _, _ := newTestHandler(&stubAPI{institutions: []provider.Institution{{ID: "SANDBOXFINANCE_SFIN0000", Name: "Sandbox"}}})
	rec := doRequest(t, h, http.MethodGet, "/api/institutions?country=GB", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var institutions []provider.Institution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &institutions))
	require.Len(t, institutions, 1)
	require.Equal(t, "SANDBOXFINANCE_SFIN0000", institutions[0].ID)
}

func TestCreateSessionAndResolveReference(t *testing.T) {
	h, _, _ := newTestHandler(&stubAPI{})
	rec := doRequest(t, h, http.MethodPost, "/api/sessions", `{"institution_id":"SANDBOXFINANCE_SFIN0000"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var session gateway.LinkSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.Equal(t, "req-1", session.RequisitionID)
	require.NotEmpty(t, session.ReferenceID)

	rec = doRequest(t, h, http.MethodGet, "/api/sessions/resolve?reference="+session.ReferenceID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resolved map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
	require.Equal(t, "req-1", resolved["requisition_id"])
}

func TestResolveUnknownReferenceIs404(t *testing.T) {
	h, _, _ := newTestHandler(&stubAPI{})
	rec := doRequest(t, h, http.MethodGet, "/api/sessions/resolve?reference=nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRequisitionNotFound(t *testing.T) {
	h, _, _ := newTestHandler(&stubAPI{})
	rec := doRequest(t, h, http.MethodGet, "/api/requisitions/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTransactionsRateLimitedIs429(t *testing.T) {
	h, _, _ := newTestHandler(&stubAPI{
		err: &provider.RateLimitError{Info: provider.RateLimitInfo{Summary: "daily limit", StatusCode: 429}},
	})
	rec := doRequest(t, h, http.MethodGet, "/api/requisitions/req-1/transactions", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Body.String(), "daily limit")
}

func TestGetCachedTransactions(t *testing.T) {
	h, _, cache := newTestHandler(&stubAPI{})
	rec := doRequest(t, h, http.MethodGet, "/api/transactions/cached/req-1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, cache.Set(context.Background(), "req-1", []byte(`[{"bookingDate":"2026-08-01","valueDate":"2026-08-01","transactionAmount":{"currency":"EUR","amount":"1.00"}}]`)))
	rec = doRequest(t, h, http.MethodGet, "/api/transactions/cached/req-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var txs []provider.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txs))
	require.Len(t, txs, 1)
}

func TestQuotaStatusEndpoint(t *testing.T) {
	h, _, _ := newTestHandler(&stubAPI{quota: &provider.QuotaStatus{RateLimited: true, Info: &provider.RateLimitInfo{RetryAfter: "60"}}})
	rec := doRequest(t, h, http.MethodGet, "/api/ratelimit", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status provider.QuotaStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.True(t, status.RateLimited)
	require.Equal(t, "60", status.Info.RetryAfter)
}
