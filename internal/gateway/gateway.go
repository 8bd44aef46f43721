package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/billyapp/bankfeed/internal/provider"
	"github.com/billyapp/bankfeed/pkg/common/logger"
	requisitionRepo "github.com/billyapp/bankfeed/pkg/repositories/requisition"
	txcacheRepo "github.com/billyapp/bankfeed/pkg/repositories/txcache"
	"github.com/google/uuid"
)

// defaultMaxCacheAge is the freshness window after which a cache read is
// logged as stale. Stale data is still served: with 4 provider calls a day,
// old data beats no data.
const defaultMaxCacheAge = 12 * time.Hour

// sandboxInstitutionID is the provider's always-available test bank.
const sandboxInstitutionID = "SANDBOXFINANCE_SFIN0000"

// callbackPath is appended to the app base URL as the requisition redirect.
const callbackPath = "/gocardless/callback"

// BankAPI is the slice of the provider client the gateway drives.
type BankAPI interface {
	Institutions(ctx context.Context, country string) ([]provider.Institution, error)
	CreateEndUserAgreement(ctx context.Context, institutionID string) (*provider.Agreement, error)
	Agreement(ctx context.Context, agreementID string) (*provider.Agreement, error)
	CreateRequisition(ctx context.Context, p provider.CreateRequisitionParams) (*provider.Requisition, error)
	Requisition(ctx context.Context, requisitionID string) (*provider.Requisition, error)
	Transactions(ctx context.Context, accountID string) (*provider.TransactionsResponse, error)
	CheckRateLimit(ctx context.Context, requisitionID string) (*provider.QuotaStatus, error)
}

// LinkSession is the outcome of starting a bank-linking flow.
type LinkSession struct {
	Link          string `json:"link"`
	RequisitionID string `json:"requisition_id"`
	ReferenceID   string `json:"reference_id"`
}

// ConnectionStatus reports a provider connectivity test.
type ConnectionStatus struct {
	Success           bool   `json:"success"`
	InstitutionsCount int    `json:"institutions_count,omitempty"`
	HasSandbox        bool   `json:"has_sandbox,omitempty"`
	Error             string `json:"error,omitempty"`
}

// Gateway composes the provider client, the reference mapping store and the
// transaction cache into the operations the rest of the system calls. One
// instance owns these for the process lifetime.
type Gateway struct {
	api         BankAPI
	mappings    requisitionRepo.Repository
	cache       txcacheRepo.Repository
	appBaseURL  string
	maxCacheAge time.Duration
}

type Option func(*Gateway)

// WithMaxCacheAge overrides the staleness window used on cache reads.
func WithMaxCacheAge(d time.Duration) Option {
	return func(g *Gateway) { g.maxCacheAge = d }
}

func New(api BankAPI, mappings requisitionRepo.Repository, cache txcacheRepo.Repository, appBaseURL string, opts ...Option) *Gateway {
	g := &Gateway{
		api:         api,
		mappings:    mappings,
		cache:       cache,
		appBaseURL:  strings.TrimRight(appBaseURL, "/"),
		maxCacheAge: defaultMaxCacheAge,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ListInstitutions returns the banks available in a country.
func (g *Gateway) ListInstitutions(ctx context.Context, country string) ([]provider.Institution, error) {
	institutions, err := g.api.Institutions(ctx, country)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch institutions: %w", err)
	}
	return institutions, nil
}

// CreateLinkSession starts a bank-linking flow: a fresh reference id, a
// best-effort end-user agreement, a requisition bound to the reference, and
// the durable reference→requisition mapping. The returned Link is where the
// user authenticates with their bank.
func (g *Gateway) CreateLinkSession(ctx context.Context, institutionID string) (*LinkSession, error) {
	referenceID := uuid.NewString()
	redirectURL := g.appBaseURL + callbackPath

	// Agreement creation is optional: on failure the requisition proceeds
	// with the provider's default terms.
	var agreementID string
	if agreement, err := g.api.CreateEndUserAgreement(ctx, institutionID); err != nil {
		logger.Warn("end-user agreement creation failed, using provider default terms: %v", err)
	} else {
		agreementID = agreement.ID
	}

	req, err := g.api.CreateRequisition(ctx, provider.CreateRequisitionParams{
		InstitutionID: institutionID,
		Reference:     referenceID,
		RedirectURL:   redirectURL,
		AgreementID:   agreementID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bank session: %w", err)
	}

	if err := g.mappings.SaveMapping(ctx, referenceID, req.ID); err != nil {
		return nil, fmt.Errorf("failed to store requisition mapping: %w", err)
	}

	logger.Info("bank session created: requisition=%s institution=%s", req.ID, institutionID)
	return &LinkSession{Link: req.Link, RequisitionID: req.ID, ReferenceID: referenceID}, nil
}

// ResolveReferenceID maps a callback reference back to its requisition id.
func (g *Gateway) ResolveReferenceID(ctx context.Context, referenceID string) (string, bool, error) {
	return g.mappings.RequisitionIDByReference(ctx, referenceID)
}

// RequisitionExists fetches a requisition, returning nil (no error) when the
// provider does not know it.
func (g *Gateway) RequisitionExists(ctx context.Context, requisitionID string) (*provider.Requisition, error) {
	req, err := g.api.Requisition(ctx, requisitionID)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return req, nil
}

// GetAgreement fetches an end-user agreement by id.
func (g *Gateway) GetAgreement(ctx context.Context, agreementID string) (*provider.Agreement, error) {
	agreement, err := g.api.Agreement(ctx, agreementID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch agreement details: %w", err)
	}
	return agreement, nil
}

// GetTransactions returns the booked transactions of a requisition's first
// linked account. Unless forceRefresh is set, an existing cache entry of any
// age is returned without any provider call; the fetch path spends two of
// the scarce daily calls (requisition + transactions) and overwrites the
// cache.
func (g *Gateway) GetTransactions(ctx context.Context, requisitionID string, forceRefresh bool) ([]provider.Transaction, error) {
	if !forceRefresh {
		txs, ok, err := g.CachedTransactions(ctx, requisitionID)
		if err != nil {
			return nil, err
		}
		if ok {
			return txs, nil
		}
		logger.Info("no cached transactions for requisition %s, spending provider quota", requisitionID)
	} else {
		logger.Info("force refresh requested for requisition %s, spending provider quota", requisitionID)
	}

	req, err := g.api.Requisition(ctx, requisitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch requisition: %w", err)
	}
	if len(req.Accounts) == 0 {
		// A requisition can exist with zero completed account links.
		logger.Info("requisition %s has no linked accounts yet", requisitionID)
		return []provider.Transaction{}, nil
	}

	accountID := req.Accounts[0]
	resp, err := g.api.Transactions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	booked := resp.Transactions.Booked
	if booked == nil {
		booked = []provider.Transaction{}
	}

	data, err := json.Marshal(booked)
	if err != nil {
		return nil, fmt.Errorf("encoding transactions for cache: %w", err)
	}
	if err := g.cache.Set(ctx, requisitionID, data); err != nil {
		return nil, fmt.Errorf("failed to cache transactions: %w", err)
	}
	logger.Info("cached %d booked transactions for requisition %s", len(booked), requisitionID)

	return booked, nil
}

// CachedTransactions reads the cache without ever contacting the provider.
// Entries older than the staleness window are served anyway, with a warning.
func (g *Gateway) CachedTransactions(ctx context.Context, requisitionID string) ([]provider.Transaction, bool, error) {
	entry, err := g.cache.Get(ctx, requisitionID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read transaction cache: %w", err)
	}
	if entry == nil {
		return nil, false, nil
	}

	age := time.Since(entry.Timestamp)
	if age > g.maxCacheAge {
		logger.Warn("serving stale cached transactions for requisition %s (age %.1fh, limit %.1fh)",
			requisitionID, age.Hours(), g.maxCacheAge.Hours())
	} else {
		logger.Debug("serving cached transactions for requisition %s (age %.1fh)", requisitionID, age.Hours())
	}

	var txs []provider.Transaction
	if err := json.Unmarshal(entry.Data, &txs); err != nil {
		return nil, false, fmt.Errorf("decoding cached transactions: %w", err)
	}
	if txs == nil {
		txs = []provider.Transaction{}
	}
	return txs, true, nil
}

// CheckQuotaStatus probes the provider for rate limiting, preferring a real
// stored requisition so the transactions endpoint family is exercised. Any
// probe failure is reported as rate-limited with the error attached.
func (g *Gateway) CheckQuotaStatus(ctx context.Context) *provider.QuotaStatus {
	requisitionID, ok, err := g.mappings.AnyRequisitionID(ctx)
	if err != nil {
		logger.Error("reading stored requisitions for quota probe: %v", err)
		return &provider.QuotaStatus{RateLimited: true, Error: err.Error()}
	}
	if !ok {
		requisitionID = ""
	}

	status, err := g.api.CheckRateLimit(ctx, requisitionID)
	if err != nil {
		logger.Error("quota probe failed: %v", err)
		return &provider.QuotaStatus{RateLimited: true, Error: err.Error()}
	}
	return status
}

// TestConnection verifies credentials and reachability via the institutions
// endpoint and reports whether the sandbox bank is available.
func (g *Gateway) TestConnection(ctx context.Context) *ConnectionStatus {
	institutions, err := g.api.Institutions(ctx, "gb")
	if err != nil {
		return &ConnectionStatus{Success: false, Error: err.Error()}
	}
	status := &ConnectionStatus{Success: true, InstitutionsCount: len(institutions)}
	for _, inst := range institutions {
		if inst.ID == sandboxInstitutionID {
			status.HasSandbox = true
			break
		}
	}
	return status
}
