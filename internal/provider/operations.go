package provider

import (
	"context"
	"net/http"
	"net/url"
)

// Agreement defaults mirror the terms the app has always requested.
const (
	agreementMaxHistoricalDays  = 90
	agreementAccessValidForDays = 90
)

var agreementAccessScope = []string{"balances", "details", "transactions"}

// Institutions lists the banks available in a country (ISO 3166 code).
func (c *Client) Institutions(ctx context.Context, country string) ([]Institution, error) {
	var out []Institution
	path := "/institutions/?country=" + url.QueryEscape(country)
	if err := c.execute(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateEndUserAgreement creates an agreement with our custom access terms.
func (c *Client) CreateEndUserAgreement(ctx context.Context, institutionID string) (*Agreement, error) {
	body := agreementRequest{
		InstitutionID:      institutionID,
		MaxHistoricalDays:  agreementMaxHistoricalDays,
		AccessValidForDays: agreementAccessValidForDays,
		AccessScope:        agreementAccessScope,
	}
	var out Agreement
	if err := c.execute(ctx, http.MethodPost, "/agreements/enduser/", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Agreement fetches an end-user agreement by id.
func (c *Client) Agreement(ctx context.Context, agreementID string) (*Agreement, error) {
	var out Agreement
	path := "/agreements/enduser/" + url.PathEscape(agreementID) + "/"
	if err := c.execute(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRequisitionParams binds a new requisition to a caller-chosen
// reference so the redirect callback can be resolved later.
type CreateRequisitionParams struct {
	InstitutionID string
	Reference     string
	RedirectURL   string
	AgreementID   string // optional; empty means provider default terms
}

// CreateRequisition starts a bank-linking session and returns the redirect
// link the user must visit.
func (c *Client) CreateRequisition(ctx context.Context, p CreateRequisitionParams) (*Requisition, error) {
	body := requisitionRequest{
		Redirect:      p.RedirectURL,
		InstitutionID: p.InstitutionID,
		Reference:     p.Reference,
		Agreement:     p.AgreementID,
		UserLanguage:  "FR",
	}
	var out Requisition
	if err := c.execute(ctx, http.MethodPost, "/requisitions/", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Requisition fetches a requisition, including its linked account ids.
func (c *Client) Requisition(ctx context.Context, requisitionID string) (*Requisition, error) {
	var out Requisition
	path := "/requisitions/" + url.PathEscape(requisitionID) + "/"
	if err := c.execute(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transactions fetches the transaction list of one account. This endpoint
// carries the 4-calls/day quota.
func (c *Client) Transactions(ctx context.Context, accountID string) (*TransactionsResponse, error) {
	var out TransactionsResponse
	path := "/accounts/" + url.PathEscape(accountID) + "/transactions/"
	if err := c.execute(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
