package provider

// Wire types for the GoCardless Bank Account Data API v2. Field names and
// JSON tags follow the provider payloads exactly.

type tokenRequest struct {
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
}

type tokenResponse struct {
	Access         string `json:"access"`
	AccessExpires  int64  `json:"access_expires"`
	Refresh        string `json:"refresh"`
	RefreshExpires int64  `json:"refresh_expires"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access        string `json:"access"`
	AccessExpires int64  `json:"access_expires"`
}

// Institution is a bank queryable per country.
type Institution struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name"`
	BIC                   string   `json:"bic"`
	TransactionTotalDays  string   `json:"transaction_total_days"`
	Countries             []string `json:"countries"`
	Logo                  string   `json:"logo"`
	MaxAccessValidForDays string   `json:"max_access_valid_for_days"`
}

type agreementRequest struct {
	InstitutionID      string   `json:"institution_id"`
	MaxHistoricalDays  int      `json:"max_historical_days"`
	AccessValidForDays int      `json:"access_valid_for_days"`
	AccessScope        []string `json:"access_scope"`
}

// Agreement is an end-user agreement with custom access terms.
type Agreement struct {
	ID                 string   `json:"id"`
	Created            string   `json:"created"`
	Accepted           string   `json:"accepted,omitempty"`
	InstitutionID      string   `json:"institution_id"`
	MaxHistoricalDays  int      `json:"max_historical_days"`
	AccessValidForDays int      `json:"access_valid_for_days"`
	AccessScope        []string `json:"access_scope"`
	Status             string   `json:"status"`
}

type requisitionRequest struct {
	Redirect      string `json:"redirect"`
	InstitutionID string `json:"institution_id"`
	Reference     string `json:"reference"`
	Agreement     string `json:"agreement,omitempty"`
	UserLanguage  string `json:"user_language"`
}

// Requisition is the provider-side handle for one bank-linking session.
// Accounts stays empty until the user completes the bank's auth flow.
type Requisition struct {
	ID            string   `json:"id"`
	Created       string   `json:"created"`
	Redirect      string   `json:"redirect"`
	Status        string   `json:"status"`
	InstitutionID string   `json:"institution_id"`
	Agreement     string   `json:"agreement,omitempty"`
	Reference     string   `json:"reference"`
	Accounts      []string `json:"accounts"`
	UserLanguage  string   `json:"user_language"`
	Link          string   `json:"link"`
}

// Amount is a money value as the provider sends it: a decimal string plus
// currency code. Never converted to floats.
type Amount struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// Transaction is one booked or pending bank transaction.
type Transaction struct {
	EntryReference                         string   `json:"entryReference,omitempty"`
	InternalTransactionID                  string   `json:"internalTransactionId,omitempty"`
	DebtorName                             string   `json:"debtorName,omitempty"`
	DebtorAccount                          *IBAN    `json:"debtorAccount,omitempty"`
	TransactionAmount                      Amount   `json:"transactionAmount"`
	BookingDate                            string   `json:"bookingDate"`
	ValueDate                              string   `json:"valueDate"`
	RemittanceInformationUnstructured      string   `json:"remittanceInformationUnstructured,omitempty"`
	RemittanceInformationUnstructuredArray []string `json:"remittanceInformationUnstructuredArray,omitempty"`
	BankTransactionCode                    string   `json:"bankTransactionCode,omitempty"`
}

type IBAN struct {
	IBAN string `json:"iban"`
}

// TransactionsResponse is the envelope of GET /accounts/{id}/transactions/.
type TransactionsResponse struct {
	Transactions struct {
		Booked  []Transaction `json:"booked"`
		Pending []Transaction `json:"pending,omitempty"`
	} `json:"transactions"`
}

// QuotaStatus reports the outcome of a rate-limit probe.
type QuotaStatus struct {
	RateLimited bool           `json:"rate_limited"`
	Info        *RateLimitInfo `json:"info,omitempty"`
	Error       string         `json:"error,omitempty"`
}
