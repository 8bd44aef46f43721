package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/billyapp/bankfeed/pkg/common/logger"
)

// DefaultBaseURL is the production endpoint of the bank account data API.
const DefaultBaseURL = "https://bankaccountdata.gocardless.com/api/v2"

// defaultRequestDelay is the blanket throttle inserted before every
// authenticated call. The transactions endpoint allows 4 calls/day, so a
// fixed pause is cheaper than ever tripping the provider's own limiter.
const defaultRequestDelay = 1 * time.Second

const requestTimeout = 30 * time.Second

// Config holds the credential pair and endpoint settings for a Client.
type Config struct {
	BaseURL   string
	SecretID  string
	SecretKey string

	// RequestDelay overrides the pacing delay. Zero means the default;
	// negative disables pacing (tests).
	RequestDelay time.Duration

	// HTTPClient overrides the default client with its bounded timeout.
	HTTPClient *http.Client
}

// Client talks to the provider. It owns the single credential pair of the
// deployment, the current token state and the request pacing, so one
// instance must be shared by all callers.
type Client struct {
	baseURL    string
	secretID   string
	secretKey  string
	httpClient *http.Client
	delay      time.Duration

	// token state, guarded by mu so concurrent callers cannot race a
	// refresh against a full reissue
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	tokenExpiry  time.Time

	// paceMu serializes the inter-call delay across callers; the quota is
	// global to the credential pair, not per caller
	paceMu sync.Mutex
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	delay := cfg.RequestDelay
	if delay == 0 {
		delay = defaultRequestDelay
	} else if delay < 0 {
		delay = 0
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{
		baseURL:    baseURL,
		secretID:   cfg.SecretID,
		secretKey:  cfg.SecretKey,
		httpClient: httpClient,
		delay:      delay,
	}
}

// pace blocks for the configured delay, one caller at a time.
func (c *Client) pace(ctx context.Context) error {
	c.paceMu.Lock()
	defer c.paceMu.Unlock()
	if c.delay <= 0 {
		return nil
	}
	t := time.NewTimer(c.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// execute performs one authenticated call: pace, acquire token, issue the
// request, classify the status, decode JSON into out (when non-nil).
func (c *Client) execute(ctx context.Context, method, path string, body, out any) error {
	if err := c.pace(ctx); err != nil {
		return err
	}

	token, err := c.acquireToken(ctx)
	if err != nil {
		return err
	}

	resp, err := c.doAuthenticated(ctx, method, path, body, token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		info := parseRateLimitInfo(resp)
		logger.Error("provider rate limit exceeded on %s: %+v", path, info)
		return &RateLimitError{Info: info}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return decodeJSON(resp, out)
}

func (c *Client) doAuthenticated(ctx context.Context, method, path string, body any, token string) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return c.httpClient.Do(req)
}

// doJSON issues an unauthenticated JSON call (token endpoints).
func (c *Client) doJSON(ctx context.Context, method, path string, body any) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s request: %w", path, err)
		}
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func decodeJSON(resp *http.Response, out any) error {
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", resp.Request.URL.Path, err)
	}
	return nil
}

// parseRateLimitInfo prefers the JSON error body; when that is not JSON it
// falls back to the rate-limit headers.
func parseRateLimitInfo(resp *http.Response) RateLimitInfo {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var info RateLimitInfo
	if err := json.Unmarshal(raw, &info); err == nil && (info.Summary != "" || info.Detail != "" || info.StatusCode != 0) {
		return info
	}
	return RateLimitInfo{
		RetryAfter:         resp.Header.Get("Retry-After"),
		RateLimitRemaining: resp.Header.Get("X-RateLimit-Remaining"),
		RateLimitReset:     resp.Header.Get("X-RateLimit-Reset"),
	}
}

// CheckRateLimit probes the provider without spending the pacing delay.
// With a requisitionID it exercises the requisition endpoint (same family as
// the quota-limited transactions endpoint), otherwise the institutions list.
// Only a 429 counts as limited.
func (c *Client) CheckRateLimit(ctx context.Context, requisitionID string) (*QuotaStatus, error) {
	token, err := c.acquireToken(ctx)
	if err != nil {
		return nil, err
	}

	path := "/institutions/?country=gb"
	if requisitionID != "" {
		path = "/requisitions/" + requisitionID + "/"
	}

	resp, err := c.doAuthenticated(ctx, http.MethodGet, path, nil, token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		info := parseRateLimitInfo(resp)
		return &QuotaStatus{RateLimited: true, Info: &info}, nil
	}
	return &QuotaStatus{RateLimited: false}, nil
}
