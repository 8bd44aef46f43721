package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/billyapp/bankfeed/pkg/common/logger"
)

// expiryBuffer keeps us from sending a token that expires mid-flight.
const expiryBuffer = 60 * time.Second

// acquireToken returns a usable access token, walking the three-tier
// fallback: reuse while valid, refresh when expired, full credential
// exchange when refresh is absent or fails. A refresh failure is silent;
// a reissue failure resets the whole token state and is fatal for the call.
func (c *Client) acquireToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if c.accessToken != "" && now.Before(c.tokenExpiry.Add(-expiryBuffer)) {
		return c.accessToken, nil
	}

	if c.refreshToken != "" && now.After(c.tokenExpiry) {
		if err := c.refreshLocked(ctx); err != nil {
			logger.Warn("token refresh failed, minting a new token: %v", err)
		} else {
			return c.accessToken, nil
		}
	}

	if err := c.reissueLocked(ctx); err != nil {
		c.accessToken = ""
		c.refreshToken = ""
		c.tokenExpiry = time.Time{}
		logger.Error("token issuance failed, token state reset: %v", err)
		return "", &AuthError{Err: err}
	}
	return c.accessToken, nil
}

// refreshLocked exchanges the refresh token for a new access token. The
// refresh token is reused, not rotated. Caller holds c.mu.
func (c *Client) refreshLocked(ctx context.Context) error {
	var out refreshResponse
	if err := c.doToken(ctx, "/token/refresh/", refreshRequest{Refresh: c.refreshToken}, &out); err != nil {
		return err
	}
	c.accessToken = out.Access
	c.tokenExpiry = time.Now().Add(time.Duration(out.AccessExpires) * time.Second)
	logger.Debug("access token refreshed, expires in %ds", out.AccessExpires)
	return nil
}

// reissueLocked performs the full credential exchange. Caller holds c.mu.
func (c *Client) reissueLocked(ctx context.Context) error {
	var out tokenResponse
	if err := c.doToken(ctx, "/token/new/", tokenRequest{SecretID: c.secretID, SecretKey: c.secretKey}, &out); err != nil {
		return err
	}
	c.accessToken = out.Access
	c.refreshToken = out.Refresh
	c.tokenExpiry = time.Now().Add(time.Duration(out.AccessExpires) * time.Second)
	logger.Debug("access token issued, expires in %ds", out.AccessExpires)
	return nil
}

// doToken posts to the token endpoints. These calls are unauthenticated and
// not paced: they do not count against the data quota.
func (c *Client) doToken(ctx context.Context, path string, body, out any) error {
	resp, err := c.doJSON(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return decodeJSON(resp, out)
}
