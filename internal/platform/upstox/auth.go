package upstox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tradewire/ictbot/internal/domain"
)

// AuthorizeURL returns the Upstox authorization dialog URL the operator is
// redirected to when bootstrapping a credential.
func (c *Client) AuthorizeURL() string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.cfg.APIKey)
	q.Set("redirect_uri", c.cfg.RedirectURI)
	return c.cfg.BaseURL + "/login/authorization/dialog?" + q.Encode()
}

// ExchangeToken trades an authorization code for an access token. The
// returned credential carries the issuance time; persisting it is the
// caller's concern.
func (c *Client) ExchangeToken(ctx context.Context, code string) (domain.Credential, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", c.cfg.APIKey)
	form.Set("client_secret", c.cfg.APISecret)
	form.Set("redirect_uri", c.cfg.RedirectURI)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/login/authorization/token",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("upstox: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("upstox: token exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("upstox: read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Credential{}, fmt.Errorf("upstox: token exchange: HTTP %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return domain.Credential{}, fmt.Errorf("upstox: decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return domain.Credential{}, fmt.Errorf("upstox: token exchange: empty access token")
	}

	return domain.Credential{
		Token:    tok.AccessToken,
		IssuedAt: time.Now(),
	}, nil
}
