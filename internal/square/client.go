package square

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/arityo/merchant-bridge/internal"
)

// Config carries the commerce provider credentials and environment.
type Config struct {
	BaseURL       string
	ApplicationID string
	Secret        string
	Scopes        string
	Timeout       time.Duration
}

// Client talks to the external commerce provider: the one-time code
// exchange plus the bearer-authenticated merchant, team and customer reads.
type Client struct {
	baseURL       string
	applicationID string
	secret        string
	scopes        string
	timeout       time.Duration
	httpClient    *http.Client
	logger        *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:       config.BaseURL,
		applicationID: config.ApplicationID,
		secret:        config.Secret,
		scopes:        config.Scopes,
		timeout:       timeout,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

// AuthorizeURL builds the provider authorization URL the browser is sent to.
func (c *Client) AuthorizeURL(state, redirectURI string) string {
	params := url.Values{}
	params.Add("client_id", c.applicationID)
	params.Add("response_type", "code")
	params.Add("state", state)
	if c.scopes != "" {
		params.Add("scope", c.scopes)
	}
	if redirectURI != "" {
		params.Add("redirect_uri", redirectURI)
	}
	return c.baseURL + "/oauth2/authorize?" + params.Encode()
}

// ObtainToken trades a one-time authorization code for an access token and
// merchant id. The code is single-use upstream: callers must not retry a
// successful exchange with the same code.
func (c *Client) ObtainToken(ctx context.Context, code, redirectURI string) (*TokenGrant, error) {
	payload := tokenRequest{
		ClientID:     c.applicationID,
		ClientSecret: c.secret,
		GrantType:    "authorization_code",
		Code:         code,
		RedirectURI:  redirectURI,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token request: %w", err)
	}

	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth2/token", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, internal.NewUpstreamError("token exchange request failed", internal.ErrCodeUpstreamAuth, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("token exchange rejected",
			"status_code", resp.StatusCode,
			"upstream_body", string(body))
		return nil, internal.NewUpstreamError(
			fmt.Sprintf("token exchange returned status %d", resp.StatusCode),
			internal.ErrCodeUpstreamAuth,
			string(body))
	}

	var grant TokenGrant
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	c.logger.Info("token exchange succeeded", "merchant_id", grant.MerchantID)
	return &grant, nil
}

// RetrieveMerchant fetches the merchant profile for the granted token.
func (c *Client) RetrieveMerchant(ctx context.Context, accessToken, merchantID string) (*Merchant, error) {
	var envelope merchantEnvelope
	endpoint := fmt.Sprintf("%s/v2/merchants/%s", c.baseURL, merchantID)
	if err := c.getJSON(ctx, accessToken, endpoint, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Merchant, nil
}

// ListTeamMembers pages through the merchant's staff records.
func (c *Client) ListTeamMembers(ctx context.Context, accessToken, merchantID string) ([]TeamMember, error) {
	var members []TeamMember
	cursor := ""

	for {
		endpoint := fmt.Sprintf("%s/v2/team-members?merchant_id=%s", c.baseURL, url.QueryEscape(merchantID))
		if cursor != "" {
			endpoint += "&cursor=" + url.QueryEscape(cursor)
		}

		var envelope teamMembersEnvelope
		if err := c.getJSON(ctx, accessToken, endpoint, &envelope); err != nil {
			return nil, err
		}

		members = append(members, envelope.TeamMembers...)
		if envelope.Cursor == "" {
			return members, nil
		}
		cursor = envelope.Cursor
	}
}

// ListCustomers pages through the merchant's customer directory.
func (c *Client) ListCustomers(ctx context.Context, accessToken string) ([]Customer, error) {
	var customers []Customer
	cursor := ""

	for {
		endpoint := c.baseURL + "/v2/customers"
		if cursor != "" {
			endpoint += "?cursor=" + url.QueryEscape(cursor)
		}

		var envelope customersEnvelope
		if err := c.getJSON(ctx, accessToken, endpoint, &envelope); err != nil {
			return nil, err
		}

		customers = append(customers, envelope.Customers...)
		if envelope.Cursor == "" {
			return customers, nil
		}
		cursor = envelope.Cursor
	}
}

func (c *Client) getJSON(ctx context.Context, accessToken, endpoint string, out interface{}) error {
	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Warn("provider returned non-OK status",
			"endpoint", endpoint,
			"status_code", resp.StatusCode,
			"upstream_body", string(body))
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}
