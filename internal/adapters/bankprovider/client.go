// Package bankprovider wraps the bank data provider's HTTP API: the OAuth
// authorize/token endpoints and the paginated transactions list.
package bankprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/rentbooks/property_management_app/internal/apperrors"
)

const (
	defaultTimeout = 60 * time.Second

	accountsPath     = "/accounts"
	transactionsPath = "/transactions"
)

// Client talks to the provider API. All calls are bearer-token authenticated
// with a token obtained through the OAuth flow.
type Client struct {
	httpClient *http.Client
	oauthCfg   *oauth2.Config
	baseURL    string
}

// Config carries the provider credentials and endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	APIBaseURL   string
	AuthURL      string
	TokenURL     string
}

// NewClient creates a provider client. Returns ErrOAuthConfigMissing when the
// OAuth credentials are not configured.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, apperrors.ErrOAuthConfigMissing
	}

	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    cfg.APIBaseURL,
		oauthCfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
	}, nil
}

// AuthCodeURL returns the provider authorization URL embedding state.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauthCfg.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := c.oauthCfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrOAuthExchangeFailed, err)
	}
	return token, nil
}

// RefreshToken obtains a fresh access token from a refresh token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := c.oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrOAuthExchangeFailed, err)
	}
	return token, nil
}

// Account is a provider bank account.
type Account struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Currency    string `json:"currency"`
	Created     string `json:"created"`
}

// Transaction is a raw provider transaction. Amounts are signed strings in
// the account currency.
type Transaction struct {
	ID           string  `json:"id"`
	AccountID    string  `json:"account_id"`
	Amount       string  `json:"amount"`
	Currency     string  `json:"currency"`
	Description  string  `json:"description"`
	Counterparty string  `json:"counterparty_name"`
	Merchant     string  `json:"merchant"`
	Reference    string  `json:"reference"`
	Category     string  `json:"category"`
	Created      string  `json:"created"`
	Settled      *string `json:"settled"`
}

// GetCreated parses the transaction's created timestamp.
func (t *Transaction) GetCreated() (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, t.Created)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse created '%s': %w", t.Created, err)
	}
	return parsed, nil
}

// GetSettled parses the settlement timestamp if present.
func (t *Transaction) GetSettled() (*time.Time, error) {
	if t.Settled == nil || *t.Settled == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, *t.Settled)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settled '%s': %w", *t.Settled, err)
	}
	return &parsed, nil
}

type accountsResponse struct {
	Accounts []Account `json:"accounts"`
}

type transactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GetAccounts lists the accounts the token grants access to. The call only
// succeeds after the user has approved the connection in the provider's app,
// which makes it the SCA verification probe.
func (c *Client) GetAccounts(ctx context.Context, accessToken string) ([]Account, error) {
	var resp accountsResponse
	if err := c.get(ctx, accessToken, c.baseURL+accountsPath, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

// ListTransactions fetches one page of transactions for accountID, newest
// first bounded by before (exclusive) and since (inclusive floor). A page
// shorter than limit means there are no older transactions left.
func (c *Client) ListTransactions(ctx context.Context, accessToken, accountID string, since time.Time, limit int, before *time.Time) ([]Transaction, error) {
	params := url.Values{}
	params.Set("account_id", accountID)
	params.Set("since", since.UTC().Format(time.RFC3339))
	params.Set("limit", strconv.Itoa(limit))
	if before != nil {
		params.Set("before", before.UTC().Format(time.RFC3339))
	}

	var resp transactionsResponse
	if err := c.get(ctx, accessToken, c.baseURL+transactionsPath+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

func (c *Client) get(ctx context.Context, accessToken, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w (status %d)", apperrors.ErrProviderUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return fmt.Errorf("provider request failed with status %d: %s", resp.StatusCode, string(body))
		}
		return fmt.Errorf("provider error (status %d): %s - %s", resp.StatusCode, errResp.Code, errResp.Message)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
