// Package sirix provides bearer-authenticated access to the SiRiX trader
// REST API for per-user balance lookups.
package sirix

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lionvest/crmrecon/internal/resilience"
)

const (
	defaultBaseURL = "https://restapi-real3.sirixtrader.com"
	userStatusPath = "/api/UserStatus/GetUserTransactions"
)

// Client fetches live balance data for a platform user.
type Client interface {
	UserBalance(ctx context.Context, userID string) (*AccountBalance, error)
}

// AccountBalance holds the nested balance object of a user-status reply.
// Fields are pointers: the API omits them for inactive accounts.
type AccountBalance struct {
	Balance *float64 `json:"Balance"`
	Equity  *float64 `json:"Equity"`
	OpenPnL *float64 `json:"OpenPnL"`
}

// userStatusRequest is the request body for POST /api/UserStatus/GetUserTransactions.
// The position flags stay false to keep the payload small; only the balance
// object is wanted.
type userStatusRequest struct {
	UserID                  string `json:"UserID"`
	GetOpenPositions        bool   `json:"GetOpenPositions"`
	GetPendingPositions     bool   `json:"GetPendingPositions"`
	GetClosePositions       bool   `json:"GetClosePositions"`
	GetMonetaryTransactions bool   `json:"GetMonetaryTransactions"`
}

type userStatusResponse struct {
	UserData *struct {
		AccountBalance *AccountBalance `json:"AccountBalance"`
	} `json:"UserData"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetry overrides the default retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithMonetaryTransactions asks the API to include monetary-transaction
// detail in replies. Off by default to minimize payload size.
func WithMonetaryTransactions(include bool) Option {
	return func(c *httpClient) {
		c.includeMonetary = include
	}
}

type httpClient struct {
	token           string
	baseURL         string
	http            *http.Client
	retry           resilience.RetryConfig
	includeMonetary bool
}

// NewClient creates a SiRiX API client.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 12 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// UserBalance fetches Balance/Equity/OpenPnL for one user id. HTTP 429,
// 5xx and timeouts are retried with exponential backoff; any other non-200
// status fails immediately. A 200 reply without an AccountBalance object
// yields an empty result with a warning, not an error.
func (c *httpClient) UserBalance(ctx context.Context, userID string) (*AccountBalance, error) {
	cfg := c.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("sirix", "user_balance")
	}

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*AccountBalance, error) {
		return c.fetch(ctx, userID)
	})
}

func (c *httpClient) fetch(ctx context.Context, userID string) (*AccountBalance, error) {
	body, err := json.Marshal(userStatusRequest{
		UserID:                  userID,
		GetMonetaryTransactions: c.includeMonetary,
	})
	if err != nil {
		return nil, eris.Wrap(err, "sirix: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+userStatusPath, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "sirix: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport errors include timeouts; let the retry policy decide.
		return nil, eris.Wrap(err, "sirix: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "sirix: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("sirix: unexpected status %d: %s", resp.StatusCode, snippet(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var status userStatusResponse
	if err := json.Unmarshal(respBody, &status); err != nil {
		return nil, eris.Wrap(err, "sirix: unmarshal response")
	}

	if status.UserData == nil || status.UserData.AccountBalance == nil {
		zap.L().Warn("sirix reply has no AccountBalance",
			zap.String("user_id", userID),
		)
		return &AccountBalance{}, nil
	}

	return status.UserData.AccountBalance, nil
}

func snippet(b []byte) string {
	const maxLen = 200
	if len(b) > maxLen {
		b = b[:maxLen]
	}
	return string(b)
}
