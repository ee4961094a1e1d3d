package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/janekbaraniewski/codexusage/internal/core"
	"github.com/janekbaraniewski/codexusage/internal/parsers"
	"github.com/janekbaraniewski/codexusage/internal/version"
)

const (
	DefaultBaseURL    = "https://chatgpt.com/backend-api"
	DefaultRetryDelay = time.Second
	DefaultTimeout    = 30 * time.Second

	maxResponseSize = 1 << 20
)

type Status string

const (
	StatusOK               Status = "ok"
	StatusExpired          Status = "expired"
	StatusForbidden        Status = "forbidden"
	StatusError            Status = "error"
	StatusNoUsage          Status = "no_usage"
	StatusNoCodexAccess    Status = "no_codex_access"
	StatusMissingToken     Status = "missing_token"
	StatusMissingAccountID Status = "missing_account_id"
)

type Credentials struct {
	AccessToken string
	AccountID   string
}

// Result is the outcome of one usage query. Every outcome other than
// StatusOK leaves Usage nil.
type Result struct {
	Status   Status              `json:"status"`
	Message  string              `json:"message,omitempty"`
	PlanType string              `json:"plan_type,omitempty"`
	Usage    *core.UsageSnapshot `json:"usage,omitempty"`
}

type Options struct {
	BaseURL    string
	ProxyURL   string
	RetryDelay time.Duration
	Timeout    time.Duration
	Logger     zerolog.Logger
}

// Client queries the account usage endpoint.
type Client struct {
	baseURL    string
	retryDelay time.Duration
	http       *http.Client
	log        zerolog.Logger
	now        func() time.Time
}

func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	retryDelay := opts.RetryDelay
	if retryDelay < 0 {
		retryDelay = DefaultRetryDelay
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxy := strings.TrimSpace(opts.ProxyURL); proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q", proxy)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	return &Client{
		baseURL:    baseURL,
		retryDelay: retryDelay,
		http:       &http.Client{Transport: transport, Timeout: timeout},
		log:        opts.Logger,
		now:        time.Now,
	}, nil
}

func (c *Client) UsageURL() string {
	return c.baseURL + "/wham/usage"
}

// Fetch asks the remote service for the account's current windows.
// Transport failures are retried exactly once after the retry delay; HTTP
// error statuses are never retried. The returned error is non-nil only when
// ctx is done.
func (c *Client) Fetch(ctx context.Context, creds Credentials) (Result, error) {
	if strings.TrimSpace(creds.AccessToken) == "" {
		return Result{Status: StatusMissingToken, Message: "missing access token"}, nil
	}
	if strings.TrimSpace(creds.AccountID) == "" {
		return Result{Status: StatusMissingAccountID, Message: "missing ChatGPT account id"}, nil
	}

	resp, err := c.send(ctx, creds)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		c.log.Warn().Err(err).Dur("retry_in", c.retryDelay).Msg("usage request failed, retrying")

		timer := time.NewTimer(c.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{}, ctx.Err()
		case <-timer.C:
		}

		resp, err = c.send(ctx, creds)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			return Result{
				Status:  StatusError,
				Message: fmt.Sprintf("%s (after retry): %v", core.ErrTransport, err),
			}, nil
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Result{Status: StatusError, Message: fmt.Sprintf("reading usage response: %v", err)}, nil
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return Result{Status: StatusExpired, Message: "token expired or invalid"}, nil
	case resp.StatusCode == http.StatusForbidden:
		return Result{Status: StatusForbidden, Message: "account suspended or access denied"}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Result{Status: StatusError, Message: fmt.Sprintf("usage request failed: HTTP %d", resp.StatusCode)}, nil
	}

	return c.parseBody(body), nil
}

func (c *Client) send(ctx context.Context, creds Credentials) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.UsageURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating usage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("ChatGPT-Account-Id", creds.AccountID)
	req.Header.Set("User-Agent", version.UserAgent())
	return c.http.Do(req)
}

func (c *Client) parseBody(body []byte) Result {
	if !gjson.ValidBytes(body) {
		return Result{Status: StatusNoUsage, Message: "usage response is not valid JSON"}
	}
	doc := gjson.ParseBytes(body)
	planType := doc.Get("plan_type").String()

	if planType == "free" {
		return Result{Status: StatusNoCodexAccess, Message: fmt.Sprintf("no Codex access (plan: %s)", planType), PlanType: planType}
	}

	limits := doc.Get("rate_limit")
	if !limits.Exists() {
		limits = doc.Get("rate_limits")
	}
	if !limits.Exists() {
		return Result{Status: StatusNoUsage, Message: "missing rate_limit in response", PlanType: planType}
	}

	now := c.now()
	pair, err := parsers.ParseRateLimits(limits, now)
	if err != nil {
		return Result{Status: StatusNoUsage, Message: err.Error(), PlanType: planType}
	}

	snap := &core.UsageSnapshot{
		FiveHour:      pair.FiveHour,
		Weekly:        pair.Weekly,
		LastUpdatedMs: now.UnixMilli(),
	}
	if review := doc.Get("code_review_rate_limit"); review.Exists() {
		snap.CodeReview = parsers.ParseOptionalWindow(review, now)
	}
	return Result{Status: StatusOK, PlanType: planType, Usage: snap}
}
