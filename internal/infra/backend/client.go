package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/yanqian/points-dashboard/internal/domain/dashboard"
	apperrors "github.com/yanqian/points-dashboard/pkg/errors"
)

const (
	defaultBaseURL = "http://localhost:8000"
	maxErrorBody   = 4 << 10
)

// Options configures the points backend client.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	RatePerSec  float64
	Burst       int
	MaxAttempts int
	BaseBackoff time.Duration
}

// Client talks to the points backend on behalf of a signed-in user.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
	logger      *slog.Logger
}

var _ dashboard.RemoteClient = (*Client)(nil)

// NewClient builds a backend client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		rateLimiter: rate.NewLimiter(limit, burst),
		maxAttempts: attempts,
		baseBackoff: opts.BaseBackoff,
		logger:      logger.With("component", "backend.client"),
	}
}

func (c *Client) ActivityFeed(ctx context.Context, token string) (json.RawMessage, error) {
	return c.get(ctx, "/api/v1/points/activity-feed", nil, token)
}

func (c *Client) LegacyActivities(ctx context.Context, token string) (json.RawMessage, error) {
	return c.get(ctx, "/api/v1/points/activities", nil, token)
}

func (c *Client) LegacyRedemptions(ctx context.Context, token string) (json.RawMessage, error) {
	return c.get(ctx, "/api/v1/points/redemptions", nil, token)
}

func (c *Client) PointsTimeline(ctx context.Context, granularity string, days int, token string) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("granularity", granularity)
	query.Set("days", strconv.Itoa(days))
	return c.get(ctx, "/api/v1/points/timeline", query, token)
}

func (c *Client) DashboardStats(ctx context.Context, period, token string) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("period", period)
	return c.get(ctx, "/api/v1/points/dashboard-stats", query, token)
}

func (c *Client) AvailableRewards(ctx context.Context, token string) (json.RawMessage, error) {
	return c.get(ctx, "/api/v1/rewards", nil, token)
}

// RedeemReward is never retried: the backend may have applied the spend
// even when the response was lost.
func (c *Client) RedeemReward(ctx context.Context, rewardID int64, token string) (json.RawMessage, error) {
	path := fmt.Sprintf("/api/v1/rewards/%d/redeem", rewardID)
	return c.do(ctx, http.MethodPost, path, nil, []byte(`{}`), token)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, token string) (json.RawMessage, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		body, err := c.do(ctx, http.MethodGet, path, query, nil, token)
		if err == nil || !retryable(err) || attempt == c.maxAttempts {
			return body, err
		}
		lastErr = err
		backoff := c.baseBackoff * time.Duration(1<<(attempt-1))
		c.logger.Debug("retrying backend call", "path", path, "attempt", attempt, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return nil, apperrors.Wrap(apperrors.CodeNetwork, "backend request cancelled", ctx.Err())
		case <-time.After(backoff):
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte, token string) (json.RawMessage, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeNetwork, "backend rate limit wait aborted", err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeNetwork, "backend unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("backend call failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"latency_ms", time.Since(start).Milliseconds())
		return nil, &statusError{status: resp.StatusCode, err: apperrors.Wrap(apperrors.CodeRemote, remoteMessage(resp.StatusCode, detail), nil)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeNetwork, "read backend response", err)
	}
	c.logger.Debug("backend call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds())
	return json.RawMessage(body), nil
}

// statusError keeps the HTTP status next to the remote AppError so retries
// can tell 5xx from 4xx.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

// StatusOf returns the backend HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.status
	}
	return 0
}

func retryable(err error) bool {
	if apperrors.IsCode(err, apperrors.CodeNetwork) {
		return true
	}
	return StatusOf(err) >= http.StatusInternalServerError
}

// remoteMessage surfaces the backend's own error text when it sent one.
func remoteMessage(status int, body []byte) string {
	var payload struct {
		Error  json.RawMessage `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, field := range []json.RawMessage{payload.Error, payload.Detail} {
			var msg string
			if err := json.Unmarshal(field, &msg); err == nil && strings.TrimSpace(msg) != "" {
				return msg
			}
		}
	}
	return fmt.Sprintf("backend returned status %d", status)
}
