package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/warlaundry/washerman/internal/domain"
	"github.com/warlaundry/washerman/internal/metrics"
)

const (
	DefaultBaseURL = "http://localhost:8000/api"
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 64 << 10
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit is outbound requests per second; zero means unlimited.
	RateLimit float64
	Burst     int
}

// Client talks to the remote order service. A Client without a token can only log in.
type Client struct {
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	validate *validator.Validate
	metrics  metrics.MetricsProvider
	log      *zap.Logger
	token    string
}

func NewClient(cfg Config, m metrics.MetricsProvider, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if m == nil {
		m = metrics.NewNoOpProvider()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter:  rate.NewLimiter(limit, cfg.Burst),
		validate: newValidator(),
		metrics:  m,
		log:      log.Named("remote"),
	}
}

// WithToken returns a client that authenticates as the holder of token.
// The copy shares the connection pool and the limiter.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) Token() string {
	return c.token
}

// do sends one request. endpoint is the metric label, path the concrete URL path.
func (c *Client) do(ctx context.Context, method, endpoint, path string, body, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, method, path, body, out)
	c.metrics.RemoteCall(endpoint, err, time.Since(start))
	if err != nil {
		c.log.Debug("remote call failed",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return transportError(method, path, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: %w", method, path, apiError(resp))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return domain.RemoteError(resp.StatusCode, body.Message)
		}
		if body.Error != "" {
			return domain.RemoteError(resp.StatusCode, body.Error)
		}
	}
	return domain.RemoteError(resp.StatusCode, "")
}

// transportError keeps the cause for logs and errors.Is while carrying a status-less remote error for display.
func transportError(method, path string, err error) error {
	return fmt.Errorf("%s %s: %w%w", method, path, err, domain.RemoteError(0, ""))
}

func statusOf(err error) (int, bool) {
	var de domain.Error
	if errors.As(err, &de) && de.Code == domain.ErrorCodeRemote {
		return de.Status, true
	}
	return 0, false
}

// IsUnauthorized reports whether the service rejected the credentials.
func IsUnauthorized(err error) bool {
	status, ok := statusOf(err)
	return ok && (status == http.StatusUnauthorized || status == http.StatusForbidden)
}

// IsUnavailable reports whether the service could not give an answer at all.
func IsUnavailable(err error) bool {
	status, ok := statusOf(err)
	return ok && (status == 0 || status >= http.StatusInternalServerError)
}
