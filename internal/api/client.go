package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const maxErrorBody = 64 << 10

// Credentials supplies the session cookie and is told when the server
// reports it expired.
type Credentials interface {
	Token() string
	Expire()
}

type Options struct {
	BaseURL      string
	CookieName   string
	Timeout      time.Duration
	RateLimitRPS float64
	RateBurst    int
	Transport    http.RoundTripper
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

// Client is the only I/O boundary of the storefront: a thin JSON wrapper over
// the shop REST API.
type Client struct {
	baseURL    string
	cookieName string
	http       *http.Client
	creds      Credentials
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewClient(opts Options, creds Credentials) *Client {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if opts.CookieName == "" {
		opts.CookieName = "jwt"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimitRPS > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), burst)
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		cookieName: opts.CookieName,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		creds:   creds,
		limiter: limiter,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
}

type requestOption func(*http.Request)

func withIdempotencyKey(key string) requestOption {
	return func(r *http.Request) {
		r.Header.Set("Idempotency-Key", key)
	}
}

// do sends one request. endpoint is the low-cardinality label used for
// metrics and logs.
func (c *Client) do(ctx context.Context, method, path, endpoint string, in, out any, opts ...requestOption) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &NetworkError{Op: endpoint, Err: err}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := c.creds.Token(); token != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: token})
	}
	for _, opt := range opts {
		opt(req)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.ObserveAPI(endpoint, start)
	if err != nil {
		c.logger.Error("api request failed", "endpoint", endpoint, "error", err)
		return &NetworkError{Op: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := c.decodeError(resp)
		c.logger.Warn("api request rejected", "endpoint", endpoint, "status", apiErr.Status, "message", apiErr.Message)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) decodeError(resp *http.Response) *Error {
	apiErr := &Error{Status: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var eb errorBody
	if json.Unmarshal(data, &eb) == nil {
		apiErr.Message = eb.Message
		if apiErr.Message == "" {
			apiErr.Message = eb.Error
		}
	}

	if resp.StatusCode == http.StatusUnauthorized && strings.Contains(strings.ToLower(apiErr.Message), "expired") {
		apiErr.Expired = true
		c.creds.Expire()
	}
	return apiErr
}
