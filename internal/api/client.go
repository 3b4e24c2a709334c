// Package api is the HTTP client for the storefront REST API.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/go-ports/storefront/internal/buildinfo"
	"github.com/go-ports/storefront/internal/metrics"
)

// DefaultTimeout bounds every request when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// TokenSource supplies and rotates the bearer credentials.
// *session.Store implements it.
type TokenSource interface {
	Tokens() (access, refresh string)
	UpdateTokens(ctx context.Context, access, refresh string) error
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables pacing
	Burst             int
	Tokens            TokenSource
	Metrics           metrics.Recorder
	Logger            *slog.Logger
	HTTPClient        *http.Client // overrides Timeout when set

	// OnAuthFailure runs when a 401 could not be cured by a token refresh.
	OnAuthFailure func(ctx context.Context)
}

// Client calls the storefront REST API.
type Client struct {
	baseURL       string
	http          *http.Client
	tokens        TokenSource
	limiter       *rate.Limiter
	metrics       metrics.Recorder
	logger        *slog.Logger
	userAgent     string
	onAuthFailure func(ctx context.Context)

	refreshMu sync.Mutex
}

// New creates a Client from opts.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		http:          httpClient,
		tokens:        opts.Tokens,
		limiter:       limiter,
		metrics:       rec,
		logger:        logger,
		userAgent:     buildinfo.UserAgent(),
		onAuthFailure: opts.OnAuthFailure,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }
