// Package client provides the GitHub REST client used to walk collection
// endpoints: one authenticated GET per page, typed errors, request metrics
// and rate limit tracking.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	ghapi "github.com/cli/go-gh/v2/pkg/api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/star-sizes/pkg/logging"
	"github.com/Sternrassler/star-sizes/pkg/ratelimit"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "star_sizes_requests_total",
		Help: "Total GitHub API requests by HTTP status (000 when no response was received)",
	}, []string{"status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "star_sizes_request_duration_seconds",
		Help:    "GitHub API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "star_sizes_errors_total",
		Help: "Total failed GitHub API requests by error class",
	}, []string{"class"})
)

// Defaults for the GitHub REST API.
const (
	DefaultBaseURL    = "https://api.github.com"
	DefaultAPIVersion = "2022-11-28"
	DefaultTimeout    = 30 * time.Second

	// MediaTypeJSON is the Accept header GitHub recommends for REST calls.
	MediaTypeJSON = "application/vnd.github+json"

	// HeaderAPIVersion pins the REST API version.
	HeaderAPIVersion = "X-GitHub-Api-Version"
)

// Client is the GitHub REST client.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *ratelimit.Tracker
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Token is the bearer credential sent with every request (REQUIRED).
	Token string

	// BaseURL is the API root, e.g. https://api.github.com or
	// https://ghe.example.com/api/v3.
	BaseURL string

	// APIVersion is sent as X-GitHub-Api-Version.
	APIVersion string

	// UserAgent header (REQUIRED by GitHub).
	UserAgent string

	// Timeout bounds each request including reading the body.
	Timeout time.Duration

	// Transport overrides the underlying round tripper (tests).
	Transport http.RoundTripper

	// TraceOutput receives a dump of every request and response when set.
	TraceOutput io.Writer
}

// Response is a fully read 200 response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DefaultConfig returns the default configuration for api.github.com.
func DefaultConfig(token, userAgent string) Config {
	return Config{
		Token:      token,
		BaseURL:    DefaultBaseURL,
		APIVersion: DefaultAPIVersion,
		UserAgent:  userAgent,
		Timeout:    DefaultTimeout,
	}
}

// New creates a new GitHub client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("token is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.APIVersion == "" {
		return nil, fmt.Errorf("api version is required")
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("base url must be an absolute http(s) URL (got %q)", cfg.BaseURL)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	opts := ghapi.ClientOptions{
		AuthToken:          cfg.Token,
		Host:               base.Hostname(),
		Transport:          transport,
		Timeout:            cfg.Timeout,
		SkipDefaultHeaders: true,
		LogIgnoreEnv:       true,
	}
	if cfg.TraceOutput != nil {
		opts.Log = cfg.TraceOutput
		opts.LogVerboseHTTP = true
	}

	httpClient, err := ghapi.NewHTTPClient(opts)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	logger := logging.NewLogger("github-client")

	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(base.String(), "/"),
		rateLimiter: ratelimit.NewTracker(logger),
		config:      cfg,
		logger:      logger,
	}, nil
}

// Do sends req with the required GitHub headers, records metrics and the
// rate limit state. A completed request is returned whatever its status;
// only a request that produced no response returns an error, always a
// *TransportError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	req.Header.Set("Accept", MediaTypeJSON)
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set(HeaderAPIVersion, c.config.APIVersion)
	req.Header.Set("User-Agent", c.config.UserAgent)

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("query", req.URL.RawQuery).
		Msg("Executing GitHub request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(StatusUnreachable).Inc()
		c.logger.Debug().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, &TransportError{URL: redactURL(req.URL), Err: err}
	}

	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if err := c.rateLimiter.UpdateFromHeaders(resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	return resp, nil
}

// Get performs a GET against path (relative to the base URL) and reads the
// whole body. Any status other than 200 yields a *HTTPError.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &TransportError{URL: redactURL(req.URL), Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		class := classifyStatus(resp.StatusCode, resp.Header)
		errorsTotal.WithLabelValues(string(class)).Inc()

		c.logger.Debug().
			Str("endpoint", req.URL.Path).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("GitHub request error")

		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Class:      class,
			URL:        redactURL(req.URL),
			Body:       body,
			Header:     resp.Header.Clone(),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// FetchPage fetches one page of a collection endpoint and returns the raw
// body. It satisfies pagination.PageFetcher.
func (c *Client) FetchPage(ctx context.Context, endpoint string, page, perPage int) ([]byte, error) {
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("page", strconv.Itoa(page))

	resp, err := c.Get(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// RateLimit returns the most recently observed rate limit state.
func (c *Client) RateLimit() (ratelimit.State, bool) {
	return c.rateLimiter.State()
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Redacted()
}
