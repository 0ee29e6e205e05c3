// Package client provides an HTTP page and detail provider for a remote
// items API.
//
// Endpoints:
//   - GET {base}/items?offset=N&count=M returns an item.Page
//   - GET {base}/items/{id}/detail returns an item.Detail, 404 when absent
//
// Requests are never retried; a failure is reported to the caller as is.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/item-feed/pkg/fetch"
	"github.com/Sternrassler/item-feed/pkg/item"
	"github.com/Sternrassler/item-feed/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for items API requests.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itemfeed_api_requests_total",
		Help: "Total items API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "itemfeed_api_request_duration_seconds",
		Help:    "Items API request duration in seconds by endpoint",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"endpoint"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itemfeed_api_errors_total",
		Help: "Total items API errors by class",
	}, []string{"class"})
)

// maxErrorBody bounds how much of an error response is kept in APIError.
const maxErrorBody = 512

// Client is an items API client. It implements fetch.PageProvider and
// fetch.DetailProvider.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the items API, e.g. "http://localhost:8080"
	BaseURL string

	// User-Agent header sent with every request
	UserAgent string

	// Timeout per HTTP request
	Timeout time.Duration
}

// DefaultConfig returns a default configuration for the given base URL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "item-feed/0.1.0",
		Timeout:   30 * time.Second,
	}
}

// New creates a new items API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		config:  cfg,
		logger:  logging.NewLogger("items-client"),
	}, nil
}

// Page implements fetch.PageProvider.
func (c *Client) Page(ctx context.Context, offset, count int) ([]item.Item, error) {
	query := url.Values{}
	query.Set("offset", strconv.Itoa(offset))
	query.Set("count", strconv.Itoa(count))

	var page item.Page
	if err := c.get(ctx, "items", "/items", query, &page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []item.Item{}
	}
	return page.Items, nil
}

// Detail implements fetch.DetailProvider. A 404 response is reported as
// fetch.ErrDetailNotFound.
func (c *Client) Detail(ctx context.Context, id string) (string, error) {
	var detail item.Detail
	err := c.get(ctx, "detail", "/items/"+url.PathEscape(id)+"/detail", nil, &detail)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("item %s: %w", id, fetch.ErrDetailNotFound)
		}
		return "", err
	}
	return detail.Text, nil
}

// get performs a GET request and decodes a JSON body into out. path must
// already be escaped; endpoint labels the request in metrics.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	u, err := url.Parse(c.baseURL.String() + path)
	if err != nil {
		return fmt.Errorf("build request URL: %w", err)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("url", u.String()).
		Msg("Executing items API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		apiRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return &APIError{
			Endpoint:   path,
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	apiRequestsTotal.WithLabelValues(endpoint, statusLabel(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		errClass := classifyStatus(resp.StatusCode)
		apiErrorsTotal.WithLabelValues(string(errClass)).Inc()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if resp.StatusCode != http.StatusNotFound {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Items API request error")
		}
		return &APIError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    strings.TrimSpace(string(body)),
			Err:        ErrUnexpectedStatus,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return &APIError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "decode response",
			Err:        err,
		}
	}
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
