package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"tradescanner/logger"
	"tradescanner/models"
)

const maxErrorBody = 512

// Client issues GET requests against one exchange's REST API. The embedded
// http.Client is reused across calls so connections are pooled.
type Client struct {
	exchange models.Exchange
	baseURL  string
	http     *http.Client
	headers  http.Header
	retrier  *Retrier
	log      *logger.Log
	calls    atomic.Int64
}

// NewHTTPClient builds the pooled HTTP client shared by one exchange.
func NewHTTPClient(exchange models.Exchange, timeout time.Duration, maxIdleConns int, log *logger.Log) *http.Client {
	if maxIdleConns <= 0 {
		maxIdleConns = 10
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConns,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  false,
	}
	return &http.Client{
		Transport: &meteredTransport{next: transport, exchange: exchange, log: log},
		Timeout:   timeout,
	}
}

// NewClient returns a Client for baseURL.
func NewClient(exchange models.Exchange, baseURL string, httpClient *http.Client, retrier *Retrier, log *logger.Log) *Client {
	headers := http.Header{}
	headers.Set("Accept", "application/json")
	headers.Set("User-Agent", "tradescanner/1.0")
	return &Client{
		exchange: exchange,
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httpClient,
		headers:  headers,
		retrier:  retrier,
		log:      log,
	}
}

// Calls returns the number of HTTP attempts made so far.
func (c *Client) Calls() int64 { return c.calls.Load() }

// GetJSON fetches endpoint with params and decodes the body into out,
// retrying per the client's Retrier. Each check runs after a successful
// decode; a check error fails that attempt like a non-2xx response would.
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values, out interface{}, checks ...func() error) error {
	target := c.baseURL + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	start := time.Now()
	err := c.retrier.Do(ctx, endpoint, func(ctx context.Context) error {
		if err := c.get(ctx, target, out); err != nil {
			return err
		}
		for _, check := range checks {
			if err := check(); err != nil {
				return err
			}
		}
		return nil
	})

	log := c.log.WithComponent("fetch").WithFields(logger.Fields{
		"exchange": c.exchange.String(),
		"endpoint": endpoint,
	})
	if err != nil {
		log.WithError(err).Warn("request failed")
		c.log.LogMetric("fetch", "request_failures", int64(1), "counter", logger.Fields{"exchange": c.exchange.String()})
		return err
	}
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("request completed")
	return nil
}

func (c *Client) get(ctx context.Context, target string, out interface{}) error {
	c.calls.Add(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
