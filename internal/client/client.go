// Package client implements the HTTP transport used to reach the catalog API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	catalogerrors "github.com/abgdnv/catalogviewer/internal/errors"
	"github.com/abgdnv/catalogviewer/pkg/config"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// defaultMaxBodyBytes caps how much of a response body is read.
	defaultMaxBodyBytes = 8 << 20
	// defaultTimeout applies when no timeout is configured.
	defaultTimeout = 10 * time.Second
)

// Getter performs GET requests against the catalog API and decodes JSON replies.
type Getter interface {
	Get(ctx context.Context, endpoint string, params url.Values, token string, out any) error
}

// Client is a JSON-over-HTTP client bound to one base URL.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	breaker      *gobreaker.CircuitBreaker[[]byte]
	maxBodyBytes int64
}

// New creates a Client for cfg.URL. The request timeout comes from cfg.Timeout;
// when cb.Enabled is set, calls go through a circuit breaker.
func New(cfg config.HTTPClientConfig, cb config.CircuitBreakerConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL:      strings.TrimRight(cfg.URL, "/"),
		maxBodyBytes: defaultMaxBodyBytes,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	if cb.Enabled {
		c.breaker = newCircuitBreaker(cb)
	}
	return c
}

// Get issues GET {base}{endpoint}?{params} and decodes the JSON body into out.
// The bearer header is set only when token is non-empty.
// Errors are always *errors.RemoteFetchError.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values, token string, out any) error {
	target := c.baseURL + endpoint
	if encoded := params.Encode(); encoded != "" {
		target += "?" + encoded
	}

	body, err := c.execute(func() ([]byte, error) {
		return c.do(ctx, target, token)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return catalogerrors.NewDecodeError(fmt.Errorf("decode %s: %w", endpoint, err))
	}
	return nil
}

func (c *Client) execute(call func() ([]byte, error)) ([]byte, error) {
	if c.breaker == nil {
		return call()
	}
	body, err := c.breaker.Execute(call)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, catalogerrors.NewTransportError(err)
	}
	return body, err
}

func (c *Client) do(ctx context.Context, target, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, catalogerrors.NewInvalidInputError(fmt.Sprintf("invalid request URL: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, catalogerrors.NewTransportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBodyBytes))
		return nil, catalogerrors.NewHTTPStatusError(resp.StatusCode, statusText(resp))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, catalogerrors.NewTransportError(err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, catalogerrors.NewResponseTooLargeError(c.maxBodyBytes)
	}
	return body, nil
}

// statusText returns the reason phrase sent by the server, e.g. "Not Found".
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprintf("%d", resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

// newCircuitBreaker trips on transport failures and 5xx responses.
// 4xx responses are caller errors and count as successes.
func newCircuitBreaker(cfg config.CircuitBreakerConfig) *gobreaker.CircuitBreaker[[]byte] {
	st := gobreaker.Settings{
		Name:        "catalog-api-cb",
		MaxRequests: 3,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures ||
				(total > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var rfe *catalogerrors.RemoteFetchError
			if !errors.As(err, &rfe) {
				return false
			}
			switch rfe.Kind {
			case catalogerrors.KindHTTPStatus:
				return rfe.StatusCode < http.StatusInternalServerError
			case catalogerrors.KindInvalidInput:
				return true
			default:
				return false
			}
		},
	}
	return gobreaker.NewCircuitBreaker[[]byte](st)
}

var _ Getter = (*Client)(nil)
