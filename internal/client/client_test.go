package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	catalogerrors "github.com/abgdnv/catalogviewer/internal/errors"
	"github.com/abgdnv/catalogviewer/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAPI answers with a queue of status codes and records every request.
type mockAPI struct {
	mu        sync.Mutex
	responses []int
	body      string
	requests  []*http.Request
}

func (m *mockAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests = append(m.requests, r.Clone(context.Background()))
	code := http.StatusOK
	if len(m.responses) > 0 {
		code = m.responses[0]
		m.responses = m.responses[1:]
	}
	body := m.body
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if code == http.StatusOK {
		_, _ = w.Write([]byte(body))
	}
}

func (m *mockAPI) setResponses(codes ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = codes
	m.requests = nil
}

func (m *mockAPI) setBody(body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.body = body
}

func (m *mockAPI) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockAPI) lastRequest() *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

func setupTestEnvironment(t *testing.T, cb config.CircuitBreakerConfig) (*Client, *mockAPI) {
	t.Helper()

	api := &mockAPI{body: `{"ok":true}`}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c := New(config.HTTPClientConfig{URL: srv.URL + "/", Timeout: time.Second}, cb)
	return c, api
}

var breakerCfg = config.CircuitBreakerConfig{
	Enabled:             true,
	ConsecutiveFailures: 3,
	ErrorRatePercent:    60,
	OpenTimeout:         5 * time.Second,
}

func TestClient_Get_Headers(t *testing.T) {
	testCases := []struct {
		name       string
		token      string
		wantHeader string
	}{
		{name: "with token", token: "secret", wantHeader: "Bearer secret"},
		{name: "without token", token: "", wantHeader: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			c, api := setupTestEnvironment(t, config.CircuitBreakerConfig{})
			var out map[string]bool

			// when
			err := c.Get(context.Background(), "/products", url.Values{"limit": {"5"}}, tc.token, &out)

			// then
			require.NoError(t, err)
			assert.True(t, out["ok"])
			req := api.lastRequest()
			assert.Equal(t, tc.wantHeader, req.Header.Get("Authorization"))
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			assert.Equal(t, "/products", req.URL.Path)
			assert.Equal(t, "5", req.URL.Query().Get("limit"))
		})
	}
}

func TestClient_Get_StatusErrors(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		wantMessage string
	}{
		{name: "not found", status: http.StatusNotFound, wantMessage: "API call failed: Not Found"},
		{name: "unauthorized", status: http.StatusUnauthorized, wantMessage: "API call failed: Unauthorized"},
		{name: "server error", status: http.StatusInternalServerError, wantMessage: "API call failed: Internal Server Error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			c, api := setupTestEnvironment(t, config.CircuitBreakerConfig{})
			api.setResponses(tc.status)
			var out map[string]any

			// when
			err := c.Get(context.Background(), "/products/1", nil, "", &out)

			// then
			require.Error(t, err)
			assert.Equal(t, tc.wantMessage, err.Error())
			assert.ErrorIs(t, err, catalogerrors.ErrHTTPStatus)
			var rfe *catalogerrors.RemoteFetchError
			require.True(t, errors.As(err, &rfe))
			assert.Equal(t, tc.status, rfe.StatusCode)
		})
	}
}

func TestClient_Get_TransportError(t *testing.T) {
	// given
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(config.HTTPClientConfig{URL: srv.URL, Timeout: time.Second}, config.CircuitBreakerConfig{})
	var out map[string]any

	// when
	err := c.Get(context.Background(), "/products", nil, "", &out)

	// then
	require.Error(t, err)
	assert.ErrorIs(t, err, catalogerrors.ErrTransport)
	assert.True(t, strings.HasPrefix(err.Error(), "API call failed: "))
}

func TestClient_Get_Timeout(t *testing.T) {
	// given
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	c := New(config.HTTPClientConfig{URL: srv.URL, Timeout: 50 * time.Millisecond}, config.CircuitBreakerConfig{})
	var out map[string]any

	// when
	err := c.Get(context.Background(), "/products", nil, "", &out)

	// then
	require.Error(t, err)
	assert.ErrorIs(t, err, catalogerrors.ErrTransport)
}

func TestClient_Get_DecodeError(t *testing.T) {
	// given
	c, api := setupTestEnvironment(t, config.CircuitBreakerConfig{})
	api.setBody(`<html>not json</html>`)
	var out map[string]any

	// when
	err := c.Get(context.Background(), "/products", nil, "", &out)

	// then
	require.Error(t, err)
	assert.ErrorIs(t, err, catalogerrors.ErrDecode)
	assert.Equal(t, "API call failed: invalid response body", err.Error())
}

func TestClient_Get_ResponseTooLarge(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name: "body at the limit is decoded",
			body: `{"id":"12"}`,
		},
		{
			name:    "body over the limit is rejected",
			body:    `{"id":"123"}`,
			wantErr: "API call failed: response body exceeds 11 bytes",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			c, api := setupTestEnvironment(t, config.CircuitBreakerConfig{})
			c.maxBodyBytes = 11
			api.setBody(tc.body)
			var out map[string]any

			// when
			err := c.Get(context.Background(), "/products", nil, "", &out)

			// then
			if tc.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "12", out["id"])
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, catalogerrors.ErrDecode)
			assert.Equal(t, tc.wantErr, err.Error())
		})
	}
}

func TestClient_CircuitBreaker_OpensOnServerErrors(t *testing.T) {
	// given
	c, api := setupTestEnvironment(t, breakerCfg)
	api.setResponses(http.StatusInternalServerError, http.StatusInternalServerError, http.StatusInternalServerError)
	var out map[string]any

	for i := 0; i < 3; i++ {
		err := c.Get(context.Background(), "/products", nil, "", &out)
		require.ErrorIs(t, err, catalogerrors.ErrHTTPStatus)
	}

	// when
	err := c.Get(context.Background(), "/products", nil, "", &out)

	// then
	require.Error(t, err)
	assert.ErrorIs(t, err, catalogerrors.ErrTransport, "open breaker should fail fast as a transport error")
	assert.Equal(t, 3, api.callCount(), "server must not be called while the breaker is open")
}

func TestClient_CircuitBreaker_IgnoresClientErrors(t *testing.T) {
	// given
	c, api := setupTestEnvironment(t, breakerCfg)
	api.setResponses(http.StatusNotFound, http.StatusNotFound, http.StatusNotFound, http.StatusNotFound, http.StatusNotFound)
	var out map[string]any

	// when
	for i := 0; i < 5; i++ {
		err := c.Get(context.Background(), "/products/x", nil, "", &out)
		require.ErrorIs(t, err, catalogerrors.ErrHTTPStatus)
	}

	// then
	assert.Equal(t, 5, api.callCount())
}
