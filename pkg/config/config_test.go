package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownConfig_Validate(t *testing.T) {
	testCases := []struct {
		name     string
		timeout  time.Duration
		expected time.Duration
		wantErr  string
	}{
		{name: "unset uses default", timeout: 0, expected: defaultShutdownTimeout},
		{name: "explicit", timeout: 3 * time.Second, expected: 3 * time.Second},
		{name: "negative", timeout: -time.Second, wantErr: "invalid shutdown timeout"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			c := ShutdownConfig{Timeout: tc.timeout}

			// when
			err := c.Validate()

			// then
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, c.Timeout)
		})
	}
}

func TestLogConfig_Validate(t *testing.T) {
	testCases := []struct {
		name           string
		cfg            LogConfig
		expectedFormat string
		wantErr        string
	}{
		{name: "defaults", cfg: LogConfig{}, expectedFormat: LogFormatJSON},
		{name: "text", cfg: LogConfig{Level: "debug", Format: "text"}, expectedFormat: LogFormatText},
		{name: "unknown level", cfg: LogConfig{Level: "verbose"}, wantErr: "unknown log level"},
		{name: "unknown format", cfg: LogConfig{Format: "xml"}, wantErr: "unknown log format"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			c := tc.cfg

			// when
			err := c.Validate()

			// then
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedFormat, c.Format)
		})
	}
}

func TestPProfConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     PProfConfig
		wantErr string
	}{
		{name: "disabled ignores the rest", cfg: PProfConfig{Addr: "nonsense", BlockProfileRate: -1}},
		{name: "valid", cfg: PProfConfig{Enabled: true, Addr: "localhost:6060", BlockProfileRate: 1, MutexProfileFraction: 5}},
		{name: "missing address", cfg: PProfConfig{Enabled: true}, wantErr: "address is not configured"},
		{name: "bad address", cfg: PProfConfig{Enabled: true, Addr: "6060"}, wantErr: "invalid pprof address"},
		{name: "negative block rate", cfg: PProfConfig{Enabled: true, Addr: ":6060", BlockProfileRate: -1}, wantErr: "block profile rate"},
		{name: "negative mutex fraction", cfg: PProfConfig{Enabled: true, Addr: ":6060", MutexProfileFraction: -1}, wantErr: "mutex profile fraction"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			c := tc.cfg

			// when
			err := c.Validate()

			// then
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestTelemetryConfig_Validate(t *testing.T) {
	enabledTraces := func(ratio float64) TracesConfig {
		return TracesConfig{
			Enabled:     true,
			SampleRatio: ratio,
			OtlpHttp:    OtlpHttpConfig{Endpoint: "localhost:4318", Timeout: time.Second},
		}
	}
	testCases := []struct {
		name          string
		cfg           TelemetryConfig
		expectedPath  string
		expectedRatio float64
		wantErr       string
	}{
		{name: "defaults", cfg: TelemetryConfig{}, expectedPath: "/metrics"},
		{name: "custom metrics path", cfg: TelemetryConfig{Metrics: MetricsConfig{Enabled: true, Path: "/internal/metrics"}}, expectedPath: "/internal/metrics"},
		{name: "relative metrics path", cfg: TelemetryConfig{Metrics: MetricsConfig{Path: "metrics"}}, wantErr: "must start with '/'"},
		{name: "unset ratio samples all", cfg: TelemetryConfig{Traces: enabledTraces(0)}, expectedPath: "/metrics", expectedRatio: 1},
		{name: "partial ratio", cfg: TelemetryConfig{Traces: enabledTraces(0.25)}, expectedPath: "/metrics", expectedRatio: 0.25},
		{name: "ratio above one", cfg: TelemetryConfig{Traces: enabledTraces(1.5)}, wantErr: "sample ratio"},
		{name: "missing endpoint", cfg: TelemetryConfig{Traces: TracesConfig{Enabled: true}}, wantErr: "endpoint is not configured"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			c := tc.cfg

			// when
			err := c.Validate()

			// then
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedPath, c.Metrics.Path)
			assert.Equal(t, tc.expectedRatio, c.Traces.SampleRatio)
		})
	}
}
