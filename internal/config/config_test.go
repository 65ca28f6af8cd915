package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func validConfig() Config {
	var c Config
	c.HTTPServer.Port = 8080
	c.HTTPServer.Timeout.Read = time.Second
	c.HTTPServer.Timeout.Idle = time.Second
	c.HTTPServer.Timeout.ReadHeader = time.Second
	c.Log.Level = "info"
	c.Catalog.API.URL = "https://fakestoreapi.com"
	c.Catalog.API.Timeout = 5 * time.Second
	c.Catalog.Locale = "de"
	return c
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "relative api url", mutate: func(c *Config) { c.Catalog.API.URL = "/products" }, wantErr: "must be absolute"},
		{name: "bad locale", mutate: func(c *Config) { c.Catalog.Locale = "not a locale!" }, wantErr: "invalid catalog locale"},
		{name: "negative max sessions", mutate: func(c *Config) { c.Catalog.MaxSessions = -1 }, wantErr: "max sessions"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "verbose" }, wantErr: "unknown log level"},
		{
			name: "breaker without threshold",
			mutate: func(c *Config) {
				c.Catalog.CircuitBreaker.Enabled = true
				c.Catalog.CircuitBreaker.OpenTimeout = time.Second
			},
			wantErr: "consecutive_failures",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			c := validConfig()
			tc.mutate(&c)

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

func TestConfig_String_MasksToken(t *testing.T) {
	// given
	c := validConfig()
	c.Catalog.Token = "super-secret"

	// when
	out := c.String()

	// then
	assert.NotContains(t, out, "super-secret")
	assert.True(t, strings.Contains(out, "catalog.token: ****"))
}

func TestCatalogConfig_LocaleTag(t *testing.T) {
	assert.Equal(t, language.English, (&CatalogConfig{}).LocaleTag())
	assert.Equal(t, "de", (&CatalogConfig{Locale: "de"}).LocaleTag().String())
	assert.Equal(t, language.English, (&CatalogConfig{Locale: "??"}).LocaleTag())
}
