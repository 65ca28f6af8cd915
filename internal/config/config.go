package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/abgdnv/catalogviewer/pkg/config"
	"github.com/abgdnv/catalogviewer/pkg/config/configloader"
	"golang.org/x/text/language"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig      `koanf:"server"`
	Log        config.LogConfig       `koanf:"log"`
	PProf      config.PProfConfig     `koanf:"pprof"`
	Telemetry  config.TelemetryConfig `koanf:"telemetry"`
	Shutdown   config.ShutdownConfig  `koanf:"shutdown"`
	Catalog    CatalogConfig          `koanf:"catalog"`
}

// CatalogConfig configures the remote catalog API and the viewer sessions.
type CatalogConfig struct {
	API            config.HTTPClientConfig     `koanf:"api"`
	CircuitBreaker config.CircuitBreakerConfig `koanf:"circuitbreaker"`
	// Token is the default bearer token of sessions created without one.
	Token       string        `koanf:"token"`
	Locale      string        `koanf:"locale"`
	MaxSessions int           `koanf:"maxsessions"`
	WaitTimeout time.Duration `koanf:"waittimeout"`
}

// LocaleTag returns the collation locale, English when unset.
func (c *CatalogConfig) LocaleTag() language.Tag {
	if c.Locale == "" {
		return language.English
	}
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

func (c *CatalogConfig) Validate() error {
	if err := c.API.Validate(); err != nil {
		return err
	}
	if err := c.CircuitBreaker.Validate(); err != nil {
		return err
	}
	if c.Locale != "" {
		if _, err := language.Parse(c.Locale); err != nil {
			return fmt.Errorf("invalid catalog locale %q: %w", c.Locale, err)
		}
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("invalid catalog max sessions: %d", c.MaxSessions)
	}
	if c.WaitTimeout < 0 {
		return fmt.Errorf("invalid catalog wait timeout: %v", c.WaitTimeout)
	}
	return nil
}

func (c *Config) String() string {
	var b strings.Builder

	b.WriteString(c.HTTPServer.String())

	b.WriteString("\n--- Catalog ---\n")
	b.WriteString(fmt.Sprintf("  catalog.api.url: %s\n", c.Catalog.API.URL))
	b.WriteString(fmt.Sprintf("  catalog.api.timeout: %s\n", c.Catalog.API.Timeout))
	b.WriteString(fmt.Sprintf("  catalog.token: %s\n", maskToken(c.Catalog.Token)))
	b.WriteString(fmt.Sprintf("  catalog.locale: %s\n", c.Catalog.LocaleTag()))
	b.WriteString(fmt.Sprintf("  catalog.maxsessions: %d\n", c.Catalog.MaxSessions))
	b.WriteString(fmt.Sprintf("  catalog.waittimeout: %s\n", c.Catalog.WaitTimeout))
	b.WriteString(c.Catalog.CircuitBreaker.String())

	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Shutdown.String())

	return b.String()
}

func maskToken(token string) string {
	if token == "" {
		return "<not configured>"
	}
	return "****"
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}

	return nil
}
