package config

import (
	"fmt"
	"net"
	"strings"
)

// PProfConfig enables the profiling listener. The block and mutex rates are
// passed to runtime.SetBlockProfileRate and runtime.SetMutexProfileFraction;
// zero leaves those profiles off.
type PProfConfig struct {
	Enabled              bool   `koanf:"enabled"`
	Addr                 string `koanf:"addr"`
	BlockProfileRate     int    `koanf:"blockprofilerate"`
	MutexProfileFraction int    `koanf:"mutexprofilefraction"`
}

// String returns a string representation of the pprof configuration.
func (c *PProfConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- PProf ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  address: %s\n", c.Addr))
	b.WriteString(fmt.Sprintf("  block_profile_rate: %d\n", c.BlockProfileRate))
	b.WriteString(fmt.Sprintf("  mutex_profile_fraction: %d\n", c.MutexProfileFraction))
	return b.String()
}

func (c *PProfConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("pprof is enabled but address is not configured")
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("invalid pprof address %q: %w", c.Addr, err)
	}
	if c.BlockProfileRate < 0 {
		return fmt.Errorf("invalid pprof block profile rate: %d", c.BlockProfileRate)
	}
	if c.MutexProfileFraction < 0 {
		return fmt.Errorf("invalid pprof mutex profile fraction: %d", c.MutexProfileFraction)
	}
	return nil
}
