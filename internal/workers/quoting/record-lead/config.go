package recordlead

import (
	"fmt"
	"time"

	"cotizador/internal/common/config"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// Notify sends the advisor alert after the lead is stored.
	Notify bool `mapstructure:"notify"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
		Notify:        true,
	}
}

func FromAppConfig(cfg *config.Config) *Config {
	out := DefaultConfig()
	if cfg == nil {
		return out
	}
	wc := config.GetWorkerConfig(cfg, "record-lead")
	out.Enabled = wc.Enabled
	if wc.MaxJobsActive > 0 {
		out.MaxJobsActive = wc.MaxJobsActive
	}
	if wc.Timeout > 0 {
		out.Timeout = config.GetDuration(wc.Timeout)
	}
	return out
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	return nil
}
