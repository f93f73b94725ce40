package renderproposal

import (
	"fmt"
	"time"

	"cotizador/internal/common/config"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// OutputDir, when set, receives the rendered file and the document is
	// not embedded in the job variables.
	OutputDir string `mapstructure:"output_dir"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       60 * time.Second,
	}
}

func FromAppConfig(cfg *config.Config) *Config {
	out := DefaultConfig()
	if cfg == nil {
		return out
	}
	wc := config.GetWorkerConfig(cfg, "render-proposal")
	out.Enabled = wc.Enabled
	if wc.MaxJobsActive > 0 {
		out.MaxJobsActive = wc.MaxJobsActive
	}
	if wc.Timeout > 0 {
		out.Timeout = config.GetDuration(wc.Timeout)
	}
	out.OutputDir = cfg.Proposal.OutputDir
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
