package command

import (
	"fmt"

	"github.com/pixil98/arbor/internal/observability"
	"github.com/pixil98/go-errors"
)

type TelemetryConfig struct {
	Tracing   TracingConfig `json:"tracing"`
	CensusDir string        `json:"census_dir"`
}

type TracingConfig struct {
	Enabled     bool     `json:"enabled"`
	ServiceName string   `json:"service_name"`
	Exporter    string   `json:"exporter"`
	Endpoint    string   `json:"endpoint"`
	SampleRatio *float64 `json:"sample_ratio"`
}

func (c *TelemetryConfig) validate() error {
	el := errors.NewErrorList()

	if err := c.Tracing.toObservability().Validate(); err != nil {
		el.Add(fmt.Errorf("tracing: %w", err))
	}

	return el.Err()
}

func (c *TracingConfig) toObservability() observability.TracingConfig {
	cfg := observability.TracingConfig{
		Enabled:     c.Enabled,
		ServiceName: c.ServiceName,
		Exporter:    c.Exporter,
		Endpoint:    c.Endpoint,
		SampleRatio: 1,
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "arbor"
	}
	if cfg.Exporter == "" {
		cfg.Exporter = observability.ExporterStdout
	}
	if c.SampleRatio != nil {
		cfg.SampleRatio = *c.SampleRatio
	}
	return cfg
}
