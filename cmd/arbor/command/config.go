package command

import (
	"fmt"
	"time"

	"github.com/pixil98/arbor/internal/driver"
	"github.com/pixil98/go-errors"
)

type Config struct {
	TickInterval string          `json:"tick_interval"`
	Listener     ListenerConfig  `json:"listener"`
	Storage      StorageConfig   `json:"storage"`
	Nats         NatsConfig      `json:"nats"`
	Fauna        FaunaConfig     `json:"fauna"`
	Telemetry    TelemetryConfig `json:"telemetry"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if c.TickInterval != "" {
		d, err := time.ParseDuration(c.TickInterval)
		if err != nil {
			el.Add(fmt.Errorf("parsing tick_interval: %w", err))
		} else if d < time.Second {
			el.Add(fmt.Errorf("tick_interval must be at least 1 second"))
		}
	}

	el.Add(c.Listener.validate())
	el.Add(c.Storage.validate())
	el.Add(c.Nats.validate())
	el.Add(c.Fauna.validate())
	el.Add(c.Telemetry.validate())

	return el.Err()
}

// tickLength returns the configured tick interval, or the default.
func (c *Config) tickLength() time.Duration {
	if c.TickInterval == "" {
		return driver.DefaultTickLength
	}
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil {
		return driver.DefaultTickLength
	}
	return d
}
