package command

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/pixil98/arbor/internal/listener"
	"github.com/pixil98/arbor/internal/session"
	"github.com/pixil98/go-errors"
)

type ListenerConfig struct {
	Addr         string `json:"addr"`
	Path         string `json:"path"`
	MetricsPath  string `json:"metrics_path"`
	WriteTimeout string `json:"write_timeout"`
	SendBuffer   int    `json:"send_buffer"`
}

func (c *ListenerConfig) validate() error {
	el := errors.NewErrorList()

	if c.Addr == "" {
		el.Add(fmt.Errorf("listener addr is required"))
	} else if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		el.Add(fmt.Errorf("parsing listener addr: %w", err))
	}

	for name, p := range map[string]string{"path": c.Path, "metrics_path": c.MetricsPath} {
		if p != "" && !strings.HasPrefix(p, "/") {
			el.Add(fmt.Errorf("listener %s must start with /", name))
		}
	}
	if c.Path != "" && c.Path == c.MetricsPath {
		el.Add(fmt.Errorf("listener path and metrics_path must differ"))
	}

	if c.WriteTimeout != "" {
		d, err := time.ParseDuration(c.WriteTimeout)
		if err != nil {
			el.Add(fmt.Errorf("parsing write_timeout: %w", err))
		} else if d <= 0 {
			el.Add(fmt.Errorf("write_timeout must be positive"))
		}
	}

	if c.SendBuffer < 0 {
		el.Add(fmt.Errorf("send_buffer must not be negative"))
	}

	return el.Err()
}

// sessionOpts turns the per-connection settings into handler options.
func (c *ListenerConfig) sessionOpts() []session.HandlerOpt {
	var opts []session.HandlerOpt
	if c.WriteTimeout != "" {
		if d, err := time.ParseDuration(c.WriteTimeout); err == nil {
			opts = append(opts, session.WithWriteTimeout(d))
		}
	}
	if c.SendBuffer > 0 {
		opts = append(opts, session.WithSendBuffer(c.SendBuffer))
	}
	return opts
}

func (c *ListenerConfig) buildListener(cm *listener.ConnectionManager, opts ...listener.WebsocketOpt) *listener.WebsocketListener {
	if c.Path != "" {
		opts = append(opts, listener.WithPath(c.Path))
	}
	return listener.NewWebsocketListener(c.Addr, cm, opts...)
}

func (c *ListenerConfig) metricsPath() string {
	if c.MetricsPath == "" {
		return listener.DefaultMetricsPath
	}
	return c.MetricsPath
}
