package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pixil98/arbor/internal/game"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the server's Prometheus metrics. A nil *Collector is a
// valid no-op recorder.
type Collector struct {
	gatherer prometheus.Gatherer

	Ticks          prometheus.Counter
	TickDurations  prometheus.Histogram
	Fauna          *prometheus.GaugeVec
	DeadFauna      prometheus.Gauge
	Food           prometheus.Gauge
	Players        prometheus.Gauge
	Sessions       prometheus.Gauge
	Commands       *prometheus.CounterVec
	BroadcastDrops prometheus.Counter
	SpawnRollbacks prometheus.Counter
	PersistFails   prometheus.Counter
}

// NewCollector registers metrics against reg, defaulting to the global
// Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{
		gatherer: gatherer,
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbor_ticks_total",
			Help: "Total number of simulation ticks run.",
		}),
		TickDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbor_tick_duration_seconds",
			Help:    "Time spent running a simulation tick.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		Fauna: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "arbor_fauna",
			Help: "Living creatures, labeled by life stage.",
		}, []string{"stage"}),
		DeadFauna: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbor_fauna_dead",
			Help: "Dead creatures awaiting removal.",
		}),
		Food: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbor_food",
			Help: "Food items in the world.",
		}),
		Players: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbor_players",
			Help: "Joined players.",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbor_sessions",
			Help: "Open websocket sessions, joined or not.",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_commands_total",
			Help: "Client messages handled, labeled by message type.",
		}, []string{"type"}),
		BroadcastDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbor_broadcast_drops_total",
			Help: "Sessions disconnected because they could not keep up with broadcasts.",
		}),
		SpawnRollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbor_spawn_rollbacks_total",
			Help: "Confirmed spawns discarded because the world was reset mid-tick.",
		}),
		PersistFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbor_persist_failures_total",
			Help: "World changes that could not be written to storage.",
		}),
	}

	collectors := map[string]prometheus.Collector{
		"arbor_ticks_total":            c.Ticks,
		"arbor_tick_duration_seconds":  c.TickDurations,
		"arbor_fauna":                  c.Fauna,
		"arbor_fauna_dead":             c.DeadFauna,
		"arbor_food":                   c.Food,
		"arbor_players":                c.Players,
		"arbor_sessions":               c.Sessions,
		"arbor_commands_total":         c.Commands,
		"arbor_broadcast_drops_total":  c.BroadcastDrops,
		"arbor_spawn_rollbacks_total":  c.SpawnRollbacks,
		"arbor_persist_failures_total": c.PersistFails,
	}
	for name, col := range collectors {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("registering %s: %w", name, err)
		}
	}

	return c, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveTick(d time.Duration) {
	if c == nil {
		return
	}
	c.Ticks.Inc()
	c.TickDurations.Observe(d.Seconds())
}

// SetPopulation replaces the world gauges with p.
func (c *Collector) SetPopulation(p game.Population) {
	if c == nil {
		return
	}
	for _, s := range game.Stages {
		c.Fauna.WithLabelValues(s.String()).Set(float64(p.ByStage[s]))
	}
	c.DeadFauna.Set(float64(p.Dead))
	c.Food.Set(float64(p.Food))
	c.Players.Set(float64(p.Players))
}

func (c *Collector) SpawnRolledBack() {
	if c == nil {
		return
	}
	c.SpawnRollbacks.Inc()
}

func (c *Collector) PersistFailed() {
	if c == nil {
		return
	}
	c.PersistFails.Inc()
}

func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.Sessions.Inc()
}

func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.Sessions.Dec()
}

func (c *Collector) CommandHandled(typ string) {
	if c == nil {
		return
	}
	c.Commands.WithLabelValues(typ).Inc()
}

func (c *Collector) BroadcastDropped() {
	if c == nil {
		return
	}
	c.BroadcastDrops.Inc()
}
