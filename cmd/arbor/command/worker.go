package command

import (
	"context"
	"fmt"

	"github.com/pixil98/arbor/internal/census"
	"github.com/pixil98/arbor/internal/driver"
	"github.com/pixil98/arbor/internal/fauna"
	"github.com/pixil98/arbor/internal/game"
	"github.com/pixil98/arbor/internal/listener"
	"github.com/pixil98/arbor/internal/observability"
	"github.com/pixil98/arbor/internal/session"
	"github.com/pixil98/arbor/internal/storage"
	"github.com/pixil98/go-service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func BuildWorkers(config any) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	shutdownTracing, err := observability.InitTracing(context.Background(), cfg.Telemetry.Tracing.toObservability())
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observability.NewCollector(reg)
	if err != nil {
		return nil, fmt.Errorf("creating metrics: %w", err)
	}

	params, err := cfg.Fauna.loadParams()
	if err != nil {
		return nil, err
	}

	// Load the persisted world, seeding a fresh one on first start
	store, err := cfg.Storage.openWorldStore()
	if err != nil {
		return nil, err
	}
	snap, err := store.LoadOrSeed(cfg.Storage.seedSize())
	if err != nil {
		return nil, fmt.Errorf("loading world: %w", err)
	}

	nats, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	hub := session.NewHub(nats)
	writer := storage.NewWriter(store, metrics)
	world := game.NewWorldState(snap, hub, writer)

	workers := service.WorkerList{
		"nats":    nats,
		"hub":     hub,
		"writer":  writer,
		"tracing": observability.NewTracingWorker(shutdownTracing),
	}

	// Setup the simulation clock
	tickLength := cfg.tickLength()
	tickers := []driver.Ticker{
		fauna.NewManager(world, fauna.NewEngine(params, tickLength), store, fauna.WithRecorder(metrics)),
	}
	if cfg.Telemetry.CensusDir != "" {
		c, err := census.New(cfg.Telemetry.CensusDir, world)
		if err != nil {
			return nil, fmt.Errorf("creating census: %w", err)
		}
		tickers = append(tickers, c)
		workers["census"] = c
	}
	workers["driver"] = driver.NewDriver(tickers, driver.WithTickLength(tickLength))

	// Setup the websocket listener
	youngMax, _ := params.MaxAge(game.StageYoung)
	handlerOpts := append(cfg.Listener.sessionOpts(),
		session.WithAdultAge(youngMax+1),
		session.WithMetrics(metrics),
	)
	handler := session.NewHandler(world, hub, store, handlerOpts...)

	ws := cfg.Listener.buildListener(listener.NewConnectionManager(handler),
		listener.WithReady(hub.Ready()),
		listener.WithMetricsHandler(cfg.Listener.metricsPath(), metrics.Handler()),
	)
	writer.FlushAfter(ws.Done())
	workers["listener"] = ws

	return workers, nil
}
