package fauna

import (
	"context"
	"time"

	"github.com/pixil98/arbor/internal/game"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Recorder receives per-tick measurements.
type Recorder interface {
	ObserveTick(d time.Duration)
	SetPopulation(p game.Population)
	SpawnRolledBack()
}

// Manager runs the lifecycle engine against the world once per tick and
// applies its results.
type Manager struct {
	world   *game.WorldState
	engine  *Engine
	store   Inserter
	metrics Recorder
	tracer  trace.Tracer
	now     func() time.Time
	max     int
}

type ManagerOpt func(*Manager)

// WithRecorder reports tick measurements to r.
func WithRecorder(r Recorder) ManagerOpt {
	return func(m *Manager) {
		m.metrics = r
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) ManagerOpt {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(world *game.WorldState, engine *Engine, store Inserter, opts ...ManagerOpt) *Manager {
	m := &Manager{
		world:  world,
		engine: engine,
		store:  store,
		tracer: otel.Tracer("github.com/pixil98/arbor/internal/fauna"),
		now:    time.Now,
		max:    engine.params.Reproduction.MaxOffspring,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Tick runs one lifecycle pass. The engine and the result application each
// hold the world lock; the spawn writes between them do not.
func (m *Manager) Tick(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "fauna.tick")
	defer span.End()

	start := time.Now()
	now := m.now()

	var res Result
	var epoch uint64
	m.world.Update(func(tx *game.Txn) {
		epoch = tx.Epoch()
		res = m.engine.Step(tx.Fauna(), tx.Food(), now)

		for _, ev := range res.Events {
			tx.Emit(ev)
		}
		for _, id := range res.Dirty {
			if c := tx.Creature(id); c != nil {
				tx.Persist(game.PutCreature{Creature: c.Clone()})
			}
		}
	})

	confirmed, failed := ConfirmSpawns(ctx, res.Spawns, m.store)
	for range failed {
		if m.metrics != nil {
			m.metrics.SpawnRolledBack()
		}
	}

	var pop game.Population
	m.world.Update(func(tx *game.Txn) {
		m.apply(tx, epoch, confirmed, res)
		pop = tx.Population()
	})

	span.SetAttributes(
		attribute.Int("fauna.events", len(res.Events)),
		attribute.Int("fauna.spawned", len(confirmed)),
		attribute.Int("fauna.removed", len(res.RemoveFauna)),
		attribute.Int("food.removed", len(res.RemoveFood)),
	)

	if m.metrics != nil {
		m.metrics.ObserveTick(time.Since(start))
		m.metrics.SetPopulation(pop)
	}

	return nil
}

func (m *Manager) apply(tx *game.Txn, epoch uint64, confirmed []Spawn, res Result) {
	if tx.Epoch() != epoch {
		// The world was reset while spawns were being written.
		for _, sp := range confirmed {
			tx.Persist(game.DeleteCreature{ID: sp.Creature.ID})
		}
		return
	}

	for _, sp := range confirmed {
		tx.AddCreature(sp.Creature)
		tx.Emit(game.NewFaunaEvent(game.MsgFaunaSpawned, sp.Creature))

		if parent := tx.Creature(sp.ParentID); parent != nil && parent.OffspringCount < m.max {
			parent.OffspringCount++
			tx.Persist(game.PutCreature{Creature: parent.Clone()})
		}
	}

	for _, id := range res.RemoveFauna {
		if tx.RemoveCreature(id) {
			tx.Persist(game.DeleteCreature{ID: id})
			tx.Emit(game.FaunaEvent{Type: game.MsgFaunaRemoved, FaunaID: id})
		}
	}

	for _, id := range res.RemoveFood {
		if tx.RemoveFood(id) {
			tx.Persist(game.DeleteFood{ID: id})
			tx.Emit(game.FoodMessage{Type: game.MsgFoodRemoved, FoodID: id})
		}
	}
}
