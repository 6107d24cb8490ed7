package fauna

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/arbor/internal/game"
)

// Rand is the source of randomness the engine draws from.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Spawn is an offspring waiting for its storage write to be confirmed.
type Spawn struct {
	ParentID string
	Creature *game.Creature
}

// Result is everything a single Step decided. Creatures in the world have
// already been mutated in place; the rest is left for the caller to apply.
type Result struct {
	Events      []game.FaunaEvent
	Dirty       []string
	Spawns      []Spawn
	RemoveFauna []string
	RemoveFood  []string
}

// Engine advances every creature by one tick.
type Engine struct {
	params *Params
	tick   time.Duration
	rand   Rand
	newID  func(now time.Time) string
}

type EngineOpt func(*Engine)

// WithRand replaces the engine's random source.
func WithRand(r Rand) EngineOpt {
	return func(e *Engine) {
		e.rand = r
	}
}

// WithIDFunc replaces the generator used for offspring ids.
func WithIDFunc(f func(now time.Time) string) EngineOpt {
	return func(e *Engine) {
		e.newID = f
	}
}

func NewEngine(params *Params, tick time.Duration, opts ...EngineOpt) *Engine {
	e := &Engine{
		params: params,
		tick:   tick,
		rand:   rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		newID:  newCreatureID,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func newCreatureID(now time.Time) string {
	return fmt.Sprintf("dragon-%d-%s", now.Unix(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Step runs one lifecycle pass. Creatures are visited in id order so a
// seeded Rand always produces the same result for the same world.
func (e *Engine) Step(creatures map[string]*game.Creature, food map[string]*game.Food, now time.Time) Result {
	s := &step{
		Engine:  e,
		now:     now,
		food:    food,
		foodIDs: slices.Sorted(maps.Keys(food)),
		eaten:   map[string]bool{},
	}

	for _, id := range slices.Sorted(maps.Keys(creatures)) {
		s.creature(creatures[id])
	}

	return s.res
}

type step struct {
	*Engine
	now     time.Time
	food    map[string]*game.Food
	foodIDs []string
	eaten   map[string]bool
	res     Result
}

func (s *step) creature(c *game.Creature) {
	if c.IsDead {
		if c.TimeOfDeath == nil {
			t := s.now
			c.TimeOfDeath = &t
			s.res.Dirty = append(s.res.Dirty, c.ID)
			return
		}
		if !s.now.Before(c.TimeOfDeath.Add(seconds(s.params.Lifespan.DeadRemoval))) {
			s.res.RemoveFauna = append(s.res.RemoveFauna, c.ID)
		}
		return
	}

	s.age(c)
	s.assignGoal(c)
	s.move(c)
	s.reproduce(c)
	s.die(c)

	s.res.Dirty = append(s.res.Dirty, c.ID)
}

func (s *step) age(c *game.Creature) {
	c.AgeSeconds += s.tick.Seconds()

	if limit, ok := s.params.MaxAge(c.Stage); ok && c.AgeSeconds > limit {
		s.advance(c, game.TriggerAged)
	}

	if c.Stage == game.StageElderly && c.DeathTimer == nil {
		s.setDeathTimer(c)
	}
}

// advance applies trigger t to c and reports whether the stage changed.
func (s *step) advance(c *game.Creature, t game.Trigger) bool {
	next, ok := game.NextStage(c.Stage, t)
	if !ok {
		return false
	}

	c.Stage = next
	if next == game.StageElderly {
		s.setDeathTimer(c)
	}
	s.res.Events = append(s.res.Events, game.NewFaunaEvent(game.MsgFaunaStageChanged, c))
	return true
}

func (s *step) setDeathTimer(c *game.Creature) {
	lo, hi := s.params.Lifespan.ElderlyMin, s.params.Lifespan.ElderlyMax
	lifespan := lo + s.rand.IntN(hi-lo+1)
	t := s.now.Add(time.Duration(lifespan) * time.Second)
	c.DeathTimer = &t
}

func (s *step) assignGoal(c *game.Creature) {
	if c.Stage == game.StageYoung && len(s.foodIDs) > 0 {
		c.Goal = s.nearestFood(c.Pos)
		return
	}

	if c.Goal != nil || (c.Stage != game.StageAdult && c.Stage != game.StageElderly) {
		return
	}

	if s.rand.Float64() < s.params.Movement.IdleGoalChance {
		b := s.params.Movement.Wander
		c.Goal = game.Wander{At: game.Vec{
			X: float64(b.MinX + s.rand.IntN(b.MaxX-b.MinX+1)),
			Y: float64(b.MinY + s.rand.IntN(b.MaxY-b.MinY+1)),
		}}
	}
}

// nearestFood picks the closest food; ties go to the lowest id.
func (s *step) nearestFood(from game.Vec) game.SeekFood {
	var best game.SeekFood
	bestDist := -1.0
	for _, id := range s.foodIDs {
		pos := s.food[id].Pos
		if d := from.Dist(pos); bestDist < 0 || d < bestDist {
			best = game.SeekFood{FoodID: id, At: pos}
			bestDist = d
		}
	}
	return best
}

func (s *step) move(c *game.Creature) {
	if c.Goal == nil {
		return
	}

	target := c.Goal.Target()
	if c.Pos.Dist(target) < s.params.Movement.ArrivalRadius {
		s.arrive(c)
		return
	}

	speed := s.params.Movement.BaseSpeed
	if c.Stage != game.StageElderly {
		speed *= 2
	}

	// Each axis steps independently, so diagonal moves cover more ground.
	if target.X > c.Pos.X {
		c.Pos.X += speed
	} else if target.X < c.Pos.X {
		c.Pos.X -= speed
	}
	if target.Y > c.Pos.Y {
		c.Pos.Y += speed
	} else if target.Y < c.Pos.Y {
		c.Pos.Y -= speed
	}

	s.res.Events = append(s.res.Events, game.NewFaunaEvent(game.MsgFaunaMoved, c))
}

func (s *step) arrive(c *game.Creature) {
	// The food may already be gone; removal of a missing id is skipped
	// when the result is applied.
	if g, ok := c.Goal.(game.SeekFood); ok && !s.eaten[g.FoodID] {
		s.eaten[g.FoodID] = true
		s.res.RemoveFood = append(s.res.RemoveFood, g.FoodID)

		if s.rand.Float64() < s.params.Feeding.PromotionChance {
			s.advance(c, game.TriggerFed)
		}
	}
	c.Goal = nil
}

func (s *step) reproduce(c *game.Creature) {
	r := s.params.Reproduction
	if c.Stage != game.StageAdult || c.OffspringCount >= r.MaxOffspring {
		return
	}
	if !s.now.After(c.LastReproductionAttempt.Add(seconds(r.Cooldown))) {
		return
	}

	c.LastReproductionAttempt = s.now
	if s.rand.Float64() < r.SpawnChance {
		s.res.Spawns = append(s.res.Spawns, Spawn{
			ParentID: c.ID,
			Creature: game.NewInfant(s.newID(s.now), c.Pos),
		})
	}
}

func (s *step) die(c *game.Creature) {
	if c.Stage != game.StageElderly || c.DeathTimer == nil || !s.now.After(*c.DeathTimer) {
		return
	}

	t := s.now
	c.IsDead = true
	c.TimeOfDeath = &t
	c.DeathTimer = nil
	c.Goal = nil
	s.res.Events = append(s.res.Events, game.NewFaunaEvent(game.MsgFaunaDied, c))
}
