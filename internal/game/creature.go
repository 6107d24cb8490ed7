package game

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/pixil98/go-errors"
)

// KindDragon is the only creature kind the world currently spawns.
const KindDragon = "dragon"

// Creature is an autonomous fauna entity driven by the lifecycle engine.
type Creature struct {
	ID         string
	Kind       string
	Pos        Vec
	AgeSeconds float64
	Stage      Stage

	IsDead      bool
	TimeOfDeath *time.Time

	OffspringCount int

	// DeathTimer is only set while the creature is Elderly and alive.
	DeathTimer *time.Time

	Goal                    Goal
	LastReproductionAttempt time.Time
}

// NewInfant returns a freshly hatched creature at pos.
func NewInfant(id string, pos Vec) *Creature {
	return &Creature{
		ID:    id,
		Kind:  KindDragon,
		Pos:   pos,
		Stage: StageInfant,
	}
}

// Clone returns a deep copy of c.
func (c *Creature) Clone() *Creature {
	cp := *c
	if c.TimeOfDeath != nil {
		t := *c.TimeOfDeath
		cp.TimeOfDeath = &t
	}
	if c.DeathTimer != nil {
		t := *c.DeathTimer
		cp.DeathTimer = &t
	}
	return &cp
}

func (c *Creature) Validate() error {
	el := errors.NewErrorList()

	if c.Kind == "" {
		el.Add(fmt.Errorf("kind must be set"))
	}
	if !c.Stage.Valid() {
		el.Add(fmt.Errorf("invalid stage: %d", int(c.Stage)))
	}
	if c.AgeSeconds < 0 {
		el.Add(fmt.Errorf("age_seconds must not be negative"))
	}
	if c.OffspringCount < 0 {
		el.Add(fmt.Errorf("offspring_count must not be negative"))
	}
	if c.IsDead && c.TimeOfDeath == nil {
		el.Add(fmt.Errorf("dead creature must have a time_of_death"))
	}

	return el.Err()
}

type creatureJSON struct {
	ID               string          `json:"id"`
	Kind             string          `json:"kind"`
	X                float64         `json:"x"`
	Y                float64         `json:"y"`
	AgeSeconds       float64         `json:"age_seconds"`
	Stage            Stage           `json:"stage"`
	IsDead           bool            `json:"is_dead"`
	TimeOfDeath      *float64        `json:"time_of_death"`
	OffspringCount   int             `json:"offspring_count"`
	DeathTimer       *float64        `json:"death_timer"`
	Goal             json.RawMessage `json:"goal"`
	LastReproAttempt float64         `json:"last_repro_attempt,omitempty"`
}

func (c Creature) MarshalJSON() ([]byte, error) {
	cj := creatureJSON{
		ID:             c.ID,
		Kind:           c.Kind,
		X:              c.Pos.X,
		Y:              c.Pos.Y,
		AgeSeconds:     c.AgeSeconds,
		Stage:          c.Stage,
		IsDead:         c.IsDead,
		TimeOfDeath:    toUnixPtr(c.TimeOfDeath),
		OffspringCount: c.OffspringCount,
		DeathTimer:     toUnixPtr(c.DeathTimer),
		Goal:           marshalGoal(c.Goal),
	}
	if !c.LastReproductionAttempt.IsZero() {
		cj.LastReproAttempt = toUnix(c.LastReproductionAttempt)
	}
	return json.Marshal(cj)
}

func (c *Creature) UnmarshalJSON(b []byte) error {
	var cj creatureJSON
	if err := json.Unmarshal(b, &cj); err != nil {
		return err
	}

	goal, err := unmarshalGoal(cj.Goal)
	if err != nil {
		return err
	}

	*c = Creature{
		ID:             cj.ID,
		Kind:           cj.Kind,
		Pos:            Vec{X: cj.X, Y: cj.Y},
		AgeSeconds:     cj.AgeSeconds,
		Stage:          cj.Stage,
		IsDead:         cj.IsDead,
		TimeOfDeath:    fromUnixPtr(cj.TimeOfDeath),
		OffspringCount: cj.OffspringCount,
		DeathTimer:     fromUnixPtr(cj.DeathTimer),
		Goal:           goal,
	}
	if cj.LastReproAttempt != 0 {
		c.LastReproductionAttempt = fromUnix(cj.LastReproAttempt)
	}
	return nil
}

func toUnix(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

func fromUnix(f float64) time.Time {
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e6))*int64(time.Microsecond))
}

func toUnixPtr(t *time.Time) *float64 {
	if t == nil {
		return nil
	}
	f := toUnix(*t)
	return &f
}

func fromUnixPtr(f *float64) *time.Time {
	if f == nil {
		return nil
	}
	t := fromUnix(*f)
	return &t
}
