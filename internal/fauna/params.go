package fauna

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/pixil98/arbor/internal/game"
	"github.com/pixil98/go-errors"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Params holds the lifecycle tuning knobs.
type Params struct {
	Stages       StageParams        `yaml:"stages"`
	Lifespan     LifespanParams     `yaml:"lifespan"`
	Reproduction ReproductionParams `yaml:"reproduction"`
	Movement     MovementParams     `yaml:"movement"`
	Feeding      FeedingParams      `yaml:"feeding"`
}

// StageParams are the ages after which a creature outgrows a stage.
type StageParams struct {
	InfantMaxAge float64 `yaml:"infant_max_age"`
	YoungMaxAge  float64 `yaml:"young_max_age"`
	AdultMaxAge  float64 `yaml:"adult_max_age"`
}

type LifespanParams struct {
	ElderlyMin  int     `yaml:"elderly_min"`
	ElderlyMax  int     `yaml:"elderly_max"`
	DeadRemoval float64 `yaml:"dead_removal"`
}

type ReproductionParams struct {
	Cooldown     float64 `yaml:"cooldown"`
	SpawnChance  float64 `yaml:"spawn_chance"`
	MaxOffspring int     `yaml:"max_offspring"`
}

type MovementParams struct {
	BaseSpeed      float64 `yaml:"base_speed"`
	ArrivalRadius  float64 `yaml:"arrival_radius"`
	IdleGoalChance float64 `yaml:"idle_goal_chance"`
	Wander         Bounds  `yaml:"wander"`
}

type FeedingParams struct {
	PromotionChance float64 `yaml:"promotion_chance"`
}

// Bounds is an inclusive integer rectangle.
type Bounds struct {
	MinX int `yaml:"min_x"`
	MaxX int `yaml:"max_x"`
	MinY int `yaml:"min_y"`
	MaxY int `yaml:"max_y"`
}

// LoadParams reads tuning from a YAML file layered over the embedded
// defaults. An empty path yields the defaults.
func LoadParams(path string) (*Params, error) {
	p := &Params{}
	if err := yaml.Unmarshal(defaultsYAML, p); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading tuning file: %w", err)
		}
		if err := yaml.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("parsing tuning file: %w", err)
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// DefaultParams returns the embedded defaults.
func DefaultParams() *Params {
	p, err := LoadParams("")
	if err != nil {
		panic(fmt.Sprintf("fauna: invalid embedded defaults: %v", err))
	}
	return p
}

func (p *Params) Validate() error {
	el := errors.NewErrorList()

	s := p.Stages
	if s.InfantMaxAge <= 0 || s.YoungMaxAge <= s.InfantMaxAge || s.AdultMaxAge <= s.YoungMaxAge {
		el.Add(fmt.Errorf("stage ages must be positive and increasing"))
	}
	if p.Lifespan.ElderlyMin < 0 || p.Lifespan.ElderlyMax < p.Lifespan.ElderlyMin {
		el.Add(fmt.Errorf("elderly lifespan range is invalid"))
	}
	if p.Lifespan.DeadRemoval < 0 {
		el.Add(fmt.Errorf("dead_removal must not be negative"))
	}
	if p.Reproduction.MaxOffspring < 0 {
		el.Add(fmt.Errorf("max_offspring must not be negative"))
	}
	el.Add(checkChance("spawn_chance", p.Reproduction.SpawnChance))
	el.Add(checkChance("idle_goal_chance", p.Movement.IdleGoalChance))
	el.Add(checkChance("promotion_chance", p.Feeding.PromotionChance))
	if p.Movement.BaseSpeed <= 0 {
		el.Add(fmt.Errorf("base_speed must be positive"))
	}
	w := p.Movement.Wander
	if w.MaxX < w.MinX || w.MaxY < w.MinY {
		el.Add(fmt.Errorf("wander bounds are inverted"))
	}

	return el.Err()
}

func checkChance(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be between 0 and 1", name)
	}
	return nil
}

// MaxAge returns the age past which a creature leaves stage s. Elderly has
// no limit.
func (p *Params) MaxAge(s game.Stage) (float64, bool) {
	switch s {
	case game.StageInfant:
		return p.Stages.InfantMaxAge, true
	case game.StageYoung:
		return p.Stages.YoungMaxAge, true
	case game.StageAdult:
		return p.Stages.AdultMaxAge, true
	default:
		return 0, false
	}
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
