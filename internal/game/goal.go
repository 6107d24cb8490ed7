package game

import (
	"encoding/json"
	"fmt"
)

// Goal is where a creature is heading. A nil Goal means the creature is idle.
// The only implementations are SeekFood and Wander.
type Goal interface {
	Target() Vec
	isGoal()
}

// SeekFood sends a creature toward a piece of food.
type SeekFood struct {
	FoodID string
	At     Vec
}

func (g SeekFood) Target() Vec { return g.At }
func (SeekFood) isGoal()       {}

// Wander sends a creature toward a random point.
type Wander struct {
	At Vec
}

func (g Wander) Target() Vec { return g.At }
func (Wander) isGoal()       {}

const (
	goalTypeSeekFood = "seek_food"
	goalTypeWander   = "wander"
)

type goalJSON struct {
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	FoodID string  `json:"food_id,omitempty"`
}

func marshalGoal(g Goal) json.RawMessage {
	var gj *goalJSON
	switch g := g.(type) {
	case SeekFood:
		gj = &goalJSON{Type: goalTypeSeekFood, X: g.At.X, Y: g.At.Y, FoodID: g.FoodID}
	case Wander:
		gj = &goalJSON{Type: goalTypeWander, X: g.At.X, Y: g.At.Y}
	default:
		return json.RawMessage("null")
	}
	// goalJSON only holds strings and floats
	b, _ := json.Marshal(gj)
	return b
}

func unmarshalGoal(raw json.RawMessage) (Goal, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var gj goalJSON
	if err := json.Unmarshal(raw, &gj); err != nil {
		return nil, fmt.Errorf("unmarshalling goal: %w", err)
	}

	at := Vec{X: gj.X, Y: gj.Y}
	switch gj.Type {
	case goalTypeSeekFood:
		return SeekFood{FoodID: gj.FoodID, At: at}, nil
	case goalTypeWander:
		return Wander{At: at}, nil
	default:
		return nil, fmt.Errorf("unknown goal type: %q", gj.Type)
	}
}
