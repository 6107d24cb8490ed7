package game

// PlayerView is the wire shape of a player.
type PlayerView struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Name string  `json:"name"`
}

func (p *Player) View() PlayerView {
	return PlayerView{X: p.Pos.X, Y: p.Pos.Y, Name: p.Name}
}

// Snapshot is a point-in-time copy of the whole world, shaped the way
// clients expect it.
type Snapshot struct {
	Players map[string]PlayerView `json:"players"`
	Fauna   map[string]*Creature  `json:"fauna"`
	Food    map[string]Vec        `json:"food"`
	Map     [][]TileState         `json:"map"`
}

// NewSnapshot returns an empty snapshot with all maps allocated.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Players: map[string]PlayerView{},
		Fauna:   map[string]*Creature{},
		Food:    map[string]Vec{},
	}
}
