package game

import "math"

// Vec is a position in world coordinates.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the euclidean distance between two positions.
func (v Vec) Dist(o Vec) float64 {
	return math.Hypot(v.X-o.X, v.Y-o.Y)
}
