package game

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

// TileState is the state of a single map tile.
type TileState int

const (
	TileUntilled TileState = 0
	TileTilled   TileState = 1
)

// ZoneID is the identifier the tile grid is stored under.
const ZoneID = "main"

// TileGrid is the fixed-size tile map, indexed [y][x].
type TileGrid struct {
	Tiles [][]TileState `json:"tiles"`
}

// NewTileGrid returns a width x height grid with every tile set to fill.
func NewTileGrid(width, height int, fill TileState) *TileGrid {
	tiles := make([][]TileState, height)
	for y := range tiles {
		tiles[y] = make([]TileState, width)
		for x := range tiles[y] {
			tiles[y][x] = fill
		}
	}
	return &TileGrid{Tiles: tiles}
}

func (g *TileGrid) Width() int {
	if len(g.Tiles) == 0 {
		return 0
	}
	return len(g.Tiles[0])
}

func (g *TileGrid) Height() int {
	return len(g.Tiles)
}

func (g *TileGrid) InBounds(x, y int) bool {
	return y >= 0 && y < g.Height() && x >= 0 && x < g.Width()
}

// At returns the state of the tile at (x, y). The caller must check bounds.
func (g *TileGrid) At(x, y int) TileState {
	return g.Tiles[y][x]
}

// Till marks an untilled, in-bounds tile as tilled and reports whether
// anything changed.
func (g *TileGrid) Till(x, y int) bool {
	if !g.InBounds(x, y) || g.Tiles[y][x] != TileUntilled {
		return false
	}
	g.Tiles[y][x] = TileTilled
	return true
}

// Clear resets every tile to untilled.
func (g *TileGrid) Clear() {
	for y := range g.Tiles {
		for x := range g.Tiles[y] {
			g.Tiles[y][x] = TileUntilled
		}
	}
}

// Clone returns a deep copy of the grid.
func (g *TileGrid) Clone() *TileGrid {
	tiles := make([][]TileState, len(g.Tiles))
	for y, row := range g.Tiles {
		tiles[y] = append([]TileState(nil), row...)
	}
	return &TileGrid{Tiles: tiles}
}

func (g *TileGrid) Validate() error {
	el := errors.NewErrorList()

	if g.Height() == 0 || g.Width() == 0 {
		el.Add(fmt.Errorf("tile grid must not be empty"))
	}
	for y, row := range g.Tiles {
		if len(row) != g.Width() {
			el.Add(fmt.Errorf("row %d has %d tiles, expected %d", y, len(row), g.Width()))
		}
		for x, t := range row {
			if t != TileUntilled && t != TileTilled {
				el.Add(fmt.Errorf("tile (%d,%d) has unknown state %d", x, y, t))
			}
		}
	}

	return el.Err()
}
