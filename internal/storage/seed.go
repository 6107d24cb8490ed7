package storage

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/pixil98/arbor/internal/game"
)

const (
	DefaultSeedWidth  = 50
	DefaultSeedHeight = 38

	// seedTilledChance is the share of tiles that start tilled.
	seedTilledChance = 0.8
)

// Seed writes a fresh default world: a width x height map and a single
// infant dragon.
func (s *WorldStore) Seed(width, height int) error {
	slog.Info("initializing default world", "width", width, "height", height)

	grid := game.NewTileGrid(width, height, game.TileUntilled)
	for y := range grid.Tiles {
		for x := range grid.Tiles[y] {
			if rand.Float64() <= seedTilledChance {
				grid.Tiles[y][x] = game.TileTilled
			}
		}
	}

	if err := s.zone.Save(game.ZoneID, grid); err != nil {
		return fmt.Errorf("saving tiles: %w", err)
	}

	first := game.NewInfant("dragon-1", game.Vec{X: 300, Y: 300})
	if err := s.fauna.Save(first.ID, first); err != nil {
		return fmt.Errorf("saving first creature: %w", err)
	}

	return nil
}

// LoadOrSeed loads the stored world, seeding a default one first if the
// store is empty.
func (s *WorldStore) LoadOrSeed(width, height int) (*game.Snapshot, error) {
	snap, err := s.LoadWorld()
	if err != nil {
		return nil, err
	}
	if snap != nil {
		return snap, nil
	}

	if err := s.Seed(width, height); err != nil {
		return nil, fmt.Errorf("seeding world: %w", err)
	}
	return s.LoadWorld()
}
