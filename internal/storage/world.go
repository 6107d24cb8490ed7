package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pixil98/arbor/internal/game"
)

// userNamespace scopes the name-derived ids of user records.
var userNamespace = uuid.MustParse("6f1c2a8e-3d4b-4c5e-9a7f-0b1c2d3e4f50")

// WorldStore persists the world across restarts.
type WorldStore struct {
	fauna *FileStore[*game.Creature]
	food  *FileStore[*game.Food]
	zone  *FileStore[*game.TileGrid]
	users *FileStore[*game.UserRecord]
}

// OpenWorldStore opens (creating if needed) a world rooted at dir.
func OpenWorldStore(dir string) (*WorldStore, error) {
	for _, sub := range []string{"fauna", "food", "zone", "users"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, fmt.Errorf("creating %s directory: %w", sub, err)
		}
	}

	fauna, err := NewFileStore[*game.Creature](filepath.Join(dir, "fauna"))
	if err != nil {
		return nil, fmt.Errorf("loading fauna: %w", err)
	}
	food, err := NewFileStore[*game.Food](filepath.Join(dir, "food"))
	if err != nil {
		return nil, fmt.Errorf("loading food: %w", err)
	}
	zone, err := NewFileStore[*game.TileGrid](filepath.Join(dir, "zone"))
	if err != nil {
		return nil, fmt.Errorf("loading zone: %w", err)
	}
	users, err := NewFileStore[*game.UserRecord](filepath.Join(dir, "users"))
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}

	return &WorldStore{
		fauna: fauna,
		food:  food,
		zone:  zone,
		users: users,
	}, nil
}

// LoadWorld returns the stored world, or nil if nothing has been stored yet.
func (s *WorldStore) LoadWorld() (*game.Snapshot, error) {
	grid := s.zone.Get(game.ZoneID)
	if grid == nil {
		return nil, nil
	}

	snap := game.NewSnapshot()
	snap.Map = grid.Clone().Tiles
	for id, c := range s.fauna.GetAll() {
		cp := c.Clone()
		cp.ID = id
		snap.Fauna[id] = cp
	}
	for id, f := range s.food.GetAll() {
		snap.Food[id] = f.Pos
	}

	return snap, nil
}

// PlayerPosition returns the last stored position for name.
func (s *WorldStore) PlayerPosition(name string) (game.Vec, bool, error) {
	u := s.users.Get(userKey(name))
	if u == nil {
		return game.Vec{}, false, nil
	}
	return u.Pos, true, nil
}

// InsertCreature writes a new creature immediately.
func (s *WorldStore) InsertCreature(_ context.Context, c *game.Creature) error {
	if err := s.fauna.Save(c.ID, c.Clone()); err != nil {
		return fmt.Errorf("saving creature %s: %w", c.ID, err)
	}
	return nil
}

// Apply writes a single delta.
func (s *WorldStore) Apply(d game.Delta) error {
	switch d := d.(type) {
	case game.PutCreature:
		return s.fauna.Save(d.Creature.ID, d.Creature)
	case game.DeleteCreature:
		return s.fauna.Delete(d.ID)
	case game.DeleteAllFauna:
		return s.fauna.DeleteAll()
	case game.PutFood:
		f := d.Food
		return s.food.Save(f.ID, &f)
	case game.DeleteFood:
		return s.food.Delete(d.ID)
	case game.DeleteAllFood:
		return s.food.DeleteAll()
	case game.PutTiles:
		return s.zone.Save(game.ZoneID, d.Grid)
	case game.PutUser:
		u := d.User
		return s.users.Save(userKey(u.Name), &u)
	default:
		return fmt.Errorf("unknown delta %T", d)
	}
}

func userKey(name string) string {
	return uuid.NewSHA1(userNamespace, []byte(game.NormalizeName(name))).String()
}
