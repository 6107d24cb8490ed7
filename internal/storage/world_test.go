package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pixil98/arbor/internal/game"
	"github.com/pixil98/go-testutil"
)

func openTestStore(t *testing.T, dir string) *WorldStore {
	t.Helper()
	s, err := OpenWorldStore(dir)
	if err != nil {
		t.Fatalf("unexpected error opening store: %v", err)
	}
	return s
}

func TestWorldStore_LoadWorldEmpty(t *testing.T) {
	s := openTestStore(t, t.TempDir())

	snap, err := s.LoadWorld()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap != nil {
		t.Errorf("expected nil snapshot, got %+v", snap)
	}
}

func TestWorldStore_LoadOrSeed(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir)

	snap, err := s.LoadOrSeed(DefaultSeedWidth, DefaultSeedHeight)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "height", len(snap.Map), 38)
	testutil.AssertEqual(t, "width", len(snap.Map[0]), 50)
	testutil.AssertEqual(t, "fauna", len(snap.Fauna), 1)
	first := snap.Fauna["dragon-1"]
	if first == nil {
		t.Fatal("expected dragon-1")
	}
	testutil.AssertEqual(t, "stage", first.Stage, game.StageInfant)
	testutil.AssertEqual(t, "pos", first.Pos, game.Vec{X: 300, Y: 300})

	// a second open sees the seeded world and does not reseed
	again, err := openTestStore(t, dir).LoadOrSeed(10, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "map", again.Map, snap.Map)
}

func TestWorldStore_ApplyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir)
	death := time.Unix(1700000000, 0)

	deltas := []game.Delta{
		game.PutTiles{Grid: game.NewTileGrid(3, 2, game.TileUntilled)},
		game.PutCreature{Creature: &game.Creature{ID: "dragon-a", Kind: game.KindDragon, Stage: game.StageAdult, Pos: game.Vec{X: 1, Y: 2}, OffspringCount: 2}},
		game.PutCreature{Creature: &game.Creature{ID: "dragon-b", Kind: game.KindDragon, Stage: game.StageElderly, IsDead: true, TimeOfDeath: &death}},
		game.PutCreature{Creature: &game.Creature{ID: "dragon-c", Kind: game.KindDragon, Stage: game.StageInfant}},
		game.DeleteCreature{ID: "dragon-c"},
		game.PutFood{Food: game.Food{ID: "food-aaaaaa", Pos: game.Vec{X: 7, Y: 8}}},
		game.PutFood{Food: game.Food{ID: "food-bbbbbb", Pos: game.Vec{X: 9, Y: 9}}},
		game.DeleteFood{ID: "food-bbbbbb"},
		game.PutUser{User: game.UserRecord{Name: "alice", Pos: game.Vec{X: 100, Y: 200}}},
	}
	for _, d := range deltas {
		if err := s.Apply(d); err != nil {
			t.Fatalf("applying %T: %v", d, err)
		}
	}

	snap, err := openTestStore(t, dir).LoadWorld()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "fauna ids", len(snap.Fauna), 2)
	testutil.AssertEqual(t, "adult", snap.Fauna["dragon-a"].OffspringCount, 2)
	testutil.AssertEqual(t, "dead", snap.Fauna["dragon-b"].IsDead, true)
	testutil.AssertEqual(t, "time of death", *snap.Fauna["dragon-b"].TimeOfDeath, death)
	testutil.AssertEqual(t, "food", snap.Food, map[string]game.Vec{"food-aaaaaa": {X: 7, Y: 8}})
	testutil.AssertEqual(t, "map", snap.Map, game.NewTileGrid(3, 2, game.TileUntilled).Tiles)

	pos, ok, err := openTestStore(t, dir).PlayerPosition("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "found", ok, true)
	testutil.AssertEqual(t, "pos", pos, game.Vec{X: 100, Y: 200})
}

func TestWorldStore_ApplyResetDeltas(t *testing.T) {
	s := openTestStore(t, t.TempDir())

	setup := []game.Delta{
		game.PutTiles{Grid: game.NewTileGrid(2, 2, game.TileTilled)},
		game.PutCreature{Creature: &game.Creature{ID: "dragon-a", Kind: game.KindDragon}},
		game.PutFood{Food: game.Food{ID: "food-aaaaaa"}},
		game.DeleteAllFauna{},
		game.DeleteAllFood{},
	}
	for _, d := range setup {
		if err := s.Apply(d); err != nil {
			t.Fatalf("applying %T: %v", d, err)
		}
	}

	snap, err := s.LoadWorld()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "fauna", len(snap.Fauna), 0)
	testutil.AssertEqual(t, "food", len(snap.Food), 0)
}

func TestWorldStore_PlayerPosition(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	if err := s.Apply(game.PutUser{User: game.UserRecord{Name: "café", Pos: game.Vec{X: 1, Y: 1}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := map[string]struct {
		name     string
		expFound bool
	}{
		"stored name":     {name: "café", expFound: true},
		"normalized name": {name: " café", expFound: true},
		"unknown name":    {name: "bob", expFound: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.PlayerPosition(tt.name)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "found", ok, tt.expFound)
		})
	}
}

func TestWorldStore_InsertCreature(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir)

	c := game.NewInfant("dragon-1700000000-abcd1234", game.Vec{X: 5, Y: 5})
	if err := s.InsertCreature(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "fauna", c.ID+".json")); err != nil {
		t.Errorf("expected creature file: %v", err)
	}

	bad := game.NewInfant("dragon_bad", game.Vec{})
	err := s.InsertCreature(context.Background(), bad)
	testutil.AssertErrorContains(t, err, "saving creature dragon_bad", "invalid id")
}

func TestOpenWorldStore_CorruptRecord(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir)
	if err := s.Apply(game.PutTiles{Grid: game.NewTileGrid(1, 1, game.TileUntilled)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(dir, "fauna", "broken.json")
	if err := os.WriteFile(path, []byte(`{"version":1,"id":"broken","spec":{"stage":"Ancient"}}`), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	_, err := OpenWorldStore(dir)
	testutil.AssertErrorContains(t, err, "loading fauna", "unknown stage: Ancient")
}

type flakyApplier struct {
	applied []string
	failOn  string
}

func (f *flakyApplier) Apply(d game.Delta) error {
	name := deltaName(d)
	if name == f.failOn {
		return fmt.Errorf("nope")
	}
	f.applied = append(f.applied, name)
	return nil
}

type countingFailures struct{ n int }

func (c *countingFailures) PersistFailed() { c.n++ }

func TestWriter_StartAppliesInOrderAndFlushes(t *testing.T) {
	app := &flakyApplier{failOn: "put_food"}
	failures := &countingFailures{}
	w := NewWriter(app, failures)

	w.Enqueue(game.PutTiles{}, game.PutFood{}, game.DeleteCreature{ID: "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// already cancelled: everything queued is still flushed
	if err := w.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "applied", app.applied, []string{"put_tiles", "delete_creature"})
	testutil.AssertEqual(t, "failures", failures.n, 1)
}

func TestWriter_FlushWaitsForProducers(t *testing.T) {
	app := &flakyApplier{}
	producer := make(chan struct{})
	w := NewWriter(app, nil)
	w.FlushAfter(producer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Start(ctx)
	}()
	cancel()

	// a producer still winding down queues one last change
	w.Enqueue(game.PutUser{User: game.UserRecord{Name: "alice"}})
	close(producer)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writer did not stop")
	}
	testutil.AssertEqual(t, "applied", app.applied, []string{"put_user"})
}
