package census

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pixil98/arbor/internal/game"
	"github.com/pixil98/go-testutil"
)

func TestNewRow(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		pop game.Population
		exp Row
	}{
		"empty world": {
			pop: game.Population{ByStage: map[game.Stage]int{}},
			exp: Row{Tick: 1, Time: "2024-05-01T12:00:00Z"},
		},
		"mixed population": {
			pop: game.Population{
				ByStage: map[game.Stage]int{game.StageInfant: 1, game.StageElderly: 2},
				Dead:    1,
				Food:    3,
				Players: 2,
				Ages:    []float64{10, 20, 60},
			},
			exp: Row{Tick: 1, Time: "2024-05-01T12:00:00Z", Infant: 1, Elderly: 2, Dead: 1, Food: 3, Players: 2, MeanAge: 30, MaxAge: 60},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "row", NewRow(1, at, tt.pop), tt.exp)
		})
	}
}

func TestCensus_Tick(t *testing.T) {
	dir := t.TempDir()

	snap := game.NewSnapshot()
	snap.Fauna["a"] = &game.Creature{Kind: game.KindDragon, Stage: game.StageYoung, AgeSeconds: 150}
	snap.Fauna["b"] = &game.Creature{Kind: game.KindDragon, Stage: game.StageAdult, AgeSeconds: 350}
	snap.Food["f"] = game.Vec{X: 1, Y: 1}
	world := game.NewWorldState(snap, nil, nil)

	c, err := New(dir, world)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.now = func() time.Time { return time.Unix(0, 0) }

	for range 2 {
		if err := c.Tick(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := c.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	// ticking after close is a no-op
	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("opening census: %v", err)
	}
	defer func() { _ = f.Close() }()

	var rows []Row
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		t.Fatalf("reading census: %v", err)
	}

	want := Row{Time: "1970-01-01T00:00:00Z", Young: 1, Adult: 1, Food: 1, MeanAge: 250, MaxAge: 350}
	testutil.AssertEqual(t, "rows", len(rows), 2)
	for i, r := range rows {
		want.Tick = int64(i + 1)
		testutil.AssertEqual(t, "row", r, want)
	}
}

func TestCensus_Start(t *testing.T) {
	c, err := New(t.TempDir(), game.NewWorldState(nil, nil, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "closed", c.file == nil, true)
}
