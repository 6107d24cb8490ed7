package census

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pixil98/arbor/internal/game"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const FileName = "census.csv"

// Row is one line of census.csv.
type Row struct {
	Tick    int64   `csv:"tick"`
	Time    string  `csv:"time"`
	Infant  int     `csv:"infant"`
	Young   int     `csv:"young"`
	Adult   int     `csv:"adult"`
	Elderly int     `csv:"elderly"`
	Dead    int     `csv:"dead"`
	Food    int     `csv:"food"`
	Players int     `csv:"players"`
	MeanAge float64 `csv:"mean_age"`
	MaxAge  float64 `csv:"max_age"`
}

// NewRow summarizes p.
func NewRow(tick int64, at time.Time, p game.Population) Row {
	r := Row{
		Tick:    tick,
		Time:    at.UTC().Format(time.RFC3339),
		Infant:  p.ByStage[game.StageInfant],
		Young:   p.ByStage[game.StageYoung],
		Adult:   p.ByStage[game.StageAdult],
		Elderly: p.ByStage[game.StageElderly],
		Dead:    p.Dead,
		Food:    p.Food,
		Players: p.Players,
	}
	if len(p.Ages) > 0 {
		r.MeanAge = stat.Mean(p.Ages, nil)
		r.MaxAge = floats.Max(p.Ages)
	}
	return r
}

// Census appends a population row to a CSV file every tick.
type Census struct {
	world *game.WorldState
	now   func() time.Time

	mu            sync.Mutex
	file          *os.File
	tick          int64
	headerWritten bool
}

// New opens (truncating) census.csv under dir.
func New(dir string, world *game.WorldState) (*Census, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating census directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", FileName, err)
	}

	return &Census{
		world: world,
		now:   time.Now,
		file:  f,
	}, nil
}

func (c *Census) Tick(_ context.Context) error {
	var p game.Population
	c.world.Update(func(tx *game.Txn) {
		p = tx.Population()
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil {
		return nil
	}

	c.tick++
	records := []Row{NewRow(c.tick, c.now(), p)}

	if !c.headerWritten {
		if err := gocsv.Marshal(records, c.file); err != nil {
			return fmt.Errorf("writing census: %w", err)
		}
		c.headerWritten = true
		return nil
	}

	if err := gocsv.MarshalWithoutHeaders(records, c.file); err != nil {
		return fmt.Errorf("writing census: %w", err)
	}
	return nil
}

// Start keeps the file open until ctx is done, then closes it.
func (c *Census) Start(ctx context.Context) error {
	<-ctx.Done()
	return c.Close()
}

func (c *Census) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}
