package command

import (
	"fmt"

	"github.com/pixil98/arbor/internal/storage"
	"github.com/pixil98/go-errors"
)

type StorageConfig struct {
	Path       string `json:"path"`
	SeedWidth  int    `json:"seed_width"`
	SeedHeight int    `json:"seed_height"`
}

func (c *StorageConfig) validate() error {
	el := errors.NewErrorList()

	if c.Path == "" {
		el.Add(fmt.Errorf("storage path is required"))
	}
	if c.SeedWidth < 0 || c.SeedHeight < 0 {
		el.Add(fmt.Errorf("seed dimensions must not be negative"))
	}

	return el.Err()
}

func (c *StorageConfig) seedSize() (int, int) {
	w, h := c.SeedWidth, c.SeedHeight
	if w == 0 {
		w = storage.DefaultSeedWidth
	}
	if h == 0 {
		h = storage.DefaultSeedHeight
	}
	return w, h
}

func (c *StorageConfig) openWorldStore() (*storage.WorldStore, error) {
	s, err := storage.OpenWorldStore(c.Path)
	if err != nil {
		return nil, fmt.Errorf("opening world store at %q: %w", c.Path, err)
	}
	return s, nil
}
