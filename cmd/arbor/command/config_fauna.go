package command

import (
	"fmt"
	"os"

	"github.com/pixil98/arbor/internal/fauna"
)

type FaunaConfig struct {
	TuningPath string `json:"tuning_path"`
}

func (c *FaunaConfig) validate() error {
	if c.TuningPath == "" {
		return nil
	}
	if _, err := os.Stat(c.TuningPath); err != nil {
		return fmt.Errorf("fauna: invalid tuning_path %q: %w", c.TuningPath, err)
	}
	return nil
}

func (c *FaunaConfig) loadParams() (*fauna.Params, error) {
	p, err := fauna.LoadParams(c.TuningPath)
	if err != nil {
		return nil, fmt.Errorf("loading fauna tuning: %w", err)
	}
	return p, nil
}
