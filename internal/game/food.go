package game

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Food is a consumable dropped by a player.
type Food struct {
	ID  string `json:"id"`
	Pos Vec    `json:"pos"`
}

func (f *Food) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("food id must be set")
	}
	return nil
}

// NewFoodID returns a short random food identifier.
func NewFoodID() string {
	return "food-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}
