package game

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultPlayerName is used when a join request carries no name.
const DefaultPlayerName = "Anon"

// Player is a connected participant. ID is the session's ephemeral id.
type Player struct {
	ID   string `json:"-"`
	Name string `json:"name"`
	Pos  Vec    `json:"-"`
}

// NormalizeName canonicalizes a display name so that visually identical
// names compare equal.
func NormalizeName(name string) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" {
		return DefaultPlayerName
	}
	return name
}

// UserRecord is the persisted per-name player data.
type UserRecord struct {
	Name string `json:"name"`
	Pos  Vec    `json:"pos"`
}

func (u *UserRecord) Validate() error {
	if u.Name == "" {
		return fmt.Errorf("name must be set")
	}
	return nil
}
