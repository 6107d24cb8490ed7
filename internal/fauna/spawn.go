package fauna

import (
	"context"
	"log/slog"

	"github.com/pixil98/arbor/internal/game"
)

// Inserter durably writes a newly spawned creature.
type Inserter interface {
	InsertCreature(ctx context.Context, c *game.Creature) error
}

// ConfirmSpawns writes each pending spawn and returns the ones that were
// stored. A failed write drops that spawn and is not retried. It must be
// called without the world lock held.
func ConfirmSpawns(ctx context.Context, spawns []Spawn, ins Inserter) (confirmed []Spawn, failed int) {
	for _, sp := range spawns {
		if err := ins.InsertCreature(ctx, sp.Creature); err != nil {
			slog.WarnContext(ctx, "dropping spawn", "fauna_id", sp.Creature.ID, "parent_id", sp.ParentID, "error", err)
			failed++
			continue
		}
		confirmed = append(confirmed, sp)
	}
	return confirmed, failed
}
