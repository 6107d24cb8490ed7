package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pixil98/arbor/internal/game"
)

func (h *Handler) chat(ctx context.Context, s *Session, data []byte) error {
	var req chatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("decoding chat: %w", err)
	}

	if strings.HasPrefix(req.Text, "/") {
		if req.Text == CommandResetZone {
			h.resetZone()
			slog.InfoContext(ctx, "world reset", "session", s.ID())
			return nil
		}
		slog.InfoContext(ctx, "ignoring unknown chat command", "session", s.ID(), "text", req.Text)
		return nil
	}

	h.world.Update(func(tx *game.Txn) {
		tx.Emit(game.ChatMessage{Type: game.MsgPlayerChatted, PlayerID: s.ID(), Text: req.Text})
	})
	return nil
}

func (h *Handler) move(s *Session, data []byte) error {
	var req moveRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("decoding move: %w", err)
	}

	var err error
	h.world.Update(func(tx *game.Txn) {
		p := tx.Player(s.ID())
		if p == nil {
			err = game.ErrPlayerNotFound
			return
		}
		p.Pos = game.Vec{X: req.X, Y: req.Y}

		view := p.View()
		tx.Emit(game.PlayerMessage{Type: game.MsgPlayerMoved, PlayerID: p.ID, Data: &view})
	})
	return err
}

// till tills an untilled tile. Tiles out of bounds or already tilled are
// left alone.
func (h *Handler) till(data []byte) error {
	var req tillRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("decoding till: %w", err)
	}

	h.world.Update(func(tx *game.Txn) {
		grid := tx.Tiles()
		if !grid.Till(req.Tile.X, req.Tile.Y) {
			return
		}
		tx.Persist(game.PutTiles{Grid: grid.Clone()})
		tx.Emit(game.TileMessage{
			Type: game.MsgTileUpdated,
			Tile: game.TileUpdate{X: req.Tile.X, Y: req.Tile.Y, Type: game.TileTilled},
		})
	})
	return nil
}

func (h *Handler) dropFood(data []byte) error {
	var req dropFoodRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("decoding food drop: %w", err)
	}

	h.world.Update(func(tx *game.Txn) {
		f := &game.Food{ID: game.NewFoodID(), Pos: req.Pos}
		tx.AddFood(f)
		tx.Persist(game.PutFood{Food: *f})

		pos := f.Pos
		tx.Emit(game.FoodMessage{Type: game.MsgFoodSpawned, FoodID: f.ID, Data: &pos})
	})
	return nil
}

// refresh sends the requester a fresh copy of the world. The reply is
// queued under the lock so it precedes every later broadcast; a session
// whose buffer is full is closed only after the lock is released.
func (h *Handler) refresh(s *Session) error {
	var err, replyErr error
	h.world.Update(func(tx *game.Txn) {
		var data []byte
		data, err = json.Marshal(game.WorldMessage{
			Type:     game.MsgZoneRefresh,
			PlayerID: s.ID(),
			World:    tx.Snapshot(),
		})
		if err != nil {
			return
		}
		replyErr = s.Reply(tx.Seq(), data)
	})
	if err != nil {
		return fmt.Errorf("marshalling zone refresh: %w", err)
	}
	if replyErr != nil {
		s.kick()
		return fmt.Errorf("replying with zone refresh: %w", replyErr)
	}
	return nil
}

// resetZone wipes fauna, food and tilling, then restocks the world with a
// few adults. Players stay where they are.
func (h *Handler) resetZone() {
	h.world.Update(func(tx *game.Txn) {
		tx.Reset()
		tx.Persist(game.DeleteAllFauna{})
		tx.Persist(game.DeleteAllFood{})
		tx.Persist(game.PutTiles{Grid: tx.Tiles().Clone()})

		for i := range resetAdults {
			c := &game.Creature{
				ID:         fmt.Sprintf("dragon-adult-%d", i),
				Kind:       game.KindDragon,
				Pos:        h.spawnPoint(),
				AgeSeconds: h.adultAge,
				Stage:      game.StageAdult,
			}
			tx.AddCreature(c)
			tx.Persist(game.PutCreature{Creature: c.Clone()})
		}

		tx.Emit(game.WorldMessage{Type: game.MsgWorldReset, World: tx.Snapshot()})
	})
}
