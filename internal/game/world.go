package game

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event is an outbound broadcast payload. Seq increases by one for every
// event the world emits.
type Event struct {
	Seq  uint64
	Data []byte
}

// EventSink receives events in emission order. Emit is called with the
// world lock held and must not block.
type EventSink interface {
	Emit(events ...Event)
}

// DeltaSink receives persistence deltas in the order they were recorded.
// Enqueue is called with the world lock held and must not block.
type DeltaSink interface {
	Enqueue(deltas ...Delta)
}

// WorldState is the single source of truth for all mutable world state.
// All access goes through Update, which serializes every reader and writer.
type WorldState struct {
	mu sync.Mutex

	players map[string]*Player
	fauna   map[string]*Creature
	food    map[string]*Food
	tiles   *TileGrid

	epoch uint64
	seq   uint64

	events EventSink
	writes DeltaSink
}

// NewWorldState builds the world from a loaded snapshot. Players in the
// snapshot are ignored; they only exist while connected.
func NewWorldState(snap *Snapshot, events EventSink, writes DeltaSink) *WorldState {
	w := &WorldState{
		players: map[string]*Player{},
		fauna:   map[string]*Creature{},
		food:    map[string]*Food{},
		tiles:   &TileGrid{},
		events:  events,
		writes:  writes,
	}
	if snap == nil {
		return w
	}

	for id, c := range snap.Fauna {
		cp := c.Clone()
		cp.ID = id
		w.fauna[id] = cp
	}
	for id, pos := range snap.Food {
		w.food[id] = &Food{ID: id, Pos: pos}
	}
	if snap.Map != nil {
		w.tiles = (&TileGrid{Tiles: snap.Map}).Clone()
	}

	return w
}

// Update runs fn with exclusive access to the world. Events and deltas
// recorded by fn are handed to the sinks before the lock is released, so
// their order matches the order of the mutations.
func (w *WorldState) Update(fn func(tx *Txn)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	tx := &Txn{w: w}
	fn(tx)

	if len(tx.events) > 0 && w.events != nil {
		w.events.Emit(tx.events...)
	}
	if len(tx.deltas) > 0 && w.writes != nil {
		w.writes.Enqueue(tx.deltas...)
	}
}

// Snapshot returns a deep copy of the current world.
func (w *WorldState) Snapshot() *Snapshot {
	var snap *Snapshot
	w.Update(func(tx *Txn) {
		snap = tx.Snapshot()
	})
	return snap
}

// Txn is the view of the world handed to an Update callback. It must not be
// retained after the callback returns, nor may any map or pointer it hands
// out.
type Txn struct {
	w      *WorldState
	events []Event
	deltas []Delta
}

// Emit marshals msg and queues it for broadcast.
func (tx *Txn) Emit(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshalling event", "error", err)
		return
	}
	tx.w.seq++
	tx.events = append(tx.events, Event{Seq: tx.w.seq, Data: data})
}

// Persist queues a delta for the storage writer.
func (tx *Txn) Persist(d Delta) {
	tx.deltas = append(tx.deltas, d)
}

// Seq returns the sequence number of the most recently emitted event.
func (tx *Txn) Seq() uint64 {
	return tx.w.seq
}

// Epoch changes every time the world is reset.
func (tx *Txn) Epoch() uint64 {
	return tx.w.epoch
}

func (tx *Txn) Players() map[string]*Player {
	return tx.w.players
}

func (tx *Txn) Player(id string) *Player {
	return tx.w.players[id]
}

// PlayerByName finds a connected player by display name.
func (tx *Txn) PlayerByName(name string) *Player {
	name = NormalizeName(name)
	for _, p := range tx.w.players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// AddPlayer adds p unless its name is already in use.
func (tx *Txn) AddPlayer(p *Player) error {
	p.Name = NormalizeName(p.Name)
	if tx.PlayerByName(p.Name) != nil {
		return ErrNameTaken
	}
	tx.w.players[p.ID] = p
	return nil
}

func (tx *Txn) RemovePlayer(id string) (*Player, error) {
	p, ok := tx.w.players[id]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	delete(tx.w.players, id)
	return p, nil
}

func (tx *Txn) Fauna() map[string]*Creature {
	return tx.w.fauna
}

func (tx *Txn) Creature(id string) *Creature {
	return tx.w.fauna[id]
}

func (tx *Txn) AddCreature(c *Creature) {
	tx.w.fauna[c.ID] = c
}

// RemoveCreature reports whether a creature with id existed.
func (tx *Txn) RemoveCreature(id string) bool {
	if _, ok := tx.w.fauna[id]; !ok {
		return false
	}
	delete(tx.w.fauna, id)
	return true
}

func (tx *Txn) Food() map[string]*Food {
	return tx.w.food
}

func (tx *Txn) AddFood(f *Food) {
	tx.w.food[f.ID] = f
}

// RemoveFood reports whether food with id existed.
func (tx *Txn) RemoveFood(id string) bool {
	if _, ok := tx.w.food[id]; !ok {
		return false
	}
	delete(tx.w.food, id)
	return true
}

func (tx *Txn) Tiles() *TileGrid {
	return tx.w.tiles
}

// Reset removes all fauna and food, clears every tile and starts a new epoch.
// Players are untouched.
func (tx *Txn) Reset() {
	tx.w.fauna = map[string]*Creature{}
	tx.w.food = map[string]*Food{}
	tx.w.tiles.Clear()
	tx.w.epoch++
}

// Snapshot returns a deep copy of the world.
func (tx *Txn) Snapshot() *Snapshot {
	snap := NewSnapshot()
	for id, p := range tx.w.players {
		snap.Players[id] = p.View()
	}
	for id, c := range tx.w.fauna {
		snap.Fauna[id] = c.Clone()
	}
	for id, f := range tx.w.food {
		snap.Food[id] = f.Pos
	}
	snap.Map = tx.w.tiles.Clone().Tiles
	return snap
}
