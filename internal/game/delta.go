package game

// Delta is a single change to be written to persistent storage. Deltas are
// applied in the order they were recorded.
type Delta interface {
	isDelta()
}

// PutCreature upserts a creature. Creature is a private copy.
type PutCreature struct{ Creature *Creature }

type DeleteCreature struct{ ID string }

type DeleteAllFauna struct{}

type PutFood struct{ Food Food }

type DeleteFood struct{ ID string }

type DeleteAllFood struct{}

// PutTiles replaces the stored tile grid. Grid is a private copy.
type PutTiles struct{ Grid *TileGrid }

type PutUser struct{ User UserRecord }

func (PutCreature) isDelta()    {}
func (DeleteCreature) isDelta() {}
func (DeleteAllFauna) isDelta() {}
func (PutFood) isDelta()        {}
func (DeleteFood) isDelta()     {}
func (DeleteAllFood) isDelta()  {}
func (PutTiles) isDelta()       {}
func (PutUser) isDelta()        {}
