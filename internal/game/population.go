package game

// Population is a head count of the world.
type Population struct {
	ByStage map[Stage]int
	Dead    int
	Food    int
	Players int

	// Ages of every living creature, in no particular order.
	Ages []float64
}

// Population counts the world's inhabitants.
func (tx *Txn) Population() Population {
	p := Population{
		ByStage: map[Stage]int{},
		Food:    len(tx.w.food),
		Players: len(tx.w.players),
	}
	for _, c := range tx.w.fauna {
		if c.IsDead {
			p.Dead++
			continue
		}
		p.ByStage[c.Stage]++
		p.Ages = append(p.Ages, c.AgeSeconds)
	}
	return p
}
