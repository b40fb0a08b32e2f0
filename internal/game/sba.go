package game

// sweep applies state-based actions until the board is stable: units with
// effective power at or below zero are destroyed by rule, then special
// victory predicates are checked.
func (m *Match) sweep() {
	for changed := true; changed; {
		changed = false
		if m.state.finished() {
			return
		}
		for seat, p := range m.state.Players {
			for slot, u := range p.Field {
				if u == nil || m.rawPower(u) > 0 {
					continue
				}
				if m.destroyUnit(seat, slot, reasonRule) {
					changed = true
				}
			}
		}
	}
	m.checkSpecialVictory()
}

// checkSpecialVictory ends the match for the first player whose leader's
// victory cards are all in that player's discard.
func (m *Match) checkSpecialVictory() {
	for seat, p := range m.state.Players {
		if p.Leader == nil || len(p.Leader.Card.Victory) == 0 {
			continue
		}
		inDiscard := make(map[string]bool, len(p.Discard))
		for _, c := range p.Discard {
			inDiscard[c.Card.ID] = true
		}
		satisfied := true
		for _, id := range p.Leader.Card.Victory {
			if !inDiscard[id] {
				satisfied = false
				break
			}
		}
		if satisfied {
			m.endMatch(seat, "special-victory")
			return
		}
	}
}
