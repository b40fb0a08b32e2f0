package game

import "go.uber.org/zap"

// conditionHolds evaluates a named predicate for the controller at seat.
// source is the card carrying the effect; subject is an optional unit the
// effect is being evaluated against. Unknown conditions never hold.
func (m *Match) conditionHolds(c Condition, seat int, source, subject *CardInstance) bool {
	own := m.state.Players[seat]
	enemy := m.state.opponent(seat)

	switch c.Kind {
	case CondMyTurn:
		return m.state.TurnPlayer() == own.ID
	case CondOpponentTurn:
		return m.state.TurnPlayer() == enemy.ID
	case CondFieldFull:
		return own.unitCount() == FieldSlots
	case CondOwnUnitsAtLeast:
		return own.unitCount() >= c.N
	case CondEnemyUnitsAtLeast:
		return enemy.unitCount() >= c.N
	case CondEnemyUnitsAtMost:
		return enemy.unitCount() <= c.N
	case CondEquipmentAtLeast:
		return equipmentCount(own, source) >= c.N
	case CondLeaderLevelAtLeast:
		return own.Level >= c.N
	case CondHandAtMost:
		return len(own.Hand) <= c.N
	case CondHandAtLeast:
		return len(own.Hand) >= c.N
	case CondDamageAtLeast:
		return len(own.Damage) >= c.N
	case CondOpponentDamageAtLeast:
		return len(enemy.Damage) >= c.N
	case CondDiscardAtLeast:
		return len(own.Discard) >= c.N
	case CondTargetHasKeyword:
		return subject != nil && baseKeywords(subject).Has(c.Keyword)
	case CondAttackerIsOpposing:
		pending := m.state.Pending
		if pending == nil || source == nil || pending.DefenderID != own.ID {
			return false
		}
		lane := own.slotOf(source.ID)
		if lane < 0 {
			lane = own.hostOf(source.ID)
		}
		return lane >= 0 && lane == pending.AttackerIndex
	}
	if m.logger != nil {
		m.logger.Warn("unknown condition", zap.String("condition", string(c.Kind)))
	}
	return false
}

// equipmentCount returns the number of items on the unit carrying source,
// or on source itself when it is a unit.
func equipmentCount(p *PlayerState, source *CardInstance) int {
	if source == nil {
		return 0
	}
	if slot := p.slotOf(source.ID); slot >= 0 {
		return len(p.Field[slot].Attachments)
	}
	if host := p.hostOf(source.ID); host >= 0 {
		return len(p.Field[host].Attachments)
	}
	return 0
}
