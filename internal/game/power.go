package game

import "github.com/thraizz/tcg-match-server/internal/game/rules"

// modifiers is the sum of everything passive acting on a unit.
type modifiers struct {
	power    int
	hits     int
	keywords Keywords
}

// baseKeywords are the printed and temporary keywords, without passives.
func baseKeywords(u *CardInstance) Keywords {
	ks := make(Keywords, len(u.Card.Keywords)+len(u.TempKeywords))
	ks.Merge(u.Card.Keywords)
	ks.Merge(u.TempKeywords)
	return ks
}

// passiveModifiers aggregates attached item statics, then passive effects of
// items, leaders and field units. Passives are recomputed on every call.
func (m *Match) passiveModifiers(u *CardInstance) modifiers {
	mods := modifiers{keywords: make(Keywords)}

	for _, item := range u.Attachments {
		mods.power += item.Card.Power
		mods.hits += item.Card.Hits
		mods.keywords.Merge(item.Card.Keywords)
	}
	for seat, p := range m.state.Players {
		if p.Leader != nil {
			m.applyPassives(&mods, p.Leader, seat, u)
		}
	}
	for seat, p := range m.state.Players {
		for _, unit := range p.Field {
			if unit == nil {
				continue
			}
			m.applyPassives(&mods, unit, seat, u)
			for _, item := range unit.Attachments {
				m.applyPassives(&mods, item, seat, u)
			}
		}
	}
	return mods
}

func (m *Match) applyPassives(mods *modifiers, source *CardInstance, seat int, subject *CardInstance) {
	for _, eff := range source.Card.Effects {
		if eff.Trigger != TriggerPassive {
			continue
		}
		inv := invocation{source: source, seat: seat, effect: eff, slot: -1, subject: subject}
		if !m.passiveCovers(inv) || !m.gatePasses(inv) {
			continue
		}
		switch a := eff.Action.(type) {
		case Buff:
			mods.power += a.Power
			mods.hits += a.Hits
		case Debuff:
			mods.power -= a.Power
		case GrantKeyword:
			v := a.Value
			if v <= 0 {
				v = 1
			}
			mods.keywords[a.Keyword] += v
		}
	}
}

// passiveCovers reports whether the passive effect's selector includes the subject.
func (m *Match) passiveCovers(inv invocation) bool {
	subject := inv.subject
	own := m.state.Players[inv.seat]
	friendly := subject.Owner == inv.seat

	switch inv.effect.Target {
	case TargetSelf, "":
		if subject == inv.source {
			return true
		}
		return friendly && own.hostOf(inv.source.ID) >= 0 && own.hostOf(inv.source.ID) == own.slotOf(subject.ID)
	case TargetAttachedUnit:
		host := own.hostOf(inv.source.ID)
		return friendly && host >= 0 && host == own.slotOf(subject.ID)
	case TargetOwnUnits:
		return friendly
	case TargetEnemyUnits:
		return !friendly
	case TargetAllUnits:
		return true
	case TargetOpposingUnit:
		if friendly {
			return false
		}
		lane := m.sourceLane(inv)
		return lane >= 0 && m.state.Players[subject.Owner].slotOf(subject.ID) == lane
	}
	return false
}

// keywords returns every keyword currently on the unit, passives included.
func (m *Match) keywords(u *CardInstance) Keywords {
	ks := baseKeywords(u)
	ks.Merge(m.passiveModifiers(u).keywords)
	return ks
}

func (m *Match) hasKeyword(u *CardInstance, k Keyword) bool {
	return m.keywords(u).Has(k)
}

func (m *Match) keywordValue(u *CardInstance, k Keyword) int {
	return m.keywords(u).Value(k)
}

// rawPower is the unclamped effective power. The state-based sweep uses it.
func (m *Match) rawPower(u *CardInstance) int {
	base := u.Card.Power
	if u.PowerOverride != nil {
		base = *u.PowerOverride
	}
	mods := m.passiveModifiers(u)
	total := base + u.TempPower - u.TempDebuff + mods.power
	if m.isDefenseTarget(u) {
		total += baseKeywords(u).Value(KeywordDefender) + mods.keywords.Value(KeywordDefender)
	}
	return total
}

// effectivePower is the power used for comparison. It is never negative.
func (m *Match) effectivePower(u *CardInstance) int {
	if p := m.rawPower(u); p > 0 {
		return p
	}
	return 0
}

// effectiveHits is the number of damage cards an unblocked attack reveals.
func (m *Match) effectiveHits(u *CardInstance) int {
	hits := u.Card.Hits + u.TempHits + m.passiveModifiers(u).hits
	if hits < 0 {
		return 0
	}
	return hits
}

// isDefenseTarget reports whether the unit is the declared target of the pending attack.
func (m *Match) isDefenseTarget(u *CardInstance) bool {
	pending := m.state.Pending
	if pending == nil || m.state.Phase() != rules.PhaseDefense {
		return false
	}
	defender := m.state.seatOf(pending.DefenderID)
	if defender < 0 || u.Owner != defender {
		return false
	}
	return m.state.Players[defender].slotOf(u.ID) == pending.TargetIndex
}
