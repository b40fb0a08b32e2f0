package game

import (
	"github.com/thraizz/tcg-match-server/internal/game/rules"
	"go.uber.org/zap"
)

type destroyReason int

const (
	reasonBattle destroyReason = iota
	reasonEffect
	reasonRule
)

func (r destroyReason) String() string {
	switch r {
	case reasonBattle:
		return "battle"
	case reasonEffect:
		return "effect"
	default:
		return "rule"
	}
}

// applyDeterministic mutates state for actions that need no player input.
func (m *Match) applyDeterministic(inv invocation) {
	switch a := inv.effect.Action.(type) {
	case Draw:
		m.drawCards(m.playerTarget(inv, TargetOwnPlayer), a.Count)
	case Buff:
		for _, u := range m.unitTargets(inv) {
			u.TempPower += a.Power
			u.TempHits += a.Hits
		}
	case Debuff:
		for _, u := range m.unitTargets(inv) {
			u.TempDebuff += a.Power
		}
	case Damage:
		m.dealDamage(m.playerTarget(inv, TargetEnemyPlayer), a.Hits)
	case LevelUp:
		m.raiseLevel(m.playerTarget(inv, TargetOwnPlayer), a.Amount)
	case Stun:
		for _, u := range m.unitTargets(inv) {
			u.Stunned = true
		}
	case Heal:
		m.heal(m.playerTarget(inv, TargetOwnPlayer), a.Amount)
	case SetPower:
		for _, u := range m.unitTargets(inv) {
			v := a.Value
			u.PowerOverride = &v
		}
	case GrantKeyword:
		for _, u := range m.unitTargets(inv) {
			u.grantKeyword(a.Keyword, a.Value)
		}
	case Destroy:
		for _, u := range m.unitTargets(inv) {
			p := m.state.Players[u.Owner]
			m.destroyUnit(u.Owner, p.slotOf(u.ID), reasonEffect)
		}
	default:
		m.invariant("unhandled deterministic action", zap.String("action", string(inv.effect.Action.Kind())))
	}
}

// drawCards draws n cards. Drawing from an empty deck ends the match and returns false.
func (m *Match) drawCards(seat, n int) bool {
	p := m.state.Players[seat]
	for i := 0; i < n; i++ {
		if m.state.finished() {
			return false
		}
		card := p.draw()
		if card == nil {
			m.endMatch(1-seat, "deck-out")
			return false
		}
		m.publish(rules.NewEvent(rules.EventCardDrawn, card.ID, "", p.ID))
	}
	return true
}

// raiseLevel increases the leader level, capped at the maximum, and checks awakening.
func (m *Match) raiseLevel(seat, amount int) {
	p := m.state.Players[seat]
	level := p.Level + amount
	if level > rules.MaxLevel {
		level = rules.MaxLevel
	}
	if level <= p.Level {
		return
	}
	p.Level = level
	m.notifyLevelUp(seat, level)
	m.publish(rules.NewEventWithAmount(rules.EventLevelUp, p.ID, "", p.ID, level))
	m.checkAwakening(seat)
}

// checkAwakening fires the leader's on-awaken effects the first time its threshold is reached.
func (m *Match) checkAwakening(seat int) {
	p := m.state.Players[seat]
	if p.Awakened || p.Leader == nil || p.Leader.Card.AwakenLevel <= 0 {
		return
	}
	if p.Level < p.Leader.Card.AwakenLevel {
		return
	}
	p.Awakened = true
	m.notifyAwakening(seat)
	m.publish(rules.NewEventWithAmount(rules.EventAwakened, p.Leader.ID, p.Leader.ID, p.ID, p.Level))
	m.fire(p.Leader, seat, TriggerOnAwaken, LeaderTarget, nil)
}

// dealDamage reveals hits cards from the top of the deck into the damage zone.
// A trigger-tagged reveal fires its on-damage-reveal effects and halts the
// remaining hits. An empty deck or the losing damage count ends the match.
func (m *Match) dealDamage(seat, hits int) {
	p := m.state.Players[seat]
	for i := 0; i < hits; i++ {
		if m.state.finished() {
			return
		}
		if len(p.Deck) == 0 {
			m.endMatch(1-seat, "deck-out")
			return
		}
		card := p.Deck[0]
		p.Deck = p.Deck[1:]
		p.Damage = append(p.Damage, card)
		p.syncHP()

		m.notifyDamageReveal(seat, card, p.HP)
		m.publish(rules.NewEventWithAmount(rules.EventDamageRevealed, card.ID, "", p.ID, p.HP))

		if p.HP >= LosingDamage {
			m.endMatch(1-seat, "damage")
			return
		}
		if card.Card.Trigger {
			m.fire(card, seat, TriggerOnDamageReveal, -1, nil)
			return
		}
	}
}

// heal moves up to n cards from the damage zone to the discard, newest first.
func (m *Match) heal(seat, n int) {
	p := m.state.Players[seat]
	healed := 0
	for healed < n && len(p.Damage) > 0 {
		last := p.Damage[len(p.Damage)-1]
		p.Damage = p.Damage[:len(p.Damage)-1]
		p.toDiscard(last)
		healed++
	}
	p.syncHP()
	if healed > 0 {
		m.publish(rules.NewEventWithAmount(rules.EventDamageHealed, p.ID, "", p.ID, healed))
	}
}

// destroyUnit sends a field unit and its attachments to the discard and
// queues its exit, destroy and ally triggers. Invincible units survive
// anything but rule destruction.
func (m *Match) destroyUnit(seat, slot int, reason destroyReason) bool {
	if slot < 0 || slot >= FieldSlots {
		return false
	}
	p := m.state.Players[seat]
	unit := p.Field[slot]
	if unit == nil {
		return false
	}
	if reason != reasonRule && m.hasKeyword(unit, KeywordInvincible) {
		if m.logger != nil {
			m.logger.Debug("invincible unit survived",
				zap.String("match_id", m.state.ID),
				zap.String("card", unit.Name()),
				zap.String("reason", reason.String()),
			)
		}
		return false
	}

	p.removeFromField(slot)
	p.toDiscard(unit)

	evt := rules.NewEvent(rules.EventUnitDestroyed, unit.ID, "", p.ID)
	evt.Slot = slot
	evt.Description = reason.String()
	m.publish(evt)

	m.fire(unit, seat, TriggerOnExit, slot, nil)
	m.fire(unit, seat, TriggerOnDestroy, slot, nil)
	for i, ally := range p.Field {
		if ally != nil {
			m.fire(ally, seat, TriggerOnOtherUnitDestroyed, i, unit)
		}
	}
	if p.Leader != nil {
		m.fire(p.Leader, seat, TriggerOnOtherUnitDestroyed, LeaderTarget, unit)
	}
	return true
}

// bounceUnit returns a field unit to its owner's hand. Attachments go to the discard.
func (m *Match) bounceUnit(seat, slot int) bool {
	p := m.state.Players[seat]
	unit := p.removeFromField(slot)
	if unit == nil {
		return false
	}
	p.Hand = append(p.Hand, unit)
	evt := rules.NewEvent(rules.EventUnitBounced, unit.ID, "", p.ID)
	evt.Slot = slot
	m.publish(evt)
	m.fire(unit, seat, TriggerOnExit, slot, nil)
	return true
}
