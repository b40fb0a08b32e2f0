package game

import (
	"fmt"

	"github.com/thraizz/tcg-match-server/internal/game/rules"
)

// playCard validates and plays the card at handIndex. Units go to slot,
// possibly replacing the player's own unit; items attach to the unit in
// slot; skills go to the skill zone. Everything is validated before any
// state changes.
func (m *Match) playCard(seat, handIndex, slot int) error {
	if m.state.Phase() != rules.PhaseMain {
		return fmt.Errorf("%w: play-card during %s", ErrWrongPhase, m.state.Phase())
	}
	if m.state.turnSeat() != seat {
		return ErrNotYourTurn
	}
	p := m.state.Players[seat]
	if handIndex < 0 || handIndex >= len(p.Hand) {
		return fmt.Errorf("%w: hand index %d", ErrInvalidCard, handIndex)
	}
	card := p.Hand[handIndex]
	used := p.UsedCost()
	limit := p.SizeLimit()

	switch card.Card.Kind {
	case KindUnit:
		if slot < 0 || slot >= FieldSlots {
			return fmt.Errorf("%w: slot %d", ErrInvalidTarget, slot)
		}
		if p.PlacedInSlot[slot] > 0 {
			return ErrSlotUsed
		}
		freed := 0
		if occupant := p.Field[slot]; occupant != nil {
			freed = occupant.attachedCost()
		}
		if used-freed+card.Card.Cost > limit {
			return fmt.Errorf("%w: %d used, %d limit, %s costs %d", ErrSizeLimit, used-freed, limit, card.Name(), card.Card.Cost)
		}
	case KindItem:
		if slot < 0 || slot >= FieldSlots || p.Field[slot] == nil {
			return fmt.Errorf("%w: items need a unit in slot %d", ErrInvalidTarget, slot)
		}
		if used+card.Card.Cost > limit {
			return fmt.Errorf("%w: %d used, %d limit, %s costs %d", ErrSizeLimit, used, limit, card.Name(), card.Card.Cost)
		}
	case KindSkill:
		if used+card.Card.Cost > limit {
			return fmt.Errorf("%w: %d used, %d limit, %s costs %d", ErrSizeLimit, used, limit, card.Name(), card.Card.Cost)
		}
	default:
		return fmt.Errorf("%w: %s cannot be played", ErrInvalidCard, card.Name())
	}

	p.takeFromHand(card.ID)
	evt := rules.NewEvent(rules.EventCardPlayed, card.ID, card.ID, p.ID)
	evt.Slot = slot

	switch card.Card.Kind {
	case KindUnit:
		if occupant := p.Field[slot]; occupant != nil {
			p.removeFromField(slot)
			p.toDiscard(occupant)
			replaced := rules.NewEvent(rules.EventUnitReplaced, occupant.ID, card.ID, p.ID)
			replaced.Slot = slot
			m.publish(replaced)
			m.fire(occupant, seat, TriggerOnExit, slot, nil)
		}
		p.Field[slot] = card
		p.PlacedInSlot[slot]++
		p.UnitsPlayed++
		m.publish(evt)
		m.fire(card, seat, TriggerOnPlay, slot, nil)
		m.fire(card, seat, TriggerOnEntry, slot, nil)
	case KindItem:
		host := p.Field[slot]
		host.Attachments = append(host.Attachments, card)
		m.publish(evt)
		m.publish(rules.NewEvent(rules.EventItemAttached, host.ID, card.ID, p.ID))
		m.fire(card, seat, TriggerOnPlay, slot, host)
	case KindSkill:
		p.SkillZone = append(p.SkillZone, card)
		evt.Slot = -1
		m.publish(evt)
		m.fire(card, seat, TriggerOnPlay, -1, nil)
	}
	return nil
}

// useActive invokes the active effects of the unit in slot, or of the leader
// for LeaderTarget. Each source may be used once per turn.
func (m *Match) useActive(seat, slot int) error {
	if m.state.Phase() != rules.PhaseMain {
		return fmt.Errorf("%w: use-active-ability during %s", ErrWrongPhase, m.state.Phase())
	}
	if m.state.turnSeat() != seat {
		return ErrNotYourTurn
	}
	p := m.state.Players[seat]

	var source *CardInstance
	switch {
	case slot == LeaderTarget:
		if p.Leader == nil || p.LeaderActiveUsed {
			return ErrNoActiveAbility
		}
		source = p.Leader
	case slot >= 0 && slot < FieldSlots && p.Field[slot] != nil:
		source = p.Field[slot]
		if source.UsedActiveThisTurn {
			return ErrNoActiveAbility
		}
	default:
		return fmt.Errorf("%w: slot %d", ErrInvalidTarget, slot)
	}

	usable := false
	for _, eff := range source.Card.EffectsFor(TriggerActive) {
		if m.gatePasses(invocation{source: source, seat: seat, effect: eff, slot: slot}) {
			usable = true
			break
		}
	}
	if !usable {
		return fmt.Errorf("%w: %s", ErrNoActiveAbility, source.Name())
	}

	if slot == LeaderTarget {
		p.LeaderActiveUsed = true
	} else {
		source.UsedActiveThisTurn = true
	}
	m.publish(rules.NewEvent(rules.EventActiveUsed, source.ID, source.ID, p.ID))
	for _, eff := range source.Card.EffectsFor(TriggerActive) {
		inv := invocation{source: source, seat: seat, effect: eff, slot: slot}
		if m.gatePasses(inv) {
			m.queueInvocation(inv)
		}
	}
	return nil
}
