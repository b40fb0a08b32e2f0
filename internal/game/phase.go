package game

import (
	"fmt"

	"github.com/thraizz/tcg-match-server/internal/game/rules"
)

// resolveMulligan handles one player's opening hand decision. Any non-empty
// selection redraws the whole hand; an empty one keeps it. Both players
// decide independently; the first turn starts once both have answered.
func (m *Match) resolveMulligan(seat int, ids []string) error {
	if m.state.Phase() != rules.PhaseMulligan {
		return fmt.Errorf("%w: mulligan during %s", ErrWrongPhase, m.state.Phase())
	}
	p := m.state.Players[seat]
	if p.MulliganDone {
		return ErrMulliganDone
	}
	for _, id := range ids {
		if indexByID(p.Hand, id) < 0 {
			return fmt.Errorf("%w: %s is not in hand", ErrInvalidSelection, id)
		}
	}

	redraw := len(ids) > 0
	if redraw {
		p.Deck = append(p.Deck, p.Hand...)
		p.Hand = nil
		m.shuffle(p.Deck)
		for i := 0; i < InitialHandSize; i++ {
			p.draw()
		}
	}
	p.MulliganDone = true
	amount := 0
	if redraw {
		amount = InitialHandSize
	}
	m.publish(rules.NewEventWithAmount(rules.EventMulliganResolved, p.ID, "", p.ID, amount))

	if m.state.Players[0].MulliganDone && m.state.Players[1].MulliganDone {
		m.beginTurn(m.cfg.FirstSeat)
	}
	return nil
}

// beginTurn hands the turn to seat and queues its automatic steps.
func (m *Match) beginTurn(seat int) {
	p := m.state.Players[seat]
	turn := m.state.Turns.BeginTurn(p.ID)
	p.UnitsPlayed = 0
	p.PlacedInSlot = [FieldSlots]int{}
	m.publish(rules.NewEventWithAmount(rules.EventTurnStarted, p.ID, "", p.ID, turn))
	m.enqueue("level-up", func() { m.levelUpStep(seat) })
}

func (m *Match) levelUpStep(seat int) {
	m.setPhase(rules.PhaseLevelUp)
	p := m.state.Players[seat]
	if target := rules.LevelForTurn(m.state.Turn()); target > p.Level {
		m.raiseLevel(seat, target-p.Level)
	}
	m.enqueue("draw", func() { m.drawStep(seat) })
}

func (m *Match) drawStep(seat int) {
	m.setPhase(rules.PhaseDraw)
	if m.state.Turn() > 1 && !m.drawCards(seat, 1) {
		return
	}
	m.enqueue("main", func() { m.setPhase(rules.PhaseMain) })
}

// advancePhase moves MAIN to ATTACK, and ATTACK into the automatic end of turn.
func (m *Match) advancePhase(seat int) error {
	phase := m.state.Phase()
	if phase != rules.PhaseMain && phase != rules.PhaseAttack {
		return fmt.Errorf("%w: cannot advance from %s", ErrWrongPhase, phase)
	}
	if m.state.turnSeat() != seat {
		return ErrNotYourTurn
	}
	if phase == rules.PhaseMain {
		m.setPhase(rules.PhaseAttack)
		return nil
	}
	if slot := m.pendingBerserker(seat); slot >= 0 {
		return fmt.Errorf("%w: slot %d", ErrBerserkerPending, slot)
	}
	m.enqueue("end", func() { m.endStep(seat) })
	return nil
}

// pendingBerserker returns the lane of a Berserker that can still attack, or -1.
func (m *Match) pendingBerserker(seat int) int {
	for slot, u := range m.state.Players[seat].Field {
		if canAttack(u) && m.hasKeyword(u, KeywordBerserker) {
			return slot
		}
	}
	return -1
}

// endStep clears the turn and enforces the hand limit. Turn passing is
// queued behind a possible hand-limit selection.
func (m *Match) endStep(seat int) {
	m.setPhase(rules.PhaseEnd)
	p := m.state.Players[seat]

	skills := p.SkillZone
	p.SkillZone = nil
	p.toDiscard(skills...)

	for _, player := range m.state.Players {
		for _, u := range player.Field {
			if u != nil {
				u.clearTurnModifiers()
			}
		}
	}
	for _, u := range p.Field {
		if u == nil {
			continue
		}
		u.AttackedThisTurn = false
		u.UsedActiveThisTurn = false
		u.Stunned = false
		u.CannotAttack = false
	}
	p.LeaderActiveUsed = false

	if excess := len(p.Hand) - MaxHandSize; excess > 0 {
		m.askSelection(selectionSpec{
			seat:       seat,
			pool:       ZoneHand,
			candidates: cardIDs(p.Hand),
			count:      excess,
			prompt:     fmt.Sprintf("Discard %d card(s) down to %d", excess, MaxHandSize),
			phase:      rules.PhaseDiscard,
			next:       contHandLimit{},
		})
	}
	m.enqueue("end:finish", func() { m.finishTurn(seat) })
}

// finishTurn returns recycled cards to hand and passes the turn.
func (m *Match) finishTurn(seat int) {
	p := m.state.Players[seat]
	kept := p.Discard[:0:0]
	for _, c := range p.Discard {
		if c.Recycle {
			c.Recycle = false
			p.Hand = append(p.Hand, c)
			continue
		}
		kept = append(kept, c)
	}
	p.Discard = kept
	m.beginTurn(1 - seat)
}

func cardIDs(cards []*CardInstance) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}
