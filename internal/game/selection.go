package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/thraizz/tcg-match-server/internal/game/rules"
	"go.uber.org/zap"
)

// continuation is the typed resumption of a suspended effect. The set of
// variants is closed; resume dispatches on the concrete type.
type continuation interface {
	continuation()
}

type (
	contSearchDeck struct{ revealed []string }
	contDiscardHand struct{}
	contHandLimit   struct{}
	contBounce      struct{}
	contKill        struct{}
	contDebuffEnemy struct {
		power      int
		drawOnKill int
	}
	contSalvage        struct{}
	contRecycle        struct{}
	contResurrect      struct{}
	contDiscardForKill struct{}
	contKillBelowCost  struct{ cost int }
)

func (contSearchDeck) continuation()     {}
func (contDiscardHand) continuation()    {}
func (contHandLimit) continuation()      {}
func (contBounce) continuation()         {}
func (contKill) continuation()           {}
func (contDebuffEnemy) continuation()    {}
func (contSalvage) continuation()        {}
func (contRecycle) continuation()        {}
func (contResurrect) continuation()      {}
func (contDiscardForKill) continuation() {}
func (contKillBelowCost) continuation()  {}

// selectionSpec describes a selection to open.
type selectionSpec struct {
	seat       int
	pool       Zone
	candidates []string
	count      int
	optional   bool
	prompt     string
	trigger    *CardInstance
	phase      rules.Phase
	next       continuation
}

// requestSelection opens the single outstanding selection, recording the
// phase to return to.
func (m *Match) requestSelection(ask selectionSpec) error {
	if m.state.Selection != nil {
		return ErrSelectionPending
	}
	if ask.count <= 0 {
		ask.count = 1
	}
	if ask.count > len(ask.candidates) {
		ask.count = len(ask.candidates)
	}
	if ask.phase != rules.PhaseDiscard {
		ask.phase = rules.PhaseSelectCard
	}
	requester := m.state.Players[ask.seat]
	m.state.Selection = &SelectionRequest{
		ID:          uuid.NewString(),
		Requester:   requester.ID,
		Pool:        ask.pool,
		Candidates:  ask.candidates,
		Count:       ask.count,
		Optional:    ask.optional,
		Prompt:      ask.prompt,
		ReturnPhase: m.state.Phase(),
		TriggerCard: ask.trigger,
		next:        ask.next,
	}
	m.setPhase(ask.phase)
	m.publish(rules.NewEventWithAmount(rules.EventSelectionRequested, "", "", requester.ID, ask.count))
	return nil
}

// askSelection opens a selection from inside effect resolution, where a
// pending selection would be an internal error.
func (m *Match) askSelection(ask selectionSpec) {
	if err := m.requestSelection(ask); err != nil {
		m.invariant("selection requested while another is pending", zap.Error(err))
	}
}

// resolveSelection validates the requester's choice, restores the recorded
// phase and resumes the continuation.
func (m *Match) resolveSelection(seat int, ids []string) error {
	req := m.state.Selection
	if req == nil || !m.state.Phase().IsSelection() {
		return fmt.Errorf("%w: no selection pending", ErrWrongPhase)
	}
	if m.state.Players[seat].ID != req.Requester {
		return ErrNotRequester
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] || !req.isCandidate(id) {
			return fmt.Errorf("%w: %s", ErrInvalidSelection, id)
		}
		seen[id] = true
	}
	if req.Optional && len(ids) > req.Count {
		return fmt.Errorf("%w: at most %d cards", ErrInvalidSelection, req.Count)
	}
	if !req.Optional && len(ids) != req.Count {
		return fmt.Errorf("%w: exactly %d cards", ErrInvalidSelection, req.Count)
	}

	m.state.Selection = nil
	m.setPhase(req.ReturnPhase)
	m.publish(rules.NewEventWithAmount(rules.EventSelectionResolved, "", "", req.Requester, len(ids)))
	m.cascade(func() { m.resume(seat, req, ids) })
	return nil
}

// resume dispatches on the continuation type.
func (m *Match) resume(seat int, req *SelectionRequest, ids []string) {
	own := m.state.Players[seat]
	enemySeat := 1 - seat
	enemy := m.state.Players[enemySeat]

	switch next := req.next.(type) {
	case contSearchDeck:
		chosen := make(map[string]bool, len(ids))
		for _, id := range ids {
			if card := own.takeFromDeck(id); card != nil {
				own.Hand = append(own.Hand, card)
				chosen[id] = true
			}
		}
		var rest []string
		for _, id := range next.revealed {
			if !chosen[id] {
				rest = append(rest, id)
			}
		}
		m.toDeckBottomShuffled(seat, rest)

	case contDiscardHand, contHandLimit:
		for _, id := range ids {
			if card := own.takeFromHand(id); card != nil {
				own.toDiscard(card)
				m.publish(rules.NewEvent(rules.EventCardDiscarded, card.ID, "", own.ID))
			}
		}

	case contBounce:
		for _, id := range ids {
			if slot := enemy.slotOf(id); slot >= 0 {
				m.bounceUnit(enemySeat, slot)
			}
		}

	case contKill, contKillBelowCost:
		for _, id := range ids {
			slot := enemy.slotOf(id)
			if slot < 0 {
				m.invariant("kill target left the field", zap.String("card_id", id))
				continue
			}
			if below, ok := next.(contKillBelowCost); ok && enemy.Field[slot].Card.Cost >= below.cost {
				m.invariant("kill target no longer below cost", zap.String("card_id", id))
				continue
			}
			m.destroyUnit(enemySeat, slot, reasonEffect)
		}

	case contDebuffEnemy:
		for _, id := range ids {
			slot := enemy.slotOf(id)
			if slot < 0 {
				continue
			}
			enemy.Field[slot].TempDebuff += next.power
			m.sweep()
			if enemy.slotOf(id) < 0 && next.drawOnKill > 0 {
				m.drawCards(seat, next.drawOnKill)
			}
		}

	case contSalvage:
		for _, id := range ids {
			if card := own.takeFromDiscard(id); card != nil {
				own.Hand = append(own.Hand, card)
			}
		}

	case contRecycle:
		for _, id := range ids {
			if i := indexByID(own.Discard, id); i >= 0 {
				own.Discard[i].Recycle = true
			}
		}

	case contResurrect:
		for _, id := range ids {
			slot := own.firstEmptySlot()
			if slot < 0 {
				m.invariant("no empty slot to resurrect into", zap.String("card_id", id))
				break
			}
			card := own.takeFromDiscard(id)
			if card == nil {
				continue
			}
			own.Field[slot] = card
			evt := rules.NewEvent(rules.EventUnitEntered, card.ID, "", own.ID)
			evt.Slot = slot
			m.publish(evt)
			m.fire(card, seat, TriggerOnEntry, slot, nil)
		}

	case contDiscardForKill:
		if len(ids) != 1 {
			return
		}
		card := own.takeFromHand(ids[0])
		if card == nil {
			m.invariant("discard-for-kill card left the hand", zap.String("card_id", ids[0]))
			return
		}
		own.toDiscard(card)
		m.publish(rules.NewEvent(rules.EventCardDiscarded, card.ID, "", own.ID))
		cost := card.Card.Cost
		targets := unitIDs(enemy, func(u *CardInstance) bool { return u.Card.Cost < cost })
		if len(targets) == 0 {
			return
		}
		m.askSelection(selectionSpec{
			seat:       seat,
			pool:       ZoneField,
			candidates: targets,
			count:      1,
			prompt:     fmt.Sprintf("Destroy an enemy unit costing less than %d", cost),
			trigger:    req.TriggerCard,
			next:       contKillBelowCost{cost: cost},
		})

	default:
		m.invariant("selection resumed with unknown continuation", zap.String("selection_id", req.ID))
	}
}

// requestChoice issues the selection for a choice-dependent action. When no
// candidate exists the action does nothing.
func (m *Match) requestChoice(inv invocation) {
	seat := inv.seat
	own := m.state.Players[seat]
	enemy := m.state.opponent(seat)
	ask := selectionSpec{seat: seat, trigger: inv.source}

	switch a := inv.effect.Action.(type) {
	case SearchDeck:
		look := a.Look
		if look > len(own.Deck) {
			look = len(own.Deck)
		}
		revealed := cardIDs(own.Deck[:look])
		for _, c := range own.Deck[:look] {
			if a.Filter.Match(c.Card) {
				ask.candidates = append(ask.candidates, c.ID)
			}
		}
		if len(ask.candidates) == 0 {
			m.toDeckBottomShuffled(seat, revealed)
			return
		}
		ask.pool, ask.count, ask.optional = ZoneDeck, a.Count, true
		ask.prompt = fmt.Sprintf("Add up to %d card(s) to your hand", a.Count)
		ask.next = contSearchDeck{revealed: revealed}
	case DiscardHand:
		ask.candidates = cardIDs(own.Hand)
		ask.pool, ask.count = ZoneHand, a.Count
		ask.prompt = fmt.Sprintf("Discard %d card(s)", a.Count)
		ask.next = contDiscardHand{}
	case BounceEnemy:
		ask.candidates = unitIDs(enemy, costAtMost(a.MaxCost))
		ask.pool = ZoneField
		ask.prompt = "Return an enemy unit to its owner's hand"
		ask.next = contBounce{}
	case KillEnemy:
		ask.candidates = unitIDs(enemy, costAtMost(a.MaxCost))
		ask.pool = ZoneField
		ask.prompt = "Destroy an enemy unit"
		ask.next = contKill{}
	case DebuffEnemy:
		ask.candidates = unitIDs(enemy, nil)
		ask.pool = ZoneField
		ask.prompt = fmt.Sprintf("Give an enemy unit -%d power", a.Power)
		ask.next = contDebuffEnemy{power: a.Power, drawOnKill: a.DrawOnKill}
	case Salvage:
		ask.candidates = filterIDs(own.Discard, func(c *CardInstance) bool { return a.Filter.Match(c.Card) })
		ask.pool, ask.count = ZoneDiscard, a.Count
		ask.prompt = "Return card(s) from your discard to your hand"
		ask.next = contSalvage{}
	case Recycle:
		ask.candidates = filterIDs(own.Discard, func(c *CardInstance) bool { return !c.Recycle && a.Filter.Match(c.Card) })
		ask.pool = ZoneDiscard
		ask.prompt = "Choose a card to return to your hand at end of turn"
		ask.next = contRecycle{}
	case Resurrect:
		if own.firstEmptySlot() < 0 {
			return
		}
		ask.candidates = filterIDs(own.Discard, func(c *CardInstance) bool {
			return c.Card.Kind == KindUnit && (a.MaxCost <= 0 || c.Card.Cost <= a.MaxCost)
		})
		ask.pool = ZoneDiscard
		ask.prompt = "Return a unit from your discard to the field"
		ask.next = contResurrect{}
	case DiscardThenKill:
		ask.candidates = filterIDs(own.Hand, func(c *CardInstance) bool { return c.Card.Kind == KindUnit })
		ask.pool = ZoneHand
		ask.prompt = "Discard a unit from your hand"
		ask.next = contDiscardForKill{}
	default:
		m.invariant("unhandled choice action", zap.String("action", string(inv.effect.Action.Kind())))
		return
	}

	if len(ask.candidates) == 0 {
		return
	}
	m.askSelection(ask)
}

// toDeckBottomShuffled moves the given deck cards to the bottom in random order.
func (m *Match) toDeckBottomShuffled(seat int, ids []string) {
	p := m.state.Players[seat]
	var moved []*CardInstance
	for _, id := range ids {
		if card := p.takeFromDeck(id); card != nil {
			moved = append(moved, card)
		}
	}
	m.shuffle(moved)
	p.Deck = append(p.Deck, moved...)
}

func costAtMost(max int) func(*CardInstance) bool {
	return func(u *CardInstance) bool {
		return max <= 0 || u.Card.Cost <= max
	}
}

func unitIDs(p *PlayerState, keep func(*CardInstance) bool) []string {
	var ids []string
	for _, u := range p.Field {
		if u != nil && (keep == nil || keep(u)) {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

func filterIDs(cards []*CardInstance, keep func(*CardInstance) bool) []string {
	var ids []string
	for _, c := range cards {
		if keep(c) {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
