package game

import (
	"go.uber.org/zap"
)

// workItem is one deferred step: an effect, a cascade or an automatic phase step.
type workItem struct {
	label string
	run   func()
}

func (m *Match) enqueue(label string, run func()) {
	m.queue = append(m.queue, workItem{label: label, run: run})
}

// drain runs queued work until the queue is empty, a selection is pending
// or the match ends. Each item is followed by a state-based action sweep.
func (m *Match) drain() {
	steps := 0
	for len(m.queue) > 0 {
		if m.state.finished() {
			m.queue = nil
			return
		}
		if m.state.Selection != nil {
			return
		}
		steps++
		if steps > maxWorkItems {
			if m.logger != nil {
				m.logger.Warn("work queue hit iteration limit",
					zap.String("match_id", m.state.ID),
					zap.Int("remaining", len(m.queue)),
				)
			}
			m.queue = nil
			return
		}
		item := m.queue[0]
		m.queue = m.queue[1:]
		m.cascade(item.run)
	}
}

// cascade runs fn and the state-based sweep after it. Work they queue is
// placed ahead of what was already waiting, so triggered effects resolve
// before pending combat or phase steps continue.
func (m *Match) cascade(fn func()) {
	rest := m.queue
	m.queue = nil
	fn()
	m.sweep()
	if m.state.finished() {
		m.queue = nil
		return
	}
	m.queue = append(m.queue, rest...)
}

// invocation is one effect bound to its source and controller.
type invocation struct {
	source  *CardInstance
	seat    int
	effect  Effect
	slot    int           // lane of the source, -1 when not on the field
	subject *CardInstance // context unit, e.g. the destroyed ally
}

// fire collects the effects of source and its attachments bound to trigger,
// filters them by level gate and condition, and queues them in order.
// It returns the number of effects queued.
func (m *Match) fire(source *CardInstance, seat int, trigger Trigger, slot int, subject *CardInstance) int {
	if source == nil || source.Card == nil {
		return 0
	}
	queued := 0
	sources := append([]*CardInstance{source}, source.Attachments...)
	for _, src := range sources {
		for _, eff := range src.Card.EffectsFor(trigger) {
			inv := invocation{source: src, seat: seat, effect: eff, slot: slot, subject: subject}
			if !m.gatePasses(inv) {
				continue
			}
			m.queueInvocation(inv)
			queued++
		}
	}
	return queued
}

func (m *Match) queueInvocation(inv invocation) {
	label := string(inv.effect.Trigger) + ":" + string(inv.effect.Action.Kind())
	m.enqueue(label, func() { m.execute(inv) })
	if inv.effect.SelfTrash {
		m.enqueue("self-trash", func() { m.selfTrash(inv.source) })
	}
}

// gatePasses checks the level gate and the condition of an effect.
func (m *Match) gatePasses(inv invocation) bool {
	p := m.state.Players[inv.seat]
	if inv.effect.MinLevel > 0 && p.Level < inv.effect.MinLevel {
		return false
	}
	if inv.effect.Condition == nil {
		return true
	}
	return m.conditionHolds(*inv.effect.Condition, inv.seat, inv.source, inv.subject)
}

// execute applies one effect. Choice-dependent actions issue a selection.
func (m *Match) execute(inv invocation) {
	if inv.effect.Action == nil {
		m.invariant("effect without action", zap.String("card", inv.source.Name()))
		return
	}
	if m.logger != nil {
		m.logger.Debug("resolving effect",
			zap.String("match_id", m.state.ID),
			zap.String("card", inv.source.Name()),
			zap.String("trigger", string(inv.effect.Trigger)),
			zap.String("action", string(inv.effect.Action.Kind())),
		)
	}
	if RequiresChoice(inv.effect.Action) {
		m.requestChoice(inv)
		return
	}
	m.applyDeterministic(inv)
}

// selfTrash moves the source to the discard from hand, field, item or skill zone.
func (m *Match) selfTrash(card *CardInstance) {
	p := m.state.Players[card.Owner]
	_, zone := p.locate(card.ID)
	switch zone {
	case ZoneHand:
		p.toDiscard(p.takeFromHand(card.ID))
	case ZoneSkill:
		p.toDiscard(p.takeFromSkillZone(card.ID))
	case ZoneField:
		slot := p.slotOf(card.ID)
		unit := p.removeFromField(slot)
		p.toDiscard(unit)
		m.fire(unit, card.Owner, TriggerOnExit, slot, nil)
	case ZoneItem:
		host := p.Field[p.hostOf(card.ID)]
		host.Attachments, _ = removeByID(host.Attachments, card.ID)
		p.toDiscard(card)
	}
}

// invariant logs an internal inconsistency. The offending step is skipped.
func (m *Match) invariant(msg string, fields ...zap.Field) {
	if m.logger == nil {
		return
	}
	fields = append([]zap.Field{zap.String("match_id", m.state.ID)}, fields...)
	m.logger.Error(msg, fields...)
}

// sourceLane returns the lane the source occupies, directly or through its host.
func (m *Match) sourceLane(inv invocation) int {
	if inv.slot >= 0 && inv.slot < FieldSlots {
		return inv.slot
	}
	p := m.state.Players[inv.seat]
	if slot := p.slotOf(inv.source.ID); slot >= 0 {
		return slot
	}
	return p.hostOf(inv.source.ID)
}

// unitTargets resolves a unit selector for a deterministic effect.
func (m *Match) unitTargets(inv invocation) []*CardInstance {
	own := m.state.Players[inv.seat]
	enemy := m.state.opponent(inv.seat)

	switch inv.effect.Target {
	case TargetSelf, "":
		if slot := own.slotOf(inv.source.ID); slot >= 0 {
			return []*CardInstance{own.Field[slot]}
		}
		if host := own.hostOf(inv.source.ID); host >= 0 {
			return []*CardInstance{own.Field[host]}
		}
	case TargetAttachedUnit:
		if host := own.hostOf(inv.source.ID); host >= 0 {
			return []*CardInstance{own.Field[host]}
		}
	case TargetOwnUnits:
		return own.units()
	case TargetEnemyUnits:
		return enemy.units()
	case TargetAllUnits:
		return append(own.units(), enemy.units()...)
	case TargetOpposingUnit:
		if lane := m.sourceLane(inv); lane >= 0 && enemy.Field[lane] != nil {
			return []*CardInstance{enemy.Field[lane]}
		}
	}
	return nil
}

// playerTarget resolves the seat a player-directed effect applies to.
func (m *Match) playerTarget(inv invocation, fallback TargetSelector) int {
	target := inv.effect.Target
	if target != TargetOwnPlayer && target != TargetEnemyPlayer {
		target = fallback
	}
	if target == TargetEnemyPlayer {
		return 1 - inv.seat
	}
	return inv.seat
}
