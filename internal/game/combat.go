package game

import (
	"fmt"

	"github.com/thraizz/tcg-match-server/internal/game/rules"
	"go.uber.org/zap"
)

// canAttack reports whether a unit may still be declared as an attacker this turn.
func canAttack(u *CardInstance) bool {
	return u != nil && !u.Stunned && !u.CannotAttack && !u.AttackedThisTurn
}

// declareAttack validates and records an attack. Exactly one of a direct hit,
// a defense request or a guardian interception request follows.
func (m *Match) declareAttack(seat, slot, target int) error {
	if m.state.Phase() != rules.PhaseAttack {
		return fmt.Errorf("%w: declare-attack during %s", ErrWrongPhase, m.state.Phase())
	}
	if m.state.turnSeat() != seat {
		return ErrNotYourTurn
	}
	if m.state.Pending != nil {
		return fmt.Errorf("%w: an attack is already pending", ErrWrongPhase)
	}
	if slot < 0 || slot >= FieldSlots {
		return fmt.Errorf("%w: attacker slot %d", ErrInvalidTarget, slot)
	}
	attacker := m.state.Players[seat].Field[slot]
	if attacker == nil {
		return fmt.Errorf("%w: no unit in slot %d", ErrInvalidTarget, slot)
	}
	if !canAttack(attacker) {
		return fmt.Errorf("%w: %s", ErrCannotAttack, attacker.Name())
	}
	if target == LeaderTarget {
		target = slot
	}
	if target != slot {
		return fmt.Errorf("%w: lane %d cannot attack lane %d", ErrInvalidTarget, slot, target)
	}

	attacker.AttackedThisTurn = true
	defender := m.state.opponent(seat)
	m.state.Pending = &PendingAttack{
		AttackerID:    m.state.Players[seat].ID,
		AttackerIndex: slot,
		DefenderID:    defender.ID,
		TargetIndex:   target,
	}

	evt := rules.NewEvent(rules.EventAttackDeclared, attacker.ID, attacker.ID, m.state.Players[seat].ID)
	evt.Slot = slot
	m.publish(evt)

	m.fire(attacker, seat, TriggerOnAttack, slot, defender.Field[target])
	m.enqueue("attack:intercept", m.offerInterception)
	return nil
}

// attackerUnit returns the pending attacker if it is still on the field.
func (m *Match) attackerUnit() (*CardInstance, int) {
	pending := m.state.Pending
	if pending == nil {
		return nil, -1
	}
	seat := m.state.seatOf(pending.AttackerID)
	if seat < 0 {
		return nil, -1
	}
	return m.state.Players[seat].Field[pending.AttackerIndex], seat
}

// cancelAttack drops a pending attack whose attacker left the field.
func (m *Match) cancelAttack() {
	m.state.Pending = nil
	if !m.state.finished() {
		m.setPhase(rules.PhaseAttack)
	}
}

// guardianCandidates lists defender lanes adjacent to target holding an
// unstunned Guardian. A Duelist attacker negates them when the target lane is occupied.
func (m *Match) guardianCandidates(attacker *CardInstance, defender *PlayerState, target int) []int {
	if defender.Field[target] != nil && m.hasKeyword(attacker, KeywordDuelist) {
		return nil
	}
	var lanes []int
	for _, lane := range []int{target - 1, target + 1} {
		if lane < 0 || lane >= FieldSlots {
			continue
		}
		u := defender.Field[lane]
		if u != nil && !u.Stunned && m.hasKeyword(u, KeywordGuardian) {
			lanes = append(lanes, lane)
		}
	}
	return lanes
}

// offerInterception runs after on-attack effects resolved.
func (m *Match) offerInterception() {
	attacker, seat := m.attackerUnit()
	if attacker == nil {
		m.cancelAttack()
		return
	}
	defender := m.state.opponent(seat)
	lanes := m.guardianCandidates(attacker, defender, m.state.Pending.TargetIndex)
	if len(lanes) > 0 {
		m.state.Pending.GuardianSlots = lanes
		m.setPhase(rules.PhaseGuardianIntercept)
		return
	}
	m.finalizeAttack()
}

// resolveGuardian handles the defender's interception choice. A nil slot declines.
func (m *Match) resolveGuardian(seat int, slot *int) error {
	if m.state.Phase() != rules.PhaseGuardianIntercept {
		return fmt.Errorf("%w: no interception pending", ErrWrongPhase)
	}
	pending := m.state.Pending
	if pending == nil || m.state.Players[seat].ID != pending.DefenderID {
		return fmt.Errorf("%w: only the defender may intercept", ErrNotYourTurn)
	}
	if slot != nil {
		allowed := false
		for _, lane := range pending.GuardianSlots {
			if lane == *slot {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("%w: lane %d cannot intercept", ErrInvalidTarget, *slot)
		}
		pending.TargetIndex = *slot
		guardian := m.state.Players[seat].Field[*slot]
		evt := rules.NewEvent(rules.EventGuardianIntercept, guardian.ID, guardian.ID, pending.DefenderID)
		evt.Slot = *slot
		m.publish(evt)
	}
	pending.GuardianSlots = nil
	m.finalizeAttack()
	return nil
}

// finalizeAttack turns the pending attack into a direct hit or a defense request.
func (m *Match) finalizeAttack() {
	attacker, seat := m.attackerUnit()
	if attacker == nil {
		m.cancelAttack()
		return
	}
	pending := m.state.Pending
	defenderSeat := 1 - seat
	if m.state.Players[defenderSeat].Field[pending.TargetIndex] == nil {
		m.unblockedHit(attacker, seat)
		return
	}
	m.setPhase(rules.PhaseDefense)
	if m.hasKeyword(attacker, KeywordDuelist) {
		m.resolveBlock()
	}
}

// resolveDefense handles the defender's block-or-take choice.
func (m *Match) resolveDefense(seat int, choice DefenseChoice) error {
	if m.state.Phase() != rules.PhaseDefense {
		return fmt.Errorf("%w: no defense pending", ErrWrongPhase)
	}
	pending := m.state.Pending
	if pending == nil || m.state.Players[seat].ID != pending.DefenderID {
		return fmt.Errorf("%w: only the defender may respond", ErrNotYourTurn)
	}
	attacker, _ := m.attackerUnit()
	if attacker == nil {
		m.invariant("defense pending without attacker")
		m.cancelAttack()
		return nil
	}

	switch choice {
	case DefenseBlock:
		if m.hasKeyword(attacker, KeywordBreakthrough) {
			return ErrBreakthrough
		}
		m.resolveBlock()
	case DefenseTake:
		m.resolveTake()
	default:
		return fmt.Errorf("%w: defense choice %q", ErrInvalidTarget, choice)
	}
	return nil
}

// resolveBlock compares powers; ties favour the attacker.
func (m *Match) resolveBlock() {
	attacker, attackerSeat := m.attackerUnit()
	pending := m.state.Pending
	defenderSeat := 1 - attackerSeat
	defender := m.state.Players[defenderSeat].Field[pending.TargetIndex]
	if attacker == nil || defender == nil {
		m.invariant("block without both units")
		m.cancelAttack()
		return
	}

	attackPower := m.effectivePower(attacker)
	defensePower := m.effectivePower(defender)
	deathTouch := m.hasKeyword(defender, KeywordDeathTouch)
	m.hintStatDamage(attackPower, defensePower)
	m.publish(rules.NewEventWithAmount(rules.EventBlockResolved, defender.ID, attacker.ID, pending.AttackerID, attackPower-defensePower))

	if m.logger != nil {
		m.logger.Debug("block resolved",
			zap.String("match_id", m.state.ID),
			zap.String("attacker", attacker.Name()),
			zap.Int("attacker_power", attackPower),
			zap.String("defender", defender.Name()),
			zap.Int("defender_power", defensePower),
		)
	}

	m.state.Pending = nil
	m.setPhase(rules.PhaseAttack)

	if attackPower < defensePower {
		return
	}
	if !m.destroyUnit(defenderSeat, m.state.Players[defenderSeat].slotOf(defender.ID), reasonBattle) {
		return
	}
	if pen := m.keywordValue(attacker, KeywordPenetration); pen > 0 {
		m.dealDamage(defenderSeat, pen)
	}
	if loot := m.keywordValue(attacker, KeywordLoot); loot > 0 && !m.state.finished() {
		m.drawCards(attackerSeat, loot)
	}
	if deathTouch && attacker.Card.Cost <= defender.Card.Cost && !m.state.finished() {
		if slot := m.state.Players[attackerSeat].slotOf(attacker.ID); slot >= 0 {
			m.destroyUnit(attackerSeat, slot, reasonBattle)
		}
	}
}

// resolveTake lets the attack through to the defending leader.
func (m *Match) resolveTake() {
	attacker, seat := m.attackerUnit()
	m.unblockedHit(attacker, seat)
}

// unblockedHit deals the attacker's hits to the defending leader and draws for Infiltrate.
func (m *Match) unblockedHit(attacker *CardInstance, seat int) {
	hits := m.effectiveHits(attacker)
	infiltrate := m.keywordValue(attacker, KeywordInfiltrate)
	m.state.Pending = nil
	m.setPhase(rules.PhaseAttack)

	m.dealDamage(1-seat, hits)
	if infiltrate > 0 && !m.state.finished() {
		m.drawCards(seat, infiltrate)
	}
}
