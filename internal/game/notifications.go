package game

import (
	"time"

	"github.com/thraizz/tcg-match-server/internal/game/rules"
)

// NotificationType names an outbound message.
type NotificationType string

const (
	NotifyState        NotificationType = "state"
	NotifyDamageReveal NotificationType = "damage-reveal"
	NotifyLevelUp      NotificationType = "level-up"
	NotifyAwakening    NotificationType = "awakening"
	NotifyDisconnect   NotificationType = "disconnect"
	NotifyReconnect    NotificationType = "reconnect"
	NotifyMatchEnd     NotificationType = "match-end"

	// Animation hints carry no authoritative state and may be dropped.
	HintAttack     NotificationType = "attack"
	HintStatDamage NotificationType = "stat-damage"
	HintDestroy    NotificationType = "destroy"
)

// allSeats addresses a notification to both seats.
const allSeats = -1

// Notification is a message for the controller of one seat, or both.
type Notification struct {
	Type      NotificationType       `json:"type"`
	MatchID   string                 `json:"matchId"`
	Seat      int                    `json:"-"`
	Timestamp time.Time              `json:"timestamp"`
	State     *Snapshot              `json:"state,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// IsHint reports whether the notification is a best-effort animation hint.
func (n Notification) IsHint() bool {
	switch n.Type {
	case HintAttack, HintStatDamage, HintDestroy:
		return true
	}
	return false
}

// notify queues a notification for delivery once the command completes.
func (m *Match) notify(seat int, typ NotificationType, data map[string]interface{}) {
	m.outbox = append(m.outbox, Notification{
		Type:      typ,
		MatchID:   m.state.ID,
		Seat:      seat,
		Timestamp: m.clock.Now(),
		Data:      data,
	})
}

// queueState queues a per-seat snapshot for each seated player and records a replay frame.
func (m *Match) queueState() {
	now := m.clock.Now()
	for seat, p := range m.state.Players {
		snap := buildSnapshot(m, p.ID)
		m.outbox = append(m.outbox, Notification{
			Type:      NotifyState,
			MatchID:   m.state.ID,
			Seat:      seat,
			Timestamp: now,
			State:     snap,
		})
	}
	if m.replay != nil {
		m.replay.Record(buildSnapshot(m, ""), now)
	}
}

func (m *Match) notifyDamageReveal(seat int, card *CardInstance, hp int) {
	m.notify(allSeats, NotifyDamageReveal, map[string]interface{}{
		"player_id": m.state.Players[seat].ID,
		"card_id":   card.ID,
		"catalog":   card.Card.ID,
		"name":      card.Name(),
		"trigger":   card.Card.Trigger,
		"hp":        hp,
	})
}

func (m *Match) notifyLevelUp(seat, level int) {
	m.notify(allSeats, NotifyLevelUp, map[string]interface{}{
		"player_id": m.state.Players[seat].ID,
		"level":     level,
	})
}

func (m *Match) notifyAwakening(seat int) {
	p := m.state.Players[seat]
	m.notify(allSeats, NotifyAwakening, map[string]interface{}{
		"player_id": p.ID,
		"leader":    p.Leader.Name(),
		"level":     p.Level,
	})
}

// hintAttack follows EventAttackDeclared. Attacks always target the
// opposing unit in the same lane.
func (m *Match) hintAttack(evt rules.Event) {
	m.notify(allSeats, HintAttack, map[string]interface{}{
		"card_id":      evt.TargetID,
		"attacker_idx": evt.Slot,
		"target_idx":   evt.Slot,
	})
}

func (m *Match) hintStatDamage(attackerPower, defenderPower int) {
	m.notify(allSeats, HintStatDamage, map[string]interface{}{
		"attacker_power": attackerPower,
		"defender_power": defenderPower,
	})
}

// hintDestroy follows EventUnitDestroyed.
func (m *Match) hintDestroy(evt rules.Event) {
	m.notify(allSeats, HintDestroy, map[string]interface{}{
		"card_id":   evt.TargetID,
		"player_id": evt.PlayerID,
		"slot":      evt.Slot,
	})
}
