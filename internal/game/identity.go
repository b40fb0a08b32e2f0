package game

import (
	"fmt"

	"github.com/thraizz/tcg-match-server/internal/game/rules"
	"go.uber.org/zap"
)

// Disconnect marks the player unreachable and starts the grace timer.
// Expiry forfeits the match to the opponent unless the player reconnects first.
func (m *Match) Disconnect(playerID string) error {
	m.mu.Lock()
	seat := m.state.seatOf(playerID)
	if seat < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	p := m.state.Players[seat]
	if !p.Connected {
		m.mu.Unlock()
		return nil
	}
	p.Connected = false
	m.controllers[seat] = nil

	if !m.state.finished() {
		m.stopGraceTimer(seat)
		m.graceGen[seat]++
		gen := m.graceGen[seat]
		m.graceTimers[seat] = m.clock.AfterFunc(m.cfg.GracePeriod, func() {
			m.expireGrace(seat, gen)
		})
		m.notify(1-seat, NotifyDisconnect, map[string]interface{}{
			"player_id":    p.ID,
			"username":     p.Username,
			"grace_period": m.cfg.GracePeriod.Seconds(),
		})
		m.publish(rules.NewEvent(rules.EventPlayerDisconnected, p.ID, "", p.ID))
		m.queueState()
	}

	if m.logger != nil {
		m.logger.Info("player disconnected",
			zap.String("match_id", m.state.ID),
			zap.String("username", p.Username),
			zap.Duration("grace_period", m.cfg.GracePeriod),
		)
	}
	m.deliver()
	return nil
}

// expireGrace forfeits the match for a player whose grace period ran out.
// Stale timers, superseded by a reconnect or a newer disconnect, are ignored.
func (m *Match) expireGrace(seat, gen int) {
	m.mu.Lock()
	p := m.state.Players[seat]
	if m.state.finished() || p.Connected || m.graceGen[seat] != gen {
		m.mu.Unlock()
		return
	}
	m.graceTimers[seat] = nil
	if m.logger != nil {
		m.logger.Info("grace period expired",
			zap.String("match_id", m.state.ID),
			zap.String("username", p.Username),
		)
	}
	m.endMatch(1-seat, "disconnect")
	m.queueState()
	m.deliver()
}

// Reconnect rebinds the seat held by username to newID. Every reference to
// the old id (turn owner, pending attack, pending selection, winner) is
// rewritten, the grace timer is cancelled and the full state is rebroadcast.
func (m *Match) Reconnect(username, newID string, c Controller) error {
	m.mu.Lock()
	seat := -1
	for i, p := range m.state.Players {
		if p.Username == username && !p.IsCPU {
			seat = i
			break
		}
	}
	if seat < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, username)
	}
	p := m.state.Players[seat]
	if p.Connected {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrIdentityActive, username)
	}

	oldID := p.ID
	m.migrateIdentity(oldID, newID)
	p.Connected = true
	m.stopGraceTimer(seat)
	m.graceGen[seat]++
	if c != nil {
		m.controllers[seat] = c
	}

	m.notify(1-seat, NotifyReconnect, map[string]interface{}{
		"player_id": newID,
		"username":  username,
	})
	m.publish(rules.NewEvent(rules.EventPlayerReconnected, newID, "", newID))
	m.queueState()

	if m.logger != nil {
		m.logger.Info("player reconnected",
			zap.String("match_id", m.state.ID),
			zap.String("username", username),
			zap.String("old_id", oldID),
			zap.String("new_id", newID),
		)
	}
	m.deliver()

	if c != nil {
		m.bind(seat, c)
	}
	return nil
}

// migrateIdentity rewrites every reference to oldID. Caller holds mu.
func (m *Match) migrateIdentity(oldID, newID string) {
	seat := m.state.seatOf(oldID)
	if seat < 0 {
		return
	}
	m.state.Players[seat].ID = newID
	m.state.Turns.RenamePlayer(oldID, newID)
	if pending := m.state.Pending; pending != nil {
		if pending.AttackerID == oldID {
			pending.AttackerID = newID
		}
		if pending.DefenderID == oldID {
			pending.DefenderID = newID
		}
	}
	if sel := m.state.Selection; sel != nil && sel.Requester == oldID {
		sel.Requester = newID
	}
	if m.state.Winner == oldID {
		m.state.Winner = newID
	}
}

func (m *Match) stopGraceTimer(seat int) {
	if t := m.graceTimers[seat]; t != nil {
		t.Stop()
		m.graceTimers[seat] = nil
	}
}

// Connected reports whether the seat's player is currently reachable.
func (m *Match) Connected(seat int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Players[seat].Connected
}

// PlayerID returns the current id of the seat's player.
func (m *Match) PlayerID(seat int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Players[seat].ID
}
