package game

import (
	"fmt"

	"github.com/thraizz/tcg-match-server/internal/game/rules"
)

// logEvent turns rules events into action log lines. It runs under the match lock.
func (m *Match) logEvent(evt rules.Event) {
	text := m.describeEvent(evt)
	if text == "" {
		return
	}
	m.state.addLog(text, evt.Timestamp)
}

func (m *Match) describeEvent(evt rules.Event) string {
	who := m.username(evt.PlayerID)
	card := m.cardName(evt.TargetID)

	switch evt.Type {
	case rules.EventMatchStarted:
		return fmt.Sprintf("Match started, %s goes first", who)
	case rules.EventMulliganResolved:
		if evt.Amount > 0 {
			return fmt.Sprintf("%s redrew their opening hand", who)
		}
		return fmt.Sprintf("%s kept their opening hand", who)
	case rules.EventTurnStarted:
		return fmt.Sprintf("Turn %d: %s", evt.Amount, who)
	case rules.EventLevelUp:
		return fmt.Sprintf("%s reached level %d", who, evt.Amount)
	case rules.EventAwakened:
		return fmt.Sprintf("%s awakened", card)
	case rules.EventCardPlayed:
		return fmt.Sprintf("%s played %s", who, card)
	case rules.EventUnitReplaced:
		return fmt.Sprintf("%s replaced %s", who, card)
	case rules.EventUnitDestroyed:
		return fmt.Sprintf("%s was destroyed", card)
	case rules.EventUnitBounced:
		return fmt.Sprintf("%s returned to hand", card)
	case rules.EventActiveUsed:
		return fmt.Sprintf("%s used %s", who, card)
	case rules.EventAttackDeclared:
		return fmt.Sprintf("%s attacks with %s", who, card)
	case rules.EventGuardianIntercept:
		return fmt.Sprintf("%s intercepts", card)
	case rules.EventDamageRevealed:
		return fmt.Sprintf("%s took damage (%d)", who, evt.Amount)
	case rules.EventDamageHealed:
		return fmt.Sprintf("%s healed %d", who, evt.Amount)
	case rules.EventPlayerDisconnected:
		return fmt.Sprintf("%s disconnected", who)
	case rules.EventPlayerReconnected:
		return fmt.Sprintf("%s reconnected", who)
	case rules.EventMatchEnded:
		return fmt.Sprintf("%s wins (%s)", who, evt.Description)
	}
	return ""
}

func (m *Match) username(playerID string) string {
	if seat := m.state.seatOf(playerID); seat >= 0 {
		return m.state.Players[seat].Username
	}
	return playerID
}

func (m *Match) cardName(id string) string {
	if id == "" {
		return ""
	}
	if card, _, _ := m.state.locate(id); card != nil {
		return card.Name()
	}
	return id
}
