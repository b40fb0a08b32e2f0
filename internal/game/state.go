package game

import (
	"time"

	"github.com/thraizz/tcg-match-server/internal/game/rules"
)

const defaultLogLimit = 50

// PendingAttack is the attack awaiting interception or defense.
type PendingAttack struct {
	AttackerID    string `json:"attackerId"`
	AttackerIndex int    `json:"attackerIndex"`
	DefenderID    string `json:"defenderId"`
	TargetIndex   int    `json:"targetIndex"`
	// GuardianSlots lists the lanes allowed to intercept while in GUARDIAN_INTERCEPT.
	GuardianSlots []int `json:"guardianSlots,omitempty"`
}

// SelectionRequest is the single outstanding "awaiting player choice".
type SelectionRequest struct {
	ID          string
	Requester   string
	Pool        Zone
	Candidates  []string
	Count       int
	Optional    bool
	Prompt      string
	ReturnPhase rules.Phase
	TriggerCard *CardInstance
	next        continuation
}

func (s *SelectionRequest) isCandidate(id string) bool {
	for _, c := range s.Candidates {
		if c == id {
			return true
		}
	}
	return false
}

// LogEntry is one line of the bounded action log.
type LogEntry struct {
	Turn      int       `json:"turn"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// MatchState is the authoritative state of one match. It is owned by its
// Match and only touched while the match lock is held.
type MatchState struct {
	ID        string
	Players   [2]*PlayerState
	Turns     *rules.TurnManager
	Pending   *PendingAttack
	Selection *SelectionRequest
	Log       []LogEntry
	Winner    string
	EndReason string
	StartedAt time.Time
	EndedAt   time.Time

	logLimit int
}

func newMatchState(id string, logLimit int) *MatchState {
	if logLimit <= 0 {
		logLimit = defaultLogLimit
	}
	return &MatchState{
		ID:       id,
		Turns:    rules.NewTurnManager(""),
		logLimit: logLimit,
	}
}

// Phase returns the current phase.
func (s *MatchState) Phase() rules.Phase {
	return s.Turns.Phase()
}

// TurnPlayer returns the id of the turn owner.
func (s *MatchState) TurnPlayer() string {
	return s.Turns.ActivePlayer()
}

// Turn returns the global turn counter.
func (s *MatchState) Turn() int {
	return s.Turns.TurnNumber()
}

// seatOf returns the seat of a player id, or -1.
func (s *MatchState) seatOf(playerID string) int {
	for i, p := range s.Players {
		if p != nil && p.ID == playerID {
			return i
		}
	}
	return -1
}

func (s *MatchState) turnSeat() int {
	return s.seatOf(s.TurnPlayer())
}

func (s *MatchState) opponent(seat int) *PlayerState {
	return s.Players[1-seat]
}

func (s *MatchState) finished() bool {
	return s.Phase() == rules.PhaseFinished
}

func (s *MatchState) addLog(text string, now time.Time) {
	s.Log = append(s.Log, LogEntry{Turn: s.Turn(), Text: text, Timestamp: now})
	if len(s.Log) > s.logLimit {
		s.Log = s.Log[len(s.Log)-s.logLimit:]
	}
}

// locate finds a card instance anywhere in the match.
func (s *MatchState) locate(id string) (*CardInstance, int, Zone) {
	for seat, p := range s.Players {
		if card, zone := p.locate(id); card != nil {
			return card, seat, zone
		}
	}
	return nil, -1, ZoneNone
}

// CardIDs lists every card instance in the match.
func (s *MatchState) CardIDs() []string {
	var ids []string
	for _, p := range s.Players {
		ids = append(ids, p.cardIDs()...)
	}
	return ids
}
