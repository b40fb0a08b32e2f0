package rules

import (
	"fmt"
	"strings"
)

// Phase represents the match phases of the lane game, including the
// interrupt phases that suspend a turn while a player answers a prompt.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseMulligan
	PhaseLevelUp
	PhaseDraw
	PhaseMain
	PhaseAttack
	PhaseGuardianIntercept
	PhaseDefense
	PhaseEnd
	PhaseSelectCard
	PhaseDiscard
	PhaseFinished
)

var phaseNames = map[Phase]string{
	PhaseWaiting:           "WAITING",
	PhaseMulligan:          "MULLIGAN",
	PhaseLevelUp:           "LEVEL_UP",
	PhaseDraw:              "DRAW",
	PhaseMain:              "MAIN",
	PhaseAttack:            "ATTACK",
	PhaseGuardianIntercept: "GUARDIAN_INTERCEPT",
	PhaseDefense:           "DEFENSE",
	PhaseEnd:               "END",
	PhaseSelectCard:        "SELECT_CARD",
	PhaseDiscard:           "DISCARD",
	PhaseFinished:          "FINISHED",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// MarshalText renders the phase by name so snapshots stay readable.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ParsePhase resolves a phase name, case-insensitively.
func ParsePhase(name string) (Phase, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for phase, n := range phaseNames {
		if n == upper {
			return phase, nil
		}
	}
	return PhaseWaiting, fmt.Errorf("unknown phase %q", name)
}

// IsSelection reports whether the phase is a selection interrupt.
func (p Phase) IsSelection() bool {
	return p == PhaseSelectCard || p == PhaseDiscard
}

// IsCombat reports whether the phase belongs to an attack in progress.
func (p Phase) IsCombat() bool {
	return p == PhaseAttack || p == PhaseGuardianIntercept || p == PhaseDefense
}

// MaxLevel caps the leader level.
const MaxLevel = 10

// LevelForTurn returns the scheduled leader level for a global turn number:
// ceil(turn/2)+1, capped at MaxLevel.
func LevelForTurn(turn int) int {
	if turn < 1 {
		return 1
	}
	level := (turn+1)/2 + 1
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// TurnManager tracks the turn counter, the turn owner and the current phase.
// It is not safe for concurrent use; the owning match serialises access.
type TurnManager struct {
	turnNumber   int
	activePlayer string
	phase        Phase
}

// NewTurnManager creates a turn manager waiting for the match to begin.
func NewTurnManager(startingPlayer string) *TurnManager {
	return &TurnManager{
		activePlayer: startingPlayer,
		phase:        PhaseWaiting,
	}
}

// Phase returns the current phase.
func (tm *TurnManager) Phase() Phase {
	return tm.phase
}

// SetPhase moves to the given phase and returns the previous one.
func (tm *TurnManager) SetPhase(p Phase) Phase {
	prev := tm.phase
	tm.phase = p
	return prev
}

// TurnNumber returns the global turn counter, starting at 1 for the first turn.
func (tm *TurnManager) TurnNumber() int {
	return tm.turnNumber
}

// ActivePlayer returns the id of the turn owner.
func (tm *TurnManager) ActivePlayer() string {
	return tm.activePlayer
}

// BeginTurn increments the turn counter and hands the turn to nextPlayer.
// An empty nextPlayer keeps the current owner.
func (tm *TurnManager) BeginTurn(nextPlayer string) int {
	tm.turnNumber++
	if nextPlayer != "" {
		tm.activePlayer = nextPlayer
	}
	tm.phase = PhaseLevelUp
	return tm.turnNumber
}

// RenamePlayer rewrites the turn owner when a player's identity changes.
func (tm *TurnManager) RenamePlayer(oldID, newID string) bool {
	if tm.activePlayer != oldID || oldID == "" {
		return false
	}
	tm.activePlayer = newID
	return true
}
