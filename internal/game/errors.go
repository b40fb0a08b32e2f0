package game

import "errors"

// Command rejections. Handlers wrap these with context; callers match with errors.Is.
var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchFinished      = errors.New("match has finished")
	ErrUnknownCommand     = errors.New("unknown command")
	ErrUnknownPlayer      = errors.New("player is not seated in this match")
	ErrWrongPhase         = errors.New("command not legal in the current phase")
	ErrNotYourTurn        = errors.New("not the turn owner")
	ErrInvalidTarget      = errors.New("invalid target")
	ErrInvalidCard        = errors.New("invalid card")
	ErrSizeLimit          = errors.New("size limit exceeded")
	ErrSlotUsed           = errors.New("a unit was already placed in this slot this turn")
	ErrCannotAttack       = errors.New("unit cannot attack")
	ErrBreakthrough       = errors.New("attacker has breakthrough and cannot be blocked")
	ErrBerserkerPending   = errors.New("a berserker unit must attack first")
	ErrSelectionPending   = errors.New("a selection is already pending")
	ErrNotRequester       = errors.New("selection belongs to another player")
	ErrInvalidSelection   = errors.New("invalid selection")
	ErrMulliganDone       = errors.New("mulligan already resolved")
	ErrNoActiveAbility    = errors.New("no usable active ability")
	ErrIdentityActive     = errors.New("identity is still connected")
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrBadPassword        = errors.New("wrong room password")
	ErrUnknownDeck        = errors.New("unknown deck")
	ErrAlreadySeated      = errors.New("connection already seated in a room")
	ErrConnectionNotFound = errors.New("connection is not seated in any room")
)
