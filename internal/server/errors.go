package server

import (
	"errors"
	"net/http"

	"github.com/thraizz/tcg-match-server/internal/game"
	"github.com/thraizz/tcg-match-server/internal/repository"
)

// errorCode maps domain errors onto stable codes for clients.
func errorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrWrongPhase):
		return "wrong-phase"
	case errors.Is(err, game.ErrNotYourTurn):
		return "not-your-turn"
	case errors.Is(err, game.ErrInvalidTarget), errors.Is(err, game.ErrInvalidCard):
		return "invalid-target"
	case errors.Is(err, game.ErrSizeLimit):
		return "size-limit"
	case errors.Is(err, game.ErrSlotUsed):
		return "slot-used"
	case errors.Is(err, game.ErrCannotAttack), errors.Is(err, game.ErrBerserkerPending):
		return "cannot-attack"
	case errors.Is(err, game.ErrBreakthrough):
		return "breakthrough"
	case errors.Is(err, game.ErrNotRequester), errors.Is(err, game.ErrInvalidSelection):
		return "invalid-selection"
	case errors.Is(err, game.ErrMatchFinished):
		return "match-finished"
	case errors.Is(err, game.ErrUnknownCommand):
		return "unknown-command"
	case errors.Is(err, game.ErrIdentityActive):
		return "identity-active"
	case errors.Is(err, game.ErrRoomNotFound), errors.Is(err, game.ErrMatchNotFound):
		return "not-found"
	case errors.Is(err, game.ErrRoomFull):
		return "room-full"
	case errors.Is(err, game.ErrBadPassword):
		return "bad-password"
	case errors.Is(err, game.ErrUnknownDeck):
		return "unknown-deck"
	case errors.Is(err, game.ErrAlreadySeated):
		return "already-seated"
	case errors.Is(err, game.ErrConnectionNotFound), errors.Is(err, game.ErrUnknownPlayer):
		return "not-seated"
	}
	return "rejected"
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrRoomNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrBadPassword):
		return http.StatusForbidden
	case errors.Is(err, game.ErrRoomFull), errors.Is(err, game.ErrAlreadySeated):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
