package server

import (
	"encoding/json"

	"github.com/thraizz/tcg-match-server/internal/game"
)

// Lobby message types. Every other inbound type is a match command.
const (
	msgCreateRoom = "create-room"
	msgJoinRoom   = "join-room"
	msgAddCPU     = "add-cpu"
	msgReconnect  = "reconnect"
	msgListRooms  = "list-rooms"

	msgRoomCreated = "room-created"
	msgJoined      = "joined"
	msgRooms       = "rooms"
	msgAck         = "ack"
	msgError       = "error"
)

// inbound is a client message. Lobby fields and match command fields share
// one flat object.
type inbound struct {
	Type string `json:"type"`
	// RequestID is echoed in the reply so clients can correlate answers.
	RequestID string `json:"requestId,omitempty"`

	RoomID   string `json:"roomId,omitempty"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password,omitempty"`
	Username string `json:"username,omitempty"`
	Deck     string `json:"deck,omitempty"`

	HandIndex    int                `json:"handIndex"`
	Slot         int                `json:"slot"`
	TargetSlot   int                `json:"targetSlot"`
	Choice       game.DefenseChoice `json:"choice,omitempty"`
	GuardianSlot *int               `json:"guardianSlot,omitempty"`
	CardIDs      []string           `json:"cardIds,omitempty"`
}

func (in inbound) command() game.Command {
	return game.Command{
		Type:         game.CommandType(in.Type),
		HandIndex:    in.HandIndex,
		Slot:         in.Slot,
		TargetSlot:   in.TargetSlot,
		Choice:       in.Choice,
		GuardianSlot: in.GuardianSlot,
		CardIDs:      in.CardIDs,
	}
}

// reply is a direct answer to one inbound message.
type reply struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	RoomID    string          `json:"roomId,omitempty"`
	Seat      *int            `json:"seat,omitempty"`
	PlayerID  string          `json:"playerId,omitempty"`
	Rooms     []game.RoomInfo `json:"rooms,omitempty"`
	Command   string          `json:"command,omitempty"`
	Error     string          `json:"error,omitempty"`
	Code      string          `json:"code,omitempty"`
}

func encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
