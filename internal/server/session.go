package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/thraizz/tcg-match-server/internal/game"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 16 * 1024
)

var errNotSeated = fmt.Errorf("%w: join a room first", game.ErrWrongPhase)

// Session is one websocket connection. Once seated it is the seat's
// game.Controller: snapshots and notifications are queued on send and
// written by writePump, so Receive never blocks the match.
type Session struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	logger *zap.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	submit game.SubmitFunc
	roomID string
}

func newSession(id string, hub *Hub, conn *websocket.Conn, buffer int) *Session {
	return &Session{
		id:     id,
		hub:    hub,
		conn:   conn,
		logger: hub.logger.With(zap.String("conn_id", id)),
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

// ID returns the connection id, which is also the seat's player id.
func (s *Session) ID() string { return s.id }

// Bind stores the seat's submit capability.
func (s *Session) Bind(submit game.SubmitFunc) {
	s.mu.Lock()
	s.submit = submit
	s.mu.Unlock()
}

// Receive queues a notification. Hints are dropped when the queue is full;
// anything else closes the connection so the client reconnects and
// receives a full snapshot.
func (s *Session) Receive(n game.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		s.logger.Error("failed to encode notification", zap.String("type", string(n.Type)), zap.Error(err))
		return
	}
	if !s.enqueue(data) && !n.IsHint() {
		s.logger.Warn("slow consumer, closing connection", zap.String("type", string(n.Type)))
		s.close()
	}
}

func (s *Session) enqueue(data []byte) bool {
	select {
	case <-s.done:
		return true
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *Session) replyTo(in inbound, r reply) {
	r.RequestID = in.RequestID
	data, err := encode(r)
	if err != nil {
		s.logger.Error("failed to encode reply", zap.Error(err))
		return
	}
	if !s.enqueue(data) {
		s.close()
	}
}

func (s *Session) replyError(in inbound, err error) {
	s.replyTo(in, reply{Type: msgError, Command: in.Type, Error: err.Error(), Code: errorCode(err)})
}

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// readPump reads client messages until the connection fails, then releases the seat.
func (s *Session) readPump(pongWait time.Duration) {
	defer func() {
		s.close()
		s.hub.unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		var in inbound
		if err := json.Unmarshal(message, &in); err != nil {
			s.replyTo(in, reply{Type: msgError, Error: "malformed message", Code: "invalid-request"})
			continue
		}
		s.handle(in)
	}
}

// writePump writes queued messages and keeps the connection alive with pings.
func (s *Session) writePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// handle dispatches one inbound message.
func (s *Session) handle(in inbound) {
	reg := s.hub.registry
	switch in.Type {
	case msgListRooms:
		s.replyTo(in, reply{Type: msgRooms, Rooms: reg.Rooms()})

	case msgCreateRoom:
		id, err := reg.CreateRoom(strings.TrimSpace(in.Name), in.Password)
		if err != nil {
			s.replyError(in, err)
			return
		}
		s.replyTo(in, reply{Type: msgRoomCreated, RoomID: id})

	case msgJoinRoom:
		username := strings.TrimSpace(in.Username)
		if username == "" {
			s.replyTo(in, reply{Type: msgError, Command: in.Type, Error: "username is required", Code: "invalid-request"})
			return
		}
		seat, err := reg.JoinRoom(in.RoomID, in.Password, s.id, username, in.Deck, s)
		if err != nil {
			s.replyError(in, err)
			return
		}
		s.seated(in, seat)

	case msgAddCPU:
		roomID := in.RoomID
		if roomID == "" {
			roomID = s.room()
		}
		if err := reg.AddCPU(roomID, in.Deck); err != nil {
			s.replyError(in, err)
			return
		}
		s.replyTo(in, reply{Type: msgAck, Command: in.Type, RoomID: roomID})

	case msgReconnect:
		seat, err := reg.Reconnect(in.RoomID, strings.TrimSpace(in.Username), s.id, s)
		if err != nil {
			s.replyError(in, err)
			return
		}
		s.seated(in, seat)

	default:
		s.mu.Lock()
		submit := s.submit
		s.mu.Unlock()
		if submit == nil {
			s.replyError(in, errNotSeated)
			return
		}
		if err := submit(in.command()); err != nil {
			if !errors.Is(err, game.ErrUnknownCommand) {
				s.logger.Debug("command rejected", zap.String("command", in.Type), zap.Error(err))
			}
			s.replyError(in, err)
			return
		}
		s.replyTo(in, reply{Type: msgAck, Command: in.Type})
	}
}

func (s *Session) seated(in inbound, seat int) {
	s.mu.Lock()
	s.roomID = in.RoomID
	s.mu.Unlock()
	s.logger.Info("session seated", zap.String("room_id", in.RoomID), zap.Int("seat", seat))
	s.replyTo(in, reply{Type: msgJoined, RoomID: in.RoomID, Seat: &seat, PlayerID: s.id})
}

func (s *Session) room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}
