package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/thraizz/tcg-match-server/internal/config"
	"github.com/thraizz/tcg-match-server/internal/game"
	"go.uber.org/zap"
)

// Hub upgrades websocket connections and tracks live sessions.
type Hub struct {
	registry *game.Registry
	cfg      config.HTTPConfig
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewHub creates a hub routing sessions to registry.
func NewHub(registry *game.Registry, cfg config.HTTPConfig, logger *zap.Logger) *Hub {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	h := &Hub{
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	h.logger.Warn("rejected websocket origin", zap.String("origin", origin))
	return false
}

// ServeWS upgrades the request and starts the session pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	s := newSession(uuid.NewString(), h, conn, h.cfg.SendBuffer)
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	h.logger.Info("session opened",
		zap.String("conn_id", s.id),
		zap.String("remote_addr", r.RemoteAddr),
	)

	ping := h.cfg.PingInterval
	go s.writePump(ping)
	go s.readPump(ping * 2)
}

// unregister forgets the session and releases its seat, if any.
func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s.id]
	delete(h.sessions, s.id)
	h.mu.Unlock()
	if !ok {
		return
	}

	if err := h.registry.Disconnect(s.id); err != nil && !errors.Is(err, game.ErrConnectionNotFound) {
		h.logger.Warn("failed to release seat", zap.String("conn_id", s.id), zap.Error(err))
	}
	h.logger.Info("session closed", zap.String("conn_id", s.id))
}

// Count returns the number of open sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// CloseAll closes every open session.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()
	for _, s := range sessions {
		s.close()
	}
}
