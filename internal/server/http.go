package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/thraizz/tcg-match-server/internal/config"
	"github.com/thraizz/tcg-match-server/internal/game"
	"github.com/thraizz/tcg-match-server/internal/repository"
	"go.uber.org/zap"
)

// MatchHistory is the read side of the match archive.
type MatchHistory interface {
	Get(ctx context.Context, matchID string) (game.MatchRecord, error)
	Recent(ctx context.Context, limit int) ([]game.MatchRecord, error)
}

// HTTPServer serves the websocket endpoint, room listing and match history.
type HTTPServer struct {
	server   *http.Server
	hub      *Hub
	registry *game.Registry
	catalog  *game.Catalog
	history  MatchHistory
	logger   *zap.Logger
}

// NewHTTPServer wires the router. history may be nil.
func NewHTTPServer(cfg config.HTTPConfig, registry *game.Registry, catalog *game.Catalog, history MatchHistory, logger *zap.Logger) *HTTPServer {
	s := &HTTPServer{
		hub:      NewHub(registry, cfg, logger),
		registry: registry,
		catalog:  catalog,
		history:  history,
		logger:   logger,
	}
	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Router builds the HTTP routes.
func (s *HTTPServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/ws", s.hub.ServeWS)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/rooms", s.handleListRooms).Methods(http.MethodGet)
	r.HandleFunc("/rooms", s.handleCreateRoom).Methods(http.MethodPost)
	r.HandleFunc("/decks", s.handleListDecks).Methods(http.MethodGet)
	r.HandleFunc("/matches", s.handleRecentMatches).Methods(http.MethodGet)
	r.HandleFunc("/matches/{id}", s.handleGetMatch).Methods(http.MethodGet)
	r.HandleFunc("/matches/{id}/replay", s.handleGetReplay).Methods(http.MethodGet)
	return r
}

// Hub exposes the websocket hub.
func (s *HTTPServer) Hub() *Hub { return s.hub }

// Start serves until Stop is called.
func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("address", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes sessions and shuts the listener down.
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.hub.CloseAll()
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
		)
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	rooms, active := s.registry.Stats()
	writeJSON(w, http.StatusOK, map[string]int{
		"rooms":    rooms,
		"matches":  active,
		"sessions": s.hub.Count(),
	})
}

func (s *HTTPServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Rooms())
}

type createRoomRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *HTTPServer) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageSize)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	id, err := s.registry.CreateRoom(req.Name, req.Password)
	if err != nil {
		s.logger.Error("failed to create room", zap.Error(err))
		http.Error(w, "failed to create room", httpStatus(err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *HTTPServer) handleListDecks(w http.ResponseWriter, r *http.Request) {
	type deckInfo struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Leader string `json:"leader,omitempty"`
	}
	out := []deckInfo{}
	if s.catalog != nil {
		for _, id := range s.catalog.DeckIDs() {
			d, _ := s.catalog.Deck(id)
			out = append(out, deckInfo{ID: d.ID, Name: d.Name, Leader: d.Leader})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// matchSummary is the JSON form of an archived match without its replay.
type matchSummary struct {
	ID        string    `json:"id"`
	Players   [2]string `json:"players"`
	Usernames [2]string `json:"usernames"`
	Winner    string    `json:"winner"`
	Reason    string    `json:"reason"`
	Turns     int       `json:"turns"`
	StartedAt string    `json:"startedAt"`
	EndedAt   string    `json:"endedAt"`
	Checksum  string    `json:"checksum"`
}

func summarize(rec game.MatchRecord) matchSummary {
	return matchSummary{
		ID:        rec.ID,
		Players:   rec.Players,
		Usernames: rec.Usernames,
		Winner:    rec.Winner,
		Reason:    rec.Reason,
		Turns:     rec.Turns,
		StartedAt: rec.StartedAt.UTC().Format(time.RFC3339),
		EndedAt:   rec.EndedAt.UTC().Format(time.RFC3339),
		Checksum:  rec.Checksum,
	}
}

func (s *HTTPServer) handleRecentMatches(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []matchSummary{})
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	recs, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list matches", zap.Error(err))
		http.Error(w, "failed to list matches", http.StatusInternalServerError)
		return
	}
	out := make([]matchSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, summarize(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) archived(w http.ResponseWriter, r *http.Request) (game.MatchRecord, bool) {
	if s.history == nil {
		http.Error(w, "match history disabled", http.StatusNotFound)
		return game.MatchRecord{}, false
	}
	id := mux.Vars(r)["id"]
	rec, err := s.history.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("failed to load match", zap.String("match_id", id), zap.Error(err))
		}
		http.Error(w, err.Error(), httpStatus(err))
		return game.MatchRecord{}, false
	}
	return rec, true
}

func (s *HTTPServer) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	if rec, ok := s.archived(w, r); ok {
		writeJSON(w, http.StatusOK, summarize(rec))
	}
}

func (s *HTTPServer) handleGetReplay(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.archived(w, r)
	if !ok {
		return
	}
	if len(rec.Replay) == 0 {
		http.Error(w, "match has no replay", http.StatusNotFound)
		return
	}
	replay, err := game.DecodeReplay(rec.Replay)
	if err != nil {
		s.logger.Error("failed to decode replay", zap.String("match_id", rec.ID), zap.Error(err))
		http.Error(w, "failed to decode replay", http.StatusInternalServerError)
		return
	}
	raw := r.URL.Query().Get("frame")
	if raw == "" {
		writeJSON(w, http.StatusOK, replay.Frames)
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, "frame must be an integer", http.StatusBadRequest)
		return
	}
	snap := replay.FrameAt(n)
	if snap == nil {
		http.Error(w, "frame out of range", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
