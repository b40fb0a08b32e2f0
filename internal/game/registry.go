package game

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Archiver persists finished matches.
type Archiver interface {
	ArchiveMatch(ctx context.Context, rec MatchRecord) error
}

// RegistryConfig holds the settings applied to every match the registry starts.
type RegistryConfig struct {
	GracePeriod    time.Duration
	AIThinkDelay   time.Duration
	LogLimit       int
	Seed           int64
	NoShuffle      bool
	DefaultDeck    string
	ReplayFrames   int
	ArchiveTimeout time.Duration
}

// RoomInfo is the public listing of a room.
type RoomInfo struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Private  bool     `json:"private"`
	Players  []string `json:"players"`
	Started  bool     `json:"started"`
	Finished bool     `json:"finished"`
}

type roomSeat struct {
	connID     string
	username   string
	deckID     string
	cpu        bool
	controller Controller
}

type room struct {
	id           string
	name         string
	passwordHash []byte
	seats        []*roomSeat
	match        *Match
	createdAt    time.Time
}

// hasHuman reports whether any seat belongs to a connection.
func (rm *room) hasHuman() bool {
	for _, s := range rm.seats {
		if !s.cpu {
			return true
		}
	}
	return false
}

type connRef struct {
	roomID string
	seat   int
}

// Registry owns rooms and their matches and maps connections to seats.
// Lock order: Registry.mu before Match.mu, never the reverse.
type Registry struct {
	logger   *zap.Logger
	clock    Clock
	catalog  *Catalog
	cfg      RegistryConfig
	archiver Archiver

	mu    sync.Mutex
	rooms map[string]*room
	conns map[string]connRef
}

// NewRegistry creates a registry. archiver may be nil.
func NewRegistry(catalog *Catalog, cfg RegistryConfig, archiver Archiver, clock Clock, logger *zap.Logger) *Registry {
	if clock == nil {
		clock = RealClock()
	}
	if cfg.ArchiveTimeout <= 0 {
		cfg.ArchiveTimeout = 10 * time.Second
	}
	return &Registry{
		logger:   logger,
		clock:    clock,
		catalog:  catalog,
		cfg:      cfg,
		archiver: archiver,
		rooms:    make(map[string]*room),
		conns:    make(map[string]connRef),
	}
}

// CreateRoom opens an empty room. An empty password makes it public.
func (r *Registry) CreateRoom(name, password string) (string, error) {
	rm := &room{
		id:        uuid.NewString(),
		name:      name,
		createdAt: r.clock.Now(),
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("failed to hash room password: %w", err)
		}
		rm.passwordHash = hash
	}
	if rm.name == "" {
		rm.name = rm.id
	}

	r.mu.Lock()
	r.rooms[rm.id] = rm
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Info("room created",
			zap.String("room_id", rm.id),
			zap.String("name", rm.name),
			zap.Bool("private", password != ""),
		)
	}
	return rm.id, nil
}

// JoinRoom seats connID in the room. The match starts once both seats are taken.
func (r *Registry) JoinRoom(roomID, password, connID, username, deckID string, c Controller) (int, error) {
	if deckID == "" {
		deckID = r.cfg.DefaultDeck
	}
	if _, ok := r.catalog.Deck(deckID); !ok {
		return -1, fmt.Errorf("%w: %s", ErrUnknownDeck, deckID)
	}

	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return -1, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	if _, seated := r.conns[connID]; seated {
		r.mu.Unlock()
		return -1, fmt.Errorf("%w: %s", ErrAlreadySeated, connID)
	}
	if len(rm.seats) >= 2 || rm.match != nil {
		r.mu.Unlock()
		return -1, fmt.Errorf("%w: %s", ErrRoomFull, roomID)
	}
	if rm.passwordHash != nil {
		if err := bcrypt.CompareHashAndPassword(rm.passwordHash, []byte(password)); err != nil {
			r.mu.Unlock()
			return -1, ErrBadPassword
		}
	}

	seat := len(rm.seats)
	rm.seats = append(rm.seats, &roomSeat{
		connID:     connID,
		username:   username,
		deckID:     deckID,
		controller: c,
	})
	r.conns[connID] = connRef{roomID: roomID, seat: seat}
	m, err := r.prepareMatch(rm)
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Info("player joined room",
			zap.String("room_id", roomID),
			zap.String("username", username),
			zap.Int("seat", seat),
		)
	}
	if err != nil {
		return seat, err
	}
	if m != nil {
		return seat, m.Start()
	}
	return seat, nil
}

// AddCPU seats an AI opponent in the room.
func (r *Registry) AddCPU(roomID, deckID string) error {
	if deckID == "" {
		deckID = r.cfg.DefaultDeck
	}
	if _, ok := r.catalog.Deck(deckID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDeck, deckID)
	}

	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	if len(rm.seats) >= 2 || rm.match != nil {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRoomFull, roomID)
	}
	id := "cpu-" + uuid.NewString()
	rm.seats = append(rm.seats, &roomSeat{
		connID:     id,
		username:   "CPU",
		deckID:     deckID,
		cpu:        true,
		controller: NewAIController(r.clock, r.cfg.AIThinkDelay, r.logger),
	})
	m, err := r.prepareMatch(rm)
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Info("cpu opponent added", zap.String("room_id", roomID))
	}
	if err != nil {
		return err
	}
	if m != nil {
		return m.Start()
	}
	return nil
}

// prepareMatch builds and attaches the match once the room is full. The
// caller starts it after releasing r.mu, since a match ending during the
// deal re-enters the registry through OnFinish.
func (r *Registry) prepareMatch(rm *room) (*Match, error) {
	if len(rm.seats) < 2 || rm.match != nil {
		return nil, nil
	}
	var seats [2]SeatConfig
	for i, s := range rm.seats {
		leader, cards, err := r.catalog.DeckCards(s.deckID)
		if err != nil {
			return nil, err
		}
		seats[i] = SeatConfig{
			PlayerID: s.connID,
			Username: s.username,
			CPU:      s.cpu,
			Leader:   leader,
			Deck:     cards,
		}
	}

	m := NewMatch(rm.id, seats, MatchConfig{
		Seed:         r.cfg.Seed,
		NoShuffle:    r.cfg.NoShuffle,
		LogLimit:     r.cfg.LogLimit,
		GracePeriod:  r.cfg.GracePeriod,
		ReplayFrames: r.cfg.ReplayFrames,
	}, r.clock, r.logger)
	m.OnFinish(func(*Match) { r.reap(rm.id) })
	for i, s := range rm.seats {
		if s.controller != nil {
			m.Attach(i, s.controller)
		}
	}
	rm.match = m
	return m, nil
}

// Submit routes a command from a connection to its match.
func (r *Registry) Submit(connID string, cmd Command) error {
	r.mu.Lock()
	ref, ok := r.conns[connID]
	var m *Match
	if rm, found := r.rooms[ref.roomID]; ok && found {
		m = rm.match
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, connID)
	}
	if m == nil {
		return fmt.Errorf("%w: room %s has not started", ErrWrongPhase, ref.roomID)
	}
	cmd.PlayerID = connID
	return m.Submit(cmd)
}

// Disconnect releases a connection. Before the match starts the seat is
// freed and a room left without humans is removed; afterwards the match
// starts its grace period.
func (r *Registry) Disconnect(connID string) error {
	r.mu.Lock()
	ref, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, connID)
	}
	delete(r.conns, connID)
	rm, ok := r.rooms[ref.roomID]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	m := rm.match
	if m == nil {
		rm.seats = append(rm.seats[:ref.seat], rm.seats[ref.seat+1:]...)
		for i, s := range rm.seats {
			if !s.cpu {
				r.conns[s.connID] = connRef{roomID: rm.id, seat: i}
			}
		}
		if !rm.hasHuman() {
			delete(r.rooms, rm.id)
		}
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	if err := m.Disconnect(connID); err != nil {
		return err
	}
	r.reap(ref.roomID)
	return nil
}

// Reconnect rebinds the seat held by username in roomID to a new connection.
func (r *Registry) Reconnect(roomID, username, connID string, c Controller) (int, error) {
	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return -1, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	if _, seated := r.conns[connID]; seated {
		r.mu.Unlock()
		return -1, fmt.Errorf("%w: %s", ErrAlreadySeated, connID)
	}
	m := rm.match
	seat := -1
	for i, s := range rm.seats {
		if s.username == username && !s.cpu {
			seat = i
		}
	}
	r.mu.Unlock()
	if m == nil {
		return -1, fmt.Errorf("%w: room %s has not started", ErrMatchNotFound, roomID)
	}
	if seat < 0 {
		return -1, fmt.Errorf("%w: %s", ErrUnknownPlayer, username)
	}

	if err := m.Reconnect(username, connID, c); err != nil {
		return -1, err
	}

	r.mu.Lock()
	if cur, ok := r.rooms[roomID]; ok {
		cur.seats[seat].connID = connID
		cur.seats[seat].controller = c
		r.conns[connID] = connRef{roomID: roomID, seat: seat}
	}
	r.mu.Unlock()
	return seat, nil
}

// reap archives and removes a room whose match has finished and whose
// human players have all left.
func (r *Registry) reap(roomID string) {
	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if !ok || rm.match == nil || !rm.match.Finished() {
		r.mu.Unlock()
		return
	}
	for i, s := range rm.seats {
		if !s.cpu && rm.match.Connected(i) {
			r.mu.Unlock()
			return
		}
	}
	delete(r.rooms, roomID)
	m := rm.match
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Info("room closed", zap.String("room_id", roomID))
	}
	if r.archiver == nil {
		return
	}
	rec, err := m.Record()
	if err != nil && r.logger != nil {
		r.logger.Warn("failed to build match record", zap.String("match_id", roomID), zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.ArchiveTimeout)
	defer cancel()
	if err := r.archiver.ArchiveMatch(ctx, rec); err != nil {
		if r.logger != nil {
			r.logger.Error("failed to archive match", zap.String("match_id", roomID), zap.Error(err))
		}
		return
	}
	if r.logger != nil {
		r.logger.Info("match archived",
			zap.String("match_id", roomID),
			zap.String("winner", rec.Winner),
			zap.String("reason", rec.Reason),
		)
	}
}

// Rooms lists every open room, oldest first.
func (r *Registry) Rooms() []RoomInfo {
	r.mu.Lock()
	rooms := make([]*room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.Unlock()

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].createdAt.Before(rooms[j].createdAt)
	})
	out := make([]RoomInfo, 0, len(rooms))
	for _, rm := range rooms {
		r.mu.Lock()
		info := RoomInfo{
			ID:      rm.id,
			Name:    rm.name,
			Private: rm.passwordHash != nil,
			Started: rm.match != nil,
		}
		for _, s := range rm.seats {
			info.Players = append(info.Players, s.username)
		}
		m := rm.match
		r.mu.Unlock()
		if m != nil {
			info.Finished = m.Finished()
		}
		out = append(out, info)
	}
	return out
}

// Match returns the match running in a room.
func (r *Registry) Match(roomID string) (*Match, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok || rm.match == nil {
		return nil, false
	}
	return rm.match, true
}

// RoomOf returns the room and seat a connection occupies.
func (r *Registry) RoomOf(connID string) (string, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.conns[connID]
	return ref.roomID, ref.seat, ok
}

// Stats reports open rooms and running matches.
func (r *Registry) Stats() (rooms, active int) {
	r.mu.Lock()
	matches := make([]*Match, 0, len(r.rooms))
	for _, rm := range r.rooms {
		if rm.match != nil {
			matches = append(matches, rm.match)
		}
	}
	rooms = len(r.rooms)
	r.mu.Unlock()
	for _, m := range matches {
		if !m.Finished() {
			active++
		}
	}
	return rooms, active
}
