package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/thraizz/tcg-match-server/internal/game/rules"
	"go.uber.org/zap"
)

// CommandType names an inbound match command.
type CommandType string

const (
	CmdAdvancePhase     CommandType = "advance-phase"
	CmdPlayCard         CommandType = "play-card"
	CmdDeclareAttack    CommandType = "declare-attack"
	CmdResolveDefense   CommandType = "resolve-defense"
	CmdResolveGuardian  CommandType = "resolve-guardian-intercept"
	CmdResolveSelection CommandType = "resolve-selection"
	CmdResolveMulligan  CommandType = "resolve-mulligan"
	CmdUseActive        CommandType = "use-active-ability"
)

// DefenseChoice is the defender's answer to an attack on an occupied lane.
type DefenseChoice string

const (
	DefenseBlock DefenseChoice = "block"
	DefenseTake  DefenseChoice = "take"
)

// Command is a player intent. PlayerID is filled in by the transport, never by the client.
type Command struct {
	Type         CommandType   `json:"type"`
	PlayerID     string        `json:"-"`
	HandIndex    int           `json:"handIndex"`
	Slot         int           `json:"slot"`
	TargetSlot   int           `json:"targetSlot"`
	Choice       DefenseChoice `json:"choice,omitempty"`
	GuardianSlot *int          `json:"guardianSlot,omitempty"`
	CardIDs      []string      `json:"cardIds,omitempty"`
}

// SeatConfig describes a player joining a match.
type SeatConfig struct {
	PlayerID string
	Username string
	CPU      bool
	Leader   *CatalogCard
	Deck     []*CatalogCard
}

// MatchConfig tunes a single match.
type MatchConfig struct {
	Seed        int64
	NoShuffle   bool
	LogLimit    int
	GracePeriod time.Duration
	FirstSeat   int
	// ReplayFrames caps recorded replay frames. 0 disables recording.
	ReplayFrames int
}

const (
	defaultGracePeriod = 60 * time.Second
	maxWorkItems       = 1000
)

// Match is the actor owning one MatchState. Every command runs to completion,
// cascades and sweeps included, under mu. Notifications are delivered after
// mu is released, under deliverMu, so controllers observe them in order.
type Match struct {
	logger *zap.Logger
	clock  Clock
	cfg    MatchConfig
	rng    *rand.Rand
	bus    *rules.EventBus

	mu          sync.Mutex
	state       *MatchState
	queue       []workItem
	outbox      []Notification
	controllers [2]Controller
	graceTimers [2]Timer
	graceGen    [2]int
	replay      *Replay
	justEnded   bool
	hintSubs    []int

	deliverMu sync.Mutex
	onFinish  func(*Match)
}

// NewMatch seats two players and instantiates their decks. Call Start to deal.
func NewMatch(id string, seats [2]SeatConfig, cfg MatchConfig, clock Clock, logger *zap.Logger) *Match {
	if clock == nil {
		clock = RealClock()
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = defaultGracePeriod
	}
	if cfg.FirstSeat != 1 {
		cfg.FirstSeat = 0
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = clock.Now().UnixNano()
	}

	m := &Match{
		logger: logger,
		clock:  clock,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		bus:    rules.NewEventBus(),
		state:  newMatchState(id, cfg.LogLimit),
	}
	if cfg.ReplayFrames > 0 {
		m.replay = NewReplay(id, cfg.ReplayFrames)
	}

	for seat, sc := range seats {
		p := &PlayerState{
			ID:        sc.PlayerID,
			Username:  sc.Username,
			Seat:      seat,
			IsCPU:     sc.CPU,
			Level:     1,
			Connected: true,
		}
		if sc.Leader != nil {
			p.Leader = newCardInstance(sc.Leader, seat)
		}
		p.Deck = make([]*CardInstance, 0, len(sc.Deck))
		for _, card := range sc.Deck {
			p.Deck = append(p.Deck, newCardInstance(card, seat))
		}
		m.state.Players[seat] = p
	}

	m.bus.Subscribe(m.logEvent)
	m.hintSubs = []int{
		m.bus.SubscribeTyped(rules.EventAttackDeclared, m.hintAttack),
		m.bus.SubscribeTyped(rules.EventUnitDestroyed, m.hintDestroy),
	}
	return m
}

// ID returns the match id.
func (m *Match) ID() string {
	return m.state.ID
}

// OnFinish registers a callback invoked once, outside all match locks,
// after the match reaches FINISHED.
func (m *Match) OnFinish(fn func(*Match)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFinish = fn
}

// Attach installs the controller for a seat and binds its submit capability.
func (m *Match) Attach(seat int, c Controller) {
	if seat < 0 || seat > 1 || c == nil {
		return
	}
	m.mu.Lock()
	m.controllers[seat] = c
	m.mu.Unlock()
	m.bind(seat, c)
}

// bind hands c a submit function that acts as the seat's current player id
// and stops working once c is replaced.
func (m *Match) bind(seat int, c Controller) {
	c.Bind(func(cmd Command) error {
		m.mu.Lock()
		if m.controllers[seat] != c {
			m.mu.Unlock()
			return fmt.Errorf("%w: controller detached", ErrUnknownPlayer)
		}
		cmd.PlayerID = m.state.Players[seat].ID
		m.mu.Unlock()
		return m.Submit(cmd)
	})
}

// Start shuffles, deals opening hands and enters MULLIGAN.
func (m *Match) Start() error {
	m.mu.Lock()
	if m.state.Phase() != rules.PhaseWaiting {
		m.mu.Unlock()
		return fmt.Errorf("%w: match %s already started", ErrWrongPhase, m.state.ID)
	}
	m.state.StartedAt = m.clock.Now()
	for seat, p := range m.state.Players {
		m.shuffle(p.Deck)
		for i := 0; i < InitialHandSize; i++ {
			if p.draw() == nil {
				m.endMatch(1-seat, "deck-out")
				break
			}
		}
	}
	if !m.state.finished() {
		m.setPhase(rules.PhaseMulligan)
		m.publish(rules.NewEvent(rules.EventMatchStarted, "", "", m.state.Players[m.cfg.FirstSeat].ID))
	}
	m.queueState()

	if m.logger != nil {
		m.logger.Info("match started",
			zap.String("match_id", m.state.ID),
			zap.String("player1", m.state.Players[0].Username),
			zap.String("player2", m.state.Players[1].Username),
		)
	}
	m.deliver()
	return nil
}

// Submit validates and applies one command. Rejected commands leave the
// state untouched and broadcast nothing.
func (m *Match) Submit(cmd Command) error {
	m.mu.Lock()
	if m.state.finished() {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrMatchFinished, m.state.ID)
	}
	seat := m.state.seatOf(cmd.PlayerID)
	if seat < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, cmd.PlayerID)
	}

	if err := m.dispatch(seat, cmd); err != nil {
		m.outbox = nil
		m.mu.Unlock()
		if m.logger != nil {
			m.logger.Debug("rejected command",
				zap.String("match_id", m.state.ID),
				zap.String("player_id", cmd.PlayerID),
				zap.String("command", string(cmd.Type)),
				zap.Error(err),
			)
		}
		return err
	}

	m.settle()
	m.deliver()
	return nil
}

func (m *Match) dispatch(seat int, cmd Command) error {
	switch cmd.Type {
	case CmdResolveMulligan:
		return m.resolveMulligan(seat, cmd.CardIDs)
	case CmdAdvancePhase:
		return m.advancePhase(seat)
	case CmdPlayCard:
		return m.playCard(seat, cmd.HandIndex, cmd.Slot)
	case CmdUseActive:
		return m.useActive(seat, cmd.Slot)
	case CmdDeclareAttack:
		return m.declareAttack(seat, cmd.Slot, cmd.TargetSlot)
	case CmdResolveGuardian:
		return m.resolveGuardian(seat, cmd.GuardianSlot)
	case CmdResolveDefense:
		return m.resolveDefense(seat, cmd.Choice)
	case CmdResolveSelection:
		return m.resolveSelection(seat, cmd.CardIDs)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}

// settle sweeps, drains queued work and queues the resulting snapshots.
// drain sweeps after every item, so cascades from the first sweep run too.
func (m *Match) settle() {
	m.sweep()
	m.drain()
	m.queueState()
}

// deliver releases mu and hands queued notifications to the controllers.
// It must be called with mu held.
func (m *Match) deliver() {
	out := m.outbox
	m.outbox = nil
	controllers := m.controllers
	ended := m.justEnded
	m.justEnded = false
	onFinish := m.onFinish

	m.deliverMu.Lock()
	m.mu.Unlock()
	for _, n := range out {
		for seat, c := range controllers {
			if c == nil {
				continue
			}
			if n.Seat == allSeats || n.Seat == seat {
				c.Receive(n)
			}
		}
	}
	m.deliverMu.Unlock()

	if ended && onFinish != nil {
		onFinish(m)
	}
}

// Snapshot returns the state as seen by viewer. An empty viewer sees both hands hidden.
func (m *Match) Snapshot(viewer string) *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return buildSnapshot(m, viewer)
}

// Finished reports whether the match has ended.
func (m *Match) Finished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.finished()
}

// Result returns the winner id and end reason once finished.
func (m *Match) Result() (winner, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Winner, m.state.EndReason
}

func (m *Match) setPhase(p rules.Phase) {
	prev := m.state.Turns.SetPhase(p)
	if prev != p {
		evt := rules.NewEvent(rules.EventPhaseChanged, "", "", m.state.TurnPlayer())
		evt.Description = p.String()
		m.publish(evt)
	}
}

func (m *Match) publish(evt rules.Event) {
	evt.Timestamp = m.clock.Now()
	m.bus.Publish(evt)
}

func (m *Match) shuffle(cards []*CardInstance) {
	if m.cfg.NoShuffle {
		return
	}
	m.rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// endMatch moves to FINISHED with the given seat as winner. Later calls are ignored.
func (m *Match) endMatch(winnerSeat int, reason string) {
	if m.state.finished() {
		return
	}
	winner := m.state.Players[winnerSeat]
	m.state.Winner = winner.ID
	m.state.EndReason = reason
	m.state.EndedAt = m.clock.Now()
	m.state.Pending = nil
	m.state.Selection = nil
	m.queue = nil
	for _, h := range m.hintSubs {
		m.bus.Unsubscribe(h)
	}
	m.hintSubs = nil
	m.setPhase(rules.PhaseFinished)

	for seat := range m.graceTimers {
		m.stopGraceTimer(seat)
	}

	m.notify(allSeats, NotifyMatchEnd, map[string]interface{}{
		"winner":   winner.ID,
		"username": winner.Username,
		"reason":   reason,
	})
	evt := rules.NewEvent(rules.EventMatchEnded, winner.ID, "", winner.ID)
	evt.Description = reason
	m.publish(evt)
	m.justEnded = true

	if m.logger != nil {
		m.logger.Info("match ended",
			zap.String("match_id", m.state.ID),
			zap.String("winner", winner.Username),
			zap.String("reason", reason),
			zap.Int("turn", m.state.Turn()),
		)
	}
}
