package game

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var harnessStart = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// mustKeywords builds a keyword set from strings like "penetration 2".
func mustKeywords(raw ...string) Keywords {
	ks := Keywords{}
	for _, s := range raw {
		k, v, err := ParseKeyword(s)
		if err != nil {
			panic(err)
		}
		ks[k] = v
	}
	return ks
}

func unitCard(id string, cost, power int, keywords ...string) *CatalogCard {
	return &CatalogCard{
		ID:       id,
		Name:     id,
		Kind:     KindUnit,
		Cost:     cost,
		Power:    power,
		Hits:     1,
		Keywords: mustKeywords(keywords...),
	}
}

func skillCard(id string, cost int, effects ...Effect) *CatalogCard {
	return &CatalogCard{ID: id, Name: id, Kind: KindSkill, Cost: cost, Keywords: Keywords{}, Effects: effects}
}

func fillerDeck(n int) []*CatalogCard {
	filler := unitCard("filler", 1, 1000)
	deck := make([]*CatalogCard, n)
	for i := range deck {
		deck[i] = filler
	}
	return deck
}

// recorder is a Controller that keeps every notification it receives.
type recorder struct {
	mu     sync.Mutex
	notes  []Notification
	submit SubmitFunc
}

func (r *recorder) Bind(submit SubmitFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submit = submit
}

func (r *recorder) Receive(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) count(typ NotificationType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, note := range r.notes {
		if note.Type == typ {
			n++
		}
	}
	return n
}

func (r *recorder) lastState() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.notes) - 1; i >= 0; i-- {
		if r.notes[i].Type == NotifyState {
			return r.notes[i].State
		}
	}
	return nil
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = nil
}

// matchHarness drives a match between "alice" (p1, seat 0) and "bob" (p2, seat 1).
type matchHarness struct {
	t         *testing.T
	clock     *FakeClock
	m         *Match
	recorders [2]*recorder
}

type harnessOption func(seats *[2]SeatConfig, cfg *MatchConfig)

func withLeader(seat int, leader *CatalogCard) harnessOption {
	return func(seats *[2]SeatConfig, _ *MatchConfig) { seats[seat].Leader = leader }
}

func withDeck(seat int, deck []*CatalogCard) harnessOption {
	return func(seats *[2]SeatConfig, _ *MatchConfig) { seats[seat].Deck = deck }
}

func withReplay(frames int) harnessOption {
	return func(_ *[2]SeatConfig, cfg *MatchConfig) { cfg.ReplayFrames = frames }
}

// newMatchHarness creates an unshuffled match with recording controllers
// attached. It is not started.
func newMatchHarness(t *testing.T, opts ...harnessOption) *matchHarness {
	t.Helper()
	seats := [2]SeatConfig{
		{PlayerID: "p1", Username: "alice", Deck: fillerDeck(DeckSize)},
		{PlayerID: "p2", Username: "bob", Deck: fillerDeck(DeckSize)},
	}
	cfg := MatchConfig{Seed: 7, NoShuffle: true, GracePeriod: 30 * time.Second}
	for _, opt := range opts {
		opt(&seats, &cfg)
	}

	clock := NewFakeClock(harnessStart)
	h := &matchHarness{
		t:     t,
		clock: clock,
		m:     NewMatch("match-1", seats, cfg, clock, zaptest.NewLogger(t)),
	}
	for seat := range h.recorders {
		h.recorders[seat] = &recorder{}
		h.m.Attach(seat, h.recorders[seat])
	}
	return h
}

// startedHarness starts the match and keeps both opening hands, leaving
// alice in MAIN of turn 1.
func startedHarness(t *testing.T, opts ...harnessOption) *matchHarness {
	t.Helper()
	h := newMatchHarness(t, opts...)
	require.NoError(t, h.m.Start())
	h.mustSubmit(0, Command{Type: CmdResolveMulligan})
	h.mustSubmit(1, Command{Type: CmdResolveMulligan})
	require.Equal(t, "MAIN", h.phase())
	return h
}

func (h *matchHarness) submit(seat int, cmd Command) error {
	cmd.PlayerID = h.m.PlayerID(seat)
	return h.m.Submit(cmd)
}

func (h *matchHarness) mustSubmit(seat int, cmd Command) {
	h.t.Helper()
	require.NoError(h.t, h.submit(seat, cmd))
}

// edit mutates the state directly under the match lock.
func (h *matchHarness) edit(fn func(s *MatchState)) {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	fn(h.m.state)
}

// apply runs fn inside the actor, then settles and delivers like a command.
func (h *matchHarness) apply(fn func(m *Match)) {
	h.m.mu.Lock()
	fn(h.m)
	h.m.settle()
	h.m.deliver()
}

func (h *matchHarness) player(seat int) *PlayerState {
	return h.m.state.Players[seat]
}

func (h *matchHarness) phase() string {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	return h.m.state.Phase().String()
}

// put places a fresh instance of card in the seat's field slot.
func (h *matchHarness) put(seat, slot int, card *CatalogCard) *CardInstance {
	var inst *CardInstance
	h.edit(func(s *MatchState) {
		inst = newCardInstance(card, seat)
		s.Players[seat].Field[slot] = inst
	})
	return inst
}

// give appends a fresh instance of card to the seat's hand and returns its index.
func (h *matchHarness) give(seat int, card *CatalogCard) (*CardInstance, int) {
	var inst *CardInstance
	idx := 0
	h.edit(func(s *MatchState) {
		inst = newCardInstance(card, seat)
		p := s.Players[seat]
		p.Hand = append(p.Hand, inst)
		idx = len(p.Hand) - 1
	})
	return inst, idx
}

// stackDeck puts fresh instances of cards on top of the seat's deck, first card on top.
func (h *matchHarness) stackDeck(seat int, cards ...*CatalogCard) []*CardInstance {
	out := make([]*CardInstance, len(cards))
	h.edit(func(s *MatchState) {
		for i, c := range cards {
			out[i] = newCardInstance(c, seat)
		}
		p := s.Players[seat]
		p.Deck = append(append([]*CardInstance(nil), out...), p.Deck...)
	})
	return out
}

func (h *matchHarness) toAttack() {
	h.t.Helper()
	h.mustSubmit(0, Command{Type: CmdAdvancePhase})
	require.Equal(h.t, "ATTACK", h.phase())
}

func (h *matchHarness) attack(slot int) error {
	return h.submit(0, Command{Type: CmdDeclareAttack, Slot: slot, TargetSlot: slot})
}

func (h *matchHarness) defend(choice DefenseChoice) error {
	return h.submit(1, Command{Type: CmdResolveDefense, Choice: choice})
}

// inDiscard reports whether the card instance sits in the seat's discard.
func (h *matchHarness) inDiscard(seat int, c *CardInstance) bool {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	return indexByID(h.m.state.Players[seat].Discard, c.ID) >= 0
}

func (h *matchHarness) onField(seat int, c *CardInstance) bool {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	return h.m.state.Players[seat].slotOf(c.ID) >= 0
}
