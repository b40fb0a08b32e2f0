package game

// Snapshot is the state broadcast to one viewer. Hidden information (the
// opponent's hand, both decks, other players' selection candidates) is
// reduced to counts.
type Snapshot struct {
	MatchID    string         `json:"matchId"`
	You        string         `json:"you,omitempty"`
	Phase      string         `json:"phase"`
	TurnPlayer string         `json:"turnPlayer"`
	Turn       int            `json:"turn"`
	Players    [2]PlayerView  `json:"players"`
	Pending    *PendingAttack `json:"pendingAttack,omitempty"`
	Selection  *SelectionView `json:"selection,omitempty"`
	Log        []LogEntry     `json:"log"`
	Winner     string         `json:"winner,omitempty"`
	EndReason  string         `json:"endReason,omitempty"`
}

// PlayerView is one seat as seen by the viewer.
type PlayerView struct {
	ID           string                `json:"id"`
	Username     string                `json:"username"`
	Seat         int                   `json:"seat"`
	CPU          bool                  `json:"cpu,omitempty"`
	HP           int                   `json:"hp"`
	Level        int                   `json:"level"`
	Awakened     bool                  `json:"awakened"`
	Leader       *CardView             `json:"leader,omitempty"`
	Hand         []CardView            `json:"hand,omitempty"`
	HandCount    int                   `json:"handCount"`
	DeckCount    int                   `json:"deckCount"`
	Discard      []CardView            `json:"discard"`
	Field        [FieldSlots]*CardView `json:"field"`
	Damage       []CardView            `json:"damage"`
	SkillZone    []CardView            `json:"skillZone"`
	SizeLimit    int                   `json:"sizeLimit"`
	UsedCost     int                   `json:"usedCost"`
	PlacedInSlot [FieldSlots]int       `json:"placedInSlot"`
	MulliganDone bool                  `json:"mulliganDone"`
	Connected    bool                  `json:"connected"`
}

// CardView is a card instance with its effective stats.
type CardView struct {
	ID           string     `json:"id"`
	CatalogID    string     `json:"catalogId"`
	Name         string     `json:"name"`
	Kind         CardKind   `json:"kind"`
	Cost         int        `json:"cost"`
	Power        int        `json:"power"`
	Hits         int        `json:"hits"`
	Keywords     []string   `json:"keywords,omitempty"`
	Trigger      bool       `json:"trigger,omitempty"`
	Stunned      bool       `json:"stunned,omitempty"`
	CannotAttack bool       `json:"cannotAttack,omitempty"`
	Attacked     bool       `json:"attacked,omitempty"`
	UsedActive   bool       `json:"usedActive,omitempty"`
	Recycle      bool       `json:"recycle,omitempty"`
	Attachments  []CardView `json:"attachments,omitempty"`
}

// SelectionView describes the pending selection. Candidates are only
// listed for the requester.
type SelectionView struct {
	ID          string     `json:"id"`
	Requester   string     `json:"requester"`
	Pool        Zone       `json:"pool"`
	Count       int        `json:"count"`
	Optional    bool       `json:"optional"`
	Prompt      string     `json:"prompt"`
	Candidates  []CardView `json:"candidates,omitempty"`
	TriggerCard *CardView  `json:"triggerCard,omitempty"`
}

// buildSnapshot renders the state for viewer. Caller holds the match lock.
func buildSnapshot(m *Match, viewer string) *Snapshot {
	s := m.state
	snap := &Snapshot{
		MatchID:    s.ID,
		You:        viewer,
		Phase:      s.Phase().String(),
		TurnPlayer: s.TurnPlayer(),
		Turn:       s.Turn(),
		Log:        append([]LogEntry(nil), s.Log...),
		Winner:     s.Winner,
		EndReason:  s.EndReason,
	}
	if s.Pending != nil {
		pending := *s.Pending
		pending.GuardianSlots = append([]int(nil), s.Pending.GuardianSlots...)
		snap.Pending = &pending
	}
	for seat, p := range s.Players {
		snap.Players[seat] = m.playerView(p, viewer != "" && p.ID == viewer)
	}
	if sel := s.Selection; sel != nil {
		view := &SelectionView{
			ID:        sel.ID,
			Requester: sel.Requester,
			Pool:      sel.Pool,
			Count:     sel.Count,
			Optional:  sel.Optional,
			Prompt:    sel.Prompt,
		}
		if sel.TriggerCard != nil {
			tc := m.cardView(sel.TriggerCard, false)
			view.TriggerCard = &tc
		}
		if viewer != "" && viewer == sel.Requester {
			for _, id := range sel.Candidates {
				if card, _, _ := s.locate(id); card != nil {
					view.Candidates = append(view.Candidates, m.cardView(card, false))
				}
			}
		}
		snap.Selection = view
	}
	return snap
}

func (m *Match) playerView(p *PlayerState, self bool) PlayerView {
	view := PlayerView{
		ID:           p.ID,
		Username:     p.Username,
		Seat:         p.Seat,
		CPU:          p.IsCPU,
		HP:           p.HP,
		Level:        p.Level,
		Awakened:     p.Awakened,
		HandCount:    len(p.Hand),
		DeckCount:    len(p.Deck),
		Discard:      m.cardViews(p.Discard, false),
		Damage:       m.cardViews(p.Damage, false),
		SkillZone:    m.cardViews(p.SkillZone, false),
		SizeLimit:    p.SizeLimit(),
		UsedCost:     p.UsedCost(),
		PlacedInSlot: p.PlacedInSlot,
		MulliganDone: p.MulliganDone,
		Connected:    p.Connected,
	}
	if p.Leader != nil {
		leader := m.cardView(p.Leader, false)
		view.Leader = &leader
	}
	if self {
		view.Hand = m.cardViews(p.Hand, false)
	}
	for slot, u := range p.Field {
		if u != nil {
			v := m.cardView(u, true)
			view.Field[slot] = &v
		}
	}
	return view
}

func (m *Match) cardViews(cards []*CardInstance, onField bool) []CardView {
	out := make([]CardView, 0, len(cards))
	for _, c := range cards {
		out = append(out, m.cardView(c, onField))
	}
	return out
}

// cardView renders a card. Field units show effective power, hits and keywords.
func (m *Match) cardView(c *CardInstance, onField bool) CardView {
	view := CardView{
		ID:           c.ID,
		CatalogID:    c.Card.ID,
		Name:         c.Card.Name,
		Kind:         c.Card.Kind,
		Cost:         c.Card.Cost,
		Power:        c.Card.Power,
		Hits:         c.Card.Hits,
		Keywords:     c.Card.Keywords.Strings(),
		Trigger:      c.Card.Trigger,
		Stunned:      c.Stunned,
		CannotAttack: c.CannotAttack,
		Attacked:     c.AttackedThisTurn,
		UsedActive:   c.UsedActiveThisTurn,
		Recycle:      c.Recycle,
	}
	if onField {
		view.Power = m.effectivePower(c)
		view.Hits = m.effectiveHits(c)
		view.Keywords = m.keywords(c).Strings()
		view.Attachments = m.cardViews(c.Attachments, false)
	}
	return view
}
