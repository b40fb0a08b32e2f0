package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKillEnemySelection(t *testing.T) {
	h := startedHarness(t)
	a := h.put(1, 0, unitCard("a", 1, 1000))
	b := h.put(1, 2, unitCard("b", 1, 1000))
	assassin := unitCard("assassin", 1, 1000)
	assassin.Effects = []Effect{{Trigger: TriggerOnPlay, Action: KillEnemy{}}}
	_, idx := h.give(0, assassin)

	h.mustSubmit(0, Command{Type: CmdPlayCard, HandIndex: idx, Slot: 1})

	require.Equal(t, "SELECT_CARD", h.phase())
	sel := h.m.state.Selection
	require.NotNil(t, sel)
	assert.Equal(t, "p1", sel.Requester)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, sel.Candidates)
	assert.Equal(t, "MAIN", sel.ReturnPhase.String())

	require.ErrorIs(t, h.submit(1, Command{Type: CmdResolveSelection, CardIDs: []string{a.ID}}), ErrNotRequester)
	require.ErrorIs(t, h.submit(0, Command{Type: CmdResolveSelection, CardIDs: []string{"bogus"}}), ErrInvalidSelection)
	require.ErrorIs(t, h.submit(0, Command{Type: CmdResolveSelection, CardIDs: []string{a.ID, b.ID}}), ErrInvalidSelection)
	require.ErrorIs(t, h.submit(0, Command{Type: CmdPlayCard, HandIndex: 0, Slot: 0}), ErrWrongPhase)

	h.mustSubmit(0, Command{Type: CmdResolveSelection, CardIDs: []string{b.ID}})

	assert.Equal(t, "MAIN", h.phase())
	assert.Nil(t, h.m.state.Selection)
	assert.True(t, h.onField(1, a))
	assert.True(t, h.inDiscard(1, b))
}

func TestSelectionCandidatesOnlyVisibleToRequester(t *testing.T) {
	h := startedHarness(t)
	h.put(1, 0, unitCard("a", 1, 1000))
	bouncer := skillCard("bounce", 1, Effect{Trigger: TriggerOnPlay, Action: BounceEnemy{MaxCost: 2}})
	_, idx := h.give(0, bouncer)

	h.mustSubmit(0, Command{Type: CmdPlayCard, HandIndex: idx, Slot: 0})

	mine := h.recorders[0].lastState()
	theirs := h.recorders[1].lastState()
	require.NotNil(t, mine.Selection)
	require.NotNil(t, theirs.Selection)
	assert.Len(t, mine.Selection.Candidates, 1)
	assert.Empty(t, theirs.Selection.Candidates)
	assert.Equal(t, "bounce", mine.Selection.TriggerCard.CatalogID)
}

func TestBounceReturnsUnitToOwnerHand(t *testing.T) {
	h := startedHarness(t)
	target := h.put(1, 0, unitCard("a", 2, 1000))
	h.put(1, 1, unitCard("big", 5, 1000))
	bouncer := skillCard("bounce", 1, Effect{Trigger: TriggerOnPlay, Action: BounceEnemy{MaxCost: 2}})
	_, idx := h.give(0, bouncer)
	before := len(h.player(1).Hand)

	h.mustSubmit(0, Command{Type: CmdPlayCard, HandIndex: idx, Slot: 0})
	require.Equal(t, []string{target.ID}, h.m.state.Selection.Candidates)
	h.mustSubmit(0, Command{Type: CmdResolveSelection, CardIDs: []string{target.ID}})

	assert.Len(t, h.player(1).Hand, before+1)
	assert.Nil(t, h.player(1).Field[0])
}

func TestChoiceWithoutCandidatesDoesNothing(t *testing.T) {
	h := startedHarness(t)
	killer := skillCard("kill", 1, Effect{Trigger: TriggerOnPlay, Action: KillEnemy{}})
	_, idx := h.give(0, killer)

	h.mustSubmit(0, Command{Type: CmdPlayCard, HandIndex: idx, Slot: 0})

	assert.Equal(t, "MAIN", h.phase())
	assert.Nil(t, h.m.state.Selection)
}

func TestDiscardThenKillChainsSelections(t *testing.T) {
	h := startedHarness(t)
	cheap := h.put(1, 0, unitCard("cheap", 2, 1000))
	pricey := h.put(1, 1, unitCard("pricey", 3, 1000))
	fodder, _ := h.give(0, unitCard("fodder", 3, 1000))
	ritual := skillCard("ritual", 1, Effect{Trigger: TriggerOnPlay, Action: DiscardThenKill{}})
	_, idx := h.give(0, ritual)

	h.mustSubmit(0, Command{Type: CmdPlayCard, HandIndex: idx, Slot: 0})
	require.Equal(t, "SELECT_CARD", h.phase())
	require.Contains(t, h.m.state.Selection.Candidates, fodder.ID)

	h.mustSubmit(0, Command{Type: CmdResolveSelection, CardIDs: []string{fodder.ID}})

	require.Equal(t, "SELECT_CARD", h.phase(), "second step of the chain")
	assert.Equal(t, []string{cheap.ID}, h.m.state.Selection.Candidates)
	assert.True(t, h.inDiscard(0, fodder))

	h.mustSubmit(0, Command{Type: CmdResolveSelection, CardIDs: []string{cheap.ID}})
	assert.Equal(t, "MAIN", h.phase())
	assert.True(t, h.inDiscard(1, cheap))
	assert.True(t, h.onField(1, pricey))
}

func TestSearchDeckIsOptional(t *testing.T) {
	h := startedHarness(t)
	gem := &CatalogCard{ID: "gem", Name: "gem", Kind: KindItem, Cost: 1, Keywords: Keywords{}}
	top := h.stackDeck(0, gem, unitCard("x", 1, 1000), unitCard("y", 1, 1000))
	scout := skillCard("scout", 1, Effect{
		Trigger: TriggerOnPlay,
		Action:  SearchDeck{Look: 3, Count: 1, Filter: CardFilter{Kind: KindItem}},
	})
	_, idx := h.give(0, scout)
	deckSize := len(h.player(0).Deck)

	h.mustSubmit(0, Command{Type: CmdPlayCard, HandIndex: idx, Slot: 0})
	sel := h.m.state.Selection
	require.NotNil(t, sel)
	assert.True(t, sel.Optional)
	assert.Equal(t, []string{top[0].ID}, sel.Candidates)

	h.mustSubmit(0, Command{Type: CmdResolveSelection})

	p := h.player(0)
	assert.Len(t, p.Deck, deckSize)
	bottom := cardIDs(p.Deck[len(p.Deck)-3:])
	assert.ElementsMatch(t, cardIDs(top), bottom)
}

func TestSelfTrashAfterEffect(t *testing.T) {
	h := startedHarness(t)
	bomb := unitCard("bomb", 1, 1000)
	bomb.Effects = []Effect{{Trigger: TriggerOnPlay, Action: Damage{Hits: 1}, Target: TargetEnemyPlayer, SelfTrash: true}}
	inst, idx := h.give(0, bomb)

	h.mustSubmit(0, Command{Type: CmdPlayCard, HandIndex: idx, Slot: 0})

	assert.Equal(t, 1, h.player(1).HP)
	assert.True(t, h.inDiscard(0, inst))
	assert.Nil(t, h.player(0).Field[0])
}

func TestRecycleReturnsAtEndOfTurn(t *testing.T) {
	h := startedHarness(t)
	var lost *CardInstance
	h.edit(func(s *MatchState) {
		p := s.Players[0]
		lost = newCardInstance(unitCard("lost", 1, 1000), 0)
		p.Discard = append(p.Discard, lost)
	})
	echo := skillCard("echo", 1, Effect{Trigger: TriggerOnPlay, Action: Recycle{}})
	_, idx := h.give(0, echo)

	h.mustSubmit(0, Command{Type: CmdPlayCard, HandIndex: idx, Slot: 0})
	h.mustSubmit(0, Command{Type: CmdResolveSelection, CardIDs: []string{lost.ID}})
	assert.True(t, lost.Recycle)

	h.mustSubmit(0, Command{Type: CmdAdvancePhase})
	h.mustSubmit(0, Command{Type: CmdAdvancePhase})

	assert.GreaterOrEqual(t, indexByID(h.player(0).Hand, lost.ID), 0)
	assert.False(t, lost.Recycle)
}

func TestConditionGatesEffect(t *testing.T) {
	h := startedHarness(t)
	tactician := unitCard("tactician", 1, 1000)
	tactician.Effects = []Effect{{
		Trigger:   TriggerOnPlay,
		Action:    Draw{Count: 1},
		Target:    TargetOwnPlayer,
		Condition: &Condition{Kind: CondEnemyUnitsAtLeast, N: 1},
	}}
	_, idx := h.give(0, tactician)
	before := len(h.player(0).Hand)

	h.mustSubmit(0, Command{Type: CmdPlayCard, HandIndex: idx, Slot: 0})
	assert.Len(t, h.player(0).Hand, before-1, "condition failed, nothing drawn")
}

func TestDebuffEnemyDrawsWhenTheUnitDies(t *testing.T) {
	h := startedHarness(t)
	weak := h.put(1, 0, unitCard("weak", 1, 1000))
	h.put(1, 1, unitCard("strong", 3, 3000))
	curse := skillCard("curse", 1, Effect{Trigger: TriggerOnPlay, Action: DebuffEnemy{Power: 1000, DrawOnKill: 2}})
	_, idx := h.give(0, curse)
	before := len(h.player(0).Hand)

	h.mustSubmit(0, Command{Type: CmdPlayCard, HandIndex: idx, Slot: 0})
	require.Equal(t, "SELECT_CARD", h.phase())
	assert.Len(t, h.m.state.Selection.Candidates, 2)

	h.mustSubmit(0, Command{Type: CmdResolveSelection, CardIDs: []string{weak.ID}})

	assert.Equal(t, "MAIN", h.phase())
	assert.True(t, h.inDiscard(1, weak))
	assert.Len(t, h.player(0).Hand, before-1+2)
}

func TestDebuffEnemyWithoutKillDrawsNothing(t *testing.T) {
	h := startedHarness(t)
	strong := h.put(1, 1, unitCard("strong", 3, 3000))
	curse := skillCard("curse", 1, Effect{Trigger: TriggerOnPlay, Action: DebuffEnemy{Power: 1000, DrawOnKill: 2}})
	_, idx := h.give(0, curse)
	before := len(h.player(0).Hand)

	h.mustSubmit(0, Command{Type: CmdPlayCard, HandIndex: idx, Slot: 0})
	h.mustSubmit(0, Command{Type: CmdResolveSelection, CardIDs: []string{strong.ID}})

	assert.True(t, h.onField(1, strong))
	assert.Equal(t, 1000, strong.TempDebuff)
	assert.Len(t, h.player(0).Hand, before-1)
}

func TestSalvageReturnsMatchingDiscardToHand(t *testing.T) {
	h := startedHarness(t)
	var lost, gem *CardInstance
	h.edit(func(s *MatchState) {
		p := s.Players[0]
		lost = newCardInstance(unitCard("lost", 1, 1000), 0)
		gem = newCardInstance(&CatalogCard{ID: "gem", Name: "gem", Kind: KindItem, Cost: 1, Keywords: Keywords{}}, 0)
		p.Discard = append(p.Discard, lost, gem)
	})
	digger := skillCard("dig", 1, Effect{
		Trigger: TriggerOnPlay,
		Action:  Salvage{Count: 1, Filter: CardFilter{Kind: KindUnit}},
	})
	_, idx := h.give(0, digger)

	h.mustSubmit(0, Command{Type: CmdPlayCard, HandIndex: idx, Slot: 0})
	require.NotNil(t, h.m.state.Selection)
	assert.Equal(t, []string{lost.ID}, h.m.state.Selection.Candidates)

	h.mustSubmit(0, Command{Type: CmdResolveSelection, CardIDs: []string{lost.ID}})

	assert.GreaterOrEqual(t, indexByID(h.player(0).Hand, lost.ID), 0)
	assert.False(t, h.inDiscard(0, lost))
	assert.True(t, h.inDiscard(0, gem))
}

func TestResurrectReturnsUnitAndFiresEntry(t *testing.T) {
	h := startedHarness(t)
	fallen := unitCard("fallen", 2, 2000)
	fallen.Effects = []Effect{{Trigger: TriggerOnEntry, Action: Draw{Count: 1}, Target: TargetOwnPlayer}}
	var back, titan *CardInstance
	h.edit(func(s *MatchState) {
		p := s.Players[0]
		back = newCardInstance(fallen, 0)
		titan = newCardInstance(unitCard("titan", 5, 6000), 0)
		p.Discard = append(p.Discard, back, titan)
	})
	h.put(0, 0, unitCard("holder", 1, 1000))
	rite := skillCard("rite", 1, Effect{Trigger: TriggerOnPlay, Action: Resurrect{MaxCost: 3}})
	_, idx := h.give(0, rite)
	before := len(h.player(0).Hand)

	h.mustSubmit(0, Command{Type: CmdPlayCard, HandIndex: idx, Slot: 1})
	require.NotNil(t, h.m.state.Selection)
	assert.Equal(t, []string{back.ID}, h.m.state.Selection.Candidates)

	h.mustSubmit(0, Command{Type: CmdResolveSelection, CardIDs: []string{back.ID}})

	assert.Equal(t, "MAIN", h.phase())
	assert.Same(t, back, h.player(0).Field[1])
	assert.True(t, h.inDiscard(0, titan))
	assert.Len(t, h.player(0).Hand, before, "the entry draw replaces the played skill")
}
