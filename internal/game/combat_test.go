package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thraizz/tcg-match-server/internal/game/rules"
)

func TestBlockStrongerAttackerDestroysDefender(t *testing.T) {
	h := startedHarness(t)
	attacker := h.put(0, 1, unitCard("knight", 2, 3000))
	defender := h.put(1, 1, unitCard("squire", 1, 2000))
	h.toAttack()

	require.NoError(t, h.attack(1))
	require.Equal(t, "DEFENSE", h.phase())
	require.NoError(t, h.defend(DefenseBlock))

	assert.True(t, h.onField(0, attacker))
	assert.True(t, h.inDiscard(1, defender))
	assert.Equal(t, 0, h.player(1).HP)
	assert.Equal(t, "ATTACK", h.phase())
	assert.Nil(t, h.m.state.Pending)
}

func TestBlockTieFavoursAttacker(t *testing.T) {
	h := startedHarness(t)
	attacker := h.put(0, 0, unitCard("a", 1, 2000))
	defender := h.put(1, 0, unitCard("b", 1, 2000))
	h.toAttack()

	require.NoError(t, h.attack(0))
	require.NoError(t, h.defend(DefenseBlock))

	assert.True(t, h.onField(0, attacker))
	assert.True(t, h.inDiscard(1, defender))
}

func TestBlockWeakerAttackerChangesNothing(t *testing.T) {
	h := startedHarness(t)
	attacker := h.put(0, 0, unitCard("a", 1, 1000))
	defender := h.put(1, 0, unitCard("b", 1, 2000))
	h.toAttack()

	require.NoError(t, h.attack(0))
	require.NoError(t, h.defend(DefenseBlock))

	assert.True(t, h.onField(0, attacker))
	assert.True(t, h.onField(1, defender))
	assert.Equal(t, 0, h.player(1).HP)
}

func TestTakeDealsHitsToLeader(t *testing.T) {
	h := startedHarness(t)
	h.put(0, 2, unitCard("a", 1, 1000))
	defender := h.put(1, 2, unitCard("b", 1, 5000))
	h.toAttack()

	require.NoError(t, h.attack(2))
	require.NoError(t, h.defend(DefenseTake))

	assert.True(t, h.onField(1, defender))
	assert.Equal(t, 1, h.player(1).HP)
	assert.Len(t, h.player(1).Damage, 1)
}

func TestAttackOnEmptyLaneIsDirectHit(t *testing.T) {
	h := startedHarness(t)
	h.put(0, 1, unitCard("a", 1, 1000))
	h.toAttack()

	require.NoError(t, h.submit(0, Command{Type: CmdDeclareAttack, Slot: 1, TargetSlot: LeaderTarget}))

	assert.Equal(t, "ATTACK", h.phase())
	assert.Nil(t, h.m.state.Pending)
	assert.Equal(t, 1, h.player(1).HP)
	assert.Equal(t, 1, h.recorders[1].count(NotifyDamageReveal))
}

func TestDeclareAttackValidation(t *testing.T) {
	h := startedHarness(t)
	u := h.put(0, 0, unitCard("a", 1, 1000))

	err := h.attack(0)
	require.ErrorIs(t, err, ErrWrongPhase)

	h.toAttack()
	require.ErrorIs(t, h.submit(1, Command{Type: CmdDeclareAttack, Slot: 0, TargetSlot: 0}), ErrNotYourTurn)
	require.ErrorIs(t, h.attack(1), ErrInvalidTarget)
	require.ErrorIs(t, h.submit(0, Command{Type: CmdDeclareAttack, Slot: 0, TargetSlot: 2}), ErrInvalidTarget)

	h.edit(func(*MatchState) { u.Stunned = true })
	require.ErrorIs(t, h.attack(0), ErrCannotAttack)

	h.edit(func(*MatchState) { u.Stunned = false })
	require.NoError(t, h.attack(0))
	require.ErrorIs(t, h.attack(0), ErrCannotAttack)
}

func TestBreakthroughRejectsBlock(t *testing.T) {
	h := startedHarness(t)
	h.put(0, 0, unitCard("ram", 2, 1000, "breakthrough"))
	defender := h.put(1, 0, unitCard("wall", 1, 9000))
	h.toAttack()

	require.NoError(t, h.attack(0))
	require.ErrorIs(t, h.defend(DefenseBlock), ErrBreakthrough)
	assert.Equal(t, "DEFENSE", h.phase())
	assert.NotNil(t, h.m.state.Pending)

	require.NoError(t, h.defend(DefenseTake))
	assert.True(t, h.onField(1, defender))
	assert.Equal(t, 1, h.player(1).HP)
}

func TestPenetrationAndLootOnKill(t *testing.T) {
	h := startedHarness(t)
	h.put(0, 0, unitCard("lancer", 2, 3000, "penetration 2", "loot 1"))
	h.put(1, 0, unitCard("b", 1, 1000))
	h.toAttack()
	handBefore := len(h.player(0).Hand)

	require.NoError(t, h.attack(0))
	require.NoError(t, h.defend(DefenseBlock))

	assert.Equal(t, 2, h.player(1).HP)
	assert.Len(t, h.player(0).Hand, handBefore+1)
}

func TestDeathTouchDestroysCheaperKiller(t *testing.T) {
	h := startedHarness(t)
	attacker := h.put(0, 0, unitCard("brute", 2, 5000))
	defender := h.put(1, 0, unitCard("viper", 3, 1000, "death touch"))
	h.toAttack()

	require.NoError(t, h.attack(0))
	require.NoError(t, h.defend(DefenseBlock))

	assert.True(t, h.inDiscard(1, defender))
	assert.True(t, h.inDiscard(0, attacker))
}

func TestDeathTouchSparesCostlierKiller(t *testing.T) {
	h := startedHarness(t)
	attacker := h.put(0, 0, unitCard("titan", 4, 5000))
	h.put(1, 0, unitCard("viper", 3, 1000, "death touch"))
	h.toAttack()

	require.NoError(t, h.attack(0))
	require.NoError(t, h.defend(DefenseBlock))

	assert.True(t, h.onField(0, attacker))
}

func TestInvincibleSurvivesBattle(t *testing.T) {
	h := startedHarness(t)
	h.put(0, 0, unitCard("a", 1, 5000))
	defender := h.put(1, 0, unitCard("saint", 1, 1000, "invincible"))
	h.toAttack()

	require.NoError(t, h.attack(0))
	require.NoError(t, h.defend(DefenseBlock))

	assert.True(t, h.onField(1, defender))
	assert.Equal(t, "ATTACK", h.phase())
}

func TestDuelistForcesBlock(t *testing.T) {
	h := startedHarness(t)
	h.put(0, 1, unitCard("duelist", 2, 3000, "duelist"))
	defender := h.put(1, 1, unitCard("b", 1, 2000))
	h.put(1, 0, unitCard("guard", 1, 1000, "guardian"))
	h.toAttack()

	require.NoError(t, h.attack(1))

	assert.Equal(t, "ATTACK", h.phase())
	assert.True(t, h.inDiscard(1, defender))
}

func TestGuardianIntercepts(t *testing.T) {
	h := startedHarness(t)
	h.put(0, 1, unitCard("a", 1, 3000))
	target := h.put(1, 1, unitCard("target", 1, 1000))
	guard := h.put(1, 0, unitCard("guard", 1, 2000, "guardian"))
	h.toAttack()

	require.NoError(t, h.attack(1))
	require.Equal(t, "GUARDIAN_INTERCEPT", h.phase())
	assert.Equal(t, []int{0}, h.m.state.Pending.GuardianSlots)

	bad := 2
	require.ErrorIs(t, h.submit(1, Command{Type: CmdResolveGuardian, GuardianSlot: &bad}), ErrInvalidTarget)
	require.ErrorIs(t, h.submit(0, Command{Type: CmdResolveGuardian}), ErrNotYourTurn)

	slot := 0
	require.NoError(t, h.submit(1, Command{Type: CmdResolveGuardian, GuardianSlot: &slot}))
	require.Equal(t, "DEFENSE", h.phase())
	assert.Equal(t, 0, h.m.state.Pending.TargetIndex)

	require.NoError(t, h.defend(DefenseBlock))
	assert.True(t, h.inDiscard(1, guard))
	assert.True(t, h.onField(1, target))
}

func TestGuardianDeclinedOnEmptyLaneHitsLeader(t *testing.T) {
	h := startedHarness(t)
	h.put(0, 1, unitCard("a", 1, 3000))
	h.put(1, 2, unitCard("guard", 1, 2000, "guardian"))
	h.toAttack()

	require.NoError(t, h.attack(1))
	require.Equal(t, "GUARDIAN_INTERCEPT", h.phase())
	require.NoError(t, h.submit(1, Command{Type: CmdResolveGuardian}))

	assert.Equal(t, "ATTACK", h.phase())
	assert.Equal(t, 1, h.player(1).HP)
}

func TestStunnedGuardianCannotIntercept(t *testing.T) {
	h := startedHarness(t)
	h.put(0, 1, unitCard("a", 1, 3000))
	h.put(1, 1, unitCard("b", 1, 1000))
	guard := h.put(1, 2, unitCard("guard", 1, 2000, "guardian"))
	h.edit(func(*MatchState) { guard.Stunned = true })
	h.toAttack()

	require.NoError(t, h.attack(1))
	assert.Equal(t, "DEFENSE", h.phase())
}

func TestDefenderBonusAppliesOnlyAsTarget(t *testing.T) {
	h := startedHarness(t)
	h.put(0, 0, unitCard("a", 2, 3000))
	wall := h.put(1, 0, unitCard("wall", 1, 2000, "defender 2000"))
	h.toAttack()

	h.m.mu.Lock()
	assert.Equal(t, 2000, h.m.effectivePower(wall))
	h.m.mu.Unlock()

	require.NoError(t, h.attack(0))
	h.m.mu.Lock()
	assert.Equal(t, 4000, h.m.effectivePower(wall))
	h.m.mu.Unlock()

	require.NoError(t, h.defend(DefenseBlock))
	assert.True(t, h.onField(1, wall))
}

func TestInfiltrateDrawsOnHit(t *testing.T) {
	h := startedHarness(t)
	h.put(0, 0, unitCard("spy", 1, 1000, "infiltrate 1"))
	h.toAttack()
	before := len(h.player(0).Hand)

	require.NoError(t, h.attack(0))

	assert.Len(t, h.player(0).Hand, before+1)
	assert.Equal(t, 1, h.player(1).HP)
}

func TestBerserkerMustAttack(t *testing.T) {
	h := startedHarness(t)
	h.put(0, 0, unitCard("berserker", 1, 1000, "berserker"))
	h.toAttack()

	require.ErrorIs(t, h.submit(0, Command{Type: CmdAdvancePhase}), ErrBerserkerPending)
	require.NoError(t, h.attack(0))
	require.NoError(t, h.submit(0, Command{Type: CmdAdvancePhase}))
	assert.Equal(t, "p2", h.m.state.TurnPlayer())
}

func TestTriggerRevealHaltsRemainingHits(t *testing.T) {
	h := startedHarness(t)
	striker := unitCard("striker", 1, 1000)
	striker.Hits = 3
	h.put(0, 0, striker)
	trap := &CatalogCard{
		ID: "trap", Name: "trap", Kind: KindSkill, Cost: 1, Trigger: true, Keywords: Keywords{},
		Effects: []Effect{{Trigger: TriggerOnDamageReveal, Action: Draw{Count: 1}, Target: TargetOwnPlayer}},
	}
	h.stackDeck(1, unitCard("plain", 1, 1000), trap)
	h.toAttack()
	handBefore := len(h.player(1).Hand)

	require.NoError(t, h.attack(0))

	assert.Equal(t, 2, h.player(1).HP)
	assert.Len(t, h.player(1).Hand, handBefore+1)
}

func TestTenDamageLoses(t *testing.T) {
	h := startedHarness(t)
	h.put(0, 0, unitCard("a", 1, 1000))
	h.edit(func(s *MatchState) {
		p := s.Players[1]
		p.Damage = append(p.Damage, p.Deck[:LosingDamage-1]...)
		p.Deck = p.Deck[LosingDamage-1:]
		p.syncHP()
	})
	h.toAttack()

	require.NoError(t, h.attack(0))

	assert.True(t, h.m.Finished())
	winner, reason := h.m.Result()
	assert.Equal(t, "p1", winner)
	assert.Equal(t, "damage", reason)
	assert.Equal(t, 1, h.recorders[0].count(NotifyMatchEnd))
	require.ErrorIs(t, h.submit(0, Command{Type: CmdAdvancePhase}), ErrMatchFinished)
}

func TestDamageIntoEmptyDeckIsDeckOut(t *testing.T) {
	h := startedHarness(t)
	h.put(0, 0, unitCard("a", 1, 1000))
	h.edit(func(s *MatchState) { s.Players[1].Deck = nil })
	h.toAttack()

	require.NoError(t, h.attack(0))

	winner, reason := h.m.Result()
	assert.Equal(t, "p1", winner)
	assert.Equal(t, "deck-out", reason)
}

func TestDuelistNegatesAdjacentGuardian(t *testing.T) {
	h := startedHarness(t)
	h.put(0, 1, unitCard("duelist", 2, 3000, "duelist"))
	target := h.put(1, 1, unitCard("target", 1, 4000))
	guard := h.put(1, 2, unitCard("guard", 1, 1000, "guardian"))
	h.toAttack()

	h.m.mu.Lock()
	lanes := h.m.guardianCandidates(h.player(0).Field[1], h.player(1), 1)
	h.m.mu.Unlock()
	assert.Empty(t, lanes)

	require.NoError(t, h.attack(1))
	assert.Equal(t, "ATTACK", h.phase())
	assert.True(t, h.onField(1, target))
	assert.True(t, h.onField(1, guard))
	assert.Equal(t, 0, h.player(1).HP)
}

func TestDuelistOnEmptyLaneStillFacesGuardian(t *testing.T) {
	h := startedHarness(t)
	h.put(0, 1, unitCard("duelist", 2, 3000, "duelist"))
	h.put(1, 0, unitCard("guard", 1, 1000, "guardian"))
	h.toAttack()

	require.NoError(t, h.attack(1))
	require.Equal(t, "GUARDIAN_INTERCEPT", h.phase())
	assert.Equal(t, []int{0}, h.m.state.Pending.GuardianSlots)
}

func TestOnAttackCascadeResolvesBeforeInterception(t *testing.T) {
	h := startedHarness(t)
	herald := unitCard("herald", 2, 3000)
	herald.Effects = []Effect{{Trigger: TriggerOnAttack, Action: Debuff{Power: 1000}, Target: TargetEnemyUnits}}
	h.put(0, 1, herald)
	h.put(1, 1, unitCard("wall", 2, 5000))
	fodder := unitCard("fodder", 1, 1000)
	fodder.Effects = []Effect{{Trigger: TriggerOnDestroy, Action: Draw{Count: 1}, Target: TargetOwnPlayer}}
	h.put(1, 2, fodder)
	h.toAttack()

	var order []string
	h.m.bus.Subscribe(func(evt rules.Event) {
		switch evt.Type {
		case rules.EventCardDrawn, rules.EventUnitDestroyed:
			order = append(order, string(evt.Type))
		case rules.EventPhaseChanged:
			order = append(order, evt.Description)
		}
	})

	require.NoError(t, h.attack(1))
	require.Equal(t, "DEFENSE", h.phase())
	assert.Equal(t, []string{
		string(rules.EventUnitDestroyed),
		string(rules.EventCardDrawn),
		"DEFENSE",
	}, order)
}

// noteOfType returns the data of the last notification of typ.
func (r *recorder) noteOfType(typ NotificationType) map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.notes) - 1; i >= 0; i-- {
		if r.notes[i].Type == typ {
			return r.notes[i].Data
		}
	}
	return nil
}

func TestCombatHintsFollowEvents(t *testing.T) {
	h := startedHarness(t)
	attacker := h.put(0, 2, unitCard("knight", 2, 3000))
	defender := h.put(1, 2, unitCard("squire", 1, 2000))
	h.toAttack()

	require.NoError(t, h.attack(2))
	require.NoError(t, h.defend(DefenseBlock))

	for _, r := range h.recorders {
		atk := r.noteOfType(HintAttack)
		require.NotNil(t, atk)
		assert.Equal(t, attacker.ID, atk["card_id"])
		assert.Equal(t, 2, atk["attacker_idx"])
		assert.Equal(t, 2, atk["target_idx"])

		dead := r.noteOfType(HintDestroy)
		require.NotNil(t, dead)
		assert.Equal(t, defender.ID, dead["card_id"])
		assert.Equal(t, "p2", dead["player_id"])
		assert.Equal(t, 2, dead["slot"])

		stat := r.noteOfType(HintStatDamage)
		require.NotNil(t, stat)
		assert.Equal(t, 3000, stat["attacker_power"])
	}
}

func TestHintsStopAfterMatchEnds(t *testing.T) {
	h := startedHarness(t)
	victim := h.put(1, 0, unitCard("victim", 1, 1000))
	h.apply(func(m *Match) { m.endMatch(0, "damage") })
	h.recorders[1].reset()

	h.apply(func(m *Match) {
		evt := rules.NewEvent(rules.EventUnitDestroyed, victim.ID, "", "p2")
		evt.Slot = 0
		m.publish(evt)
	})

	assert.Zero(t, h.recorders[1].count(HintDestroy))
	assert.Equal(t, "FINISHED", h.phase())
}
