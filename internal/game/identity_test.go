package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisconnectNotifiesOpponent(t *testing.T) {
	h := startedHarness(t)

	require.NoError(t, h.m.Disconnect("p2"))

	assert.False(t, h.m.Connected(1))
	assert.Equal(t, 1, h.recorders[0].count(NotifyDisconnect))
	assert.Equal(t, 1, h.clock.Pending())
	assert.False(t, h.recorders[0].lastState().Players[1].Connected)

	// a second disconnect is a no-op
	require.NoError(t, h.m.Disconnect("p2"))
	assert.Equal(t, 1, h.clock.Pending())
}

func TestDisconnectUnknownPlayer(t *testing.T) {
	h := startedHarness(t)
	assert.ErrorIs(t, h.m.Disconnect("nobody"), ErrUnknownPlayer)
}

func TestGraceExpiryForfeits(t *testing.T) {
	h := startedHarness(t)
	finished := 0
	h.m.OnFinish(func(*Match) { finished++ })

	require.NoError(t, h.m.Disconnect("p2"))
	h.clock.Advance(29 * time.Second)
	assert.False(t, h.m.Finished())

	h.clock.Advance(time.Second)

	require.True(t, h.m.Finished())
	winner, reason := h.m.Result()
	assert.Equal(t, "p1", winner)
	assert.Equal(t, "disconnect", reason)
	assert.Equal(t, "FINISHED", h.phase())
	assert.Equal(t, 1, finished)
}

func TestReconnectCancelsGraceTimer(t *testing.T) {
	h := startedHarness(t)
	require.NoError(t, h.m.Disconnect("p2"))

	h.clock.Advance(10 * time.Second)
	fresh := &recorder{}
	require.NoError(t, h.m.Reconnect("bob", "p2-new", fresh))
	h.clock.Advance(time.Minute)

	assert.False(t, h.m.Finished())
	assert.True(t, h.m.Connected(1))
	assert.Equal(t, 1, h.recorders[0].count(NotifyReconnect))

	snap := fresh.lastState()
	require.NotNil(t, snap)
	assert.Equal(t, "p2-new", snap.You)
	assert.Equal(t, "p2-new", snap.Players[1].ID)
	assert.NotEmpty(t, snap.Players[1].Hand, "own hand is visible after reconnect")
}

func TestReconnectWhileConnectedIsRejected(t *testing.T) {
	h := startedHarness(t)
	assert.ErrorIs(t, h.m.Reconnect("bob", "p2-new", &recorder{}), ErrIdentityActive)
	assert.ErrorIs(t, h.m.Reconnect("carol", "p3", &recorder{}), ErrUnknownPlayer)
	assert.Equal(t, "p2", h.m.PlayerID(1))
}

func TestReconnectMigratesPendingAttack(t *testing.T) {
	h := startedHarness(t)
	h.put(0, 0, unitCard("striker", 1, 3000))
	h.put(1, 0, unitCard("wall", 1, 1000))
	h.toAttack()
	require.NoError(t, h.attack(0))
	require.Equal(t, "DEFENSE", h.phase())

	require.NoError(t, h.m.Disconnect("p2"))
	require.NoError(t, h.m.Reconnect("bob", "p2-new", &recorder{}))

	h.edit(func(s *MatchState) {
		require.NotNil(t, s.Pending)
		assert.Equal(t, "p2-new", s.Pending.DefenderID)
		assert.Equal(t, "p1", s.Pending.AttackerID)
	})

	err := h.m.Submit(Command{Type: CmdResolveDefense, PlayerID: "p2", Choice: DefenseBlock})
	assert.ErrorIs(t, err, ErrUnknownPlayer, "old id is retired")

	require.NoError(t, h.defend(DefenseBlock))
	assert.Equal(t, "ATTACK", h.phase())
}

func TestReconnectMigratesTurnOwnerAndSelection(t *testing.T) {
	h := startedHarness(t)
	h.put(1, 0, unitCard("a", 1, 1000))
	killer := skillCard("kill", 1, Effect{Trigger: TriggerOnPlay, Action: KillEnemy{}})
	_, idx := h.give(0, killer)
	h.mustSubmit(0, Command{Type: CmdPlayCard, HandIndex: idx, Slot: 0})
	require.Equal(t, "SELECT_CARD", h.phase())

	require.NoError(t, h.m.Disconnect("p1"))
	require.NoError(t, h.m.Reconnect("alice", "p1-new", &recorder{}))

	h.edit(func(s *MatchState) {
		assert.Equal(t, "p1-new", s.TurnPlayer())
		require.NotNil(t, s.Selection)
		assert.Equal(t, "p1-new", s.Selection.Requester)
	})
}

func TestDetachedControllerCannotSubmit(t *testing.T) {
	h := startedHarness(t)
	old := h.recorders[0]
	require.NoError(t, h.m.Disconnect("p1"))
	require.NoError(t, h.m.Reconnect("alice", "p1-new", &recorder{}))

	old.mu.Lock()
	submit := old.submit
	old.mu.Unlock()
	require.NotNil(t, submit)
	assert.ErrorIs(t, submit(Command{Type: CmdAdvancePhase}), ErrUnknownPlayer)
}
