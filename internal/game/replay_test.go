package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(turn int) *Snapshot {
	return &Snapshot{MatchID: "match-1", Phase: "MAIN", Turn: turn}
}

func TestNewReplay(t *testing.T) {
	replay := NewReplay("match-1", 10)
	assert.Equal(t, "match-1", replay.MatchID)
	assert.Equal(t, 0, replay.Size())
	assert.Nil(t, replay.FrameAt(0))
}

func TestReplayRecordIgnoresNil(t *testing.T) {
	replay := NewReplay("match-1", 10)
	replay.Record(nil, harnessStart)
	assert.Equal(t, 0, replay.Size())
}

func TestReplayDropsOldestBeyondLimit(t *testing.T) {
	replay := NewReplay("match-1", 3)
	for i := 1; i <= 5; i++ {
		replay.Record(frame(i), harnessStart.Add(time.Duration(i)*time.Second))
	}

	require.Equal(t, 3, replay.Size())
	assert.Equal(t, 3, replay.FrameAt(0).Turn)
	assert.Equal(t, 5, replay.FrameAt(2).Turn)
	assert.Nil(t, replay.FrameAt(3))
	assert.Nil(t, replay.FrameAt(-1))
}

func TestReplayEncodeDecode(t *testing.T) {
	replay := NewReplay("match-1", 0)
	replay.Record(frame(1), harnessStart)
	replay.Record(frame(2), harnessStart.Add(time.Minute))

	blob, err := replay.Encode()
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	restored, err := DecodeReplay(blob)
	require.NoError(t, err)
	assert.Equal(t, "match-1", restored.MatchID)
	require.Equal(t, 2, restored.Size())
	assert.Equal(t, 2, restored.FrameAt(1).Turn)
	assert.True(t, restored.Frames[1].At.Equal(harnessStart.Add(time.Minute)))
}

func TestDecodeReplayRejectsGarbage(t *testing.T) {
	_, err := DecodeReplay([]byte("not a replay"))
	assert.Error(t, err)
}

func TestMatchRecordsReplayFrames(t *testing.T) {
	h := startedHarness(t, withReplay(100))
	replay := h.m.Replay()
	require.NotNil(t, replay)
	before := replay.Size()
	require.Positive(t, before)

	h.mustSubmit(0, Command{Type: CmdAdvancePhase})
	assert.Equal(t, before+1, replay.Size())

	last := replay.FrameAt(replay.Size() - 1)
	assert.Equal(t, "ATTACK", last.Phase)
	assert.Empty(t, last.You, "frames are spectator views")
	assert.Empty(t, last.Players[0].Hand)
	assert.Positive(t, last.Players[0].HandCount)
}

func TestMatchWithoutReplay(t *testing.T) {
	h := startedHarness(t)
	assert.Nil(t, h.m.Replay())
}
