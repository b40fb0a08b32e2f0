package game

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const replayVersion = 1

// ReplayFrame is one recorded spectator snapshot.
type ReplayFrame struct {
	At    time.Time `json:"at"`
	State *Snapshot `json:"state"`
}

// Replay records spectator snapshots of a match, one per broadcast.
// Frames beyond the limit drop the oldest.
type Replay struct {
	MatchID string
	Frames  []ReplayFrame

	limit int
	mu    sync.RWMutex
}

// NewReplay creates an empty replay holding at most limit frames.
func NewReplay(matchID string, limit int) *Replay {
	return &Replay{
		MatchID: matchID,
		Frames:  make([]ReplayFrame, 0),
		limit:   limit,
	}
}

// Record appends a frame.
func (r *Replay) Record(snap *Snapshot, at time.Time) {
	if snap == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Frames = append(r.Frames, ReplayFrame{At: at, State: snap})
	if r.limit > 0 && len(r.Frames) > r.limit {
		drop := len(r.Frames) - r.limit
		r.Frames = append(r.Frames[:0], r.Frames[drop:]...)
	}
}

// Size returns the number of recorded frames.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.Frames)
}

// FrameAt returns the snapshot at index, or nil when out of range.
func (r *Replay) FrameAt(index int) *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.Frames) {
		return nil
	}
	return r.Frames[index].State
}

type replayEnvelope struct {
	Version int           `json:"version"`
	MatchID string        `json:"matchId"`
	Frames  []ReplayFrame `json:"frames"`
}

// Encode serializes the replay as zstd-compressed JSON.
func (r *Replay) Encode() ([]byte, error) {
	r.mu.RLock()
	env := replayEnvelope{Version: replayVersion, MatchID: r.MatchID, Frames: r.Frames}
	raw, err := json.Marshal(env)
	r.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal replay: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

// DecodeReplay restores a replay produced by Encode.
func DecodeReplay(data []byte) (*Replay, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress replay: %w", err)
	}
	var env replayEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal replay: %w", err)
	}
	if env.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", env.Version)
	}

	r := NewReplay(env.MatchID, len(env.Frames))
	r.Frames = env.Frames
	return r, nil
}

// Replay returns the match recording, or nil when recording is disabled.
func (m *Match) Replay() *Replay {
	return m.replay
}
