package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/thraizz/tcg-match-server/internal/game"
)

// MemoryArchive keeps finished matches in process memory.
type MemoryArchive struct {
	mu      sync.RWMutex
	matches map[string]game.MatchRecord
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{matches: make(map[string]game.MatchRecord)}
}

func (a *MemoryArchive) ArchiveMatch(ctx context.Context, rec game.MatchRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.matches[rec.ID] = rec
	return nil
}

func (a *MemoryArchive) Get(ctx context.Context, matchID string) (game.MatchRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	rec, ok := a.matches[matchID]
	if !ok {
		return game.MatchRecord{}, ErrNotFound
	}
	return rec, nil
}

func (a *MemoryArchive) Recent(ctx context.Context, limit int) ([]game.MatchRecord, error) {
	a.mu.RLock()
	out := make([]game.MatchRecord, 0, len(a.matches))
	for _, rec := range a.matches {
		rec.Replay = nil
		out = append(out, rec)
	}
	a.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].EndedAt.Equal(out[j].EndedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].EndedAt.After(out[j].EndedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (a *MemoryArchive) Close() error { return nil }
