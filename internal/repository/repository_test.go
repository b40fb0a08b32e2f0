package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thraizz/tcg-match-server/internal/config"
	"github.com/thraizz/tcg-match-server/internal/game"
	"go.uber.org/zap/zaptest"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func record(id string, endedAfter time.Duration) game.MatchRecord {
	return game.MatchRecord{
		ID:        id,
		Players:   [2]string{"p1", "p2"},
		Usernames: [2]string{"alice", "bob"},
		Winner:    "p1",
		Reason:    "damage",
		Turns:     9,
		StartedAt: epoch,
		EndedAt:   epoch.Add(endedAfter),
		Replay:    []byte{0x28, 0xb5, 0x2f, 0xfd},
		Checksum:  "abc123",
	}
}

// exerciseArchive runs the behaviour every Archive implementation shares.
func exerciseArchive(t *testing.T, archive Archive) {
	ctx := context.Background()

	_, err := archive.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, archive.ArchiveMatch(ctx, record("m1", time.Minute)))
	require.NoError(t, archive.ArchiveMatch(ctx, record("m2", 3*time.Minute)))
	require.NoError(t, archive.ArchiveMatch(ctx, record("m3", 2*time.Minute)))

	got, err := archive.Get(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, "m2", got.ID)
	assert.Equal(t, [2]string{"alice", "bob"}, got.Usernames)
	assert.Equal(t, 9, got.Turns)
	assert.True(t, got.EndedAt.Equal(epoch.Add(3*time.Minute)))
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, got.Replay)

	recent, err := archive.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "m2", recent[0].ID)
	assert.Equal(t, "m3", recent[1].ID)
	assert.Empty(t, recent[0].Replay, "listings omit replay blobs")

	all, err := archive.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// archiving the same match again replaces it
	updated := record("m1", time.Minute)
	updated.Winner = "p2"
	require.NoError(t, archive.ArchiveMatch(ctx, updated))
	got, err = archive.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "p2", got.Winner)
}

func TestMemoryArchive(t *testing.T) {
	exerciseArchive(t, NewMemoryArchive())
}

func TestMemoryArchiveHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, NewMemoryArchive().ArchiveMatch(ctx, record("m1", 0)))
}

func TestSQLiteArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matches.db")
	archive, err := NewSQLiteArchive(context.Background(), path, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer archive.Close()

	exerciseArchive(t, archive)
}

func TestSQLiteArchiveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "matches.db")
	archive, err := NewSQLiteArchive(ctx, path, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, archive.ArchiveMatch(ctx, record("m1", time.Minute)))
	require.NoError(t, archive.Close())

	reopened, err := NewSQLiteArchive(ctx, path, zaptest.NewLogger(t))
	require.NoError(t, err, "migrations are idempotent")
	defer reopened.Close()
	_, err = reopened.Get(ctx, "m1")
	assert.NoError(t, err)
}

func TestPostgresArchive(t *testing.T) {
	dsn := os.Getenv("TCG_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TCG_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	archive, err := NewPostgresArchive(ctx, dsn, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer archive.Close()
	_, err = archive.pool.Exec(ctx, "DELETE FROM matches WHERE match_id IN ('m1', 'm2', 'm3')")
	require.NoError(t, err)

	exerciseArchive(t, archive)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	archive, err := Open(ctx, config.ArchiveConfig{Driver: config.ArchiveMemory}, logger)
	require.NoError(t, err)
	assert.IsType(t, &MemoryArchive{}, archive)

	archive, err = Open(ctx, config.ArchiveConfig{
		Driver: config.ArchiveSQLite,
		DSN:    filepath.Join(t.TempDir(), "m.db"),
	}, logger)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteArchive{}, archive)
	require.NoError(t, archive.Close())

	_, err = Open(ctx, config.ArchiveConfig{Driver: "mongo"}, logger)
	assert.Error(t, err)
}
