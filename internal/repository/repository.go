package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/thraizz/tcg-match-server/internal/config"
	"github.com/thraizz/tcg-match-server/internal/game"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no archived match has the requested id.
var ErrNotFound = errors.New("match not archived")

//go:embed migrations
var migrationFS embed.FS

// Archive stores finished matches and reads them back.
type Archive interface {
	game.Archiver
	Get(ctx context.Context, matchID string) (game.MatchRecord, error)
	// Recent lists up to limit matches, most recently ended first. Replay
	// blobs are omitted.
	Recent(ctx context.Context, limit int) ([]game.MatchRecord, error)
	Close() error
}

// Open connects the archive selected by cfg and applies its migrations.
func Open(ctx context.Context, cfg config.ArchiveConfig, logger *zap.Logger) (Archive, error) {
	switch cfg.Driver {
	case config.ArchiveMemory, "":
		logger.Info("using in-memory match archive")
		return NewMemoryArchive(), nil
	case config.ArchiveSQLite:
		return NewSQLiteArchive(ctx, cfg.DSN, logger)
	case config.ArchivePostgres:
		return NewPostgresArchive(ctx, cfg.DSN, logger)
	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.Driver)
	}
}

// migrations returns the SQL files for a driver in name order.
func migrations(driver string) ([]string, error) {
	dir := "migrations/" + driver
	entries, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		body, err := fs.ReadFile(migrationFS, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		out = append(out, string(body))
	}
	return out, nil
}
