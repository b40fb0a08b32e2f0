package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/thraizz/tcg-match-server/internal/game"
	"go.uber.org/zap"
)

// SQLiteArchive stores matches in a local SQLite file.
type SQLiteArchive struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteArchive opens path and applies the SQLite migrations.
func NewSQLiteArchive(ctx context.Context, path string, logger *zap.Logger) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	stmts, err := migrations("sqlite")
	if err != nil {
		db.Close()
		return nil, err
	}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute migration %d: %w", i+1, err)
		}
	}

	logger.Info("sqlite match archive ready",
		zap.String("path", path),
		zap.Int("migrations", len(stmts)),
	)
	return &SQLiteArchive{db: db, logger: logger}, nil
}

func (a *SQLiteArchive) ArchiveMatch(ctx context.Context, rec game.MatchRecord) error {
	q := `
	INSERT OR REPLACE INTO matches
		(match_id, player1, player2, username1, username2, winner, reason, turns, started_at, ended_at, checksum, replay)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	_, err := a.db.ExecContext(ctx, q,
		rec.ID, rec.Players[0], rec.Players[1], rec.Usernames[0], rec.Usernames[1],
		rec.Winner, rec.Reason, rec.Turns,
		rec.StartedAt.UnixNano(), rec.EndedAt.UnixNano(),
		rec.Checksum, rec.Replay,
	)
	if err != nil {
		return fmt.Errorf("failed to insert match %s: %w", rec.ID, err)
	}
	return nil
}

func (a *SQLiteArchive) Get(ctx context.Context, matchID string) (game.MatchRecord, error) {
	q := `
	SELECT match_id, player1, player2, username1, username2, winner, reason, turns, started_at, ended_at, checksum, replay
	FROM matches WHERE match_id = ?;
	`
	rec, err := scanSQLite(a.db.QueryRowContext(ctx, q, matchID), true)
	if errors.Is(err, sql.ErrNoRows) {
		return game.MatchRecord{}, ErrNotFound
	}
	if err != nil {
		return game.MatchRecord{}, fmt.Errorf("failed to scan match: %w", err)
	}
	return rec, nil
}

func (a *SQLiteArchive) Recent(ctx context.Context, limit int) ([]game.MatchRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	q := `
	SELECT match_id, player1, player2, username1, username2, winner, reason, turns, started_at, ended_at, checksum
	FROM matches ORDER BY ended_at DESC, match_id LIMIT ?;
	`
	rows, err := a.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var out []game.MatchRecord
	for rows.Next() {
		rec, err := scanSQLite(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row rowScanner, withReplay bool) (game.MatchRecord, error) {
	var rec game.MatchRecord
	var started, ended int64
	dest := []any{
		&rec.ID, &rec.Players[0], &rec.Players[1], &rec.Usernames[0], &rec.Usernames[1],
		&rec.Winner, &rec.Reason, &rec.Turns, &started, &ended, &rec.Checksum,
	}
	if withReplay {
		dest = append(dest, &rec.Replay)
	}
	if err := row.Scan(dest...); err != nil {
		return game.MatchRecord{}, err
	}
	rec.StartedAt = time.Unix(0, started).UTC()
	rec.EndedAt = time.Unix(0, ended).UTC()
	return rec, nil
}
