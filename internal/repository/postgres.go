package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/thraizz/tcg-match-server/internal/game"
	"go.uber.org/zap"
)

// PostgresArchive stores matches in PostgreSQL through a pgx pool.
type PostgresArchive struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresArchive connects to dsn, verifies the connection and applies
// the Postgres migrations.
func NewPostgresArchive(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresArchive, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	var username, database string
	if err := pool.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to query database: %w", err)
	}

	stmts, err := migrations("postgres")
	if err != nil {
		pool.Close()
		return nil, err
	}
	for i, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to execute migration %d: %w", i+1, err)
		}
	}

	stats := pool.Stat()
	logger.Info("postgres match archive ready",
		zap.String("database", database),
		zap.String("user", username),
		zap.Int32("total_conns", stats.TotalConns()),
		zap.Int32("idle_conns", stats.IdleConns()),
	)
	return &PostgresArchive{pool: pool, logger: logger}, nil
}

func (a *PostgresArchive) ArchiveMatch(ctx context.Context, rec game.MatchRecord) error {
	q := `
	INSERT INTO matches
		(match_id, player1, player2, username1, username2, winner, reason, turns, started_at, ended_at, checksum, replay)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (match_id) DO UPDATE SET
		winner = $6, reason = $7, turns = $8, ended_at = $10, checksum = $11, replay = $12;
	`
	_, err := a.pool.Exec(ctx, q,
		rec.ID, rec.Players[0], rec.Players[1], rec.Usernames[0], rec.Usernames[1],
		rec.Winner, rec.Reason, rec.Turns, rec.StartedAt, rec.EndedAt, rec.Checksum, rec.Replay,
	)
	if err != nil {
		return fmt.Errorf("failed to insert match %s: %w", rec.ID, err)
	}
	return nil
}

func (a *PostgresArchive) Get(ctx context.Context, matchID string) (game.MatchRecord, error) {
	q := `
	SELECT match_id, player1, player2, username1, username2, winner, reason, turns, started_at, ended_at, checksum, replay
	FROM matches WHERE match_id = $1;
	`
	var rec game.MatchRecord
	err := a.pool.QueryRow(ctx, q, matchID).Scan(
		&rec.ID, &rec.Players[0], &rec.Players[1], &rec.Usernames[0], &rec.Usernames[1],
		&rec.Winner, &rec.Reason, &rec.Turns, &rec.StartedAt, &rec.EndedAt, &rec.Checksum, &rec.Replay,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return game.MatchRecord{}, ErrNotFound
	}
	if err != nil {
		return game.MatchRecord{}, fmt.Errorf("failed to scan match: %w", err)
	}
	return rec, nil
}

func (a *PostgresArchive) Recent(ctx context.Context, limit int) ([]game.MatchRecord, error) {
	q := `
	SELECT match_id, player1, player2, username1, username2, winner, reason, turns, started_at, ended_at, checksum
	FROM matches ORDER BY ended_at DESC, match_id
	`
	args := []any{}
	if limit > 0 {
		q += " LIMIT $1"
		args = append(args, limit)
	}
	rows, err := a.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var out []game.MatchRecord
	for rows.Next() {
		var rec game.MatchRecord
		if err := rows.Scan(
			&rec.ID, &rec.Players[0], &rec.Players[1], &rec.Usernames[0], &rec.Usernames[1],
			&rec.Winner, &rec.Reason, &rec.Turns, &rec.StartedAt, &rec.EndedAt, &rec.Checksum,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (a *PostgresArchive) Close() error {
	a.pool.Close()
	return nil
}
