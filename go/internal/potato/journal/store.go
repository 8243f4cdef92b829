package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/mcdev12/hotpotato/go/internal/dbconfig"
	"github.com/mcdev12/hotpotato/go/internal/potato/journal/db"
	"github.com/mcdev12/hotpotato/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
)

// Schema creates the journal tables. It is idempotent.
//
//go:embed schema.sql
var Schema string

// Store is where journal rows end up.
type Store interface {
	InsertReadFallback(ctx context.Context, arg db.InsertReadFallbackParams) error
	RecordTransition(ctx context.Context, sub db.UpsertSubmissionParams, tr db.InsertLifecycleTransitionParams) error
	CountReadFallbacks(ctx context.Context, sessionID uuid.UUID) (int64, error)
}

// PostgresStore writes journal rows through database/sql and lib/pq.
type PostgresStore struct {
	db      *sql.DB
	queries *db.Queries
}

var _ Store = (*PostgresStore)(nil)

// Open connects to the database described by cfg.
func Open(ctx context.Context, cfg dbconfig.Config) (*PostgresStore, error) {
	database, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("user", cfg.User).
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("connected to journal database")
	return NewPostgresStore(database), nil
}

func NewPostgresStore(database *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:      database,
		queries: db.New(database),
	}
}

func (s *PostgresStore) InsertReadFallback(ctx context.Context, arg db.InsertReadFallbackParams) error {
	if err := s.queries.InsertReadFallback(ctx, arg); err != nil {
		return fmt.Errorf("insert read fallback: %w", err)
	}
	return nil
}

// RecordTransition upserts the submission row and appends the transition in one transaction.
func (s *PostgresStore) RecordTransition(ctx context.Context, sub db.UpsertSubmissionParams, tr db.InsertLifecycleTransitionParams) error {
	return sqlutil.Run(ctx, s.db, s.queries.WithTx, func(q *db.Queries) error {
		if err := q.UpsertSubmission(ctx, sub); err != nil {
			return fmt.Errorf("upsert submission: %w", err)
		}
		if err := q.InsertLifecycleTransition(ctx, tr); err != nil {
			return fmt.Errorf("insert lifecycle transition: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) CountReadFallbacks(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	n, err := s.queries.CountReadFallbacks(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("count read fallbacks: %w", err)
	}
	return n, nil
}

// EnsureSchema applies Schema.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply journal schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
