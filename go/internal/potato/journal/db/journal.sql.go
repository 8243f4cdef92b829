package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const insertReadFallback = `-- name: InsertReadFallback :exec
INSERT INTO read_fallbacks (id, session_id, outcome, cause, details, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

type InsertReadFallbackParams struct {
	ID         uuid.UUID             `json:"id"`
	SessionID  uuid.UUID             `json:"session_id"`
	Outcome    string                `json:"outcome"`
	Cause      sql.NullString        `json:"cause"`
	Details    pqtype.NullRawMessage `json:"details"`
	RecordedAt time.Time             `json:"recorded_at"`
}

func (q *Queries) InsertReadFallback(ctx context.Context, arg InsertReadFallbackParams) error {
	_, err := q.db.ExecContext(ctx, insertReadFallback,
		arg.ID,
		arg.SessionID,
		arg.Outcome,
		arg.Cause,
		arg.Details,
		arg.RecordedAt,
	)
	return err
}

const upsertSubmission = `-- name: UpsertSubmission :exec
INSERT INTO submissions (id, session_id, kind, origin, target, phase, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
ON CONFLICT (id) DO UPDATE SET phase = EXCLUDED.phase, updated_at = EXCLUDED.updated_at
`

type UpsertSubmissionParams struct {
	ID        uuid.UUID      `json:"id"`
	SessionID uuid.UUID      `json:"session_id"`
	Kind      string         `json:"kind"`
	Origin    string         `json:"origin"`
	Target    sql.NullString `json:"target"`
	Phase     string         `json:"phase"`
	At        time.Time      `json:"at"`
}

func (q *Queries) UpsertSubmission(ctx context.Context, arg UpsertSubmissionParams) error {
	_, err := q.db.ExecContext(ctx, upsertSubmission,
		arg.ID,
		arg.SessionID,
		arg.Kind,
		arg.Origin,
		arg.Target,
		arg.Phase,
		arg.At,
	)
	return err
}

const insertLifecycleTransition = `-- name: InsertLifecycleTransition :exec
INSERT INTO lifecycle_transitions (id, submission_id, phase, reason, details, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

type InsertLifecycleTransitionParams struct {
	ID           uuid.UUID             `json:"id"`
	SubmissionID uuid.UUID             `json:"submission_id"`
	Phase        string                `json:"phase"`
	Reason       sql.NullString        `json:"reason"`
	Details      pqtype.NullRawMessage `json:"details"`
	RecordedAt   time.Time             `json:"recorded_at"`
}

func (q *Queries) InsertLifecycleTransition(ctx context.Context, arg InsertLifecycleTransitionParams) error {
	_, err := q.db.ExecContext(ctx, insertLifecycleTransition,
		arg.ID,
		arg.SubmissionID,
		arg.Phase,
		arg.Reason,
		arg.Details,
		arg.RecordedAt,
	)
	return err
}

const countReadFallbacks = `-- name: CountReadFallbacks :one
SELECT count(*) FROM read_fallbacks WHERE session_id = $1
`

func (q *Queries) CountReadFallbacks(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	row := q.db.QueryRowContext(ctx, countReadFallbacks, sessionID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
