// Package journal keeps an audit trail of read fallbacks and transaction lifecycles. It is
// write-only from the engine's point of view and never used to restore state.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/mcdev12/hotpotato/go/internal/potato/journal/db"
	"github.com/mcdev12/hotpotato/go/internal/potato/ledger"
	"github.com/mcdev12/hotpotato/go/internal/potato/txn"
	"github.com/mcdev12/hotpotato/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
)

const writeTimeout = 2 * time.Second

// Journal records one session's diagnostics. Write failures are logged and swallowed.
type Journal struct {
	store     Store
	sessionID uuid.UUID
	clock     clockwork.Clock
}

var (
	_ ledger.DiagnosticsSink = (*Journal)(nil)
	_ txn.LifecycleSink      = (*Journal)(nil)
)

func New(store Store, sessionID uuid.UUID, clock clockwork.Clock) *Journal {
	return &Journal{
		store:     store,
		sessionID: sessionID,
		clock:     clock,
	}
}

type readFallbackDetails struct {
	Outcome string `json:"outcome"`
	Cause   string `json:"cause,omitempty"`
}

// RecordReadFallback implements ledger.DiagnosticsSink.
func (j *Journal) RecordReadFallback(ctx context.Context, outcome ledger.ReadOutcome, cause string) {
	details, err := sqlutil.ToNullRawMessage(readFallbackDetails{Outcome: string(outcome), Cause: cause})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode read fallback details")
		return
	}

	ctx, cancel := j.writeContext(ctx)
	defer cancel()

	err = j.store.InsertReadFallback(ctx, db.InsertReadFallbackParams{
		ID:         uuid.New(),
		SessionID:  j.sessionID,
		Outcome:    string(outcome),
		Cause:      sqlutil.ToSqlString(cause),
		Details:    details,
		RecordedAt: j.clock.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Str("outcome", string(outcome)).Msg("failed to journal read fallback")
	}
}

type lifecycleDetails struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// RecordLifecycle implements txn.LifecycleSink.
func (j *Journal) RecordLifecycle(ctx context.Context, submissionID uuid.UUID, origin, target models.Address, lc models.TxLifecycle) {
	details := sqlutil.NullRawMessage()
	if lc.Detail != "" {
		var err error
		details, err = sqlutil.ToNullRawMessage(lifecycleDetails{Kind: string(lc.Kind), Detail: lc.Detail})
		if err != nil {
			log.Error().Err(err).Msg("failed to encode lifecycle details")
			return
		}
	}

	ctx, cancel := j.writeContext(ctx)
	defer cancel()

	now := j.clock.Now().UTC()
	err := j.store.RecordTransition(ctx,
		db.UpsertSubmissionParams{
			ID:        submissionID,
			SessionID: j.sessionID,
			Kind:      string(lc.Kind),
			Origin:    origin.String(),
			Target:    sqlutil.ToSqlString(target.String()),
			Phase:     string(lc.Phase),
			At:        now,
		},
		db.InsertLifecycleTransitionParams{
			ID:           uuid.New(),
			SubmissionID: submissionID,
			Phase:        string(lc.Phase),
			Reason:       sqlutil.ToSqlString(string(lc.Reason)),
			Details:      details,
			RecordedAt:   now,
		},
	)
	if err != nil {
		log.Error().
			Err(err).
			Str("submission_id", submissionID.String()).
			Str("lifecycle", lc.String()).
			Msg("failed to journal lifecycle transition")
	}
}

// FallbackCount returns how many reads of this session fell back to the default snapshot.
func (j *Journal) FallbackCount(ctx context.Context) (int64, error) {
	ctx, cancel := j.writeContext(ctx)
	defer cancel()
	return j.store.CountReadFallbacks(ctx, j.sessionID)
}

// writeContext keeps the caller's values but not its cancellation, so a write racing teardown
// still lands.
func (j *Journal) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
}
