package ledger

import (
	"context"

	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ReadOutcome tells a genuine read apart from a substituted default snapshot.
type ReadOutcome string

const (
	OutcomeOK           ReadOutcome = "ok"
	OutcomeFailedResult ReadOutcome = "failed_result"
	OutcomeError        ReadOutcome = "error"
	OutcomeDisconnected ReadOutcome = "disconnected"
)

// Fallback reports whether the snapshot was substituted rather than read.
func (o ReadOutcome) Fallback() bool {
	return o != OutcomeOK
}

// ReadResult is a snapshot plus how it was obtained.
type ReadResult struct {
	Snapshot models.GameSnapshot
	Outcome  ReadOutcome
	Cause    string
}

// DiagnosticsSink receives read fallbacks. The journal implements it.
type DiagnosticsSink interface {
	RecordReadFallback(ctx context.Context, outcome ReadOutcome, cause string)
}

// Reader performs single reads of contract storage and never fails.
type Reader struct {
	storage     StorageReader
	diagnostics DiagnosticsSink
}

// NewReader creates a reader. storage may be nil when no endpoint is connected.
func NewReader(storage StorageReader, diagnostics DiagnosticsSink) *Reader {
	return &Reader{
		storage:     storage,
		diagnostics: diagnostics,
	}
}

// Read performs one read of root storage. Failures yield the default snapshot tagged with the outcome.
func (r *Reader) Read(ctx context.Context) ReadResult {
	if r.storage == nil {
		return r.fallback(ctx, OutcomeDisconnected, "no endpoint connected")
	}

	res, err := r.storage.GetRoot(ctx)
	if err != nil {
		return r.fallback(ctx, OutcomeError, err.Error())
	}
	if !res.Success {
		return r.fallback(ctx, OutcomeFailedResult, res.Cause)
	}

	return ReadResult{
		Snapshot: ToSnapshot(res.Value),
		Outcome:  OutcomeOK,
	}
}

// ToSnapshot maps remote storage onto a GameSnapshot, unwrapping the option fields.
func ToSnapshot(s RootStorage) models.GameSnapshot {
	return models.GameSnapshot{
		IsActive:        s.Active,
		CurrentHolder:   models.NewAddress(string(s.CurrentHolder.Unwrap())),
		DeadlineBlocks:  s.DeadlineBlocks,
		GameStarter:     models.NewAddress(string(s.GameStarter.Unwrap())),
		LastPassedBlock: s.LastPassedBlock,
	}
}

func (r *Reader) fallback(ctx context.Context, outcome ReadOutcome, cause string) ReadResult {
	log.Warn().
		Str("outcome", string(outcome)).
		Str("cause", cause).
		Msg("storage read failed; substituting default snapshot")

	if r.diagnostics != nil {
		r.diagnostics.RecordReadFallback(ctx, outcome, cause)
	}

	return ReadResult{
		Snapshot: models.DefaultSnapshot(),
		Outcome:  outcome,
		Cause:    cause,
	}
}
