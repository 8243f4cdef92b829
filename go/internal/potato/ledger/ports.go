package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/hotpotato/go/internal/models"
)

// StorageReader reads the contract's root storage.
// A returned error means the read threw; a StorageResult with Success=false is a failure result.
type StorageReader interface {
	GetRoot(ctx context.Context) (StorageResult, error)
}

// Submitter signs and submits a contract message and waits for finalization.
// A returned error means the submission never reached finalization.
type Submitter interface {
	Send(ctx context.Context, call Call) (Finalized, error)
}

// AccountMapper tells whether an address is registered for execution on the remote side.
type AccountMapper interface {
	AddressIsMapped(ctx context.Context, address models.Address) (bool, error)
}

// Endpoint is a connected remote ledger.
type Endpoint interface {
	StorageReader
	Submitter
	AccountMapper
}

// StorageResult mirrors the remote read result.
type StorageResult struct {
	Success bool        `json:"success"`
	Value   RootStorage `json:"value"`
	Cause   string      `json:"cause,omitempty"`
}

// RootStorage is the contract's storage layout.
type RootStorage struct {
	Active          bool                   `json:"active"`
	CurrentHolder   Option[models.Address] `json:"current_holder"`
	DeadlineBlocks  uint32                 `json:"deadline_blocks"`
	GameStarter     Option[models.Address] `json:"game_starter"`
	LastPassedBlock uint32                 `json:"last_passed_block"`
}

// Option is the remote present/absent wrapper: {"type":"Some","value":[v]} or {"type":"None"}.
type Option[T any] struct {
	Some  bool
	Value T
}

func Some[T any](v T) Option[T] {
	return Option[T]{Some: true, Value: v}
}

func None[T any]() Option[T] {
	return Option[T]{}
}

// Unwrap returns the wrapped value, or the zero value when absent.
func (o Option[T]) Unwrap() T {
	if !o.Some {
		var zero T
		return zero
	}
	return o.Value
}

type optionWire struct {
	Type  string            `json:"type"`
	Value []json.RawMessage `json:"value,omitempty"`
}

func (o Option[T]) MarshalJSON() ([]byte, error) {
	if !o.Some {
		return json.Marshal(optionWire{Type: "None"})
	}
	raw, err := json.Marshal(o.Value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(optionWire{Type: "Some", Value: []json.RawMessage{raw}})
}

func (o *Option[T]) UnmarshalJSON(data []byte) error {
	var w optionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode option: %w", err)
	}
	switch w.Type {
	case "None", "":
		*o = Option[T]{}
		return nil
	case "Some":
		if len(w.Value) == 0 {
			return fmt.Errorf("decode option: Some without value")
		}
		var v T
		if err := json.Unmarshal(w.Value[0], &v); err != nil {
			return fmt.Errorf("decode option value: %w", err)
		}
		*o = Some(v)
		return nil
	default:
		return fmt.Errorf("decode option: unknown type %q", w.Type)
	}
}

// Call is one contract message submission.
type Call struct {
	Message models.TxKind  `json:"message"`
	Origin  models.Address `json:"origin"`
	Data    *CallData      `json:"data,omitempty"`
}

// CallData is the optional {to} payload.
type CallData struct {
	To models.Address `json:"to"`
}

// Finalized is the confirmed outcome of a submission.
type Finalized struct {
	Ok            bool   `json:"ok"`
	DispatchError string `json:"dispatch_error,omitempty"`
	BlockHash     string `json:"block_hash,omitempty"`
}
