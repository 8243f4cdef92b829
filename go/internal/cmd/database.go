package main

import (
	"context"
	"fmt"
	"time"

	"github.com/mcdev12/hotpotato/go/internal/potato/journal"
)

// setupJournal connects to the journal database and makes sure its tables exist.
func setupJournal(ctx context.Context, cfg *Config) (*journal.PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := journal.Open(ctx, cfg.Journal.Database)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}
	return store, nil
}
