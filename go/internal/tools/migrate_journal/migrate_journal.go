package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/hotpotato/go/internal/dbconfig"
	"github.com/mcdev12/hotpotato/go/internal/potato/journal"
)

func main() {
	ctx := context.Background()

	// 1) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 2) Apply the journal schema
	if _, err := pool.Exec(ctx, journal.Schema); err != nil {
		fmt.Fprintf(os.Stderr, "apply schema: %v\n", err)
		os.Exit(1)
	}

	// 3) Print summary
	tables := []string{"read_fallbacks", "submissions", "lifecycle_transitions"}
	for _, table := range tables {
		var rows int64
		if err := pool.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&rows); err != nil {
			fmt.Fprintf(os.Stderr, "count %s: %v\n", table, err)
			os.Exit(1)
		}
		fmt.Printf("%-22s %d rows\n", table, rows)
	}
	fmt.Printf("Journal schema applied to %s@%s:%d/%s\n", cfg.User, cfg.Host, cfg.Port, cfg.Database)
}
