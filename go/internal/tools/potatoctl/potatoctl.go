package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/mcdev12/hotpotato/go/internal/potato/gateway"
)

const usage = `usage: potatoctl [-addr URL] <command> [args]

commands:
  view               print the current view
  start <address>    start a game with <address> holding the potato
  pass <address>     pass the potato to <address>
  check              check the holder's deadline
  ack                acknowledge the game-over verdict
`

func main() {
	addr := flag.String("addr", getEnv("HOTPOTATO_ADDR", "http://localhost:8080"), "server base URL")
	timeout := flag.Duration("timeout", 2*time.Minute, "request timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := gateway.NewGameServiceClient(http.DefaultClient, *addr)
	if err := run(ctx, client, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "potatoctl: %v\n", err)
		if code := connect.CodeOf(err); code != connect.CodeUnknown {
			fmt.Fprintf(os.Stderr, "code: %s\n", code)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, client *gateway.GameServiceClient, args []string) error {
	switch args[0] {
	case "view":
		view, err := client.GetView(ctx)
		if err != nil {
			return err
		}
		return printJSON(view)
	case "start", "pass":
		if len(args) < 2 {
			return fmt.Errorf("%s needs a target address", args[0])
		}
		kind := models.TxKindStartGame
		if args[0] == "pass" {
			kind = models.TxKindPassPotato
		}
		return submit(ctx, client, kind, models.NewAddress(args[1]))
	case "check":
		return submit(ctx, client, models.TxKindCheckDeadline, "")
	case "ack":
		ok, err := client.AcknowledgeGameOver(ctx)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("no verdict pending")
			return nil
		}
		fmt.Println("verdict acknowledged")
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func submit(ctx context.Context, client *gateway.GameServiceClient, kind models.TxKind, to models.Address) error {
	lc, err := client.Submit(ctx, kind, to)
	if err != nil {
		return err
	}
	fmt.Println(lc.String())
	if lc.Detail != "" {
		fmt.Println(lc.Detail)
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
