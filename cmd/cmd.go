// Package cmd contains the command-line interface: argument routing,
// application startup, and the interactive chat loop.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cosmicworks/ragchat/internal/app"
	"github.com/cosmicworks/ragchat/internal/config"
	"github.com/cosmicworks/ragchat/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the entry point for the CLI. Routing happens before full
// initialization so version and help work even when config is invalid.
func Execute() error {
	args := os.Args[1:]

	if len(args) == 0 {
		printHelp()
		return nil
	}

	switch args[0] {
	case "version", "--version", "-v":
		printVersion()
		return nil
	case "help", "--help", "-h":
		printHelp()
		return nil
	}

	logger := initLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx := context.Background()
	a, cleanup, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("starting application: %w", err)
	}
	defer cleanup()

	switch args[0] {
	case "chat":
		return runChat(ctx, a, args[1:])
	case "ask":
		return runAsk(ctx, a, args[1:])
	case "sessions":
		return runSessions(ctx, a, args[1:])
	case "ingest":
		return runIngest(ctx, a, args[1:])
	case "cache":
		return runCache(ctx, a, args[1:])
	default:
		printHelp()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// initLogger builds the process logger. DEBUG in the environment switches
// to debug level. Logs go to stderr; stdout carries answers.
func initLogger() log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.NewWithWriter(os.Stderr, log.Config{Level: level})
}

func printVersion() {
	fmt.Printf("ragchat v%s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
}

func printHelp() {
	fmt.Println("ragchat - retrieval-augmented chat over the Cosmic Works catalog")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ragchat chat [--session <id>] [--source <collection>]")
	fmt.Println("                                Interactive chat (new session unless --session)")
	fmt.Println("  ragchat ask <question>        One-off question, no session or retrieval")
	fmt.Println("  ragchat sessions list         List stored sessions")
	fmt.Println("  ragchat sessions delete <id>  Delete a session")
	fmt.Println("  ragchat ingest <collection> <file>")
	fmt.Println("                                Embed and store documents (one JSON doc per line)")
	fmt.Println("  ragchat cache clear           Empty the response cache")
	fmt.Println("  ragchat version               Show version information")
	fmt.Println()
	fmt.Println("Collections: products, customers, salesOrders")
	fmt.Println("Source values: auto (default), none, or a collection name")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  GEMINI_API_KEY     Required: Gemini API key")
	fmt.Println("  DATABASE_URL       Optional: overrides the postgres_* config values")
	fmt.Println("  DEBUG              Optional: enable debug logging")
}
