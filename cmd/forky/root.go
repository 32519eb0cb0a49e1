package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/forkyai/forky/internal/config"
	"github.com/forkyai/forky/internal/modelclient"
	"github.com/forkyai/forky/internal/service"
	"github.com/forkyai/forky/internal/storage"
	"github.com/forkyai/forky/internal/storage/forkydb"
	"github.com/forkyai/forky/internal/telemetry"
)

// Package-level command state, following the teacher's cmd/bd convention
// of a shared rootCtx/jsonOutput pair every subcommand reads directly
// rather than threading through cobra's Context().
var (
	rootCtx    context.Context
	jsonOutput bool
	noColor    bool
	workspace  string

	appConfig *config.Config
	store     storage.Store
	svc       *service.ConversationService

	telemetryShutdown telemetry.Shutdown
)

var rootCmd = &cobra.Command{
	Use:           "forky",
	Short:         "Forky — a persistent, branchable, mergeable AI conversation manager",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initService(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return shutdownService(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON instead of human-readable text")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored/styled output")
	rootCmd.PersistentFlags().StringVar(&workspace, "root", ".", "project root containing .forky/config.toml")

	rootCmd.AddGroup(
		&cobra.Group{ID: "conversation", Title: "Conversation commands:"},
		&cobra.Group{ID: "maint", Title: "Maintenance commands:"},
	)
}

// Execute runs the command tree; main.go is the only caller.
func Execute() error {
	return rootCmd.Execute()
}

// isTTY reports whether stdout is an interactive terminal — used to decide
// between glamour-rendered output and plain text even when --json isn't
// set.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func initService(cmd *cobra.Command) error {
	rootCtx = context.Background()

	cfg, err := config.Load(workspace, cmd.Flags())
	if err != nil {
		return fmt.Errorf("forky: %w", err)
	}
	appConfig = cfg

	shutdown, err := telemetry.Setup(rootCtx, telemetry.Config{})
	if err != nil {
		return fmt.Errorf("forky: %w", err)
	}
	telemetryShutdown = shutdown

	st, err := forkydb.Open(rootCtx, forkydb.Config{DSN: cfg.StorageDSN})
	if err != nil {
		return fmt.Errorf("forky: opening store: %w", err)
	}
	store = st

	client := modelclient.NewAnthropicClient(cfg.AnthropicAPIKey)
	svc = service.New(store, client, cfg.Model, service.WithBusyDeadline(cfg.BusyDeadline))
	return nil
}

func shutdownService(ctx context.Context) error {
	if store != nil {
		if err := store.Close(); err != nil {
			return err
		}
	}
	if telemetryShutdown != nil {
		return telemetryShutdown(ctx)
	}
	return nil
}
