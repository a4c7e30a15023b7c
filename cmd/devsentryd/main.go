// Package main implements the devsentryd CLI: the entry point for the
// engine core described in SPEC_FULL.md. Command implementations are
// split across cmd_*.go files, one per subsystem.
//
// # File Index
//
// Entry Point & Global State:
//   - main.go       - Entry point, rootCmd, global flags, init()
//   - wiring.go     - buildEngine(): constructs the full dependency graph
//
// Commands:
//   - cmd_serve.go   - serveCmd: runs the HTTP server and scanner supervisor
//   - cmd_repos.go   - reposCmd family: add, list, settings, scan-now
//   - cmd_notes.go   - notesCmd family: add, list
//   - cmd_ideas.go   - ideasCmd family: add, list
//   - cmd_docs.go    - docsCmd family: ingest, search
//   - cmd_cost.go    - costCmd: report
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kraklabs/devsentry/internal/config"
	"github.com/kraklabs/devsentry/internal/logging"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
	cfg    *config.Config
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "devsentryd",
	Short: "devsentryd - single-user developer-workflow engine core",
	Long: `devsentryd manages repository lifecycles, auto-scans tracked
repositories for an LLM to review, routes every LLM call through a
cached, cost-ledgered gateway, and indexes documents for retrieval.

Run "devsentryd serve" to start the HTTP control surface and background
scanner supervisor.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		cfg = loaded

		dataDir := cfg.Database.DataDir
		if dataDir == "" {
			dataDir, _ = os.Getwd()
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		if err := logging.Initialize(dataDir, logging.Options{
			DebugMode:  verbose || cfg.Logging.DebugMode,
			Level:      cfg.Logging.Level,
			Categories: cfg.Logging.Categories,
			JSONFormat: cfg.Logging.JSONFormat,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "devsentry.yaml", "Path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(
		serveCmd,
		reposCmd,
		notesCmd,
		ideasCmd,
		docsCmd,
		costCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
