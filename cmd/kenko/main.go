// Command kenko serves the business health API and runs one-off analyses.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashita-ai/kenko"
	"github.com/ashita-ai/kenko/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "kenko",
		Short: "Business health analysis service",
		Long: `Kenko turns raw business records into KPIs, health scores,
insights and area decisions.

Run without a subcommand to start the HTTP and MCP server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), stdout)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetVersionTemplate("kenko version {{.Version}}\n")

	root.AddCommand(
		newServeCmd(stdout),
		newAnalyzeCmd(stdout, stderr),
		newMigrateCmd(stderr),
		newKeygenCmd(stdout),
		newVersionCmd(stdout),
	)
	return root
}

func newServeCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), stdout)
		},
	}
}

func runServe(ctx context.Context, stdout io.Writer) error {
	logger := newLogger(stdout)
	slog.SetDefault(logger)

	app, err := kenko.New(kenko.WithVersion(version), kenko.WithLogger(logger))
	if err != nil {
		return err
	}
	return app.Run(ctx)
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			_, _ = fmt.Fprintf(stdout, "kenko %s\n", version)
		},
	}
}

// newLogger builds the JSON logger at KENKO_LOG_LEVEL. An invalid level falls
// back to info; the server's own config validation reports it.
func newLogger(w io.Writer) *slog.Logger {
	level, err := config.ParseLogLevel(os.Getenv("KENKO_LOG_LEVEL"))
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
