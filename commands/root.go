// Package commands implements the draftforge CLI: single keyword runs,
// batch files, drop-directory watching, and artifact store administration.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const (
	appName = "draftforge"

	// Version is the current version.
	Version = "0.1.0"

	// BuildTime is set during build.
	BuildTime = "dev"
)

// rootOptions carries the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath  string
	outputDir   string
	logLevel    string
	modelsPath  string
	metricsFile string
}

// NewRoot builds the draftforge command tree.
func NewRoot() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   appName,
		Short: "Generate scored, publishable articles from keywords",
		Long: `draftforge turns a keyword into a research-backed article bundle:
keyword metrics, related questions, SERP competitors, an intent profile,
an outline, a scored draft, and an image plan, exported as markdown with
full JSON provenance under the output directory.

Providers degrade to deterministic synthetic output when credentials or
backing services are missing, so a bare checkout still produces a bundle.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (default: ./draftforge.yaml, then ~/.config/draftforge/config.yaml)")
	pf.StringVar(&opts.outputDir, "output", "", "output directory (overrides config)")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.modelsPath, "models", "", "model registry file (default: built-in registry aimed at the configured endpoint)")
	pf.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		newGenerateCmd(opts),
		newBatchCmd(opts),
		newWatchCmd(opts),
		newStatusCmd(opts),
		newPurgeCmd(opts),
		newInvalidateCmd(opts),
		newVersionCmd(),
	)

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}

// newLogger builds the process logger at the requested level.
func newLogger(levelName string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(levelName) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
