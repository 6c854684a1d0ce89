package main

import (
	"github.com/spf13/cobra"

	"github.com/joelkehle/paper-review/internal/config"
	"github.com/joelkehle/paper-review/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// cfg is loaded once per invocation before any subcommand runs.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "paper-review",
	Short: "Automated peer review for research papers",
	Long: `paper-review splits extracted paper text into canonical sections
(abstract, introduction, methodology, results, conclusion, references),
asks a language model for per-section observations, scores them against a
five-criterion rubric, classifies a decision and synthesizes suggestions.

Configuration is read from --config (YAML), then environment variables
(ANTHROPIC_API_KEY, PAPER_REVIEW_*), then command-line flags.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(rootFlags.configPath)
		if err != nil {
			return err
		}
		if rootFlags.logLevel != "" {
			loaded.Log.Level = rootFlags.logLevel
		}
		if rootFlags.logFormat != "" {
			loaded.Log.Format = rootFlags.logFormat
		}
		logging.Init(logging.ParseLevel(loaded.Log.Level), loaded.Log.Format, cmd.ErrOrStderr())
		cfg = loaded
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "Path to YAML config file")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&rootFlags.logFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(segmentCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.Version = version
}
