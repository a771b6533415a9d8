// Command aide is a terminal assistant backed by a local Ollama-compatible
// inference backend. It converses in natural language, proposes tool actions,
// and runs them only after explicit confirmation.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"aide/internal/config"
	"aide/internal/logging"
)

const version = "1.0.0"

var (
	// Global flags
	flagHost      string
	flagModel     string
	flagSystem    string
	flagTimeout   time.Duration
	flagQuiet     bool
	flagVerbose   bool
	flagWorkspace string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd starts the interactive session when run without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "aide",
	Short: "aide - a local-model terminal assistant",
	Long: `aide is a terminal assistant that talks to a local inference backend
(Ollama or compatible). It answers in plain language, and when a task needs
the machine it proposes a tool action, shows you exactly what it wants to
run, and waits for your yes or no.

Run without arguments to start an interactive session.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.Close()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd)
	},
}

// versionCmd prints the version.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the aide version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("aide %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagHost, "host", "", "backend host URL (default http://localhost:11434, env AIDE_HOST)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "model name (env AIDE_MODEL)")
	rootCmd.PersistentFlags().StringVar(&flagSystem, "system", "", "extra system prompt text")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "backend request timeout (default 120s)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress banner and decorative output")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging to ~/.aide/logs")
	rootCmd.PersistentFlags().StringVar(&flagWorkspace, "workspace-root", "", "refuse to resolve paths above this directory")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration, applies flag overrides, and initializes logging.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if flagHost != "" {
		cfg.Backend.Host = flagHost
	}
	if flagModel != "" {
		cfg.Backend.Model = flagModel
	}
	if flagSystem != "" {
		cfg.Backend.SystemPrompt = strings.TrimSpace(flagSystem)
	}
	if flagTimeout > 0 {
		cfg.Backend.Timeout = flagTimeout.String()
	}
	if flagQuiet {
		cfg.Session.QuietMode = true
	}
	if flagWorkspace != "" {
		cfg.Session.WorkspaceRoot = flagWorkspace
	}
	if flagVerbose {
		cfg.Logging.DebugMode = true
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if flagVerbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err = zapCfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := logging.Initialize(config.HomeDir(), cfg.Logging.DebugMode, cfg.Logging.Level); err != nil {
		logger.Warn("debug logging unavailable", zap.Error(err))
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
