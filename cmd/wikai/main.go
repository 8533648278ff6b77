// Command wikai is the CLI surface of the WIKAI Commons: thin glue that
// translates flags and stdin JSON into the core capture/search/observe
// contract. All decisions live in the internal packages.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"wikai/internal/config"
	"wikai/internal/index"
	"wikai/internal/logging"
	"wikai/internal/query"
	"wikai/internal/store"
)

var (
	// Global flags
	configPath  string
	patternsDir string
	verbose     bool

	// Logger
	logger *zap.Logger

	cfg *config.Config
)

// commons is the lazily-built composition root: one Library per process,
// shared by every subcommand. Callers needing isolation construct their
// own Library; nothing here is package-global beyond the CLI wiring.
type commons struct {
	library *store.Library
	engine  *query.Engine
	builder *index.Builder
}

var defaultCommons *commons

func openCommons() (*commons, error) {
	if defaultCommons != nil {
		return defaultCommons, nil
	}

	library, err := store.NewLibrary(cfg.Library.PatternsDir)
	if err != nil {
		return nil, err
	}
	defaultCommons = &commons{
		library: library,
		engine:  query.NewEngine(library),
		builder: index.NewBuilder(library),
	}
	return defaultCommons, nil
}

var rootCmd = &cobra.Command{
	Use:   "wikai",
	Short: "WIKAI Commons - shared pattern library for AI systems",
	Long: `WIKAI Commons stores small structured records of discovered facts,
heuristics and strategies, contributed by autonomous agents and humans.

Patterns are plain JSON files in a flat directory; any system can
contribute through capture or by streaming events into the observer.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if patternsDir != "" {
			cfg.Library.PatternsDir = patternsDir
		}
		if verbose {
			cfg.Logging.DebugMode = true
			cfg.Logging.Level = "debug"
		}

		if err := logging.Initialize(cfg.Logging.Dir, cfg.Logging.DebugMode, cfg.Logging.Level); err != nil {
			logger.Warn("category logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "wikai.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&patternsDir, "dir", "", "patterns directory (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(relatedCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(observeCmd)
	rootCmd.AddCommand(forceCaptureCmd)
	rootCmd.AddCommand(candidatesCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
