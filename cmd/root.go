// Package cmd provides CLI commands for the Loom merge engine.
package cmd

import (
	"log/slog"
	"os"

	"github.com/adalundhe/loom/core/config"
	"github.com/adalundhe/loom/core/storage"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Loom - conflict resolution for collaborative translation projects",
	Long: `Loom resolves merge conflicts in collaborative translation projects.
Each file type gets its own merge strategy: structured cell documents are
merged per cell with edit-history reconciliation, comment threads and
suggestion stores merge by key, and dictionaries merge as line sets.`,
}

func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves directories and loads the layered configuration.
func loadConfig() (*config.Manager, *storage.Dirs, error) {
	dirs, err := storage.ResolveDirs()
	if err != nil {
		return nil, nil, err
	}
	if err := dirs.EnsureAll(); err != nil {
		return nil, nil, err
	}

	manager := config.NewManager(dirs)
	if err := manager.Load(); err != nil {
		return nil, nil, err
	}

	return manager, dirs, nil
}

// newLogger builds the process logger from the logging config.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
