package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adalundhe/loom/core/config"
	"github.com/adalundhe/loom/core/journal"
	"github.com/adalundhe/loom/core/merge"
	"github.com/adalundhe/loom/core/storage"
	"github.com/adalundhe/loom/core/vcs"
	"github.com/spf13/cobra"
)

var (
	resolveInput      string
	resolveDir        string
	resolveWorkers    int
	resolveNoJournal  bool
	resolveNoComplete bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a batch of merge conflicts",
	Long: `Resolve a batch of merge conflicts described by a JSON conflict file.

The input is a JSON array of conflict records, each carrying a path and the
base/ours/theirs revision content. Resolved files are written back to the
working copy and, unless disabled, staged and committed to finalize the
merge. Use "-" to read the batch from stdin.`,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveInput, "input", "i", "-", "conflict batch JSON file ('-' for stdin)")
	resolveCmd.Flags().StringVarP(&resolveDir, "dir", "d", ".", "working copy directory")
	resolveCmd.Flags().IntVarP(&resolveWorkers, "workers", "w", 0, "parallel workers (0 uses config)")
	resolveCmd.Flags().BoolVar(&resolveNoJournal, "no-journal", false, "skip recording the batch in the merge journal")
	resolveCmd.Flags().BoolVar(&resolveNoComplete, "no-complete", false, "skip staging and committing resolved files")

	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, _ []string) error {
	manager, dirs, err := loadConfig()
	if err != nil {
		return err
	}

	cfg := manager.Get()
	log := newLogger(cfg.Logging)

	records, err := readConflictBatch(resolveInput)
	if err != nil {
		return err
	}

	dispatcher, cleanup, err := buildDispatcher(cfg, dirs, log)
	if err != nil {
		return err
	}
	defer cleanup()

	resolved, err := dispatcher.ResolveAll(cmd.Context(), records)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "resolved %d of %d conflicts\n", len(resolved), len(records))
	for _, path := range resolved {
		fmt.Fprintln(cmd.OutOrStdout(), "  "+path)
	}

	return nil
}

func readConflictBatch(input string) ([]merge.ConflictRecord, error) {
	var reader io.Reader
	if input == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(input)
		if err != nil {
			return nil, fmt.Errorf("open conflict batch: %w", err)
		}
		defer file.Close()
		reader = file
	}

	var records []merge.ConflictRecord
	if err := json.NewDecoder(reader).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode conflict batch: %w", err)
	}
	return records, nil
}

func buildDispatcher(cfg *config.Config, dirs *storage.Dirs, log *slog.Logger) (*merge.Dispatcher, func(), error) {
	selector, err := merge.NewSelector(strategyRules(cfg.Merge.Strategies))
	if err != nil {
		return nil, nil, err
	}

	dispatcherConfig := merge.DispatcherConfig{
		WorkingDir: resolveDir,
		Workers:    cfg.Merge.Workers,
		Logger:     log,
		OnProgress: func(done, total int, path string) {
			log.Info("progress", "done", done, "total", total, "path", path)
		},
	}
	if resolveWorkers > 0 {
		dispatcherConfig.Workers = resolveWorkers
	}

	cleanup := func() {}

	if cfg.Journal.Enabled && !resolveNoJournal {
		journalPath := filepath.Join(dirs.ProjectDataDir(resolveDir), "journal.db")
		j, err := journal.Open(journalPath)
		if err != nil {
			log.Warn("merge journal unavailable", "error", err)
		} else {
			dispatcherConfig.Recorder = j
			cleanup = func() { j.Close() }
		}
	}

	if cfg.VCS.AutoComplete && !resolveNoComplete {
		client, err := vcs.NewClient(resolveDir, cfg.VCS.CommitMessage)
		if err != nil {
			return nil, nil, err
		}
		dispatcherConfig.Completer = client
	}

	return merge.NewDispatcher(selector, dispatcherConfig), cleanup, nil
}

func strategyRules(rules []config.StrategyRule) []merge.Rule {
	out := make([]merge.Rule, 0, len(rules))
	for _, rule := range rules {
		out = append(out, merge.Rule{
			Pattern:  rule.Pattern,
			Strategy: merge.Strategy(rule.Strategy),
		})
	}
	return out
}
