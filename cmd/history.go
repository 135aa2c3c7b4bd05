package cmd

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/adalundhe/loom/core/journal"
	"github.com/spf13/cobra"
)

var (
	historyDir   string
	historyLimit int
	historyBatch string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent merge batches from the journal",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyDir, "dir", "d", ".", "working copy directory")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of batches to show")
	historyCmd.Flags().StringVar(&historyBatch, "batch", "", "show per-file outcomes for one batch id")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	_, dirs, err := loadConfig()
	if err != nil {
		return err
	}

	journalPath := filepath.Join(dirs.ProjectDataDir(historyDir), "journal.db")
	j, err := journal.Open(journalPath)
	if err != nil {
		return err
	}
	defer j.Close()

	if historyBatch != "" {
		return printBatchOutcomes(cmd, j, historyBatch)
	}
	return printRecentBatches(cmd, j)
}

func printRecentBatches(cmd *cobra.Command, j *journal.Journal) error {
	batches, err := j.RecentBatches(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BATCH\tSTARTED\tRESOLVED\tTOTAL")
	for _, b := range batches {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n",
			b.ID, b.StartedAt.Local().Format(time.RFC3339), b.Resolved, b.Total)
	}
	return w.Flush()
}

func printBatchOutcomes(cmd *cobra.Command, j *journal.Journal, batchID string) error {
	outcomes, err := j.BatchOutcomes(cmd.Context(), batchID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tSTRATEGY\tOUTCOME\tDETAIL")
	for _, o := range outcomes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.Path, o.Strategy, o.Outcome, o.Detail)
	}
	return w.Flush()
}
