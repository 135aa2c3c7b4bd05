package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adalundhe/loom/core/merge"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "Show the effective strategy table",
	Long: `Print the effective pattern-to-strategy table, custom rules first.
Paths matching no pattern fall back to keep-ours.`,
	RunE: runStrategies,
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}

func runStrategies(cmd *cobra.Command, _ []string) error {
	manager, _, err := loadConfig()
	if err != nil {
		return err
	}

	custom := strategyRules(manager.Get().Merge.Strategies)
	if _, err := merge.NewSelector(custom); err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATTERN\tSTRATEGY\tSOURCE")
	for _, rule := range custom {
		fmt.Fprintf(w, "%s\t%s\tconfig\n", rule.Pattern, rule.Strategy)
	}
	for _, rule := range merge.DefaultRules() {
		fmt.Fprintf(w, "%s\t%s\tbuilt-in\n", rule.Pattern, rule.Strategy)
	}
	fmt.Fprintf(w, "*\t%s\tfallback\n", merge.StrategyKeepOurs)

	return w.Flush()
}
