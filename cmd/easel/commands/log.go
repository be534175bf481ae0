package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dyluth/easel/internal/printer"
	"github.com/dyluth/easel/internal/resolver"
)

var logCmd = &cobra.Command{
	Use:   "log <plan-id>",
	Short: "Print the decision journal for a plan",
	Long: `Print a plan's full decision journal in append order: candidate
queries, exclusions, winner selections, layout re-asks, fallbacks and
generation outcomes.

The plan ID may be abbreviated to a unique prefix of at least 6
characters.

Examples:
  easel log 3f80a1d2
  easel log 3f80a1d2-77aa-4f0e-9c53-2d41a97b2a11`,
	Args: cobra.ExactArgs(1),
	RunE: runLog,
}

func init() {
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	jnl, err := newJournalClient()
	if err != nil {
		return printer.Error(
			"Cannot connect to Redis",
			err.Error(),
			[]string{"Set REDIS_URL, or start a local Redis on localhost:6379"},
		)
	}
	defer jnl.Close()

	planID, err := resolver.ResolvePlanID(ctx, jnl, args[0])
	if err != nil {
		return printer.Error(
			"Cannot resolve plan ID",
			err.Error(),
			[]string{"List known plans with: easel plans"},
		)
	}

	events, err := jnl.List(ctx, planID)
	if err != nil {
		return printer.Error(
			"Cannot read decision journal",
			err.Error(),
			nil,
		)
	}

	printer.Info("Decision journal for plan %s (%d events)", planID, len(events))
	printer.Println()
	for _, event := range events {
		printer.EventLine(event)
	}

	return nil
}
