package commands

import (
	"context"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dyluth/easel/internal/printer"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List all plans recorded in the decision journal",
	Args:  cobra.NoArgs,
	RunE:  runPlans,
}

func init() {
	rootCmd.AddCommand(plansCmd)
}

func runPlans(cmd *cobra.Command, args []string) error {
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

	planIDs, err := jnl.ListPlans(ctx)
	if err != nil {
		return printer.Error(
			"Cannot list plans",
			err.Error(),
			nil,
		)
	}

	if len(planIDs) == 0 {
		printer.Info("No plans recorded for instance '%s'", instanceName())
		return nil
	}

	sort.Strings(planIDs)
	for _, id := range planIDs {
		printer.Println(id)
	}

	return nil
}
