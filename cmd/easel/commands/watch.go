package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dyluth/easel/internal/printer"
	"github.com/dyluth/easel/internal/resolver"
)

var watchCmd = &cobra.Command{
	Use:   "watch <plan-id>",
	Short: "Stream decision journal events for a plan in real time",
	Long: `Subscribe to a plan's decision journal and print events as they
are appended. Useful alongside a running 'easel plan' to follow
negotiation, reconciliation and generation live.

The plan ID may be abbreviated to a unique prefix of at least 6
characters. Press Ctrl+C to stop.

Examples:
  easel watch 3f80a1d2`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	sub, err := jnl.Subscribe(ctx, planID)
	if err != nil {
		return printer.Error(
			"Cannot subscribe to decision journal",
			err.Error(),
			nil,
		)
	}
	defer sub.Close()

	// Replay what already happened, then follow the live stream.
	events, err := jnl.List(ctx, planID)
	if err == nil {
		for _, event := range events {
			printer.EventLine(event)
		}
	}

	printer.Info("Watching plan %s (Ctrl+C to stop)", planID)

	for {
		select {
		case <-ctx.Done():
			printer.Println()
			printer.Info("Watch stopped")
			return nil
		case event, ok := <-sub.Events():
			if !ok {
				return nil
			}
			printer.EventLine(event)
		case err, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			printer.Warning("Subscription error: %v", err)
		}
	}
}
