package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dyluth/easel/internal/config"
	"github.com/dyluth/easel/internal/printer"
	"github.com/dyluth/easel/pkg/deck"
)

var (
	planConfigPath string
	planNoGenerate bool
)

var planCmd = &cobra.Command{
	Use:   "plan <plan-file>",
	Short: "Decide and generate every slide of a presentation plan",
	Long: `Run the full decision pipeline for a presentation plan.

For each slide, easel queries every configured content service in
parallel, selects the most confident candidate, validates it against a
layout from the layout service, and dispatches generation. Slides that
cannot be decided cleanly fall back to the configured universal-fit
service and are marked degraded; a failed generation never aborts the
rest of the deck.

The plan file is YAML:

  slides:
    - title: "Q3 revenue"
      purpose: "Show quarter-over-quarter growth"
      topics: [revenue, growth]

Examples:
  # Decide and generate all slides
  easel plan deck.yml

  # Decide only, skip generation
  easel plan deck.yml --no-generate`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planConfigPath, "config", "c", "easel.yml", "Path to easel.yml configuration")
	planCmd.Flags().BoolVar(&planNoGenerate, "no-generate", false, "Stop after deciding; do not call generation endpoints")
	rootCmd.AddCommand(planCmd)
}

// planFile is the YAML shape of a presentation plan on disk. Slide order
// in the file is slide order in the deck; indices are assigned on load.
type planFile struct {
	Slides []deck.SlideMessage `yaml:"slides"`
}

func loadPlanFile(path string) ([]deck.SlideMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var pf planFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse plan file: %w", err)
	}

	for i := range pf.Slides {
		pf.Slides[i].Index = i
	}
	return pf.Slides, nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(planConfigPath)
	if err != nil {
		return printer.Error(
			"Invalid configuration",
			err.Error(),
			[]string{"Check " + planConfigPath + " against the documented easel.yml format"},
		)
	}

	slides, err := loadPlanFile(args[0])
	if err != nil {
		return printer.Error(
			"Invalid plan file",
			err.Error(),
			nil,
		)
	}

	jnl, err := newJournalClient()
	if err != nil {
		return printer.Error(
			"Cannot connect to Redis",
			err.Error(),
			[]string{"Set REDIS_URL, or start a local Redis on localhost:6379"},
		)
	}
	defer jnl.Close()

	if err := jnl.Ping(ctx); err != nil {
		return printer.Error(
			"Redis not accessible",
			err.Error(),
			[]string{"Verify the Redis instance named by REDIS_URL is running"},
		)
	}

	engine, reg := buildEngine(cfg, jnl)

	printer.Step("Refreshing service capabilities...\n")
	reg.Refresh(ctx)

	// Long decks can outlive a capability TTL; keep the snapshot fresh
	// for the duration of the run.
	if err := reg.StartPeriodicRefresh(ctx, cfg.Registry.Refresh); err != nil {
		printer.Warning("Periodic capability refresh disabled: %v", err)
	} else {
		defer reg.StopPeriodicRefresh()
	}

	printer.Step("Deciding %d slides...\n", len(slides))

	if planNoGenerate {
		plan, err := engine.Plan(ctx, slides)
		if err != nil {
			return printer.Error(
				"Plan rejected",
				err.Error(),
				[]string{"Every slide needs a title and a purpose; slide order defines slide index"},
			)
		}

		printer.Println()
		printer.DecisionTable(plan)
		printer.Println()
		printer.Success("Plan %s decided: %d slides (generation skipped)", plan.ID, len(plan.Slides))
		printer.Info("Inspect the decision journal with: easel log %s", plan.ID[:8])
		return nil
	}

	plan, results, err := engine.PlanAndDispatch(ctx, slides)
	if err != nil {
		return printer.Error(
			"Plan rejected",
			err.Error(),
			[]string{"Every slide needs a title and a purpose; slide order defines slide index"},
		)
	}

	printer.Println()
	printer.DecisionTable(plan)
	printer.Println()

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			printer.Warning("Slide %d generation failed: %v", res.SlideIndex, res.Err)
		}
	}

	if failed == 0 {
		printer.Success("Plan %s complete: %d slides generated", plan.ID, len(results))
	} else {
		printer.Warning("Plan %s complete: %d of %d slides failed generation", plan.ID, failed, len(results))
	}

	printer.Info("Inspect the decision journal with: easel log %s", plan.ID[:8])
	return nil
}
