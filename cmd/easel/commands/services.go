package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/easel/internal/config"
	"github.com/dyluth/easel/internal/printer"
	"github.com/dyluth/easel/internal/registry"
)

var servicesConfigPath string

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "Show the capabilities of all configured content services",
	Long: `Query every configured content service's capability endpoint and
print the result.

A service that does not answer within the fetch timeout is shown as
STALE; planning still works against stale entries, the decisions are
just annotated as degraded inputs.

Examples:
  easel services
  easel services --config ./configs/easel.yml`,
	RunE: runServices,
}

func init() {
	servicesCmd.Flags().StringVarP(&servicesConfigPath, "config", "c", "easel.yml", "Path to easel.yml configuration")
	rootCmd.AddCommand(servicesCmd)
}

func runServices(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(servicesConfigPath)
	if err != nil {
		return printer.Error(
			"Invalid configuration",
			err.Error(),
			[]string{"Check " + servicesConfigPath + " against the documented easel.yml format"},
		)
	}

	clients := buildContentClients(cfg)
	fetchers := make([]registry.CapabilityFetcher, 0, len(clients))
	for _, c := range clients {
		fetchers = append(fetchers, c)
	}

	reg := registry.New(fetchers, time.Duration(*cfg.Registry.FetchTimeoutMS)*time.Millisecond)

	printer.Step("Fetching capabilities from %d services...\n\n", len(clients))
	reg.Refresh(ctx)

	ids := make([]string, 0, len(cfg.Services))
	for id := range cfg.Services {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		capability, err := reg.Get(id)
		if err != nil || capability == nil {
			printer.Warning("%s: no capability entry", id)
			continue
		}

		if capability.Stale {
			printer.Warning("%s (%s) STALE - did not answer", id, cfg.Services[id].Kind)
			continue
		}

		printer.Success("%s (%s)", id, cfg.Services[id].Kind)
		for _, kind := range capability.Kinds {
			variants := capability.Variants[string(kind)]
			printer.Printf("    %s: %s\n", kind, strings.Join(variants, ", "))
		}
		if len(capability.KeywordHints) > 0 {
			printer.Printf("    hints: %s\n", strings.Join(capability.KeywordHints, ", "))
		}
		printer.Printf("    fetched: %s\n", capability.FetchedAt.Format(time.RFC3339))
	}

	fmt.Println()
	return nil
}
