package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/seaward/offer-service/internal/filter"
	"github.com/seaward/offer-service/internal/itinerary"
	"github.com/seaward/offer-service/internal/types"
)

var (
	ingestHydrate bool
	hydrateForce  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <offers.json>",
	Short: "Merge scraped offers into the itinerary cache",
	Long: `Merge a batch of scraped offers into the itinerary cache. Unseen sailings get a
stub entry; existing entries only have their blank fields filled and new offer codes
appended. Use "-" to read from stdin.`,
	Example: `  offer-service ingest offers.json
  offer-service ingest offers.json --hydrate`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var hydrateCmd = &cobra.Command{
	Use:   "hydrate [key...]",
	Short: "Refresh cache entries from the sailing search API",
	Long: `Hydrate cache entries whose last hydration is older than the staleness window.
Keys have the form SD_<ship>_<date>; without keys every entry is considered.
--force hydrates regardless of age.`,
	Example: `  offer-service hydrate
  offer-service hydrate SD_OA_2026-03-01 --force`,
	RunE: runHydrate,
}

var showCmd = &cobra.Command{
	Use:   "show <ship> <date>",
	Short: "Show one cached sailing with its derived pricing",
	Args:  cobra.ExactArgs(2),
	RunE:  runShow,
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove cache entries that no longer carry any offer code",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := components.Cache.PruneNoOffers(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d entries\n", removed)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show itinerary cache counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats := components.Cache.Stats()
		if outputJSON {
			return printJSON(stats)
		}
		t := newTable(table.Row{"Entries", "Ships", "Enriched", "Stale", "With Pricing", "Offer Codes"})
		t.AppendRow(table.Row{stats.Entries, stats.Ships, stats.Enriched, stats.Stale, stats.WithPricing, stats.OfferCodes})
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd, hydrateCmd, showCmd, pruneCmd, statsCmd)

	ingestCmd.Flags().BoolVar(&ingestHydrate, "hydrate", false, "hydrate the touched sailings after merging")
	hydrateCmd.Flags().BoolVar(&hydrateForce, "force", false, "hydrate regardless of staleness")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	offers, err := readOffers(args[0])
	if err != nil {
		return err
	}

	summary, err := components.Cache.BuildOrUpdateFromOffers(ctx, offers)
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}

	var report *itinerary.HydrationReport
	if ingestHydrate {
		r, err := components.Cache.HydrateIfNeeded(ctx, components.Cache.KeysForOffers(offers))
		if err != nil {
			return fmt.Errorf("hydration failed: %w", err)
		}
		report = &r
	}

	if outputJSON {
		return printJSON(map[string]any{"summary": summary, "hydration": report})
	}

	t := newTable(table.Row{"Offers", "Created", "Updated", "Unchanged", "Skipped"})
	t.AppendRow(table.Row{len(offers), summary.Created, summary.Updated, summary.Unchanged, summary.Skipped})
	t.Render()
	if report != nil {
		displayHydrationReport(*report)
	}
	return nil
}

func runHydrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var (
		report itinerary.HydrationReport
		err    error
	)
	if hydrateForce {
		report, err = components.Cache.HydrateAlways(ctx, args)
	} else {
		report, err = components.Cache.HydrateIfNeeded(ctx, args)
	}
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(report)
	}
	displayHydrationReport(report)
	return nil
}

func displayHydrationReport(r itinerary.HydrationReport) {
	t := newTable(table.Row{"Run ID", "Mode", "Selected", "Ships", "Updated", "Touched", "Pruned", "Failed Ships"})
	t.AppendRow(table.Row{
		orDash(r.RunID), r.Mode, r.Selected, r.Ships, r.Updated, r.Touched, r.Pruned,
		orDash(strings.Join(r.FailedShips, ", ")),
	})
	t.Render()
}

func runShow(cmd *cobra.Command, args []string) error {
	entry, ok := components.Cache.GetByShipDate(args[0], args[1])
	if !ok {
		return fmt.Errorf("no cached sailing for %s on %s", args[0], args[1])
	}
	derived, _ := components.Cache.DerivedPricing(args[0], args[1])

	if outputJSON {
		return printJSON(map[string]any{"entry": entry, "derived": derived})
	}

	t := newTable(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"Key", entry.Key()},
		{"Ship", orDash(entry.ShipName)},
		{"Itinerary", orDash(entry.ItineraryDescription)},
		{"Destination", orDash(entry.DestinationName)},
		{"Departure Port", orDash(entry.DeparturePortName)},
		{"Nights", entry.TotalNights},
		{"Ports", orDash(strings.Join(entry.PortNames(), ", "))},
		{"Offer Codes", orDash(strings.Join(entry.OfferCodes, ", "))},
		{"Taxes & Fees", entry.TaxesAndFees.String()},
		{"Hydrated", hydratedAt(entry)},
	})
	t.Render()

	if derived == nil {
		return nil
	}
	pt := newTable(table.Row{"Category", "Min Price (dual)"})
	for _, cat := range types.Categories {
		v := "-"
		if p := derived.Categories[cat]; p != nil {
			v = filter.FormatValue(*p)
		}
		pt.AppendRow(table.Row{cat, v})
	}
	pt.AppendFooter(table.Row{"Taxes (dual)", filter.FormatValue(derived.TaxesAndFeesDual)})
	pt.Render()
	return nil
}

func hydratedAt(e *types.CacheEntry) string {
	if e.HydratedAt.IsZero() {
		return "never"
	}
	return e.HydratedAt.Format("2006-01-02 15:04:05")
}
