package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/seaward/offer-service/internal/filter"
	"github.com/seaward/offer-service/internal/types"
)

var (
	filterStateFile  string
	filterPredicates []string
	filterColumns    []string
)

var filterCmd = &cobra.Command{
	Use:   "filter <offers.json>",
	Short: "Run the offer filter pipeline over a batch of offers",
	Long: `Apply hidden groups and advanced-search predicates to the rows of a batch of
offers and print the survivors in input order.

Predicates use "field:operator:value1,value2". Operators are in, not in, contains,
not contains, starts with, less than, greater than and date range.`,
	Example: `  offer-service filter offers.json
  offer-service filter offers.json -p "nights:greater than:5" -p "ship:in:Wonder of the Seas"
  offer-service filter offers.json --state state.json --json`,
	Args: cobra.ExactArgs(1),
	RunE: runFilter,
}

func init() {
	rootCmd.AddCommand(filterCmd)

	filterCmd.Flags().StringVar(&filterStateFile, "state", "", "JSON file with headers and advanced search state")
	filterCmd.Flags().StringArrayVarP(&filterPredicates, "predicate", "p", nil, "predicate as field:operator:values (repeatable)")
	filterCmd.Flags().StringSliceVar(&filterColumns, "columns", nil, "column keys to print (default: the active headers)")
}

func runFilter(cmd *cobra.Command, args []string) error {
	offers, err := readOffers(args[0])
	if err != nil {
		return err
	}

	state, err := loadState(filterStateFile)
	if err != nil {
		return err
	}
	for _, raw := range filterPredicates {
		p, err := parsePredicate(raw)
		if err != nil {
			return err
		}
		state.AdvancedSearch.Enabled = true
		state.AdvancedSearch.Predicates = append(state.AdvancedSearch.Predicates, p)
	}

	headers := state.Headers
	if len(headers) == 0 {
		headers = filter.DefaultColumns
	}

	rows := types.Rows(offers)
	kept := components.Pipeline.FilterOffers(context.Background(), state, rows)
	resolver := components.Pipeline.Resolver()
	components.Rendered.Replace(kept, func(r types.Row) map[string]string { return resolver.RenderRow(r, headers) })

	if outputJSON {
		out := make([]map[string]string, 0, len(kept))
		for _, r := range kept {
			out = append(out, resolver.RenderRow(r, headers))
		}
		return printJSON(out)
	}

	columns := selectColumns(headers, filterColumns)
	header := make(table.Row, len(columns))
	for i, c := range columns {
		header[i] = c.Label
	}
	t := newTable(header)
	for _, r := range kept {
		row := make(table.Row, len(columns))
		for i, c := range columns {
			row[i] = resolver.Render(r, c.Key)
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d of %d rows", len(kept), len(rows))})
	t.Render()
	return nil
}

func loadState(path string) (filter.State, error) {
	var state filter.State
	if path == "" {
		return state, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return state, err
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("failed to decode state: %w", err)
	}
	return state, nil
}

// parsePredicate reads "field:operator:v1,v2". Values may be empty.
func parsePredicate(s string) (filter.Predicate, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return filter.Predicate{}, fmt.Errorf("invalid predicate %q, want field:operator:values", s)
	}

	p := filter.Predicate{
		FieldKey: strings.TrimSpace(parts[0]),
		Operator: strings.ToLower(strings.TrimSpace(parts[1])),
	}
	if len(parts) == 3 {
		for _, v := range strings.Split(parts[2], ",") {
			if v = strings.TrimSpace(v); v != "" {
				p.Values = append(p.Values, v)
			}
		}
	}
	return p, nil
}

// selectColumns keeps the requested keys in request order, or all headers when none are given
func selectColumns(headers []filter.Column, keys []string) []filter.Column {
	if len(keys) == 0 {
		return headers
	}
	out := make([]filter.Column, 0, len(keys))
	for _, k := range keys {
		col := filter.Column{Key: k, Label: k}
		for _, h := range headers {
			if h.Key == k {
				col = h
				break
			}
		}
		out = append(out, col)
	}
	return out
}
