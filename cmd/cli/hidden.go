package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var hiddenCmd = &cobra.Command{
	Use:   "hidden",
	Short: "Manage hidden-group rules",
	Long: `Hidden-group rules have the form "Label:Value". Rows whose column named Label
matches Value are removed before advanced search runs.`,
}

var hiddenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List hidden-group rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rules := components.Hidden.List()
		if outputJSON {
			out := make([]string, len(rules))
			for i, r := range rules {
				out[i] = r.String()
			}
			return printJSON(out)
		}
		t := newTable(table.Row{"#", "Label", "Value"})
		for i, r := range rules {
			t.AppendRow(table.Row{i + 1, r.Label, r.Value})
		}
		t.Render()
		return nil
	},
}

var hiddenAddCmd = &cobra.Command{
	Use:     "add <Label:Value>",
	Short:   "Add a hidden-group rule",
	Example: `  offer-service hidden add "Destination:Alaska"`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		added, err := components.Hidden.Add(context.Background(), args[0])
		if err != nil {
			return err
		}
		if !added {
			fmt.Printf("Rule %q already exists\n", args[0])
			return nil
		}
		fmt.Printf("Added rule %q\n", args[0])
		return nil
	},
}

var hiddenRemoveCmd = &cobra.Command{
	Use:   "remove <Label:Value>",
	Short: "Remove a hidden-group rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := components.Hidden.Remove(context.Background(), args[0])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("rule %q not found", args[0])
		}
		fmt.Printf("Removed rule %q\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hiddenCmd)
	hiddenCmd.AddCommand(hiddenListCmd, hiddenAddCmd, hiddenRemoveCmd)
}
