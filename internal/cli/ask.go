package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/meridianlabs/salescope/pkg/config"
	"github.com/meridianlabs/salescope/pkg/logger"
)

const maxTableRows = 10

func newAskCmd(verbose *bool) *cobra.Command {
	var showRows bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one analytical question and exit.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New(*verbose)
			cfg := config.Load()
			question := strings.Join(args, " ")

			comps, err := buildComponents(cmd.Context(), log, cfg)
			if err != nil {
				return err
			}

			state := comps.workflow.Execute(cmd.Context(), question)

			if state.FriendlyError != "" {
				fmt.Fprintln(os.Stderr, state.FriendlyError)
				return fmt.Errorf("analysis failed: %s", state.Err)
			}

			fmt.Println(state.Analysis)

			if showRows && len(state.Rows) > 0 {
				fmt.Println()
				renderRows(state.Rows)
			}

			if state.ExecutionSeconds > 0 {
				fmt.Printf("\n(query executed in %.2fs)\n", state.ExecutionSeconds)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showRows, "rows", false, "print the result rows as a table")
	return cmd
}

// renderRows prints up to 10 rows as an aligned table, columns sorted by name.
func renderRows(rows []map[string]any) {
	columns := make([]string, 0)
	seen := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
	}
	sort.Strings(columns)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(columns)

	limit := min(maxTableRows, len(rows))
	for _, row := range rows[:limit] {
		values := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := row[col]; ok {
				values[i] = fmt.Sprintf("%v", v)
			}
		}
		table.Append(values)
	}
	table.Render()

	if len(rows) > maxTableRows {
		fmt.Printf("... and %d more rows\n", len(rows)-maxTableRows)
	}
}
