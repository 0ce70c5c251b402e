package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newPreviewCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Show calculated pricing for every row",
		Long: `Validate a spreadsheet and print the calculated cooking cost, total
price and chef earnings for every row, plus batch totals.

Examples:
  mealctl preview meals.xlsx
  mealctl preview meals.csv --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			b, err := prepareFile(newCoordinator(opts), args[0])
			if err != nil {
				return prepareFailure(out, args[0], err)
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(b.Preview()); err != nil {
					return fmt.Errorf("encode preview: %w", err)
				}
				return nil
			}
			printPreview(out, b.Preview())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the preview as JSON")
	return cmd
}
