package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"choma/internal/service/excel"
)

func newTemplateCmd(opts *options) *cobra.Command {
	var (
		output   string
		examples int
	)

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the import template spreadsheet",
		Long: `Write the import template spreadsheet with the canonical header row,
example meals and an instructions sheet.

Examples:
  mealctl template
  mealctl template -o meals.xlsx --examples 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("examples") {
				examples = opts.cfg.Import.TemplateRows
			}

			wb, err := excel.GenerateTemplate(examples)
			if err != nil {
				return fmt.Errorf("generate template: %w", err)
			}
			defer wb.Close()

			if err := wb.SaveAs(output); err != nil {
				return fmt.Errorf("save template: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle().Render("Template written to "+output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", excel.TemplateFilename, "output file")
	cmd.Flags().IntVar(&examples, "examples", 3, "number of example rows (default from config)")
	return cmd
}
