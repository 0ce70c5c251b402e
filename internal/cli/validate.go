package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"choma/internal/importer"
	"choma/internal/service/calculator"
)

// validateConcurrency 同时校验的文件数
const validateConcurrency = 4

type fileReport struct {
	path  string
	batch *importer.Batch
	err   error
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check spreadsheets without submitting",
		Long: `Parse and validate one or more spreadsheets and report every row error.
Nothing is submitted.

Examples:
  mealctl validate meals.xlsx
  mealctl validate week1.xlsx week2.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, opts)
		},
	}
}

func runValidate(cmd *cobra.Command, args []string, opts *options) error {
	coordinator := newCoordinator(opts)

	reports := make([]fileReport, len(args))
	g := new(errgroup.Group)
	g.SetLimit(validateConcurrency)
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			b, err := prepareFile(coordinator, path)
			reports[i] = fileReport{path: path, batch: b, err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range reports {
		if r.err != nil {
			failed++
			printPrepareError(out, r.path, r.err)
			continue
		}
		fmt.Fprintf(out, "%s %s: %d row(s) valid\n", successStyle().Render("OK"), r.path, len(r.batch.Records))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed validation", failed, len(args))
	}
	return nil
}

func newCoordinator(opts *options) *importer.Coordinator {
	return importer.NewCoordinator(calculator.NewEngine(opts.cfg.Pricing.CostModel()))
}

// prepareFile 读取本地文件并执行解析、校验、转换
func prepareFile(coordinator *importer.Coordinator, path string) (*importer.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return coordinator.Prepare(importer.PrepareOptions{
		Operator: cliOperator,
		Filename: filepath.Base(path),
		Data:     f,
	})
}
