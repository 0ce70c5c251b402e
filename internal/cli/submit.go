package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"choma/internal/importer"
	"choma/internal/model"
	"choma/internal/server"
	"choma/internal/submit"
)

func newSubmitCmd(opts *options) *cobra.Command {
	var (
		yes      bool
		endpoint string
		token    string
	)

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Validate, review and submit a spreadsheet",
		Long: `Validate a spreadsheet, print the review summary and submit the batch
after confirmation.

Without --endpoint the batch goes to the configured target: the local
store (submit.mode = "local") or the remote bulk endpoint
(submit.mode = "remote").

Examples:
  mealctl submit meals.xlsx
  mealctl submit meals.xlsx --yes
  mealctl submit meals.xlsx --endpoint https://admin.example.com/api/meals/bulk --token $TOKEN`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if endpoint != "" {
				opts.cfg.Submit.Mode = "remote"
				opts.cfg.Submit.Endpoint = endpoint
			}
			if token != "" {
				opts.cfg.Submit.Token = token
			}
			return runSubmit(cmd, args[0], yes, opts)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "submit without asking for confirmation")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "remote bulk-create endpoint (overrides config)")
	cmd.Flags().StringVar(&token, "token", "", "bearer token for the remote endpoint")
	return cmd
}

func runSubmit(cmd *cobra.Command, path string, yes bool, opts *options) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	b, err := prepareFile(newCoordinator(opts), path)
	if err != nil {
		return prepareFailure(out, path, err)
	}
	printPreview(out, b.Preview())

	if !yes {
		ok, err := confirm(cmd.InOrStdin(), out, fmt.Sprintf("Submit %d meal(s)?", len(b.Records)))
		if err != nil {
			return err
		}
		if !ok {
			if err := b.Cancel(); err != nil {
				return err
			}
			fmt.Fprintln(out, hintStyle().Render("Cancelled. Nothing was submitted."))
			return nil
		}
	}

	submitter, closeFn, err := newSubmitter(ctx, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := submitter.Submit(ctx, b)
	if err != nil {
		return fmt.Errorf("submit batch: %w", err)
	}
	printResult(out, result)

	if result.Status == model.UploadFailed {
		return errors.New("no meals were created")
	}
	return nil
}

// newSubmitter 按配置创建提交器：remote 直接调用批量接口，local 写入本地存储并记录导入日志
func newSubmitter(ctx context.Context, opts *options) (*importer.Submitter, func() error, error) {
	cfg := opts.cfg
	if cfg.Submit.Mode == "remote" {
		if cfg.Submit.Endpoint == "" {
			return nil, nil, errors.New("submit.endpoint is required for remote submission")
		}
		backend, err := server.NewBackend(cfg, nil)
		if err != nil {
			return nil, nil, err
		}
		return importer.NewSubmitter(backend, nil), func() error { return nil }, nil
	}

	repo, err := server.OpenRepository(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return importer.NewSubmitter(submit.NewStoreBackend(repo), repo), repo.Close, nil
}

// confirm 询问是否继续；标准输入不是终端时要求显式 --yes
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	if f, ok := in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return false, errors.New("stdin is not a terminal, pass --yes to submit without confirmation")
	}

	fmt.Fprintf(out, "\n%s [y/N]: ", question)

	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read input: %w", err)
	}
	response = strings.TrimSpace(strings.ToLower(response))

	return response == "y" || response == "yes", nil
}
