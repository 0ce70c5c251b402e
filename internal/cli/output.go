package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"choma/internal/importer"
	"choma/internal/model"
)

// errValidationFailed 错误明细已输出，命令只需以非零状态退出
var errValidationFailed = errors.New("spreadsheet rejected")

var (
	colorSuccess = lipgloss.Color("#00D787")
	colorWarning = lipgloss.Color("#FFAF00")
	colorError   = lipgloss.Color("#FF005F")
	colorHint    = lipgloss.Color("#6C6C6C")
)

func successStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
}

func warningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
}

func errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorError).Bold(true)
}

func hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorHint).Italic(true)
}

// printPrepareError 输出解析/校验失败：校验错误逐行列出，结构性错误只有一行
// prepareFailure 校验拒绝与结构错误输出明细后返回 errValidationFailed；文件读取等其他错误原样返回
func prepareFailure(w io.Writer, path string, err error) error {
	var rejected *importer.RejectedError
	if errors.As(err, &rejected) || importer.IsStructural(err) {
		printPrepareError(w, path, err)
		return errValidationFailed
	}
	return err
}

func printPrepareError(w io.Writer, path string, err error) {
	var rejected *importer.RejectedError
	if !errors.As(err, &rejected) {
		fmt.Fprintf(w, "%s %s: %v\n", errorStyle().Render("ERROR"), path, err)
		return
	}

	fmt.Fprintf(w, "%s %s: %d validation error(s)\n", errorStyle().Render("INVALID"), path, len(rejected.Errors))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tFIELD\tMESSAGE\tVALUE")
	for _, e := range rejected.Errors {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.Row, e.Field, e.Message, e.Value)
	}
	tw.Flush()
}

func printPreview(w io.Writer, p importer.Preview) {
	fmt.Fprintf(w, "Batch %s (%s), cost model %s\n\n", p.BatchID, p.Filename, p.CostModelVersion)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ROW\tNAME\tCOMPLEXITY\tCOOKING\tTOTAL PRICE\tCHEF\t")
	for _, r := range p.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.2f\t%.2f\t\n",
			r.Row, r.Name, r.ComplexityLevel, r.CookingCost, r.TotalPrice, r.ChefEarnings)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d meal(s), total price %.2f, chef earnings %.2f, platform earnings %.2f\n",
		p.Totals.Rows, p.Totals.TotalPrice, p.Totals.ChefEarnings, p.Totals.PlatformEarnings)
}

func printResult(w io.Writer, r model.UploadResult) {
	var status string
	switch r.Status {
	case model.UploadSucceeded:
		status = successStyle().Render("SUCCEEDED")
	case model.UploadPartial:
		status = warningStyle().Render("PARTIAL")
	default:
		status = errorStyle().Render("FAILED")
	}
	fmt.Fprintf(w, "\n%s batch %s: %d created, %d failed of %d\n", status, r.BatchID, r.SuccessCount, r.FailedCount, r.TotalRows)

	if len(r.Errors) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tFIELD\tMESSAGE")
	for _, e := range r.Errors {
		row := fmt.Sprint(e.Row)
		if e.Row == 0 {
			row = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row, e.Field, e.Message)
	}
	tw.Flush()
}
