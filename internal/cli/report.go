package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ildang/internal/core"
	"ildang/internal/export"
	"ildang/internal/report"
)

// reportInput holds the report command flags.
type reportInput struct {
	start, end core.Date
	format     string
	out        string
	opts       export.Options
}

func newReportCmd(e env) *cobra.Command {
	flags := append([]StringFlag{
		{Name: "format", Short: "f", Usage: "txt, pdf or xlsx", Default: export.FormatText},
		{Name: "out", Short: "o", Usage: "output file (txt defaults to stdout)"},
	}, rangeFlags...)
	return LeafCommand{
		Use:      "report",
		Short:    "Build the wage claim for a month or date range",
		StrFlags: flags,
		BoolFlags: []BoolFlag{
			{Name: "no-amount", Usage: "leave amounts out of the text claim"},
			{Name: "no-details", Usage: "leave per-day lines out of the text claim"},
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := selectRange(cmd, e.today())
			if err != nil {
				return err
			}
			in := reportInput{start: start, end: end}
			in.format, _ = cmd.Flags().GetString("format")
			in.out, _ = cmd.Flags().GetString("out")
			noAmount, _ := cmd.Flags().GetBool("no-amount")
			noDetails, _ := cmd.Flags().GetBool("no-details")
			in.opts = export.Options{ShowAmount: !noAmount, ShowDetails: !noDetails}
			return e.withApp(cmd, func(ctx context.Context, app *App) error {
				return runReport(ctx, cmd.OutOrStdout(), app, in, e.now())
			})
		},
	}.Build()
}

func runReport(ctx context.Context, out io.Writer, app *App, in reportInput, now time.Time) error {
	v, err := app.Service.Report(ctx, in.start, in.end)
	if err != nil {
		return err
	}

	format := strings.ToLower(strings.TrimSpace(in.format))
	var data []byte
	switch format {
	case export.FormatText:
		text := export.ToText(v, in.opts)
		if in.out == "" {
			_, err := io.WriteString(out, text)
			return err
		}
		data = []byte(text)
	case export.FormatPDF:
		data, err = export.ToImage(ctx, app.Renderer, v)
	case export.FormatXLSX:
		data, err = renderXLSX(v)
	default:
		return fmt.Errorf("unsupported format %q: use txt, pdf or xlsx", in.format)
	}
	if err != nil {
		return err
	}

	path := in.out
	if path == "" {
		path = export.FileName(export.ClaimFilePrefix, now, format)
	}
	return writeFile(out, path, data)
}

func renderXLSX(v report.ReportView) ([]byte, error) {
	if v.Empty() {
		return nil, export.ErrEmptyReport
	}
	return export.ToXLSX(v)
}

// writeFile writes data to path and reports where it went.
func writeFile(out io.Writer, path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(out, "%s %s (%s)\n", Success("저장됨"), path, humanize.Bytes(uint64(len(data))))
	return nil
}
