// Package pdf renders claim reports as A4 PDF documents.
package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	mcore "github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/core/entity"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/johnfercher/maroto/v2/pkg/repository"

	"ildang/internal/core"
	"ildang/internal/export"
	"ildang/internal/report"
)

// fontFamily is the name the optional UTF-8 font is registered under.
const fontFamily = "ildang"

var (
	headerColor = props.Color{Red: 50, Green: 50, Blue: 50}
	mutedColor  = props.Color{Red: 120, Green: 120, Blue: 120}
	lineColor   = props.Color{Red: 200, Green: 200, Blue: 200}
	unpaidColor = props.Color{Red: 190, Green: 60, Blue: 60}
)

// Renderer draws a ReportView with maroto.
//
// Hangul needs a TrueType font: without FontPath the built-in PDF fonts are used
// and non-Latin glyphs do not display.
type Renderer struct {
	FontPath    string
	ShowDetails bool
}

// New returns a Renderer using the TrueType font at fontPath, if any.
func New(fontPath string) *Renderer {
	return &Renderer{FontPath: fontPath, ShowDetails: true}
}

var _ export.Renderer = (*Renderer)(nil)

func (r *Renderer) config() (*entity.Config, error) {
	b := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15)

	if r.FontPath != "" {
		fonts, err := repository.New().
			AddUTF8Font(fontFamily, fontstyle.Normal, r.FontPath).
			AddUTF8Font(fontFamily, fontstyle.Bold, r.FontPath).
			Load()
		if err != nil {
			return nil, fmt.Errorf("load font %s: %w", r.FontPath, err)
		}
		b = b.WithCustomFonts(fonts).WithDefaultFont(&props.Font{Family: fontFamily})
	}
	return b.Build(), nil
}

// Render implements export.Renderer.
func (r *Renderer) Render(ctx context.Context, v report.ReportView) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, err := r.config()
	if err != nil {
		return nil, err
	}
	m := maroto.New(cfg)

	title := v.Title + " 노임 청구서"
	m.AddRow(14, text.NewCol(12, title, props.Text{Style: fontstyle.Bold, Size: 16, Color: &headerColor}))
	sub := v.RangeStart.String() + " ~ " + v.RangeEnd.String()
	if v.Payee != "" {
		sub = v.Payee + "  |  " + sub
	}
	m.AddRow(8, text.NewCol(12, sub, props.Text{Size: 11, Color: &mutedColor}))
	m.AddRow(4, line.NewCol(12, props.Line{Color: &lineColor}))
	m.AddRow(4)

	if v.Empty() {
		m.AddRow(10, text.NewCol(12, "기록이 없습니다.", props.Text{Size: 11, Color: &mutedColor}))
	}

	for _, month := range v.Months {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		label := report.MonthLabel(month.Month)
		m.AddRow(8, text.NewCol(12, label, props.Text{Style: fontstyle.Bold, Size: 12, Color: &headerColor}))

		for i, s := range month.Summary {
			m.AddRow(6,
				text.NewCol(6, fmt.Sprintf("  %d. %s", i+1, s.Location), props.Text{Size: 10}),
				text.NewCol(2, fmt.Sprintf("%d일", s.Days), props.Text{Size: 10, Align: align.Right}),
				text.NewCol(4, core.FormatWon(s.Amount), props.Text{Size: 10, Align: align.Right}),
			)
		}
		m.AddRow(3, line.NewCol(12, props.Line{Color: &lineColor}))
		addTotals(m, month.TotalDays, month.TotalAmount, month.TaxAmount, 10)

		if r.ShowDetails {
			for _, d := range v.Details {
				if d.Date.MonthKey() != month.Month {
					continue
				}
				color := &mutedColor
				if !d.IsPaid && !d.IsDayOff {
					color = &unpaidColor
				}
				m.AddRow(5, text.NewCol(12, "    "+export.DetailText(d, true), props.Text{Size: 8, Color: color}))
			}
		}
		m.AddRow(6)
	}

	if v.MultiMonth() {
		m.AddRow(4, line.NewCol(12, props.Line{Color: &lineColor}))
		m.AddRow(8, text.NewCol(12, "전체 합계", props.Text{Style: fontstyle.Bold, Size: 12, Color: &headerColor}))
		t := v.GrandTotals
		addTotals(m, t.Days, t.Amount, t.Tax, 11)
	}

	if b := v.BankInfo; b != nil {
		m.AddRow(6)
		m.AddRow(7, text.NewCol(12, "입금 계좌", props.Text{Style: fontstyle.Bold, Size: 10}))
		m.AddRow(6, text.NewCol(12, b.BankName+" "+b.BankAccount, props.Text{Size: 10}))
		if b.AccountHolder != "" {
			m.AddRow(6, text.NewCol(12, "예금주: "+b.AccountHolder, props.Text{Size: 10}))
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generating PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func addTotals(m mcore.Maroto, days int, amount, tax int64, size float64) {
	rows := [][2]string{
		{"총 근무", fmt.Sprintf("%d일", days)},
		{"청구 금액", core.FormatWon(amount)},
		{"원천징수(3.3%)", core.FormatWon(tax)},
		{"실수령액", core.FormatWon(amount - tax)},
	}
	for i, r := range rows {
		style := fontstyle.Normal
		if i == len(rows)-1 {
			style = fontstyle.Bold
		}
		m.AddRow(6,
			text.NewCol(8, "  "+r[0], props.Text{Size: size, Style: style}),
			text.NewCol(4, r[1], props.Text{Size: size, Style: style, Align: align.Right}),
		)
	}
}
