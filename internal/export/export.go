package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ildang/internal/report"
)

// ClaimFilePrefix names every exported claim artifact.
const ClaimFilePrefix = "노임청구서"

// Artifact formats.
const (
	FormatText = "txt"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

var (
	ErrEmptyReport = errors.New("report has no records")
	ErrNoRenderer  = errors.New("no renderer configured")
)

// Renderer turns a report view into document or image bytes. Pixel content is
// opaque to callers.
type Renderer interface {
	Render(ctx context.Context, v report.ReportView) ([]byte, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, v report.ReportView) ([]byte, error)

func (f RendererFunc) Render(ctx context.Context, v report.ReportView) ([]byte, error) {
	return f(ctx, v)
}

// ToImage hands v to r and returns the rendered bytes.
func ToImage(ctx context.Context, r Renderer, v report.ReportView) ([]byte, error) {
	if r == nil {
		return nil, ErrNoRenderer
	}
	if v.Empty() {
		return nil, ErrEmptyReport
	}
	b, err := r.Render(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return b, nil
}

// FileName builds the download name for an artifact, e.g.
// FileName(ClaimFilePrefix, t, FormatPDF) == "노임청구서_2024-06-30.pdf".
func FileName(prefix string, at time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, at.Format("2006-01-02"), ext)
}

// ContentType returns the MIME type of an artifact format.
func ContentType(format string) string {
	switch format {
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}
