package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"ildang/internal/cache"
	"ildang/internal/core"
	"ildang/internal/export"
	"ildang/internal/log"
	"ildang/internal/report"
)

// FormatJSON returns the report view itself.
const FormatJSON = "json"

// renderTimeout bounds PDF and XLSX rendering.
const renderTimeout = 30 * time.Second

func (s *Server) handleMonthOverview(w http.ResponseWriter, r *http.Request) {
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if month == "" {
		month = core.Today().MonthKey()
	}
	o, err := s.svc.MonthOverview(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// handleReport serves the claim for the selected range as JSON, text, PDF or XLSX.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	p, err := ParseRangeParams(query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	format := strings.ToLower(strings.TrimSpace(query.Get("format")))
	if format == "" {
		format = FormatJSON
	}

	version := s.svc.Store().Version()
	v, err := s.svc.Report(r.Context(), p.Start, p.End)
	if err != nil {
		writeError(w, r, err)
		return
	}

	switch format {
	case FormatJSON:
		writeJSON(w, http.StatusOK, v)
	case export.FormatText:
		opts := export.Options{
			ShowAmount:  ParseBool(query, "amount", true),
			ShowDetails: ParseBool(query, "details", true),
		}
		NewResponse().
			Bytes(export.ContentType(export.FormatText), []byte(export.ToText(v, opts))).
			Write(w)
	case export.FormatPDF, export.FormatXLSX:
		data, err := s.artifact(r.Context(), format, p, version, v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		NewResponse().
			Bytes(export.ContentType(format), data).
			Attachment(export.FileName(export.ClaimFilePrefix, time.Now(), format)).
			Write(w)
	default:
		writeError(w, r, badRequest("unsupported format %q", format))
	}
}

// artifact renders v as a file, reusing an earlier rendering of the same range
// at the same store version.
func (s *Server) artifact(ctx context.Context, format string, p RangeParams, version uint64, v report.ReportView) ([]byte, error) {
	key := cache.ArtifactKey(format, p.Start, p.End, version, "")
	if data, ok := s.artifacts.Get(key); ok {
		log.FromContext(ctx).DebugContext(ctx, "Artifact cache hit", log.FieldFormat, format, log.FieldVersion, version)
		return data, nil
	}
	if v.Empty() {
		return nil, export.ErrEmptyReport
	}

	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	var (
		data []byte
		err  error
	)
	switch format {
	case export.FormatPDF:
		data, err = export.ToImage(ctx, s.renderer, v)
	case export.FormatXLSX:
		data, err = export.ToXLSX(v)
	}
	if err != nil {
		return nil, err
	}
	s.artifacts.Set(key, data)
	log.FromContext(ctx).InfoContext(ctx, "Rendered report",
		log.FieldFormat, format,
		log.FieldVersion, version,
		log.FieldCount, len(data))
	return data, nil
}
