package http

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"ildang/internal/backup"
)

type restoreResponse struct {
	Restored int `json:"restored"`
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Backup(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := backup.Encode(&buf, snap); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().
		Bytes("application/json; charset=utf-8", buf.Bytes()).
		Attachment(backup.FileName(time.Now())).
		Write(w)
}

// handleRestore replaces every record with the uploaded backup file.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	snap, err := backup.Decode(http.MaxBytesReader(w, r.Body, maxRestoreBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			err = badRequest("backup larger than %d bytes", maxErr.Limit)
		}
		writeError(w, r, err)
		return
	}
	n, err := s.svc.Restore(r.Context(), snap)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, restoreResponse{Restored: n})
}

// handleClear deletes every log and the settings. The caller must pass
// confirm=true.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if !ParseBool(r.URL.Query(), "confirm", false) {
		writeError(w, r, badRequest("clearing all records requires confirm=true"))
		return
	}
	if err := s.svc.ClearAll(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
