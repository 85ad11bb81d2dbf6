package http

import (
	"net/http"

	"ildang/internal/core"
	"ildang/internal/storage"
)

// logRequest is the body of POST /api/logs.
type logRequest struct {
	Date     core.Date `json:"date"`
	Location string    `json:"location"`
	Task     string    `json:"task"`
	Amount   int64     `json:"amount"`
	IsPaid   bool      `json:"isPaid"`
	Memo     string    `json:"memo"`
}

func (req logRequest) workLog() core.WorkLog {
	return core.WorkLog{
		Date:     req.Date,
		Location: sanitizeInput(req.Location),
		Task:     sanitizeInput(req.Task),
		Amount:   req.Amount,
		IsPaid:   req.IsPaid,
		Memo:     sanitizeInput(req.Memo),
	}
}

// dayOffRequest is the body of POST /api/logs/dayoff.
type dayOffRequest struct {
	Date core.Date `json:"date"`
	Memo string    `json:"memo"`
}

// patchRequest is the body of PATCH /api/logs/{id}. Absent fields are unchanged.
type patchRequest struct {
	Date     *core.Date `json:"date"`
	Location *string    `json:"location"`
	Task     *string    `json:"task"`
	Amount   *int64     `json:"amount"`
	IsPaid   *bool      `json:"isPaid"`
	IsDayOff *bool      `json:"isDayOff"`
	Memo     *string    `json:"memo"`
}

func (req patchRequest) patch() storage.LogPatch {
	clean := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := sanitizeInput(*s)
		return &v
	}
	return storage.LogPatch{
		Date:     req.Date,
		Location: clean(req.Location),
		Task:     clean(req.Task),
		Amount:   req.Amount,
		IsPaid:   req.IsPaid,
		IsDayOff: req.IsDayOff,
		Memo:     clean(req.Memo),
	}
}

type stickyResponse struct {
	Found    bool   `json:"found"`
	Location string `json:"location,omitempty"`
	Task     string `json:"task,omitempty"`
	Amount   int64  `json:"amount,omitempty"`
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	p, err := ParseRangeParams(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	logs, err := s.svc.Logs(r.Context(), p.Start, p.End)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if logs == nil {
		logs = []core.WorkLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleCreateLog(w http.ResponseWriter, r *http.Request) {
	var req logRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.svc.AddLog(r.Context(), req.workLog())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleCreateDayOff(w http.ResponseWriter, r *http.Request) {
	var req dayOffRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.svc.AddDayOff(r.Context(), req.Date, sanitizeInput(req.Memo))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleStickyDefaults(w http.ResponseWriter, r *http.Request) {
	d, found, err := s.svc.StickyDefaults(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stickyResponse{Found: found, Location: d.Location, Task: d.Task, Amount: d.Amount})
}

func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := s.svc.GetLog(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleEditLog(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req patchRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	edited, err := s.svc.EditLog(r.Context(), id, req.patch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, edited)
}

func (s *Server) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteLog(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTogglePaid(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	toggled, err := s.svc.TogglePaid(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toggled)
}
