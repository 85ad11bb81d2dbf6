package http

import (
	"net/http"

	"ildang/internal/storage"
)

// settingsRequest is the body of PUT /api/settings. Absent fields are unchanged.
type settingsRequest struct {
	UserName      *string `json:"userName"`
	BankName      *string `json:"bankName"`
	BankAccount   *string `json:"bankAccount"`
	AccountHolder *string `json:"accountHolder"`
}

func (req settingsRequest) patch() storage.SettingsPatch {
	clean := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := sanitizeInput(*s)
		return &v
	}
	return storage.SettingsPatch{
		UserName:      clean(req.UserName),
		BankName:      clean(req.BankName),
		BankAccount:   clean(req.BankAccount),
		AccountHolder: clean(req.AccountHolder),
	}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.Settings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.svc.SaveSettings(r.Context(), req.patch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
