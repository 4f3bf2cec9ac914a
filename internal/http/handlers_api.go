package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleAPIMonth(w http.ResponseWriter, r *http.Request) {
	m, err := monthParam(r)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	view, err := s.svc.MonthView(r.Context(), m)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	successResponse(w, r, "", toMonthJSON(view))
}

func (s *Server) handleAPIMonthSummary(w http.ResponseWriter, r *http.Request) {
	m, err := monthParam(r)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	sum, err := s.svc.MonthSummary(r.Context(), m)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	successResponse(w, r, "", toSummaryJSON(sum))
}

func (s *Server) handleAPIGetDay(w http.ResponseWriter, r *http.Request) {
	d, err := dateParam(r)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	rec, err := s.svc.GetDay(r.Context(), d)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	successResponse(w, r, "", toDayJSON(rec))
}

func (s *Server) handleAPIPutDay(w http.ResponseWriter, r *http.Request) {
	d, err := dateParam(r)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	var p dayPayload
	if err := s.decodeJSON(w, r, &p); err != nil {
		s.apiError(w, r, err)
		return
	}
	saved, err := s.svc.SaveDay(r.Context(), p.Record(d))
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	successResponse(w, r, "saved", toDayJSON(saved))
}

// handleAPIAdjust applies one stepper press and saves the day.
func (s *Server) handleAPIAdjust(w http.ResponseWriter, r *http.Request) {
	d, err := dateParam(r)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	var p adjustPayload
	if err := s.decodeJSON(w, r, &p); err != nil {
		s.apiError(w, r, err)
		return
	}
	saved, err := s.svc.Adjust(r.Context(), d, p.StaffID, p.Delta)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	successResponse(w, r, "saved", toDayJSON(saved))
}

func (s *Server) handleAPIListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := s.svc.ListStaff(r.Context())
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	successResponse(w, r, "", toStaffJSON(staff))
}

func (s *Server) handleAPIAddStaff(w http.ResponseWriter, r *http.Request) {
	var p staffPayload
	if err := s.decodeJSON(w, r, &p); err != nil {
		s.apiError(w, r, err)
		return
	}
	st, err := s.svc.AddStaff(r.Context(), unlockToken(r), sanitizeInput(p.Name))
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, Response{Success: true, Message: "staff added", Data: toStaffItem(st)})
}

func (s *Server) handleAPIMoveStaff(w http.ResponseWriter, r *http.Request) {
	var p movePayload
	if err := s.decodeJSON(w, r, &p); err != nil {
		s.apiError(w, r, err)
		return
	}
	if err := s.svc.MoveStaff(r.Context(), unlockToken(r), chi.URLParam(r, "id"), p.Direction); err != nil {
		s.apiError(w, r, err)
		return
	}
	s.handleAPIListStaff(w, r)
}

func (s *Server) handleAPIToggleStaff(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.ToggleStaff(r.Context(), unlockToken(r), chi.URLParam(r, "id"))
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	successResponse(w, r, "staff updated", toStaffItem(st))
}

func (s *Server) handleAPIUnlock(w http.ResponseWriter, r *http.Request) {
	var p pinPayload
	if err := s.decodeJSON(w, r, &p); err != nil {
		s.apiError(w, r, err)
		return
	}
	token, err := s.svc.Unlock(r.Context(), p.PIN)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	successResponse(w, r, "unlocked", map[string]string{"token": token})
}

func (s *Server) handleAPILock(w http.ResponseWriter, r *http.Request) {
	s.svc.Lock(unlockToken(r))
	successResponse(w, r, "locked", nil)
}

func (s *Server) handleAPIChangePIN(w http.ResponseWriter, r *http.Request) {
	var p pinPayload
	if err := s.decodeJSON(w, r, &p); err != nil {
		s.apiError(w, r, err)
		return
	}
	if err := s.svc.ChangePIN(r.Context(), unlockToken(r), p.PIN); err != nil {
		s.apiError(w, r, err)
		return
	}
	successResponse(w, r, "pin changed", nil)
}
