package http

import (
	"net/http"
	"sort"

	"saloncal/internal/core"
)

type (
	monthPage struct {
		View  core.CalendarView
		Title string
	}

	dayRow struct {
		ID    string
		Name  string
		Count int
		Memo  string
	}

	dayPage struct {
		Key    string
		Title  string
		Month  string
		Closed bool
		Total  int
		Max    int
		// Rows are the active staff steppers.
		Rows []dayRow
		// Kept holds counts for ids without an active staff member so a
		// save does not drop them.
		Kept      []dayRow
		Memo      string
		Sales     core.Sales
		Customers core.Customers
		Saved     bool
	}
)

func newMonthPage(v core.CalendarView) monthPage {
	return monthPage{View: v, Title: v.Month.First().Format("January 2006")}
}

func newDayPage(ed *core.DayEditor, staff []core.Staff) dayPage {
	p := dayPage{
		Key:       ed.Date.Key(),
		Title:     ed.Date.Format("Mon, 2 Jan 2006"),
		Month:     ed.Date.Month().Key(),
		Closed:    core.IsClosed(ed.Date),
		Total:     ed.Total(),
		Max:       ed.Max,
		Memo:      ed.Memo,
		Sales:     ed.Sales,
		Customers: ed.Customers,
	}
	active := make(map[string]bool, len(staff))
	for _, st := range staff {
		active[st.ID] = true
		p.Rows = append(p.Rows, dayRow{ID: st.ID, Name: st.Name, Count: ed.Counts[st.ID], Memo: ed.StaffMemos[st.ID]})
	}
	for id, c := range ed.Counts {
		if active[id] {
			continue
		}
		name := id
		if id == core.UnassignedStaffID {
			name = "Unassigned"
		}
		p.Kept = append(p.Kept, dayRow{ID: id, Name: name, Count: c, Memo: ed.StaffMemos[id]})
	}
	sort.Slice(p.Kept, func(i, j int) bool { return p.Kept[i].ID < p.Kept[j].ID })
	return p
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	m, err := monthQuery(r.URL.Query(), s.svc.CurrentMonth())
	if err != nil {
		s.htmlError(w, r, err)
		return
	}
	view, err := s.svc.MonthView(r.Context(), m)
	if err != nil {
		s.htmlError(w, r, err)
		return
	}
	s.writePage(w, r, "index.html", newMonthPage(view))
}

// handleMonthPartial renders the month grid and KPI block. The page polls
// it and reloads it after every save.
func (s *Server) handleMonthPartial(w http.ResponseWriter, r *http.Request) {
	m, err := monthQuery(r.URL.Query(), s.svc.CurrentMonth())
	if err != nil {
		s.htmlError(w, r, err)
		return
	}
	view, err := s.svc.MonthView(r.Context(), m)
	if err != nil {
		s.htmlError(w, r, err)
		return
	}
	s.writePage(w, r, "month", newMonthPage(view))
}

func (s *Server) handleDayPartial(w http.ResponseWriter, r *http.Request) {
	d, err := dateParam(r)
	if err != nil {
		s.htmlError(w, r, err)
		return
	}
	ed, staff, err := s.svc.Editor(r.Context(), d)
	if err != nil {
		s.htmlError(w, r, err)
		return
	}
	s.writePage(w, r, "day", newDayPage(ed, staff))
}

// handleSaveDay stores the editor buffer as one unit. It accepts the editor
// form or a JSON body.
func (s *Server) handleSaveDay(w http.ResponseWriter, r *http.Request) {
	d, err := dateParam(r)
	if err != nil {
		s.respondSaveError(w, r, err)
		return
	}

	var rec core.DayRecord
	if isJSON(r) {
		var p dayPayload
		if err := s.decodeJSON(w, r, &p); err != nil {
			s.apiError(w, r, err)
			return
		}
		rec = p.Record(d)
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			s.htmlError(w, r, errBadBody)
			return
		}
		if rec, err = ParseDayForm(r.PostForm, d); err != nil {
			s.htmlError(w, r, err)
			return
		}
	}

	saved, err := s.svc.SaveDay(r.Context(), rec)
	if err != nil {
		s.respondSaveError(w, r, err)
		return
	}

	if isJSON(r) {
		successResponse(w, r, "saved", toDayJSON(saved))
		return
	}

	ed, staff, err := s.svc.Editor(r.Context(), d)
	if err != nil {
		s.htmlError(w, r, err)
		return
	}
	page := newDayPage(ed, staff)
	page.Saved = true
	body, ok := s.render(w, r, "day", page)
	if !ok {
		return
	}
	NewHTMXResponse().
		TriggerDaySaved(saved.Key(), saved.Date.Month().Key()).
		TriggerSuccessNotification("Saved").
		BodyHTML(body).
		Write(w)
}

func (s *Server) respondSaveError(w http.ResponseWriter, r *http.Request, err error) {
	if isJSON(r) {
		s.apiError(w, r, err)
		return
	}
	s.htmlError(w, r, err)
}
