package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"saloncal/internal/core"
	"saloncal/internal/export"
	"saloncal/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleExport serves /export/{YYYY-MM}.csv and /export/{YYYY-MM}.xlsx.
// ?variant=staff selects the per-staff CSV layout.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	key, ext, ok := strings.Cut(chi.URLParam(r, "file"), ".")
	if !ok {
		http.NotFound(w, r)
		return
	}
	m, err := core.ParseMonthKey(key)
	if err != nil {
		s.htmlError(w, r, err)
		return
	}

	var (
		format      services.ExportFormat
		contentType string
	)
	switch ext {
	case "csv":
		format, contentType = services.ExportCSV, "text/csv; charset=utf-8"
		if r.URL.Query().Get("variant") == "staff" {
			format = services.ExportStaffCSV
		}
	case "xlsx":
		format, contentType = services.ExportXLSX, xlsxContentType
	default:
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	if err := s.svc.WriteExport(r.Context(), &buf, m, format); err != nil {
		s.htmlError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(m, ext)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
