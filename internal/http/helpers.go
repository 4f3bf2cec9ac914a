package http

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"saloncal/internal/core"
	"saloncal/internal/pin"
	"saloncal/internal/ports"
	"saloncal/internal/services"
)

// validationErrors are user mistakes answered with 422.
var validationErrors = []error{
	core.ErrInvalidDayKey,
	core.ErrInvalidMonthKey,
	core.ErrCountOutOfRange,
	core.ErrTotalOutOfRange,
	core.ErrCapReached,
	core.ErrNegativeCount,
	core.ErrNegativeAmount,
	core.ErrNegativeCustomers,
	core.ErrMemoTooLong,
	core.ErrEmptyStaffName,
	core.ErrStaffNameTooLong,
	core.ErrEmptyStaffID,
	core.ErrInvalidAmount,
	pin.ErrTooShort,
	services.ErrBadDirection,
	services.ErrAlreadyAtLimit,
	errInvalidNumber,
}

// errorStatus maps an error to its HTTP status and a message safe to show.
// Unknown errors are 500 with a generic message.
func (s *Server) errorStatus(err error) (int, string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		if len(verrs) > 0 {
			return http.StatusUnprocessableEntity, verrs[0].Translate(s.translator)
		}
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrLocked):
		return http.StatusUnauthorized, "settings are locked"
	case errors.Is(err, services.ErrWrongPIN):
		return http.StatusForbidden, "wrong PIN"
	case errors.Is(err, ports.ErrNotFound), errors.Is(err, ports.ErrStaffNotFound):
		return http.StatusNotFound, err.Error()
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity, err.Error()
		}
	}
	return http.StatusInternalServerError, "internal error"
}

// weekdayLabels heads the Sunday-first month grid.
var weekdayLabels = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"yen": func(y core.Yen) string { return y.String() },
		"percent": func(f float64) string {
			return fmt.Sprintf("%.0f%%", f*100)
		},
		"blanks": func(n int) []struct{} { return make([]struct{}, n) },
		"upto": func(n int) []int {
			out := make([]int, n+1)
			for i := range out {
				out[i] = i
			}
			return out
		},
		"weekdayClass": func(d time.Weekday) string {
			switch d {
			case time.Sunday:
				return "sun"
			case time.Saturday:
				return "sat"
			}
			return ""
		},
		"weekdays": func() []string { return weekdayLabels },
	}
}
