package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		Body([]byte("test")).
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Errorf("unexpected HX-Trigger %q", w.Header().Get("HX-Trigger"))
	}
}

func TestHTMXResponseBuilder_DaySaved(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerDaySaved("2025-09-10", "2025-09").
		TriggerSuccessNotification("Saved").
		BodyHTML([]byte("<form></form>")).
		Write(w)

	var triggers map[string]json.RawMessage
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}

	var saved map[string]string
	if err := json.Unmarshal(triggers["day:saved"], &saved); err != nil {
		t.Fatalf("day:saved payload: %v", err)
	}
	if saved["date"] != "2025-09-10" || saved["month"] != "2025-09" {
		t.Errorf("day:saved = %v", saved)
	}
	if _, ok := triggers["show-notification"]; !ok {
		t.Error("show-notification trigger missing")
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHTMXResponseBuilder_RefreshAndClose(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerMonthRefresh("2025-10").
		TriggerEditorClose().
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, `"month:refresh":{"month":"2025-10"}`) {
		t.Errorf("month:refresh missing from %s", trigger)
	}
	if !strings.Contains(trigger, `"editor:close"`) {
		t.Errorf("editor:close missing from %s", trigger)
	}
}

func TestHTMXResponseBuilder_CustomHeader(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Header("X-Custom", "value").
		Status(http.StatusCreated).
		Write(w)

	if w.Header().Get("X-Custom") != "value" {
		t.Errorf("Custom header not set")
	}
	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name   string
		status int
		msg    string
	}{
		{"bad request", http.StatusBadRequest, "Invalid input"},
		{"unprocessable entity", http.StatusUnprocessableEntity, "count out of range"},
		{"internal server error", http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorResponse(tt.status, tt.msg).Write(w)

			if w.Code != tt.status {
				t.Errorf("Status code = %d, want %d", w.Code, tt.status)
			}
			want := `<div class="error" role="alert">` + tt.msg + `</div>`
			if w.Body.String() != want {
				t.Errorf("Body = %q, want %q", w.Body.String(), want)
			}
		})
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()

	ErrorResponse(http.StatusBadRequest, "<script>alert('xss')</script>").Write(w)

	body := w.Body.String()
	if strings.Contains(body, "<script>") {
		t.Error("Error response did not escape HTML")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Error("Error response did not properly escape HTML entities")
	}
}

func TestNotificationTypes(t *testing.T) {
	tests := []struct {
		notifType NotificationType
		want      string
	}{
		{NotificationSuccess, "success"},
		{NotificationError, "error"},
		{NotificationWarning, "warning"},
		{NotificationInfo, "info"},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		NewHTMXResponse().
			TriggerNotification(tt.notifType, "test", 1000).
			Write(w)

		trigger := w.Header().Get("HX-Trigger")
		if !strings.Contains(trigger, `"type":"`+tt.want+`"`) {
			t.Errorf("Notification type %q not found in trigger: %s", tt.want, trigger)
		}
	}
}

func TestJSONEnvelope(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/x", nil)

	w := httptest.NewRecorder()
	successResponse(w, r, "ok", map[string]int{"n": 1})
	var ok Response
	if err := json.NewDecoder(w.Body).Decode(&ok); err != nil {
		t.Fatal(err)
	}
	if !ok.Success || ok.Message != "ok" {
		t.Errorf("success envelope = %+v", ok)
	}

	w = httptest.NewRecorder()
	errorJSON(w, r, http.StatusNotFound, "missing")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
	var bad Response
	if err := json.NewDecoder(w.Body).Decode(&bad); err != nil {
		t.Fatal(err)
	}
	if bad.Success || bad.Message != "missing" || bad.Data != nil {
		t.Errorf("error envelope = %+v", bad)
	}
}
