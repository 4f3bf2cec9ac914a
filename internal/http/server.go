package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"saloncal/internal/core"
	applog "saloncal/internal/log"
	"saloncal/internal/middleware/ratelimit"
	"saloncal/internal/middleware/security"
	"saloncal/internal/middleware/trace"
	"saloncal/internal/services"
	appweb "saloncal/web"
)

const unlockTokenHeader = "X-Unlock-Token"

// BookingService is what the handlers need from the service layer.
type BookingService interface {
	Today() core.Date
	CurrentMonth() core.Month
	MonthView(ctx context.Context, m core.Month) (core.CalendarView, error)
	MonthSummary(ctx context.Context, m core.Month) (core.MonthSummary, error)
	GetDay(ctx context.Context, d core.Date) (core.DayRecord, error)
	Editor(ctx context.Context, d core.Date) (*core.DayEditor, []core.Staff, error)
	SaveDay(ctx context.Context, rec core.DayRecord) (core.DayRecord, error)
	Adjust(ctx context.Context, d core.Date, staffID string, delta int) (core.DayRecord, error)
	WriteExport(ctx context.Context, w io.Writer, m core.Month, format services.ExportFormat) error
	Ready(ctx context.Context) error

	Unlock(ctx context.Context, pin string) (string, error)
	Lock(token string)
	ChangePIN(ctx context.Context, token, newPIN string) error
	ListStaff(ctx context.Context) ([]core.Staff, error)
	AddStaff(ctx context.Context, token, name string) (core.Staff, error)
	MoveStaff(ctx context.Context, token, id, direction string) error
	ToggleStaff(ctx context.Context, token, id string) (core.Staff, error)
}

// Config configures the HTTP server.
type Config struct {
	Addr string
	// AllowedOrigins enables CORS for the JSON API. Empty means same-origin
	// only.
	AllowedOrigins     []string
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	svc        BookingService
	templates  *template.Template
	validate   *validator.Validate
	translator ut.Translator
	logger     *applog.Logger
	limiter    *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(cfg Config, svc BookingService) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = applog.New(applog.DefaultConfig())
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("init validator: %w", err)
	}

	s := &Server{
		svc:        svc,
		validate:   validate,
		translator: trans,
		logger:     cfg.Logger.WithComponent(applog.ComponentHTTP),
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(trace.GetRequestID))
	r.Use(trace.NewMiddleware(s.logger).Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(security.NewDetector(true).Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", unlockTokenHeader},
			MaxAge:         300,
		}))
	}
	r.Use(s.limiter.Global())

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	r.Group(func(ui chi.Router) {
		ui.Use(security.NoStore)
		ui.Get("/", s.handleIndex)
		ui.Get("/ui/month", s.handleMonthPartial)
		ui.Get("/ui/day/{date}", s.handleDayPartial)
		ui.Post("/days/{date}", s.handleSaveDay)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(security.NoStore)
		api.Get("/months/{month}", s.handleAPIMonth)
		api.Get("/months/{month}/summary", s.handleAPIMonthSummary)
		api.Get("/days/{date}", s.handleAPIGetDay)
		api.Put("/days/{date}", s.handleAPIPutDay)
		api.Post("/days/{date}/adjust", s.handleAPIAdjust)

		api.Get("/staff", s.handleAPIListStaff)
		api.Post("/staff", s.handleAPIAddStaff)
		api.Post("/staff/{id}/move", s.handleAPIMoveStaff)
		api.Post("/staff/{id}/toggle", s.handleAPIToggleStaff)

		api.With(s.limiter.Unlock()).Post("/settings/unlock", s.handleAPIUnlock)
		api.Post("/settings/lock", s.handleAPILock)
		api.Put("/settings/pin", s.handleAPIChangePIN)
	})

	r.Get("/export/{file}", s.handleExport)
	return r
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// render executes a template into a buffer so a failure never leaves a
// half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) ([]byte, bool) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", "path", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return nil, false
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			"template", name, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return nil, false
	}
	return buf.Bytes(), true
}

func (s *Server) writePage(w http.ResponseWriter, r *http.Request, name string, data any) {
	body, ok := s.render(w, r, name, data)
	if !ok {
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}

// logFailure logs server-side failures; user mistakes are not logged as
// errors.
func (s *Server) logFailure(r *http.Request, status int, err error) {
	if status < http.StatusInternalServerError {
		return
	}
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		"method", r.Method, "path", r.URL.Path, "error", err)
}

// htmlError answers an HTMX request with an error fragment.
func (s *Server) htmlError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := s.errorStatus(err)
	s.logFailure(r, status, err)
	ErrorResponse(status, msg).TriggerErrorNotification(msg).Write(w)
}

// apiError answers a JSON request with the error envelope.
func (s *Server) apiError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := s.errorStatus(err)
	s.logFailure(r, status, err)
	errorJSON(w, r, status, msg)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.svc.Ready(ctx); err != nil {
		slog.WarnContext(ctx, "Readiness check failed", "error", err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
