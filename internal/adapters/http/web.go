// Package web serves the activity board: the page, its htmx fragments and
// the operational endpoints.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"activityboard/internal/adapters/http/middleware"
	"activityboard/internal/adapters/http/perf"
	"activityboard/internal/application/orchestrators"
	"activityboard/internal/domain/notice"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// DefaultRateLimitPerSecond is the per-IP request budget when Config leaves it unset.
const DefaultRateLimitPerSecond = 10

// Config wires the board to its collaborators.
type Config struct {
	API       orchestrators.ActivityAPI
	Collector *perf.Collector

	// CSRFKey must be 32 bytes.
	CSRFKey        []byte
	SecureCookies  bool
	TrustedOrigins []string

	RateLimitPerSecond int
	SlowRequest        time.Duration
	SessionTTL         time.Duration

	// AfterFunc schedules notice hides; nil uses the runtime timer.
	AfterFunc notice.AfterFunc
	// Now is the clock for notices; nil uses time.Now.
	Now func() time.Time
}

// Board is the board's HTTP surface.
type Board struct {
	handler  http.Handler
	sessions *middleware.SessionStore
	limiter  *middleware.RateLimiter
}

// NewMux wires HTTP handlers for the board.
// PRE: cfg.API is set; len(cfg.CSRFKey) == 32
func NewMux(cfg Config) (*Board, error) {
	tpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}
	if cfg.RateLimitPerSecond <= 0 {
		cfg.RateLimitPerSecond = DefaultRateLimitPerSecond
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	sessions := middleware.NewSessionStore(cfg.SessionTTL, func() *notice.Area {
		return notice.NewArea(cfg.AfterFunc, now)
	})
	s := &server{api: cfg.API, collector: cfg.Collector, tpl: tpl, now: now}

	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /signup", s.handleSignup)
	mux.HandleFunc("DELETE /activities/{name}/remove", s.handleRemove)
	mux.HandleFunc("POST /activities/{name}/remove", s.handleRemove)
	mux.HandleFunc("GET /notice", s.handleNotice)
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /debug/perf", s.handlePerf)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerSecond, time.Second)

	// Outermost last: Timing -> Sessions -> CSRF -> SecurityHeaders -> RateLimit -> mux
	handler := middleware.Chain(mux,
		middleware.RateLimit(limiter),
		middleware.SecurityHeaders,
		middleware.CSRF(cfg.CSRFKey, cfg.SecureCookies, cfg.TrustedOrigins),
		middleware.Sessions(sessions, cfg.SecureCookies),
		middleware.Timing(cfg.Collector, cfg.SlowRequest),
	)
	return &Board{handler: handler, sessions: sessions, limiter: limiter}, nil
}

// ServeHTTP implements http.Handler.
func (b *Board) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.handler.ServeHTTP(w, r)
}

// Janitor drops expired sessions and idle rate-limit buckets every interval
// until stop is closed.
func (b *Board) Janitor(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := b.sessions.Sweep(); n > 0 {
				slog.Info("sessions_swept", "removed", n)
			}
			b.limiter.Forget(5 * time.Minute)
		}
	}
}

func parseTemplates() (*template.Template, error) {
	return template.New("board").Funcs(template.FuncMap{
		"renderMarkdown": renderMarkdown,
		"cardData":       newCardData,
	}).ParseFS(templateFS, "templates/*.html")
}
