package web

import (
	"bytes"
	"encoding/json"
	"html/template"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"activityboard/internal/adapters/http/middleware"
	"activityboard/internal/adapters/http/perf"
	"activityboard/internal/application/orchestrators"
	"activityboard/internal/application/projections"
	"activityboard/internal/domain/notice"
)

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

type server struct {
	api       orchestrators.ActivityAPI
	collector *perf.Collector
	tpl       *template.Template
	now       func() time.Time
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// cardData is the card template's input.
type cardData struct {
	Card      projections.CardView
	OOB       bool
	CSRFToken string
}

func newCardData(card projections.CardView, oob bool, token string) cardData {
	return cardData{Card: card, OOB: oob, CSRFToken: token}
}

// formData is the signup form template's input.
type formData struct {
	Options   []string
	Email     string
	Selected  string
	CSRFToken string
}

// noticeData is the notice template's input.
type noticeData struct {
	Text     string
	Class    string
	Visible  bool
	HideInMs int64
	OOB      bool
}

type pageData struct {
	Board      projections.BoardView
	Form       formData
	Notice     noticeData
	CSRFToken  string
	HTMXSource string
}

func (s *server) noticeData(area *notice.Area, oob bool) noticeData {
	n, state := area.Current()
	d := noticeData{Text: n.Text, OOB: oob, Visible: state == notice.StateVisible}
	if !d.Visible {
		d.Class = "hidden"
		if n.Kind != "" {
			d.Class = string(n.Kind) + " hidden"
		}
		return d
	}
	d.Class = string(n.Kind)
	remaining := n.HideAt().Sub(s.now())
	d.HideInMs = int64(math.Ceil(float64(max(remaining, 0)) / float64(time.Millisecond)))
	return d
}

func (s *server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func session(w http.ResponseWriter, r *http.Request) (*middleware.Session, bool) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "session required", http.StatusBadRequest)
	}
	return sess, ok
}

// handleIndex runs the loader for this browser and renders the whole page.
func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	// A failed load is rendered from the board status.
	orchestrators.ExecuteLoadBoard(r.Context(), orchestrators.LoadBoardDeps{API: s.api, Board: sess.Board})

	view := projections.QueryBoardView(sess.Board)
	token := csrf.Token(r)
	s.render(w, "page", pageData{
		Board:      view,
		Form:       formData{Options: view.Options, CSRFToken: token},
		Notice:     s.noticeData(sess.Notices, false),
		CSRFToken:  token,
		HTMXSource: middleware.HTMXSource,
	})
}

// handleSignup submits the signup form. htmx requests get the reset form,
// the patched card and the notice in one response; plain posts are redirected.
func (s *server) handleSignup(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	input := orchestrators.SignupInput{
		Email:    r.PostForm.Get("email"),
		Activity: r.PostForm.Get("activity"),
	}
	res := orchestrators.ExecuteSignup(r.Context(), input, orchestrators.SignupDeps{
		API:     s.api,
		Board:   sess.Board,
		Notices: sess.Notices,
	})

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	token := csrf.Token(r)
	form := formData{Options: sess.Board.Names(), CSRFToken: token}
	if !res.Accepted {
		form.Email, form.Selected = input.Email, input.Activity
	}

	var buf bytes.Buffer
	if err := s.tpl.ExecuteTemplate(&buf, "signup-form", form); err != nil {
		internalError(w, err)
		return
	}
	if res.CardChanged {
		if err := s.tpl.ExecuteTemplate(&buf, "card", newCardData(projections.QueryCardView(res.Card), true, token)); err != nil {
			internalError(w, err)
			return
		}
	}
	if err := s.tpl.ExecuteTemplate(&buf, "notice", s.noticeData(sess.Notices, true)); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleRemove removes one participant. htmx requests get the re-rendered
// card plus the notice; when no card changed the swap is suppressed and
// only the notice is applied. Plain posts are redirected.
func (s *server) handleRemove(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	input := orchestrators.RemoveParticipantInput{
		Activity: r.PathValue("name"),
		Email:    r.URL.Query().Get("email"),
	}
	res := orchestrators.ExecuteRemoveParticipant(r.Context(), input, orchestrators.RemoveParticipantDeps{
		API:     s.api,
		Board:   sess.Board,
		Notices: sess.Notices,
	})

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	var buf bytes.Buffer
	if res.CardChanged {
		if err := s.tpl.ExecuteTemplate(&buf, "card", newCardData(projections.QueryCardView(res.Card), false, csrf.Token(r))); err != nil {
			internalError(w, err)
			return
		}
	} else {
		w.Header().Set("HX-Reswap", "none")
	}
	if err := s.tpl.ExecuteTemplate(&buf, "notice", s.noticeData(sess.Notices, true)); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleNotice returns the notice area in its current state. A visible
// notice re-polls itself when it is due to hide.
func (s *server) handleNotice(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	s.render(w, "notice", s.noticeData(sess.Notices, false))
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// handlePerf reports request, query and upstream timings for the last window.
func (s *server) handlePerf(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		http.Error(w, "perf collector disabled", http.StatusNotFound)
		return
	}
	window := 15 * time.Minute
	if v := r.URL.Query().Get("minutes"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			window = time.Duration(n) * time.Minute
		}
	}
	snap := s.collector.Snapshot(s.now().Add(-window), 10)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		slog.Warn("perf_encode_failed", "error", err)
	}
}
