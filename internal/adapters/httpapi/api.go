// Package httpapi serves the reference Activities API: the JSON collaborator
// the board talks to in development and in browser tests.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"activityboard/internal/adapters/email"
	"activityboard/internal/adapters/http/middleware"
	"activityboard/internal/adapters/http/perf"
	"activityboard/internal/application/orchestrators"
	"activityboard/internal/domain/activity"
)

// Store is the persistence the API needs.
type Store interface {
	List(ctx context.Context) ([]activity.Activity, error)
	orchestrators.RosterStore
}

// Config wires the API to its collaborators.
type Config struct {
	Store     Store
	Sender    email.Sender
	Collector *perf.Collector
	// BoardURL is where GET / redirects; empty serves a 404.
	BoardURL    string
	SlowRequest time.Duration
	Now         func() time.Time
}

// Error details sent with non-2xx responses.
const (
	DetailNotFound      = "Activity not found"
	DetailAlreadyJoined = "Student is already signed up"
	DetailFull          = "Activity is full"
	DetailNotSignedUp   = "Student is not signed up for this activity"
	DetailEmailRequired = "email is required"
)

type api struct {
	store    Store
	sender   email.Sender
	boardURL string
	now      func() time.Time
}

// NewMux wires HTTP handlers for the Activities API.
// PRE: cfg.Store is set
func NewMux(cfg Config) http.Handler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	a := &api{store: cfg.Store, sender: cfg.Sender, boardURL: cfg.BoardURL, now: now}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", a.handleRoot)
	mux.HandleFunc("GET /activities", a.handleList)
	mux.HandleFunc("POST /activities/{name}/signup", a.handleSignup)
	mux.HandleFunc("DELETE /activities/{name}/remove", a.handleRemove)
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.Chain(mux, middleware.Timing(cfg.Collector, cfg.SlowRequest))
}

func (a *api) handleRoot(w http.ResponseWriter, r *http.Request) {
	if a.boardURL == "" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, a.boardURL, http.StatusTemporaryRedirect)
}

type activityBody struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// handleList writes the catalog as one JSON object keyed by name, in catalog order.
func (a *api) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := a.store.List(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	body, err := encodeCatalog(list)
	if err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// encodeCatalog builds the object by hand; encoding/json sorts map keys.
func encodeCatalog(list []activity.Activity) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, act := range list {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(act.Name)
		if err != nil {
			return nil, err
		}
		participants := act.Participants
		if participants == nil {
			participants = []string{}
		}
		value, err := json.Marshal(activityBody{
			Description:     act.Description,
			Schedule:        act.Schedule,
			MaxParticipants: act.MaxParticipants,
			Participants:    participants,
		})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (a *api) handleSignup(w http.ResponseWriter, r *http.Request) {
	input, ok := rosterInput(w, r)
	if !ok {
		return
	}
	msg, err := orchestrators.ExecuteEnrollParticipant(r.Context(), input, orchestrators.EnrollParticipantDeps{
		Store:  a.store,
		Sender: a.sender,
		Now:    a.now,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (a *api) handleRemove(w http.ResponseWriter, r *http.Request) {
	input, ok := rosterInput(w, r)
	if !ok {
		return
	}
	msg, err := orchestrators.ExecuteWithdrawParticipant(r.Context(), input, orchestrators.WithdrawParticipantDeps{
		Store: a.store,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// validationIssue mirrors a FastAPI request-validation entry.
type validationIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// rosterInput reads the path name and the email query parameter. A missing
// parameter is a 422 whose detail is a list, not a string.
func rosterInput(w http.ResponseWriter, r *http.Request) (orchestrators.RosterInput, bool) {
	q := r.URL.Query()
	if !q.Has("email") {
		writeJSON(w, http.StatusUnprocessableEntity, map[string][]validationIssue{
			"detail": {{Loc: []string{"query", "email"}, Msg: "Field required", Type: "missing"}},
		})
		return orchestrators.RosterInput{}, false
	}
	return orchestrators.RosterInput{Activity: r.PathValue("name"), Email: q.Get("email")}, true
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, activity.ErrActivityNotFound):
		writeDetail(w, http.StatusNotFound, DetailNotFound)
	case errors.Is(err, activity.ErrAlreadySignedUp):
		writeDetail(w, http.StatusBadRequest, DetailAlreadyJoined)
	case errors.Is(err, activity.ErrActivityFull):
		writeDetail(w, http.StatusBadRequest, DetailFull)
	case errors.Is(err, activity.ErrNotSignedUp):
		writeDetail(w, http.StatusBadRequest, DetailNotSignedUp)
	case errors.Is(err, activity.ErrEmptyEmail):
		writeDetail(w, http.StatusUnprocessableEntity, DetailEmailRequired)
	default:
		internalError(w, err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response_encode_failed", "error", err)
	}
}

// internalError logs the real error and returns a generic detail to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
}
