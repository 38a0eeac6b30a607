package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"activityboard/internal/application/board"
	"activityboard/internal/domain/notice"
)

type contextKey string

const sessionContextKey contextKey = "board_session"

// SessionCookieName names the cookie that carries the board session token.
const SessionCookieName = "activityboard_session"

// DefaultSessionTTL is how long a board session lives after its last request.
const DefaultSessionTTL = 24 * time.Hour

// Session is one browser's view of the activities: its board snapshot and
// its notice area.
type Session struct {
	Board   *board.Board
	Notices *notice.Area

	lastSeen time.Time
}

// SessionStore is an in-memory board session store.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	newArea  func() *notice.Area
	now      func() time.Time
}

// NewSessionStore creates a store whose sessions expire after ttl.
// newArea builds each session's notice area; nil uses the real clock.
func NewSessionStore(ttl time.Duration, newArea func() *notice.Area) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if newArea == nil {
		newArea = func() *notice.Area { return notice.NewArea(nil, nil) }
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		newArea:  newArea,
		now:      time.Now,
	}
}

// Create stores a fresh session and returns its token.
// POST: the session has an empty board and a hidden notice area
func (ss *SessionStore) Create() (string, *Session, error) {
	token, err := generateToken()
	if err != nil {
		return "", nil, err
	}
	sess := &Session{Board: board.New(), Notices: ss.newArea(), lastSeen: ss.now()}
	ss.mu.Lock()
	ss.sessions[token] = sess
	ss.mu.Unlock()
	return token, sess, nil
}

// Get retrieves a live session by token and marks it seen. Expired sessions
// are dropped.
// POST: a returned session expires ttl after this call
func (ss *SessionStore) Get(token string) (*Session, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	sess, ok := ss.sessions[token]
	if !ok {
		return nil, false
	}
	now := ss.now()
	if now.Sub(sess.lastSeen) > ss.ttl {
		delete(ss.sessions, token)
		sess.Notices.Hide()
		return nil, false
	}
	sess.lastSeen = now
	return sess, true
}

// Sweep drops every expired session and returns how many were removed.
func (ss *SessionStore) Sweep() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	removed := 0
	for token, sess := range ss.sessions {
		if ss.now().Sub(sess.lastSeen) > ss.ttl {
			delete(ss.sessions, token)
			sess.Notices.Hide()
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions.
func (ss *SessionStore) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}

// Sessions returns middleware that attaches the browser's board session to
// the request context, creating one (and its cookie) on first contact.
// The cookie lives for the browser session; the store expires idle sessions.
func Sessions(store *SessionStore, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess *Session
			if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				sess, _ = store.Get(cookie.Value)
			}
			if sess == nil {
				token, created, err := store.Create()
				if err != nil {
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				sess = created
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
		})
	}
}

// SessionFromContext returns the board session attached by Sessions.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(*Session)
	return sess, ok && sess != nil
}

// ContextWithSession attaches sess to ctx.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
