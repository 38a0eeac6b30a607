package notice

import (
	"errors"
	"sync"
	"time"
)

// Kind selects the styling of a notice.
type Kind string

// Notice kinds
const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// State is the visibility state of the notice area.
type State string

// Notice area states
const (
	StateHidden  State = "hidden"
	StateVisible State = "visible"
)

// HideAfter is how long a notice stays visible, measured from when it was shown.
const HideAfter = 5 * time.Second

// Fixed notice texts.
const (
	TextFallback     = "An error occurred"
	TextSignupFailed = "Failed to sign up. Please try again."
	TextRemoveFailed = "Failed to remove participant. Please try again."
	TextLoadFailed   = "Failed to load activities. Please try again later."
)

// Domain errors
var (
	ErrInvalidKind = errors.New("notice kind must be one of: success, error")
	ErrEmptyText   = errors.New("notice text cannot be empty")
)

// Notice is a single message shown in the shared notice area.
type Notice struct {
	Kind    Kind
	Text    string
	ShownAt time.Time
}

// Success builds a success notice.
func Success(text string) Notice {
	return Notice{Kind: KindSuccess, Text: text}
}

// Error builds an error notice. An empty detail falls back to TextFallback.
func Error(detail string) Notice {
	if detail == "" {
		detail = TextFallback
	}
	return Notice{Kind: KindError, Text: detail}
}

// Validate checks if the Notice has valid data.
// PRE: Notice struct is populated
// POST: Returns nil if valid, error otherwise
func (n Notice) Validate() error {
	if n.Kind != KindSuccess && n.Kind != KindError {
		return ErrInvalidKind
	}
	if n.Text == "" {
		return ErrEmptyText
	}
	return nil
}

// IsError reports whether the notice uses error styling.
func (n Notice) IsError() bool {
	return n.Kind == KindError
}

// HideAt is the instant the notice is due to be hidden.
func (n Notice) HideAt() time.Time {
	return n.ShownAt.Add(HideAfter)
}

// Timer is a cancellable handle for a scheduled hide.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d and returns a handle that cancels it.
type AfterFunc func(d time.Duration, f func()) Timer

// RealAfterFunc schedules on the runtime timer.
func RealAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Area is the notice area state machine: hidden -> visible(kind) -> hidden.
// A new notice supersedes the current one and restarts the hide timer; a
// superseded timer can never hide the newer notice.
type Area struct {
	mu         sync.Mutex
	state      State
	current    Notice
	generation uint64
	timer      Timer
	afterFunc  AfterFunc
	now        func() time.Time
}

// NewArea creates a hidden notice area. Nil arguments select the real clock.
func NewArea(afterFunc AfterFunc, now func() time.Time) *Area {
	if afterFunc == nil {
		afterFunc = RealAfterFunc
	}
	if now == nil {
		now = time.Now
	}
	return &Area{state: StateHidden, afterFunc: afterFunc, now: now}
}

// Show makes n visible and schedules its hide after HideAfter.
// PRE: n is valid
// POST: state is visible; any previous hide timer is stopped
func (a *Area) Show(n Notice) Notice {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
	}
	a.generation++
	gen := a.generation

	n.ShownAt = a.now()
	a.current = n
	a.state = StateVisible
	a.timer = a.afterFunc(HideAfter, func() { a.expire(gen) })
	return n
}

// expire hides the notice shown at generation gen, unless it was superseded.
func (a *Area) expire(gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.generation {
		return
	}
	a.state = StateHidden
	a.timer = nil
}

// Hide transitions to hidden immediately and cancels the pending timer.
// POST: state is hidden
func (a *Area) Hide() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.generation++
	a.state = StateHidden
}

// Current returns the last shown notice and the area state.
// INVARIANT: does not change state
func (a *Area) Current() (Notice, State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current, a.state
}
