package activity

import (
	"errors"
	"slices"
	"strings"
)

// Domain errors
var (
	ErrEmptyName        = errors.New("activity name cannot be empty")
	ErrNegativeCapacity = errors.New("activity capacity cannot be negative")
	ErrEmptyEmail       = errors.New("email is required")
	ErrActivityNotFound = errors.New("activity not found")
	ErrAlreadySignedUp  = errors.New("student is already signed up")
	ErrActivityFull     = errors.New("activity is full")
	ErrNotSignedUp      = errors.New("student is not signed up for this activity")
)

// Activity is an extracurricular activity identified by its display name.
// Participants are email addresses; membership matters, order is kept for display.
type Activity struct {
	Name            string
	Description     string
	Schedule        string
	MaxParticipants int
	Participants    []string
}

// Validate checks if the Activity has valid data.
// PRE: Activity struct is populated
// POST: Returns nil if valid, error otherwise
func (a Activity) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if a.MaxParticipants < 0 {
		return ErrNegativeCapacity
	}
	return nil
}

// SpotsLeft is the remaining capacity. It is negative when over capacity.
// INVARIANT: derived on every call, never stored
func (a Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// IsFull reports whether no spots are left.
func (a Activity) IsFull() bool {
	return a.SpotsLeft() <= 0
}

// HasParticipant reports whether email is in the participant list.
func (a Activity) HasParticipant(email string) bool {
	return slices.Contains(a.Participants, email)
}

// WithParticipant returns a copy with email appended. Duplicates are not checked.
// PRE: none
// POST: len(result.Participants) == len(a.Participants)+1; receiver unchanged
func (a Activity) WithParticipant(email string) Activity {
	out := a
	out.Participants = make([]string, 0, len(a.Participants)+1)
	out.Participants = append(out.Participants, a.Participants...)
	out.Participants = append(out.Participants, email)
	return out
}

// WithoutParticipant returns a copy with every entry matching email removed.
// PRE: none
// POST: result.HasParticipant(email) is false; receiver unchanged
func (a Activity) WithoutParticipant(email string) Activity {
	out := a
	out.Participants = make([]string, 0, len(a.Participants))
	for _, p := range a.Participants {
		if p != email {
			out.Participants = append(out.Participants, p)
		}
	}
	return out
}

// Enroll returns a copy with email added, enforcing the roster rules in order:
// a non-empty email, no duplicate, a free spot.
// POST: on nil error, result.HasParticipant(email); receiver unchanged
func (a Activity) Enroll(email string) (Activity, error) {
	if email == "" {
		return a, ErrEmptyEmail
	}
	if a.HasParticipant(email) {
		return a, ErrAlreadySignedUp
	}
	if a.IsFull() {
		return a, ErrActivityFull
	}
	return a.WithParticipant(email), nil
}

// Withdraw returns a copy without email.
// POST: on nil error, !result.HasParticipant(email)
func (a Activity) Withdraw(email string) (Activity, error) {
	if email == "" {
		return a, ErrEmptyEmail
	}
	if !a.HasParticipant(email) {
		return a, ErrNotSignedUp
	}
	return a.WithoutParticipant(email), nil
}
