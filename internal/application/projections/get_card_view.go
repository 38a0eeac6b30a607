package projections

import (
	"fmt"
	"net/url"

	"activityboard/internal/application/board"
	"activityboard/internal/domain/activity"
	"activityboard/internal/domain/notice"

	"github.com/google/uuid"
)

// cardNamespace scopes the name-based UUIDs used as card element IDs.
var cardNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("activityboard/card"))

// ParticipantRow is one participant line with its removal control.
type ParticipantRow struct {
	Email        string
	ActivityName string
	// RemoveURL targets the board's removal route for this row.
	RemoveURL string
}

// CardView is everything the card template needs for one activity.
type CardView struct {
	ID               string
	Name             string
	Description      string
	Schedule         string
	SpotsLeft        int
	AvailabilityLine string
	Participants     []ParticipantRow
}

// QueryCardView maps an activity snapshot to its card.
// INVARIANT: pure; equal snapshots give equal views
// POST: one row per participant, in snapshot order, duplicates kept
func QueryCardView(a activity.Activity) CardView {
	spots := a.SpotsLeft()
	view := CardView{
		ID:               CardID(a.Name),
		Name:             a.Name,
		Description:      a.Description,
		Schedule:         a.Schedule,
		SpotsLeft:        spots,
		AvailabilityLine: fmt.Sprintf("Availability: %d spots left", spots),
		Participants:     make([]ParticipantRow, 0, len(a.Participants)),
	}
	for _, email := range a.Participants {
		view.Participants = append(view.Participants, ParticipantRow{
			Email:        email,
			ActivityName: a.Name,
			RemoveURL:    RemoveURL(a.Name, email),
		})
	}
	return view
}

// CardID is the stable element ID of the card for name.
func CardID(name string) string {
	return "card-" + uuid.NewSHA1(cardNamespace, []byte(name)).String()
}

// RemoveURL is the board route that removes email from name.
func RemoveURL(name, email string) string {
	return "/activities/" + url.PathEscape(name) + "/remove?" + url.Values{"email": {email}}.Encode()
}

// BoardView is the whole page: cards, select options and the load outcome.
type BoardView struct {
	Status board.Status
	// LoadError is set when the loader failed.
	LoadError string
	Cards     []CardView
	// Options lists activity names for the signup select, in load order.
	Options []string
}

// QueryBoardView renders every snapshot on b.
// PRE: b is non-nil
// POST: len(Cards) == len(Options); both follow load order
func QueryBoardView(b *board.Board) BoardView {
	view := BoardView{Status: b.Status()}
	if view.Status == board.StatusFailed {
		view.LoadError = notice.TextLoadFailed
	}
	for _, a := range b.List() {
		view.Cards = append(view.Cards, QueryCardView(a))
		view.Options = append(view.Options, a.Name)
	}
	return view
}
