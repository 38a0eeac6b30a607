package orchestrators

import (
	"context"
	"log/slog"

	"activityboard/internal/application/board"
	"activityboard/internal/domain/activity"
	"activityboard/internal/domain/notice"
	"activityboard/internal/observability"
)

// SignupInput carries the submitted signup form.
type SignupInput struct {
	Email    string
	Activity string
}

// SignupDeps holds dependencies for Signup.
type SignupDeps struct {
	API     ActivityAPI
	Board   *board.Board
	Notices NoticeShower
}

// SignupResult reports what the signup changed on the page.
type SignupResult struct {
	Notice notice.Notice
	// Accepted is true when the API confirmed the signup; the form is reset.
	Accepted bool
	// Card is the patched snapshot, valid when CardChanged is true.
	Card        activity.Activity
	CardChanged bool
	Err         error
}

// ExecuteSignup asks the API to sign input.Email up for input.Activity and
// mirrors an accepted signup onto the board.
// PRE: no client-side validation; empty values are forwarded as-is
// POST: exactly one notice is shown; the board changes only when Accepted and
// the activity is on the board, by appending input.Email to its participants
func ExecuteSignup(ctx context.Context, input SignupInput, deps SignupDeps) SignupResult {
	res, err := deps.API.Signup(ctx, input.Activity, input.Email)
	observability.RecordBoardOperation("signup", outcomeOf(err))
	if err != nil {
		n := deps.Notices.Show(failureNotice(err, notice.TextSignupFailed))
		slog.Info("signup_event", "activity", input.Activity, "accepted", false, "error", err)
		return SignupResult{Notice: n, Err: err}
	}

	out := SignupResult{Accepted: true}
	out.Card, out.CardChanged = deps.Board.Patch(input.Activity, func(a activity.Activity) activity.Activity {
		return a.WithParticipant(input.Email)
	})
	out.Notice = deps.Notices.Show(notice.Success(res.Message))
	slog.Info("signup_event", "activity", input.Activity, "accepted", true, "card_changed", out.CardChanged)
	return out
}
