package orchestrators

import (
	"context"
	"log/slog"

	"activityboard/internal/application/board"
	"activityboard/internal/domain/activity"
	"activityboard/internal/domain/notice"
	"activityboard/internal/observability"
)

// RemoveParticipantInput identifies the participant row that was clicked.
type RemoveParticipantInput struct {
	Email    string
	Activity string
}

// RemoveParticipantDeps holds dependencies for RemoveParticipant.
type RemoveParticipantDeps struct {
	API     ActivityAPI
	Board   *board.Board
	Notices NoticeShower
}

// RemoveParticipantResult reports what the removal changed on the page.
type RemoveParticipantResult struct {
	Notice      notice.Notice
	Accepted    bool
	Card        activity.Activity
	CardChanged bool
	Err         error
}

// ExecuteRemoveParticipant asks the API to drop input.Email from
// input.Activity and mirrors an accepted removal onto the board.
// POST: exactly one notice is shown; on acceptance every occurrence of
// input.Email leaves the snapshot; otherwise the board is untouched
func ExecuteRemoveParticipant(ctx context.Context, input RemoveParticipantInput, deps RemoveParticipantDeps) RemoveParticipantResult {
	res, err := deps.API.Remove(ctx, input.Activity, input.Email)
	observability.RecordBoardOperation("remove", outcomeOf(err))
	if err != nil {
		n := deps.Notices.Show(failureNotice(err, notice.TextRemoveFailed))
		slog.Info("remove_event", "activity", input.Activity, "accepted", false, "error", err)
		return RemoveParticipantResult{Notice: n, Err: err}
	}

	out := RemoveParticipantResult{Accepted: true}
	out.Card, out.CardChanged = deps.Board.Patch(input.Activity, func(a activity.Activity) activity.Activity {
		return a.WithoutParticipant(input.Email)
	})
	out.Notice = deps.Notices.Show(notice.Success(res.Message))
	slog.Info("remove_event", "activity", input.Activity, "accepted", true, "card_changed", out.CardChanged)
	return out
}
