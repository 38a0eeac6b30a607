package orchestrators

import (
	"context"
	"log/slog"

	"activityboard/internal/application/board"
	"activityboard/internal/observability"
)

// LoadBoardDeps holds dependencies for LoadBoard.
type LoadBoardDeps struct {
	API   ActivityAPI
	Board *board.Board
}

// ExecuteLoadBoard fetches the full catalog once and replaces the board with it.
// PRE: deps.API and deps.Board are set
// POST: on success the board is loaded in server order; on failure it is marked
// failed, left empty and the error is returned. No retry is attempted.
func ExecuteLoadBoard(ctx context.Context, deps LoadBoardDeps) error {
	list, err := deps.API.ListActivities(ctx)
	observability.RecordBoardOperation("load", outcomeOf(err))
	if err != nil {
		deps.Board.MarkFailed()
		slog.Warn("board_load_failed", "error", err)
		return err
	}
	deps.Board.Reset(list)
	slog.Info("board_loaded", "activities", len(list))
	return nil
}
