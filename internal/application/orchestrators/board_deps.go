package orchestrators

import (
	"context"
	"errors"

	"activityboard/internal/adapters/activityapi"
	"activityboard/internal/domain/activity"
	"activityboard/internal/domain/notice"
	"activityboard/internal/observability"
)

// ActivityAPI defines the Activities API calls the board makes.
type ActivityAPI interface {
	ListActivities(ctx context.Context) ([]activity.Activity, error)
	Signup(ctx context.Context, name, email string) (activityapi.Result, error)
	Remove(ctx context.Context, name, email string) (activityapi.Result, error)
}

// NoticeShower is the notice area as seen by the signup and removal flows.
type NoticeShower interface {
	Show(n notice.Notice) notice.Notice
}

// failureNotice maps a failed mutation to the notice the user sees:
// the server's detail (or the fallback) when the server answered, the fixed
// transport text when it did not.
func failureNotice(err error, transportText string) notice.Notice {
	var apiErr *activityapi.APIError
	if errors.As(err, &apiErr) {
		return notice.Error(apiErr.Detail)
	}
	return notice.Notice{Kind: notice.KindError, Text: transportText}
}

// outcomeOf classifies err for metrics.
func outcomeOf(err error) string {
	var apiErr *activityapi.APIError
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.As(err, &apiErr):
		return observability.OutcomeRejected
	default:
		return observability.OutcomeTransportError
	}
}
