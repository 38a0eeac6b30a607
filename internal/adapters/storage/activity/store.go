package activity

import (
	"context"
	"time"

	domain "activityboard/internal/domain/activity"
)

// Store persists activities and their rosters.
type Store interface {
	GetByName(ctx context.Context, name string) (domain.Activity, error)
	List(ctx context.Context) ([]domain.Activity, error)
	Save(ctx context.Context, value domain.Activity) error
	// Enroll applies domain.Activity.Enroll atomically against the stored roster.
	Enroll(ctx context.Context, name, email string, at time.Time) (domain.Activity, error)
	// Withdraw applies domain.Activity.Withdraw atomically against the stored roster.
	Withdraw(ctx context.Context, name, email string) (domain.Activity, error)
}
