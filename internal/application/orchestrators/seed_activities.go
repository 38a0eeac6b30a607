package orchestrators

import (
	"context"
	"log/slog"

	"activityboard/internal/domain/activity"
)

// ActivityStoreForSeed defines the store interface needed by SeedActivities.
type ActivityStoreForSeed interface {
	Save(ctx context.Context, a activity.Activity) error
	List(ctx context.Context) ([]activity.Activity, error)
}

// SeedActivitiesDeps holds dependencies for SeedActivities.
type SeedActivitiesDeps struct {
	Store ActivityStoreForSeed
}

// DefaultCatalog is the catalog a fresh database starts with.
func DefaultCatalog() []activity.Activity {
	return []activity.Activity{
		{
			Name:            "Chess Club",
			Description:     "Learn strategies and compete in chess tournaments",
			Schedule:        "Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 12,
			Participants:    []string{"michael@mergington.edu", "daniel@mergington.edu"},
		},
		{
			Name:            "Programming Class",
			Description:     "Learn programming fundamentals and build software projects",
			Schedule:        "Tuesdays and Thursdays, 3:30 PM - 4:30 PM",
			MaxParticipants: 20,
			Participants:    []string{"emma@mergington.edu", "sophia@mergington.edu"},
		},
		{
			Name:            "Gym Class",
			Description:     "Physical education and sports activities",
			Schedule:        "Mondays, Wednesdays, Fridays, 2:00 PM - 3:00 PM",
			MaxParticipants: 30,
			Participants:    []string{"john@mergington.edu", "olivia@mergington.edu"},
		},
		{
			Name:            "Soccer Team",
			Description:     "Join the school soccer team and compete in matches",
			Schedule:        "Tuesdays and Thursdays, 4:00 PM - 5:30 PM",
			MaxParticipants: 22,
			Participants:    []string{"liam@mergington.edu", "noah@mergington.edu"},
		},
		{
			Name:            "Basketball Team",
			Description:     "Practice and play basketball with the school team",
			Schedule:        "Wednesdays and Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 15,
			Participants:    []string{"ava@mergington.edu", "mia@mergington.edu"},
		},
		{
			Name:            "Tennis Club",
			Description:     "Learn tennis techniques and play friendly matches",
			Schedule:        "Saturdays, 10:00 AM - 12:00 PM",
			MaxParticipants: 16,
			Participants:    []string{"alexander@mergington.edu"},
		},
		{
			Name:            "Art Studio",
			Description:     "Express creativity through painting, drawing and sculpture",
			Schedule:        "Thursdays, 3:30 PM - 5:00 PM",
			MaxParticipants: 15,
			Participants:    []string{"amelia@mergington.edu", "harper@mergington.edu"},
		},
		{
			Name:            "Drama Club",
			Description:     "Act, direct and produce plays and performances",
			Schedule:        "Mondays and Wednesdays, 4:00 PM - 5:30 PM",
			MaxParticipants: 20,
			Participants:    []string{"ella@mergington.edu", "scarlett@mergington.edu"},
		},
		{
			Name:            "Debate Team",
			Description:     "Develop public speaking and argumentation skills",
			Schedule:        "Tuesdays, 3:30 PM - 5:00 PM",
			MaxParticipants: 12,
			Participants:    []string{"james@mergington.edu", "benjamin@mergington.edu"},
		},
		{
			Name:            "Science Olympiad",
			Description:     "Prepare for science competitions and conduct experiments",
			Schedule:        "Fridays, 2:00 PM - 4:00 PM",
			MaxParticipants: 18,
			Participants:    []string{"charlotte@mergington.edu", "henry@mergington.edu"},
		},
	}
}

// ExecuteSeedActivities stores DefaultCatalog if no activity exists.
// POST: the catalog is non-empty, existing data is never overwritten
func ExecuteSeedActivities(ctx context.Context, deps SeedActivitiesDeps) error {
	existing, err := deps.Store.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil // Already seeded
	}
	catalog := DefaultCatalog()
	for _, a := range catalog {
		if err := a.Validate(); err != nil {
			return err
		}
		if err := deps.Store.Save(ctx, a); err != nil {
			return err
		}
	}
	slog.Info("activities_seeded", "count", len(catalog))
	return nil
}
