package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"activityboard/internal/adapters/storage"
	domain "activityboard/internal/domain/activity"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// querier is satisfied by both storage.SQLDB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetByName retrieves an activity with its roster.
// PRE: name is non-empty
// POST: Returns the activity or domain.ErrActivityNotFound
func (s *SQLiteStore) GetByName(ctx context.Context, name string) (domain.Activity, error) {
	return getByName(ctx, s.db, name)
}

func getByName(ctx context.Context, q querier, name string) (domain.Activity, error) {
	var a domain.Activity
	err := q.QueryRowContext(ctx,
		`SELECT name, description, schedule, max_participants FROM activity WHERE name = ?`, name).
		Scan(&a.Name, &a.Description, &a.Schedule, &a.MaxParticipants)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	if err != nil {
		return domain.Activity{}, fmt.Errorf("get activity %q: %w", name, err)
	}
	a.Participants, err = participants(ctx, q, name)
	if err != nil {
		return domain.Activity{}, err
	}
	return a, nil
}

func participants(ctx context.Context, q querier, name string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT email FROM participant WHERE activity_name = ? ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("list participants of %q: %w", name, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		out = append(out, email)
	}
	return out, rows.Err()
}

// List returns every activity in catalog order, each with its roster.
// POST: Participants is never nil
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Activity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, description, schedule, max_participants FROM activity ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	var list []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.Name, &a.Description, &a.Schedule, &a.MaxParticipants); err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rosters are read after the cursor is closed so a single connection suffices.
	for i := range list {
		if list[i].Participants, err = participants(ctx, s.db, list[i].Name); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// Save inserts or updates an activity and replaces its roster.
// PRE: value has been validated
// POST: a new activity is appended to the catalog order; an existing one keeps its place
func (s *SQLiteStore) Save(ctx context.Context, value domain.Activity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO activity (name, description, schedule, max_participants, position)
		 VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM activity))
		 ON CONFLICT(name) DO UPDATE SET
		   description=excluded.description, schedule=excluded.schedule,
		   max_participants=excluded.max_participants`,
		value.Name, value.Description, value.Schedule, value.MaxParticipants); err != nil {
		return fmt.Errorf("save activity %q: %w", value.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM participant WHERE activity_name = ?`, value.Name); err != nil {
		return err
	}
	for i, email := range value.Participants {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO participant (activity_name, email, position) VALUES (?, ?, ?)`,
			value.Name, email, i+1); err != nil {
			return fmt.Errorf("save participant %q: %w", email, err)
		}
	}
	return tx.Commit()
}

// Enroll adds email to the roster of name inside one transaction.
// POST: Returns the updated activity, or one of domain.ErrActivityNotFound,
// domain.ErrAlreadySignedUp, domain.ErrActivityFull, domain.ErrEmptyEmail
func (s *SQLiteStore) Enroll(ctx context.Context, name, email string, at time.Time) (domain.Activity, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Activity{}, err
	}
	defer tx.Rollback()

	current, err := getByName(ctx, tx, name)
	if err != nil {
		return domain.Activity{}, err
	}
	updated, err := current.Enroll(email)
	if err != nil {
		return domain.Activity{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO participant (activity_name, email, position, signed_up_at)
		 VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM participant WHERE activity_name = ?), ?)`,
		name, email, name, at.UTC().Format(timeLayout)); err != nil {
		return domain.Activity{}, fmt.Errorf("enroll %q in %q: %w", email, name, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Activity{}, err
	}
	return updated, nil
}

// Withdraw removes email from the roster of name inside one transaction.
// POST: Returns the updated activity, or domain.ErrActivityNotFound, domain.ErrNotSignedUp
func (s *SQLiteStore) Withdraw(ctx context.Context, name, email string) (domain.Activity, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Activity{}, err
	}
	defer tx.Rollback()

	current, err := getByName(ctx, tx, name)
	if err != nil {
		return domain.Activity{}, err
	}
	updated, err := current.Withdraw(email)
	if err != nil {
		return domain.Activity{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM participant WHERE activity_name = ? AND email = ?`, name, email); err != nil {
		return domain.Activity{}, fmt.Errorf("withdraw %q from %q: %w", email, name, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Activity{}, err
	}
	return updated, nil
}
