package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"activityboard/internal/adapters/http/perf"
)

func openTimedTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := openTestDB(t)
	if _, err := db.Exec("CREATE TABLE activity (name TEXT PRIMARY KEY, max_participants INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// TestTimedDB_RecordsEveryStatement verifies each call lands in the collector under its label.
func TestTimedDB_RecordsEveryStatement(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector, time.Second)
	ctx := context.Background()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO activity (name, max_participants) VALUES (?, ?)", "Chess Club", 12); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	var max int
	if err := tdb.QueryRowContext(ctx, "SELECT max_participants FROM activity WHERE name = ?", "Chess Club").Scan(&max); err != nil {
		t.Fatalf("QueryRowContext: %v", err)
	}
	if max != 12 {
		t.Errorf("max = %d, want 12", max)
	}
	rows, err := tdb.QueryContext(ctx, "SELECT name FROM activity")
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	rows.Close()

	if collector.TotalRecorded() != 3 {
		t.Errorf("TotalRecorded = %d, want 3", collector.TotalRecorded())
	}
	snap := collector.Snapshot(time.Time{}, 10)
	labels := map[string]int{}
	for _, s := range snap.SlowestQueries {
		labels[s.Path] = s.Count
	}
	if labels["INSERT activity"] != 1 || labels["SELECT activity"] != 2 {
		t.Errorf("unexpected labels: %v", labels)
	}
}

// TestTimedDB_ErrorPassthrough verifies SQL errors are returned unchanged and still timed.
func TestTimedDB_ErrorPassthrough(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)

	if _, err := tdb.ExecContext(context.Background(), "INSERT INTO nonexistent_table VALUES (?)", 1); err == nil {
		t.Fatal("expected error from invalid SQL, got nil")
	}
	var name string
	err := tdb.QueryRowContext(context.Background(), "SELECT name FROM activity WHERE name = ?", "none").Scan(&name)
	if err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
	if collector.TotalRecorded() != 2 {
		t.Errorf("TotalRecorded = %d, want 2", collector.TotalRecorded())
	}
}

// TestTimedDB_CancelledContext verifies a cancelled context errors and is still timed.
func TestTimedDB_CancelledContext(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO activity (name, max_participants) VALUES (?, ?)", "x", 1); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
	if collector.TotalRecorded() != 1 {
		t.Errorf("TotalRecorded = %d, want 1", collector.TotalRecorded())
	}
}

// TestTimedDB_NilCollector verifies TimedDB works without a collector.
func TestTimedDB_NilCollector(t *testing.T) {
	tdb := NewTimedDB(openTimedTestDB(t), nil, 0)
	if _, err := tdb.ExecContext(context.Background(), "INSERT INTO activity (name, max_participants) VALUES (?, ?)", "x", 1); err != nil {
		t.Fatalf("ExecContext with nil collector: %v", err)
	}
}

// TestQueryLabel covers the statement shapes the store issues.
func TestQueryLabel(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"SELECT name FROM activity ORDER BY position", "SELECT activity"},
		{"  select email from participant where activity_name = ?", "SELECT participant"},
		{"INSERT INTO participant(activity_name, email) VALUES (?, ?)", "INSERT participant"},
		{"DELETE FROM participant WHERE email = ?", "DELETE participant"},
		{"UPDATE activity SET schedule = ?", "UPDATE activity"},
		{"PRAGMA foreign_keys=ON", "PRAGMA"},
		{"", "EMPTY"},
	}
	for _, tt := range tests {
		if got := queryLabel(tt.query); got != tt.want {
			t.Errorf("queryLabel(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}
