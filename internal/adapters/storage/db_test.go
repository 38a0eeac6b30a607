package storage

import (
	"database/sql"
	"sort"
	"testing"

	_ "modernc.org/sqlite"
)

// openTestDB creates an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// getTableNames returns sorted table names from sqlite_master, excluding internal tables.
func getTableNames(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan table name: %v", err)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TestInitDB_Fresh verifies all migrations apply cleanly to an empty database.
func TestInitDB_Fresh(t *testing.T) {
	db := openTestDB(t)

	if err := InitDB(db); err != nil {
		t.Fatalf("InitDB failed on fresh db: %v", err)
	}

	version, err := SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != LatestSchemaVersion() {
		t.Errorf("version = %d, want %d", version, LatestSchemaVersion())
	}

	want := []string{"activity", "participant", "schema_version"}
	got := getTableNames(t, db)
	if len(got) != len(want) {
		t.Fatalf("got tables %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("table[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestMigrateDB_Idempotent verifies that running MigrateDB twice keeps the version.
func TestMigrateDB_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := InitDB(db); err != nil {
		t.Fatalf("first InitDB failed: %v", err)
	}
	v1, _ := SchemaVersion(db)
	if err := MigrateDB(db); err != nil {
		t.Fatalf("second MigrateDB failed: %v", err)
	}
	v2, _ := SchemaVersion(db)
	if v1 != v2 {
		t.Errorf("version changed after idempotent run: %d -> %d", v1, v2)
	}
}

// TestMigrateDB_DataSurvival verifies rows inserted at the baseline survive later steps.
func TestMigrateDB_DataSurvival(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Exec(`CREATE TABLE schema_version (version INTEGER PRIMARY KEY, description TEXT NOT NULL, applied_at TEXT NOT NULL DEFAULT '')`); err != nil {
		t.Fatalf("create schema_version: %v", err)
	}
	tx, _ := db.Begin()
	if err := migrateBaseline(tx); err != nil {
		t.Fatalf("baseline: %v", err)
	}
	tx.Exec(`INSERT INTO schema_version (version, description) VALUES (1, 'baseline')`)
	tx.Exec(`INSERT INTO activity (name, max_participants, position) VALUES ('Chess Club', 12, 1)`)
	tx.Exec(`INSERT INTO participant (activity_name, email, position) VALUES ('Chess Club', 'michael@mergington.edu', 1)`)
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := MigrateDB(db); err != nil {
		t.Fatalf("MigrateDB failed: %v", err)
	}

	var email, signedUpAt string
	if err := db.QueryRow(`SELECT email, signed_up_at FROM participant WHERE activity_name = 'Chess Club'`).Scan(&email, &signedUpAt); err != nil {
		t.Fatalf("participant lost: %v", err)
	}
	if email != "michael@mergington.edu" || signedUpAt != "" {
		t.Errorf("unexpected row: %q %q", email, signedUpAt)
	}
}
