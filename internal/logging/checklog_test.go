package logging

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	_, err = db.Exec(`CREATE TABLE check_log (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id        TEXT,
		seed          INTEGER NOT NULL,
		decision      TEXT NOT NULL,
		reason        TEXT,
		metrics_json  TEXT,
		created_at    TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-check-tests
func TestLogCheck_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := CheckEntry{
		RunID:       "run-1",
		Seed:        123,
		Decision:    DecisionPass,
		Reason:      "all checks passed",
		MetricsJSON: `[{"name":"convergence","value":1,"pass":true}]`,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogCheck(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM check_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var runID, decision string
	var seed int64
	db.QueryRow("SELECT run_id, seed, decision FROM check_log").Scan(&runID, &seed, &decision)
	if runID != "run-1" {
		t.Errorf("expected run_id 'run-1', got %q", runID)
	}
	if seed != 123 {
		t.Errorf("expected seed 123, got %d", seed)
	}
	if decision != DecisionPass {
		t.Errorf("expected decision %q, got %q", DecisionPass, decision)
	}
}

func TestLogCheck_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	if err := LogCheck(db, CheckEntry{Seed: 1, Decision: DecisionFail}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM check_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogCheck_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := CheckEntry{Seed: 7, Decision: DecisionFail, CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	if err := LogCheck(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var runID, reason, metrics sql.NullString
	db.QueryRow("SELECT run_id, reason, metrics_json FROM check_log").Scan(&runID, &reason, &metrics)
	if runID.Valid {
		t.Error("expected NULL run_id for empty string")
	}
	if reason.Valid {
		t.Error("expected NULL reason for empty string")
	}
	if metrics.Valid {
		t.Error("expected NULL metrics_json for empty string")
	}
}

func TestLogCheck_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	if err := LogCheck(db, CheckEntry{Seed: 1, Decision: DecisionPass}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-check-tests

// #region null-if-empty-tests
func TestNullIfEmpty_Empty(t *testing.T) {
	if result := nullIfEmpty(""); result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestNullIfEmpty_NonEmpty(t *testing.T) {
	if result := nullIfEmpty("hello"); result != "hello" {
		t.Errorf("expected 'hello', got %v", result)
	}
}

// #endregion null-if-empty-tests
