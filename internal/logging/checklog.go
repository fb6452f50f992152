package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-check
// LogCheck writes a check outcome to the check_log table.
//
// Seeds are stored as SQLite INTEGER, so values above MaxInt64 wrap; the
// random-spec generator never produces them.
func LogCheck(db *sql.DB, entry CheckEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO check_log (run_id, seed, decision, reason, metrics_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		nullIfEmpty(entry.RunID),
		int64(entry.Seed),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		nullIfEmpty(entry.MetricsJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log check: %w", err)
	}
	return nil
}

// #endregion log-check

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
