package logging

import "time"

// Check decisions stored in check_log.decision.
const (
	DecisionPass = "pass"
	DecisionFail = "fail"
)

// #region check-entry
// CheckEntry is a single row in the check_log table.
type CheckEntry struct {
	RunID       string
	Seed        uint64
	Decision    string // "pass" | "fail"
	Reason      string
	MetricsJSON string
	CreatedAt   time.Time
}

// #endregion check-entry
