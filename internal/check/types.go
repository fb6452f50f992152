package check

// #region check-config
// Config holds the reference a result is compared against. Convergence is
// always required.
type Config struct {
	HasReference  bool    // false skips the fval comparison
	ReferenceFval float64 // expected criterion value
	Tolerance     float64 // absolute tolerance on |fval − reference|
}

// DefaultConfig carries no reference value.
func DefaultConfig() Config {
	return Config{Tolerance: 1e-5}
}

// #endregion check-config

// #region check-metric
// Metric captures a single validation check result.
type Metric struct {
	Name          string
	Value         float64
	Pass          bool
	Informational bool // recorded but never fails the run
}

// #endregion check-metric

// #region check-result
// Result is the output of post-estimation validation.
type Result struct {
	Passed  bool
	Metrics []Metric
	Reason  string
}

// Metric returns the named metric, if present.
func (r Result) Metric(name string) (Metric, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// #endregion check-result
