// Package check validates an estimation result against convergence and a
// recorded reference criterion value.
package check

import (
	"fmt"
	"math"
)

// Metric names.
const (
	MetricConvergence   = "convergence"
	MetricFvalDeviation = "fval_deviation"
)

// #region harness
// Harness runs post-estimation validation.
type Harness struct {
	config Config
}

// NewHarness creates a harness with the given configuration.
func NewHarness(config Config) *Harness {
	return &Harness{config: config}
}

// Run checks one result. Convergence is checked first; the fval deviation
// is informational when the harness carries no reference.
func (h *Harness) Run(success bool, fval float64) Result {
	var metrics []Metric
	var failReasons []string

	// 1. Convergence
	convValue := 0.0
	if success {
		convValue = 1
	}
	metrics = append(metrics, Metric{
		Name:  MetricConvergence,
		Value: convValue,
		Pass:  success,
	})
	if !success {
		failReasons = append(failReasons, "optimizer did not converge")
	}

	// 2. Distance to the reference criterion value
	dev := math.NaN()
	devPass := true
	if h.config.HasReference {
		dev = math.Abs(fval - h.config.ReferenceFval)
		devPass = dev < h.config.Tolerance
	}
	metrics = append(metrics, Metric{
		Name:          MetricFvalDeviation,
		Value:         dev,
		Pass:          devPass,
		Informational: !h.config.HasReference,
	})
	if !devPass {
		failReasons = append(failReasons, fmt.Sprintf("fval %.12f deviates from reference %.12f by %.3g (tolerance %.3g)",
			fval, h.config.ReferenceFval, dev, h.config.Tolerance))
	}

	reason := "all checks passed"
	switch len(failReasons) {
	case 0:
	case 1:
		reason = fmt.Sprintf("check failed: %s", failReasons[0])
	default:
		reason = fmt.Sprintf("check failed: %d checks: %s", len(failReasons), failReasons[0])
	}

	return Result{
		Passed:  len(failReasons) == 0,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion harness
