package check

import (
	"math"
	"strings"
	"testing"
)

func referenceConfig() Config {
	c := DefaultConfig()
	c.HasReference = true
	c.ReferenceFval = 0.734631068458
	return c
}

func TestCheckPassesOnConvergedMatch(t *testing.T) {
	h := NewHarness(referenceConfig())
	result := h.Run(true, 0.734631068458+4e-6)

	if !result.Passed {
		t.Fatalf("expected pass, got fail: %s", result.Reason)
	}
	if len(result.Metrics) != 2 {
		t.Fatalf("expected 2 metrics, got %d", len(result.Metrics))
	}
}

func TestCheckFailsOnNonConvergence(t *testing.T) {
	h := NewHarness(referenceConfig())
	result := h.Run(false, 0.734631068458)

	if result.Passed {
		t.Fatal("expected fail when optimizer did not converge")
	}
	m, ok := result.Metric(MetricConvergence)
	if !ok || m.Pass {
		t.Fatalf("expected failing convergence metric, got %+v", m)
	}
	if !strings.Contains(result.Reason, "did not converge") {
		t.Fatalf("unexpected reason: %s", result.Reason)
	}
}

func TestCheckFailsOnDrift(t *testing.T) {
	h := NewHarness(referenceConfig())
	result := h.Run(true, 0.7347)

	if result.Passed {
		t.Fatal("expected fail on fval drift")
	}
	m, _ := result.Metric(MetricFvalDeviation)
	if m.Pass || math.Abs(m.Value-6.8931542e-5) > 1e-9 {
		t.Fatalf("unexpected deviation metric: %+v", m)
	}
}

func TestCheckToleranceIsStrict(t *testing.T) {
	c := referenceConfig()
	c.ReferenceFval = 1
	c.Tolerance = 0.5
	h := NewHarness(c)

	if h.Run(true, 1.5).Passed {
		t.Fatal("deviation equal to tolerance should fail")
	}
	if !h.Run(true, 1.25).Passed {
		t.Fatal("deviation below tolerance should pass")
	}
}

func TestCheckWithoutReferenceIsInformational(t *testing.T) {
	h := NewHarness(DefaultConfig())
	result := h.Run(true, 123.0)

	if !result.Passed {
		t.Fatalf("expected pass without reference: %s", result.Reason)
	}
	m, _ := result.Metric(MetricFvalDeviation)
	if !m.Informational || !math.IsNaN(m.Value) {
		t.Fatalf("expected informational NaN deviation, got %+v", m)
	}
}

func TestCheckBothFailuresCounted(t *testing.T) {
	h := NewHarness(referenceConfig())
	result := h.Run(false, 10)

	if result.Passed {
		t.Fatal("expected fail")
	}
	if !strings.Contains(result.Reason, "2 checks") {
		t.Fatalf("expected both failures in reason, got %s", result.Reason)
	}
}

func TestCheckConvergenceAlwaysRequired(t *testing.T) {
	h := NewHarness(DefaultConfig())
	result := h.Run(false, 1)

	if result.Passed {
		t.Fatal("expected fail without a reference when the optimizer did not converge")
	}
	m, _ := result.Metric(MetricConvergence)
	if m.Informational {
		t.Fatalf("convergence metric must never be informational: %+v", m)
	}
}
