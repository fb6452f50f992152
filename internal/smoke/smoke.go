// Package smoke reproduces one seeded estimation run end to end and checks
// that the optimizer converged to the recorded criterion value.
package smoke

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/danielpatrickdp/grmpy-go/internal/check"
	"github.com/danielpatrickdp/grmpy-go/internal/data"
	"github.com/danielpatrickdp/grmpy-go/internal/estimate"
	"github.com/danielpatrickdp/grmpy-go/internal/model"
	"github.com/danielpatrickdp/grmpy-go/internal/simulate"
)

var (
	// ErrNotConverged means the optimizer stopped without meeting a convergence criterion.
	ErrNotConverged = errors.New("estimation did not converge")
	// ErrNumericDrift means fval moved away from the recorded reference.
	ErrNumericDrift = errors.New("fval drifted from reference")
)

// #region types
// Pipeline holds the collaborators of a run. Tests substitute them.
type Pipeline struct {
	RandomSpec func(rng *rand.Rand) model.Spec
	Simulate   func(spec model.Spec, rng *rand.Rand) (*data.Dataset, error)
	Estimate   func(ctx context.Context, spec model.Spec, ds *data.Dataset) (estimate.Result, error)
}

// DefaultPipeline wires the real spec generator, simulator and estimator.
func DefaultPipeline(logger *slog.Logger) Pipeline {
	return Pipeline{
		RandomSpec: model.RandomSpec,
		Simulate:   simulate.Simulate,
		Estimate: func(ctx context.Context, spec model.Spec, ds *data.Dataset) (estimate.Result, error) {
			return estimate.Estimate(ctx, spec, ds, estimate.WithLogger(logger))
		},
	}
}

// Config controls a smoke run.
type Config struct {
	Seed    uint64
	Fixture Fixture
	Out     io.Writer // receives the fval line
	Logger  *slog.Logger
}

// DefaultConfig runs seed 123 against the built-in fixture.
func DefaultConfig(out io.Writer) Config {
	return Config{
		Seed:    DefaultSeed,
		Fixture: DefaultFixture(),
		Out:     out,
	}
}

// Report captures everything one run produced.
type Report struct {
	Seed    uint64
	Spec    model.Spec
	Dataset *data.Dataset
	Result  estimate.Result
	Check   check.Result
}

// #endregion types

// #region run
// Run seeds a random source, draws a spec, simulates, estimates with the
// same spec, prints fval to cfg.Out, and checks the result.
//
// The report is returned even when a check fails. A failed check yields
// ErrNotConverged or ErrNumericDrift; convergence is checked before fval is
// printed, so a run that did not converge prints nothing.
func Run(ctx context.Context, cfg Config, p Pipeline) (Report, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}

	rng := model.NewRand(cfg.Seed)
	report := Report{Seed: cfg.Seed}

	// 1. Spec
	report.Spec = p.RandomSpec(rng)
	logger.Debug("spec generated",
		"seed", cfg.Seed,
		"agents", report.Spec.Simulation.Agents,
		"start", report.Spec.Estimation.Start,
		"optimizer", report.Spec.Estimation.Optimizer,
	)

	// 2. Simulate
	ds, err := p.Simulate(report.Spec, rng)
	if err != nil {
		return report, fmt.Errorf("simulate: %w", err)
	}
	report.Dataset = ds

	// 3. Estimate with the same spec
	res, err := p.Estimate(ctx, report.Spec, ds)
	if err != nil {
		return report, fmt.Errorf("estimate: %w", err)
	}
	report.Result = res

	// 4. Check
	harness := check.NewHarness(cfg.Fixture.CheckConfig(cfg.Seed))
	report.Check = harness.Run(res.Success, res.Fval)

	if conv, _ := report.Check.Metric(check.MetricConvergence); !conv.Pass {
		logger.Error("smoke run failed", "reason", report.Check.Reason, "status", res.Status)
		return report, fmt.Errorf("%w: status %s: %s", ErrNotConverged, res.Status, res.Message)
	}

	fmt.Fprintln(out, res.Fval)

	if dev, _ := report.Check.Metric(check.MetricFvalDeviation); !dev.Pass {
		logger.Error("smoke run failed", "reason", report.Check.Reason)
		return report, fmt.Errorf("%w: %s", ErrNumericDrift, report.Check.Reason)
	}

	logger.Info("smoke run passed",
		"seed", cfg.Seed,
		"fval", res.Fval,
		"reference_checked", !isInformational(report.Check),
	)
	return report, nil
}

func isInformational(r check.Result) bool {
	m, ok := r.Metric(check.MetricFvalDeviation)
	return !ok || m.Informational
}

// #endregion run

// #region record
// Record turns a converged report into a fixture pinning its fval.
func Record(report Report, tolerance float64) (Fixture, error) {
	if !report.Result.Success {
		return Fixture{}, fmt.Errorf("record: %w", ErrNotConverged)
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return Fixture{
		Description: fmt.Sprintf("reference estimation run for seed %d", report.Seed),
		Seed:        report.Seed,
		Fval:        report.Result.Fval,
		Tolerance:   tolerance,
	}, nil
}

// #endregion record
