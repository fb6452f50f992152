// Package estimate recovers generalized Roy model parameters by maximum
// likelihood.
package estimate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/danielpatrickdp/grmpy-go/internal/data"
	"github.com/danielpatrickdp/grmpy-go/internal/model"
)

// #region options
// Option configures an Estimate call.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger traces optimizer iterations at debug level. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// #endregion options

// #region estimate
// Estimate maximises the likelihood of ds under the model described by spec.
//
// The returned error covers problems that prevent a run (invalid spec,
// missing columns, cancelled context, optimizer breakdown). A run that hits
// its iteration limit returns a Result with Success false and a nil error.
func Estimate(ctx context.Context, spec model.Spec, ds *data.Dataset, opts ...Option) (Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	if err := spec.Validate(); err != nil {
		return Result{}, fmt.Errorf("estimate: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("estimate: %w", err)
	}

	prob, err := newProblem(spec, ds)
	if err != nil {
		return Result{}, fmt.Errorf("estimate: %w", err)
	}
	x0, err := prob.startValues(spec)
	if err != nil {
		return Result{}, fmt.Errorf("estimate: start values: %w", err)
	}
	startFval := prob.negLogLike(x0)

	method, err := newMethod(spec.Estimation.Optimizer)
	if err != nil {
		return Result{}, fmt.Errorf("estimate: %w", err)
	}

	problem := optimize.Problem{
		Func: prob.negLogLike,
		Grad: prob.gradient,
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		GradientThreshold: spec.Estimation.GTol,
		MajorIterations:   spec.Estimation.MaxIter,
		Recorder:          traceRecorder{logger: o.logger},
	}

	o.logger.Debug("estimation started",
		"agents", ds.Len(),
		"start", spec.Estimation.Start,
		"optimizer", spec.Estimation.Optimizer,
		"fval0", startFval,
	)

	started := time.Now()
	res, err := optimize.Minimize(problem, x0, settings, method)
	if res == nil {
		if err == nil {
			err = fmt.Errorf("optimizer returned no result")
		}
		return Result{}, fmt.Errorf("estimate: %w", err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, fmt.Errorf("estimate: %w", ctxErr)
	}

	result := Result{
		Success:    err == nil && converged(res.Status),
		Status:     res.Status.String(),
		Message:    message(res.Status, err),
		Fval:       res.F,
		StartFval:  startFval,
		Iterations: res.Stats.MajorIterations,
		FuncEvals:  res.Stats.FuncEvaluations,
		GradEvals:  res.Stats.GradEvaluations,
		Runtime:    time.Since(started),
		X:          res.X,
		Params:     prob.layout.unpack(res.X),
	}

	o.logger.Info("estimation finished",
		"success", result.Success,
		"status", result.Status,
		"fval", result.Fval,
		"iterations", result.Iterations,
		"runtime", result.Runtime,
	)
	return result, nil
}

func newMethod(name string) (optimize.Method, error) {
	switch name {
	case model.OptimizerBFGS:
		return &optimize.BFGS{}, nil
	case model.OptimizerLBFGS:
		return &optimize.LBFGS{}, nil
	case model.OptimizerNelderMead:
		return &optimize.NelderMead{}, nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", name)
	}
}

func message(status optimize.Status, err error) string {
	if err != nil {
		return err.Error()
	}
	if converged(status) {
		return "optimization terminated successfully"
	}
	return fmt.Sprintf("optimization stopped: %s", status)
}

// #endregion estimate

// #region recorder
// traceRecorder logs each major iteration of the optimizer.
type traceRecorder struct {
	logger *slog.Logger
}

func (r traceRecorder) Init() error { return nil }

func (r traceRecorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if op&optimize.MajorIteration == 0 {
		return nil
	}
	r.logger.Debug("optimizer iteration",
		"iteration", stats.MajorIterations,
		"fval", loc.F,
	)
	return nil
}

// #endregion recorder
