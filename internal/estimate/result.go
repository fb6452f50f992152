package estimate

import (
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/danielpatrickdp/grmpy-go/internal/model"
)

// #region result
// Result is the record produced by one estimation run.
//
// Success reports that the optimizer stopped on a convergence criterion.
// It says nothing about whether the recovered parameters are close to the
// truth.
type Result struct {
	Success    bool
	Status     string
	Message    string
	Fval       float64 // mean negative log-likelihood at X
	StartFval  float64
	Iterations int
	FuncEvals  int
	GradEvals  int
	Runtime    time.Duration
	X          []float64 // unconstrained parameter vector
	Params     model.Params
}

// AsMap returns the record as a field-name → value mapping. Values are
// JSON-compatible scalars or []any so the map converts to a protobuf Struct.
func (r Result) AsMap() map[string]any {
	x := make([]any, len(r.X))
	for i, v := range r.X {
		x[i] = v
	}
	return map[string]any{
		"success": r.Success,
		"status":  r.Status,
		"message": r.Message,
		"fval":    r.Fval,
		"fval0":   r.StartFval,
		"nit":     r.Iterations,
		"nfev":    r.FuncEvals,
		"njev":    r.GradEvals,
		"runtime": r.Runtime.Seconds(),
		"x":       x,
	}
}

// #endregion result

// #region status
// converged reports whether status is a convergence termination rather
// than a limit or a failure.
func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success,
		optimize.GradientThreshold,
		optimize.FunctionConvergence,
		optimize.FunctionThreshold,
		optimize.MethodConverge:
		return true
	default:
		return false
	}
}

// #endregion status
