package estimate

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/danielpatrickdp/grmpy-go/internal/model"
)

// #region start-values
// startValues returns the initial parameter vector for the optimizer.
func (p *problem) startValues(spec model.Spec) ([]float64, error) {
	switch spec.Estimation.Start {
	case model.StartInit:
		return p.layout.pack(spec.TrueParams()), nil
	case model.StartAuto:
		return p.autoStart()
	default:
		return nil, fmt.Errorf("unknown start %q", spec.Estimation.Start)
	}
}

// autoStart fits each outcome equation by OLS within its regime and the
// choice equation by probit. Selection correlations start at zero.
func (p *problem) autoStart() ([]float64, error) {
	b1, s1, err := p.regimeOLS(1)
	if err != nil {
		return nil, fmt.Errorf("treated OLS: %w", err)
	}
	b0, s0, err := p.regimeOLS(0)
	if err != nil {
		return nil, fmt.Errorf("untreated OLS: %w", err)
	}
	gamma, err := p.probit()
	if err != nil {
		return nil, fmt.Errorf("choice probit: %w", err)
	}
	return p.layout.pack(model.Params{
		Treated:   b1,
		Untreated: b0,
		Choice:    gamma,
		Sigma1:    s1,
		Sigma0:    s0,
	}), nil
}

// #endregion start-values

// #region ols
// regimeOLS regresses Y on X over the rows with D == treated.
func (p *problem) regimeOLS(treated float64) ([]float64, float64, error) {
	kx := p.layout.kx
	var rows []int
	for i, d := range p.d {
		if d == treated {
			rows = append(rows, i)
		}
	}
	if len(rows) <= kx {
		return nil, 0, fmt.Errorf("%d observations for %d coefficients", len(rows), kx)
	}

	x := mat.NewDense(len(rows), kx, nil)
	y := mat.NewVecDense(len(rows), nil)
	for r, i := range rows {
		x.SetRow(r, p.x.RawRowView(i))
		y.SetVec(r, p.y[i])
	}

	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		return nil, 0, fmt.Errorf("least squares: %w", err)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	var resid mat.VecDense
	resid.SubVec(y, &fitted)
	rss := mat.Dot(&resid, &resid)
	sigma := math.Sqrt(rss / float64(len(rows)))
	if !(sigma > 0) {
		sigma = 1
	}

	out := make([]float64, kx)
	for j := range out {
		out[j] = beta.AtVec(j)
	}
	return out, sigma, nil
}

// #endregion ols

// #region probit
// probit fits P(D=1|Z) = Φ(Zγ) by maximum likelihood.
func (p *problem) probit() ([]float64, error) {
	kz := p.layout.kz
	n := float64(p.n)

	prob := optimize.Problem{
		Func: func(g []float64) float64 {
			var sum float64
			for i := 0; i < p.n; i++ {
				idx := floats.Dot(p.z.RawRowView(i), g)
				if p.d[i] == 1 {
					sum += logNormCDF(idx)
				} else {
					sum += logNormCDF(-idx)
				}
			}
			return -sum / n
		},
		Grad: func(grad, g []float64) {
			for j := range grad {
				grad[j] = 0
			}
			for i := 0; i < p.n; i++ {
				zi := p.z.RawRowView(i)
				idx := floats.Dot(zi, g)
				if p.d[i] == 1 {
					floats.AddScaled(grad, mills(idx), zi)
				} else {
					floats.AddScaled(grad, -mills(-idx), zi)
				}
			}
			floats.Scale(-1/n, grad)
		},
	}

	res, err := optimize.Minimize(prob, make([]float64, kz), &optimize.Settings{
		GradientThreshold: 1e-8,
		MajorIterations:   500,
	}, &optimize.BFGS{})
	if res == nil {
		if err == nil {
			err = errors.New("no result")
		}
		return nil, err
	}
	// A stalled line search near the optimum is good enough for a start value.
	if err != nil && !finite(res.X) {
		return nil, err
	}
	return res.X, nil
}

func finite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// #endregion probit
