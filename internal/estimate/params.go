package estimate

import (
	"math"
	"slices"

	"github.com/danielpatrickdp/grmpy-go/internal/model"
)

// rhoBound caps |atanh ρ| so the selection terms stay finite.
const rhoBound = 15.0

// #region layout
// layout describes the unconstrained parameter vector
//
//	[β1 (kx) | β0 (kx) | γ (kz) | log σ1 | log σ0 | atanh ρ1V | atanh ρ0V]
type layout struct {
	kx, kz int
}

func (l layout) size() int    { return 2*l.kx + l.kz + 4 }
func (l layout) beta1() int   { return 0 }
func (l layout) beta0() int   { return l.kx }
func (l layout) gamma() int   { return 2 * l.kx }
func (l layout) logSig1() int { return 2*l.kx + l.kz }
func (l layout) logSig0() int { return 2*l.kx + l.kz + 1 }
func (l layout) atRho1() int  { return 2*l.kx + l.kz + 2 }
func (l layout) atRho0() int  { return 2*l.kx + l.kz + 3 }

// pack maps natural-scale parameters to the optimizer's vector.
func (l layout) pack(p model.Params) []float64 {
	x := make([]float64, 0, l.size())
	x = append(x, p.Treated...)
	x = append(x, p.Untreated...)
	x = append(x, p.Choice...)
	x = append(x,
		math.Log(p.Sigma1),
		math.Log(p.Sigma0),
		math.Atanh(clampRho(p.Rho1V)),
		math.Atanh(clampRho(p.Rho0V)),
	)
	return x
}

// unpack maps the optimizer's vector back to natural-scale parameters.
func (l layout) unpack(x []float64) model.Params {
	return model.Params{
		Treated:   slices.Clone(x[l.beta1():l.beta0()]),
		Untreated: slices.Clone(x[l.beta0():l.gamma()]),
		Choice:    slices.Clone(x[l.gamma():l.logSig1()]),
		Sigma1:    math.Exp(x[l.logSig1()]),
		Sigma0:    math.Exp(x[l.logSig0()]),
		Rho1V:     math.Tanh(x[l.atRho1()]),
		Rho0V:     math.Tanh(x[l.atRho0()]),
	}
}

func clampRho(r float64) float64 {
	limit := math.Tanh(rhoBound)
	return math.Max(-limit, math.Min(limit, r))
}

// #endregion layout

// #region evaluated
// regime holds the scale terms of one outcome equation at a parameter point.
type regime struct {
	logSigma float64
	sigma    float64
	rho      float64
	c        float64 // sqrt(1-ρ²)
}

func newRegime(logSigma, atRho float64) regime {
	r := math.Max(-rhoBound, math.Min(rhoBound, atRho))
	return regime{
		logSigma: logSigma,
		sigma:    math.Exp(logSigma),
		rho:      math.Tanh(r),
		c:        1 / math.Cosh(r),
	}
}

// #endregion evaluated
