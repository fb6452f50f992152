package estimate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/danielpatrickdp/grmpy-go/internal/data"
	"github.com/danielpatrickdp/grmpy-go/internal/model"
)

// #region problem
// problem is the switching regression with endogenous selection:
//
//	Y = Xβ1 + U1 if D = 1,  Y = Xβ0 + U0 if D = 0,  D = 1{Zγ − V > 0}
//
// with V normalised to unit variance. Rows are stored row-major so the
// likelihood loop reads them without allocation.
type problem struct {
	n      int
	layout layout
	x      *mat.Dense // n × kx
	z      *mat.Dense // n × kz
	y      []float64
	d      []float64
}

func newProblem(spec model.Spec, ds *data.Dataset) (*problem, error) {
	x, err := ds.Matrix(spec.Treated.Vars)
	if err != nil {
		return nil, fmt.Errorf("outcome covariates: %w", err)
	}
	z, err := ds.Matrix(spec.Choice.Vars)
	if err != nil {
		return nil, fmt.Errorf("choice covariates: %w", err)
	}
	y, ok := ds.Column(data.ColY)
	if !ok {
		return nil, fmt.Errorf("%w: %q", data.ErrUnknownColumn, data.ColY)
	}
	d, ok := ds.Column(data.ColD)
	if !ok {
		return nil, fmt.Errorf("%w: %q", data.ErrUnknownColumn, data.ColD)
	}
	for i, v := range d {
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("row %d: treatment indicator must be 0 or 1, got %v", i, v)
		}
	}
	return &problem{
		n:      ds.Len(),
		layout: layout{kx: len(spec.Treated.Vars), kz: len(spec.Choice.Vars)},
		x:      x,
		z:      z,
		y:      y,
		d:      d,
	}, nil
}

// #endregion problem

// #region objective
// negLogLike returns the mean negative log-likelihood at theta.
func (p *problem) negLogLike(theta []float64) float64 {
	l := p.layout
	b1 := theta[l.beta1():l.beta0()]
	b0 := theta[l.beta0():l.gamma()]
	g := theta[l.gamma():l.logSig1()]
	r1 := newRegime(theta[l.logSig1()], theta[l.atRho1()])
	r0 := newRegime(theta[l.logSig0()], theta[l.atRho0()])

	var sum float64
	for i := 0; i < p.n; i++ {
		zg := floats.Dot(p.z.RawRowView(i), g)
		xi := p.x.RawRowView(i)
		if p.d[i] == 1 {
			e := (p.y[i] - floats.Dot(xi, b1)) / r1.sigma
			a := (zg - r1.rho*e) / r1.c
			sum += logNormPDF(e) - r1.logSigma + logNormCDF(a)
		} else {
			e := (p.y[i] - floats.Dot(xi, b0)) / r0.sigma
			a := (zg - r0.rho*e) / r0.c
			sum += logNormPDF(e) - r0.logSigma + logNormCDF(-a)
		}
	}
	f := -sum / float64(p.n)
	if math.IsNaN(f) {
		return math.Inf(1)
	}
	return f
}

// gradient writes the analytic gradient of negLogLike at theta into grad.
func (p *problem) gradient(grad, theta []float64) {
	l := p.layout
	b1 := theta[l.beta1():l.beta0()]
	b0 := theta[l.beta0():l.gamma()]
	g := theta[l.gamma():l.logSig1()]
	r1 := newRegime(theta[l.logSig1()], theta[l.atRho1()])
	r0 := newRegime(theta[l.logSig0()], theta[l.atRho0()])

	for j := range grad {
		grad[j] = 0
	}
	gb1 := grad[l.beta1():l.beta0()]
	gb0 := grad[l.beta0():l.gamma()]
	gg := grad[l.gamma():l.logSig1()]

	for i := 0; i < p.n; i++ {
		zi := p.z.RawRowView(i)
		xi := p.x.RawRowView(i)
		zg := floats.Dot(zi, g)
		if p.d[i] == 1 {
			e := (p.y[i] - floats.Dot(xi, b1)) / r1.sigma
			a := (zg - r1.rho*e) / r1.c
			lam := mills(a)
			w := e + lam*r1.rho/r1.c
			floats.AddScaled(gb1, w/r1.sigma, xi)
			floats.AddScaled(gg, lam/r1.c, zi)
			grad[l.logSig1()] += w*e - 1
			grad[l.atRho1()] += lam * (a*r1.rho - e*r1.c)
		} else {
			e := (p.y[i] - floats.Dot(xi, b0)) / r0.sigma
			a := (zg - r0.rho*e) / r0.c
			lam := mills(-a)
			w := e - lam*r0.rho/r0.c
			floats.AddScaled(gb0, w/r0.sigma, xi)
			floats.AddScaled(gg, -lam/r0.c, zi)
			grad[l.logSig0()] += w*e - 1
			grad[l.atRho0()] -= lam * (a*r0.rho - e*r0.c)
		}
	}
	floats.Scale(-1/float64(p.n), grad)
}

// #endregion objective
