// Package simulate draws synthetic samples from a generalized Roy model.
package simulate

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/danielpatrickdp/grmpy-go/internal/data"
	"github.com/danielpatrickdp/grmpy-go/internal/model"
)

// #region simulate
// Simulate draws spec.Simulation.Agents observations using rng.
//
// Covariates other than the intercept are standard normal and drawn column
// by column; the unobservables (U1, U0, V) are then drawn row by row from
// N(0, Σ). An agent takes up treatment when Zγ − V > 0, and the observed
// outcome is Y1 for the treated and Y0 otherwise.
func Simulate(spec model.Spec, rng *rand.Rand) (*data.Dataset, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	n := spec.Simulation.Agents
	covs := spec.Covariates()

	columns := make(map[string][]float64, len(covs))
	std := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}
	for _, name := range covs {
		col := make([]float64, n)
		for i := range col {
			if name == model.ConstName {
				col[i] = 1
			} else {
				col[i] = std.Rand()
			}
		}
		columns[name] = col
	}

	errs, ok := distmv.NewNormal([]float64{0, 0, 0}, spec.Covariance(), rng)
	if !ok {
		return nil, fmt.Errorf("simulate: covariance is not positive definite")
	}

	u1 := make([]float64, n)
	u0 := make([]float64, n)
	v := make([]float64, n)
	draw := make([]float64, 3)
	for i := 0; i < n; i++ {
		errs.Rand(draw)
		u1[i], u0[i], v[i] = draw[0], draw[1], draw[2]
	}

	y1 := index(spec.Treated, columns, n)
	y0 := index(spec.Untreated, columns, n)
	zg := index(spec.Choice, columns, n)

	y := make([]float64, n)
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		y1[i] += u1[i]
		y0[i] += u0[i]
		if zg[i]-v[i] > 0 {
			d[i] = 1
			y[i] = y1[i]
		} else {
			y[i] = y0[i]
		}
	}

	names := slices.Concat(covs, []string{data.ColY, data.ColD, data.ColY1, data.ColY0, data.ColU1, data.ColU0, data.ColV})
	cols := make([][]float64, 0, len(names))
	for _, name := range covs {
		cols = append(cols, columns[name])
	}
	cols = append(cols, y, d, y1, y0, u1, u0, v)

	ds, err := data.New(names, cols)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	return ds, nil
}

// index evaluates the linear index of eq for every row.
func index(eq model.EquationSpec, columns map[string][]float64, n int) []float64 {
	out := make([]float64, n)
	for j, name := range eq.Vars {
		col := columns[name]
		c := eq.Coeff[j]
		for i := range out {
			out[i] += c * col[i]
		}
	}
	return out
}

// #endregion simulate

// #region summary
// Summary reports simple sample moments, logged after a simulation.
type Summary struct {
	Agents       int
	TreatedShare float64
	MeanY        float64
	MeanY1       float64
	MeanY0       float64
}

// Summarize computes a Summary from a simulated dataset.
func Summarize(ds *data.Dataset) Summary {
	s := Summary{Agents: ds.Len()}
	if s.Agents == 0 {
		return s
	}
	mean := func(name string) float64 {
		col, ok := ds.Column(name)
		if !ok {
			return 0
		}
		return stat.Mean(col, nil)
	}
	s.TreatedShare = mean(data.ColD)
	s.MeanY = mean(data.ColY)
	s.MeanY1 = mean(data.ColY1)
	s.MeanY0 = mean(data.ColY0)
	return s
}

// #endregion summary
