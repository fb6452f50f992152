package model

import (
	"fmt"
	"math/rand/v2"
)

// seedStream selects the PCG stream so a seed maps to a single sequence.
const seedStream = 0x6a09e667f3bcc909

// NewRand returns a deterministic random source for seed. Spec generation
// and simulation draw from the handle they are given, never from a global.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seedStream))
}

// #region random-spec
// RandomSpec draws a valid spec from rng. The same rng state always yields
// the same spec.
//
// Outcome and choice equations get one to three covariates each in
// addition to the intercept, with distinct names so the choice equation
// carries exclusion restrictions. σV is fixed at one and ρ10 is set to
// ρ1V·ρ0V, which keeps the covariance positive definite.
func RandomSpec(rng *rand.Rand) Spec {
	nx := 1 + rng.IntN(3)
	nz := 1 + rng.IntN(3)

	xvars := covariateNames("x", nx)
	zvars := covariateNames("z", nz)

	sigma1 := 0.5 + rng.Float64()
	sigma0 := 0.5 + rng.Float64()
	rho1 := rng.Float64() - 0.5
	rho0 := rng.Float64() - 0.5
	rho10 := rho1 * rho0

	spec := Spec{
		Simulation: SimulationSpec{
			Agents: 1000 + rng.IntN(1001),
			Seed:   rng.Uint64N(1 << 31),
			Source: DefaultSource,
		},
		Estimation: EstimationSpec{
			Start:     []string{StartInit, StartAuto}[rng.IntN(2)],
			Optimizer: []string{OptimizerBFGS, OptimizerLBFGS}[rng.IntN(2)],
			MaxIter:   1000,
			GTol:      1e-5,
		},
		Treated:   EquationSpec{Vars: xvars, Coeff: uniformCoeffs(rng, len(xvars))},
		Untreated: EquationSpec{Vars: xvars, Coeff: uniformCoeffs(rng, len(xvars))},
		Choice:    EquationSpec{Vars: zvars, Coeff: uniformCoeffs(rng, len(zvars))},
		Dist: DistSpec{Coeff: []float64{
			sigma1, rho10 * sigma1 * sigma0, rho1 * sigma1,
			sigma0, rho0 * sigma0,
			1,
		}},
	}
	return spec
}

func covariateNames(prefix string, n int) []string {
	names := make([]string, 0, n+1)
	names = append(names, ConstName)
	for i := 1; i <= n; i++ {
		names = append(names, fmt.Sprintf("%s%d", prefix, i))
	}
	return names
}

func uniformCoeffs(rng *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 2*rng.Float64() - 1
	}
	return out
}

// #endregion random-spec
