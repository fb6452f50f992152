package model

// #region constants
// ConstName is the reserved covariate name for the intercept column.
const ConstName = "const"

// Start value strategies.
const (
	StartInit = "init" // true values taken from the spec
	StartAuto = "auto" // OLS per regime plus a probit for the choice equation
)

// Optimizers understood by the estimator.
const (
	OptimizerBFGS       = "BFGS"
	OptimizerLBFGS      = "LBFGS"
	OptimizerNelderMead = "NelderMead"
)

// DefaultSource is the dataset key used when the spec leaves it empty.
const DefaultSource = "data"

// #endregion constants

// #region spec
// Spec describes one generalized Roy model instance: two potential outcome
// equations, a choice equation, and the joint distribution of the
// unobservables (U1, U0, V).
type Spec struct {
	Simulation SimulationSpec `yaml:"simulation" json:"simulation"`
	Estimation EstimationSpec `yaml:"estimation" json:"estimation"`
	Treated    EquationSpec   `yaml:"treated" json:"treated"`
	Untreated  EquationSpec   `yaml:"untreated" json:"untreated"`
	Choice     EquationSpec   `yaml:"choice" json:"choice"`
	Dist       DistSpec       `yaml:"dist" json:"dist"`
}

// SimulationSpec controls dataset generation.
type SimulationSpec struct {
	Agents int    `yaml:"agents" json:"agents"`
	Seed   uint64 `yaml:"seed" json:"seed"`
	Source string `yaml:"source" json:"source"` // dataset key shared by simulate and estimate
}

// EstimationSpec controls the optimizer.
type EstimationSpec struct {
	Start     string  `yaml:"start" json:"start"`
	Optimizer string  `yaml:"optimizer" json:"optimizer"`
	MaxIter   int     `yaml:"maxiter" json:"maxiter"`
	GTol      float64 `yaml:"gtol" json:"gtol"`
}

// EquationSpec is a linear index: one coefficient per named covariate.
type EquationSpec struct {
	Vars  []string  `yaml:"vars" json:"vars"`
	Coeff []float64 `yaml:"coeff" json:"coeff"`
}

// DistSpec holds the covariance of (U1, U0, V) as
// [σ1, σ10, σ1V, σ0, σ0V, σV]: standard deviations on the diagonal
// entries, covariances off it.
type DistSpec struct {
	Coeff []float64 `yaml:"coeff" json:"coeff"`
}

func (d DistSpec) Sigma1() float64  { return d.Coeff[0] }
func (d DistSpec) Sigma10() float64 { return d.Coeff[1] }
func (d DistSpec) Sigma1V() float64 { return d.Coeff[2] }
func (d DistSpec) Sigma0() float64  { return d.Coeff[3] }
func (d DistSpec) Sigma0V() float64 { return d.Coeff[4] }
func (d DistSpec) SigmaV() float64  { return d.Coeff[5] }

// #endregion spec

// #region params
// Params is the natural-scale parameter set recovered by estimation.
// The choice coefficients are expressed in units of σV.
type Params struct {
	Treated   []float64 `json:"treated"`
	Untreated []float64 `json:"untreated"`
	Choice    []float64 `json:"choice"`
	Sigma1    float64   `json:"sigma1"`
	Sigma0    float64   `json:"sigma0"`
	Rho1V     float64   `json:"rho1v"`
	Rho0V     float64   `json:"rho0v"`
}

// #endregion params
