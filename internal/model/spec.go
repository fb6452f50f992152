package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// ErrInvalidSpec is wrapped by every validation failure.
var ErrInvalidSpec = errors.New("invalid spec")

// #region load-save
// Load reads a spec from a YAML (.yml, .yaml) or JSON (.json, .jsonc) file
// and fills in defaults. The result is not validated.
func Load(path string) (Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("read spec %s: %w", path, err)
	}

	var spec Spec
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		std, err := hujson.Standardize(raw)
		if err != nil {
			return Spec{}, fmt.Errorf("parse spec %s: %w", path, err)
		}
		if err := json.Unmarshal(std, &spec); err != nil {
			return Spec{}, fmt.Errorf("parse spec %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(raw, &spec); err != nil {
			return Spec{}, fmt.Errorf("parse spec %s: %w", path, err)
		}
	}
	spec.ApplyDefaults()
	return spec, nil
}

// Save writes the spec as YAML, replacing path atomically.
func Save(path string, spec Spec) error {
	out, err := yaml.Marshal(spec)
	if err != nil {
		return fmt.Errorf("marshal spec: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(out)); err != nil {
		return fmt.Errorf("write spec %s: %w", path, err)
	}
	return nil
}

// #endregion load-save

// #region defaults
// ApplyDefaults fills zero-valued estimation and simulation settings.
func (s *Spec) ApplyDefaults() {
	if s.Simulation.Source == "" {
		s.Simulation.Source = DefaultSource
	}
	if s.Estimation.Start == "" {
		s.Estimation.Start = StartAuto
	}
	if s.Estimation.Optimizer == "" {
		s.Estimation.Optimizer = OptimizerBFGS
	}
	if s.Estimation.MaxIter == 0 {
		s.Estimation.MaxIter = 1000
	}
	if s.Estimation.GTol == 0 {
		s.Estimation.GTol = 1e-5
	}
}

// #endregion defaults

// #region validate
// Validate checks the spec is internally consistent and that the
// covariance of the unobservables is positive definite.
func (s Spec) Validate() error {
	if s.Simulation.Agents <= 0 {
		return fmt.Errorf("%w: agents must be positive, got %d", ErrInvalidSpec, s.Simulation.Agents)
	}
	for _, eq := range []struct {
		name string
		spec EquationSpec
	}{
		{"treated", s.Treated},
		{"untreated", s.Untreated},
		{"choice", s.Choice},
	} {
		if len(eq.spec.Vars) == 0 {
			return fmt.Errorf("%w: %s has no covariates", ErrInvalidSpec, eq.name)
		}
		if len(eq.spec.Vars) != len(eq.spec.Coeff) {
			return fmt.Errorf("%w: %s has %d vars but %d coefficients",
				ErrInvalidSpec, eq.name, len(eq.spec.Vars), len(eq.spec.Coeff))
		}
		if dup := firstDuplicate(eq.spec.Vars); dup != "" {
			return fmt.Errorf("%w: %s lists %q twice", ErrInvalidSpec, eq.name, dup)
		}
	}
	if !slices.Equal(s.Treated.Vars, s.Untreated.Vars) {
		return fmt.Errorf("%w: treated and untreated must share covariates", ErrInvalidSpec)
	}
	if len(s.Dist.Coeff) != 6 {
		return fmt.Errorf("%w: dist needs 6 coefficients, got %d", ErrInvalidSpec, len(s.Dist.Coeff))
	}
	for _, sd := range []float64{s.Dist.Sigma1(), s.Dist.Sigma0(), s.Dist.SigmaV()} {
		if !(sd > 0) || math.IsInf(sd, 0) {
			return fmt.Errorf("%w: standard deviations must be positive and finite", ErrInvalidSpec)
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(s.Covariance()); !ok {
		return fmt.Errorf("%w: covariance of (U1, U0, V) is not positive definite", ErrInvalidSpec)
	}

	switch s.Estimation.Start {
	case StartInit, StartAuto:
	default:
		return fmt.Errorf("%w: unknown start %q", ErrInvalidSpec, s.Estimation.Start)
	}
	switch s.Estimation.Optimizer {
	case OptimizerBFGS, OptimizerLBFGS, OptimizerNelderMead:
	default:
		return fmt.Errorf("%w: unknown optimizer %q", ErrInvalidSpec, s.Estimation.Optimizer)
	}
	if s.Estimation.MaxIter < 0 {
		return fmt.Errorf("%w: maxiter must not be negative", ErrInvalidSpec)
	}
	return nil
}

func firstDuplicate(names []string) string {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return n
		}
		seen[n] = true
	}
	return ""
}

// #endregion validate

// #region derived
// Covariance returns the 3x3 covariance matrix of (U1, U0, V).
func (s Spec) Covariance() *mat.SymDense {
	d := s.Dist
	s1, s0, sv := d.Sigma1(), d.Sigma0(), d.SigmaV()
	return mat.NewSymDense(3, []float64{
		s1 * s1, d.Sigma10(), d.Sigma1V(),
		d.Sigma10(), s0 * s0, d.Sigma0V(),
		d.Sigma1V(), d.Sigma0V(), sv * sv,
	})
}

// Covariates returns the union of outcome and choice covariates, outcome
// covariates first, each name once.
func (s Spec) Covariates() []string {
	out := slices.Clone(s.Treated.Vars)
	for _, v := range s.Choice.Vars {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// TrueParams returns the parameters implied by the spec on the scale the
// estimator recovers them: σV is normalised to one.
func (s Spec) TrueParams() Params {
	d := s.Dist
	sv := d.SigmaV()
	choice := make([]float64, len(s.Choice.Coeff))
	for i, c := range s.Choice.Coeff {
		choice[i] = c / sv
	}
	return Params{
		Treated:   slices.Clone(s.Treated.Coeff),
		Untreated: slices.Clone(s.Untreated.Coeff),
		Choice:    choice,
		Sigma1:    d.Sigma1(),
		Sigma0:    d.Sigma0(),
		Rho1V:     d.Sigma1V() / (d.Sigma1() * sv),
		Rho0V:     d.Sigma0V() / (d.Sigma0() * sv),
	}
}

// #endregion derived
