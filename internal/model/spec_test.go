package model

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// #region helpers
func validSpec() Spec {
	s := Spec{
		Simulation: SimulationSpec{Agents: 500, Seed: 7},
		Treated:    EquationSpec{Vars: []string{ConstName, "x1"}, Coeff: []float64{1.0, 0.5}},
		Untreated:  EquationSpec{Vars: []string{ConstName, "x1"}, Coeff: []float64{0.5, 0.2}},
		Choice:     EquationSpec{Vars: []string{ConstName, "z1"}, Coeff: []float64{0.1, 0.8}},
		Dist:       DistSpec{Coeff: []float64{1.0, 0.1, 0.3, 0.8, -0.2, 1.0}},
	}
	s.ApplyDefaults()
	return s
}

// #endregion helpers

// #region validate-tests
func TestValidateAcceptsValidSpec(t *testing.T) {
	if err := validSpec().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Spec)
	}{
		{"zero agents", func(s *Spec) { s.Simulation.Agents = 0 }},
		{"coeff count", func(s *Spec) { s.Treated.Coeff = []float64{1} }},
		{"different outcome vars", func(s *Spec) {
			s.Untreated.Vars = []string{ConstName, "x2"}
		}},
		{"duplicate var", func(s *Spec) {
			s.Choice.Vars = []string{"z1", "z1"}
		}},
		{"short dist", func(s *Spec) { s.Dist.Coeff = []float64{1, 0, 0} }},
		{"negative sd", func(s *Spec) { s.Dist.Coeff[3] = -1 }},
		{"not positive definite", func(s *Spec) {
			s.Dist.Coeff = []float64{1, 0, 0.99, 1, -0.99, 1}
		}},
		{"unknown start", func(s *Spec) { s.Estimation.Start = "guess" }},
		{"unknown optimizer", func(s *Spec) { s.Estimation.Optimizer = "Powell" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSpec()
			tc.mutate(&s)
			err := s.Validate()
			if !errors.Is(err, ErrInvalidSpec) {
				t.Fatalf("expected ErrInvalidSpec, got %v", err)
			}
		})
	}
}

// #endregion validate-tests

// #region derived-tests
func TestCovariates_UnionKeepsOrder(t *testing.T) {
	s := validSpec()
	s.Choice.Vars = []string{ConstName, "x1", "z1"}
	s.Choice.Coeff = []float64{0, 0, 1}

	got := s.Covariates()
	want := []string{ConstName, "x1", "z1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("covariates mismatch (-want +got):\n%s", diff)
	}
}

func TestTrueParams_NormalisesChoiceScale(t *testing.T) {
	s := validSpec()
	s.Dist.Coeff = []float64{1.0, 0, 0.5, 2.0, 0.4, 2.0}

	p := s.TrueParams()
	if p.Choice[1] != 0.4 {
		t.Fatalf("expected choice coefficient scaled by σV, got %v", p.Choice[1])
	}
	if math.Abs(p.Rho1V-0.25) > 1e-12 {
		t.Fatalf("expected rho1v 0.25, got %v", p.Rho1V)
	}
	if math.Abs(p.Rho0V-0.1) > 1e-12 {
		t.Fatalf("expected rho0v 0.1, got %v", p.Rho0V)
	}
}

// #endregion derived-tests

// #region load-save-tests
func TestSaveLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "init.yml")
	want := validSpec()

	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("spec mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadJSONCWithComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "init.jsonc")
	content := `{
	// sample size
	"simulation": {"agents": 250},
	"treated":   {"vars": ["const"], "coeff": [1.0]},
	"untreated": {"vars": ["const"], "coeff": [0.0]},
	"choice":    {"vars": ["const", "z1"], "coeff": [0.0, 1.0]},
	"dist":      {"coeff": [1, 0, 0, 1, 0, 1]}, // trailing comma allowed
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Simulation.Agents != 250 {
		t.Fatalf("expected 250 agents, got %d", s.Simulation.Agents)
	}
	if s.Simulation.Source != DefaultSource || s.Estimation.Optimizer != OptimizerBFGS {
		t.Fatalf("expected defaults to be applied, got %+v", s.Estimation)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// #endregion load-save-tests
