package simulate

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/grmpy-go/internal/data"
	"github.com/danielpatrickdp/grmpy-go/internal/model"
)

func testSpec() model.Spec {
	s := model.Spec{
		Simulation: model.SimulationSpec{Agents: 4000},
		Treated:    model.EquationSpec{Vars: []string{model.ConstName, "x1"}, Coeff: []float64{1.0, 0.5}},
		Untreated:  model.EquationSpec{Vars: []string{model.ConstName, "x1"}, Coeff: []float64{0.2, -0.4}},
		Choice:     model.EquationSpec{Vars: []string{model.ConstName, "x1", "z1"}, Coeff: []float64{0.1, 0.3, 0.9}},
		Dist:       model.DistSpec{Coeff: []float64{1.0, 0.0, 0.3, 0.7, -0.2, 1.0}},
	}
	s.ApplyDefaults()
	return s
}

func TestSimulate_Columns(t *testing.T) {
	ds, err := Simulate(testSpec(), model.NewRand(1))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	want := []string{model.ConstName, "x1", "z1",
		data.ColY, data.ColD, data.ColY1, data.ColY0, data.ColU1, data.ColU0, data.ColV}
	if diff := cmp.Diff(want, ds.Names()); diff != "" {
		t.Fatalf("column names (-want +got):\n%s", diff)
	}
	if ds.Len() != 4000 {
		t.Fatalf("expected 4000 rows, got %d", ds.Len())
	}
}

func TestSimulate_Deterministic(t *testing.T) {
	a, err := Simulate(testSpec(), model.NewRand(123))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	b, err := Simulate(testSpec(), model.NewRand(123))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	for _, name := range a.Names() {
		ca, _ := a.Column(name)
		cb, _ := b.Column(name)
		if diff := cmp.Diff(ca, cb); diff != "" {
			t.Fatalf("column %s differs between identical runs", name)
		}
	}
}

func TestSimulate_OutcomeIdentities(t *testing.T) {
	spec := testSpec()
	ds, err := Simulate(spec, model.NewRand(5))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	c, _ := ds.Column(model.ConstName)
	x1, _ := ds.Column("x1")
	z1, _ := ds.Column("z1")
	y, _ := ds.Column(data.ColY)
	d, _ := ds.Column(data.ColD)
	y1, _ := ds.Column(data.ColY1)
	y0, _ := ds.Column(data.ColY0)
	u1, _ := ds.Column(data.ColU1)
	v, _ := ds.Column(data.ColV)

	for i := 0; i < ds.Len(); i++ {
		if c[i] != 1 {
			t.Fatalf("row %d: intercept %v", i, c[i])
		}
		if math.Abs(y1[i]-(1.0+0.5*x1[i]+u1[i])) > 1e-12 {
			t.Fatalf("row %d: Y1 does not follow the treated equation", i)
		}
		zg := 0.1 + 0.3*x1[i] + 0.9*z1[i]
		treated := zg-v[i] > 0
		if treated != (d[i] == 1) {
			t.Fatalf("row %d: D=%v but index-V=%v", i, d[i], zg-v[i])
		}
		if treated && y[i] != y1[i] || !treated && y[i] != y0[i] {
			t.Fatalf("row %d: observed outcome does not match regime", i)
		}
	}
}

func TestSimulate_ErrorMoments(t *testing.T) {
	ds, err := Simulate(testSpec(), model.NewRand(9))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	u1, _ := ds.Column(data.ColU1)
	v, _ := ds.Column(data.ColV)

	var s11, s1v float64
	for i := range u1 {
		s11 += u1[i] * u1[i]
		s1v += u1[i] * v[i]
	}
	n := float64(len(u1))
	if math.Abs(s11/n-1.0) > 0.1 {
		t.Fatalf("var(U1) = %v, want about 1", s11/n)
	}
	if math.Abs(s1v/n-0.3) > 0.1 {
		t.Fatalf("cov(U1,V) = %v, want about 0.3", s1v/n)
	}
}

func TestSimulate_RejectsInvalidSpec(t *testing.T) {
	s := testSpec()
	s.Simulation.Agents = 0
	if _, err := Simulate(s, model.NewRand(1)); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}

func TestSummarize(t *testing.T) {
	ds, err := Simulate(testSpec(), model.NewRand(11))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	s := Summarize(ds)
	if s.Agents != 4000 {
		t.Fatalf("expected 4000 agents, got %d", s.Agents)
	}
	if s.TreatedShare <= 0.2 || s.TreatedShare >= 0.8 {
		t.Fatalf("treated share %v outside a plausible range", s.TreatedShare)
	}
}
