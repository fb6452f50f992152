package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/danielpatrickdp/grmpy-go/internal/check"
	"github.com/danielpatrickdp/grmpy-go/internal/config"
	"github.com/danielpatrickdp/grmpy-go/internal/model"
	"github.com/danielpatrickdp/grmpy-go/internal/rpc"
	"github.com/danielpatrickdp/grmpy-go/internal/smoke"
	"github.com/danielpatrickdp/grmpy-go/internal/store"
)

// #region helpers
// runCmd executes a fresh root command against dbPath and returns stdout.
func runCmd(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(config.Config{DBPath: dbPath, LogLevel: "info"})
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func mustRun(t *testing.T, dbPath string, args ...string) string {
	t.Helper()
	out, err := runCmd(t, dbPath, args...)
	if err != nil {
		t.Fatalf("grmpy %s: %v", strings.Join(args, " "), err)
	}
	return out
}

// startRemote serves the Estimation service over an in-memory listener
// backed by its own store and routes --remote connections to it.
func startRemote(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	rpc.RegisterEstimationServer(srv, rpc.NewServer(st, nil, nil))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	prev := dialOptions
	dialOptions = []grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	}
	t.Cleanup(func() { dialOptions = prev })
	return st
}

const remoteAddr = "passthrough:///bufnet"

// #endregion helpers

// #region root-tests
func TestRootCommands(t *testing.T) {
	root := newRootCmd(config.FromEnv())
	want := []string{"debug", "estimate", "random-spec", "runs", "serve", "simulate", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestVersion(t *testing.T) {
	out := mustRun(t, filepath.Join(t.TempDir(), "v.db"), "version")
	if !strings.Contains(out, version) {
		t.Fatalf("version output %q lacks %q", out, version)
	}
}

// #endregion root-tests

// #region workflow-tests
func TestRandomSpecSimulateEstimateRuns(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "grmpy.db")
	specPath := filepath.Join(dir, "spec.yaml")

	mustRun(t, db, "random-spec", "--seed", "5", "--out", specPath)
	spec, err := model.Load(specPath)
	if err != nil {
		t.Fatalf("generated spec does not load: %v", err)
	}

	simOut := mustRun(t, db, "simulate", "--spec", specPath)
	if !strings.Contains(simOut, strconv.Itoa(spec.Simulation.Agents)+" agents") {
		t.Fatalf("simulate output %q lacks agent count", simOut)
	}

	estOut := mustRun(t, db, "estimate", "--spec", specPath, "--json")
	var res map[string]any
	if err := json.Unmarshal([]byte(estOut), &res); err != nil {
		t.Fatalf("estimate --json output is not JSON: %v\n%s", err, estOut)
	}
	runID, _ := res["run_id"].(string)
	if runID == "" {
		t.Fatalf("estimate output lacks run_id: %v", res)
	}
	if _, ok := res["fval"].(float64); !ok {
		t.Fatalf("estimate output lacks fval: %v", res)
	}

	runsOut := mustRun(t, db, "runs")
	if !strings.Contains(runsOut, runID) {
		t.Fatalf("runs output lacks %s:\n%s", runID, runsOut)
	}
}

func TestEstimate_DataFile(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "grmpy.db")
	specPath := filepath.Join(dir, "spec.yaml")
	dataPath := filepath.Join(dir, "data.tsv")

	mustRun(t, db, "random-spec", "--seed", "11", "--out", specPath)
	mustRun(t, db, "simulate", "--spec", specPath, "--out", dataPath)

	out := mustRun(t, filepath.Join(dir, "other.db"), "estimate", "--spec", specPath, "--data", dataPath)
	if !strings.Contains(out, "fval") {
		t.Fatalf("estimate output lacks fval:\n%s", out)
	}
}

func TestEstimate_NoDataset(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "spec.yaml")
	mustRun(t, filepath.Join(dir, "a.db"), "random-spec", "--seed", "3", "--out", specPath)

	_, err := runCmd(t, filepath.Join(dir, "empty.db"), "estimate", "--spec", specPath)
	if !errors.Is(err, store.ErrNoDataset) {
		t.Fatalf("expected ErrNoDataset, got %v", err)
	}
}

func TestRuns_Empty(t *testing.T) {
	out := mustRun(t, filepath.Join(t.TempDir(), "e.db"), "runs")
	if !strings.Contains(out, "No runs") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestEstimate_JSONNonFinite(t *testing.T) {
	var buf bytes.Buffer
	m := map[string]any{
		"fval": math.NaN(),
		"nit":  3,
		"x":    []any{1.0, math.Inf(1)},
	}
	params := model.Params{Treated: []float64{1}, Sigma1: math.Inf(1), Sigma0: 1}
	if err := writeResultJSON(&buf, m, params); err != nil {
		t.Fatalf("writeResultJSON: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	want := map[string]any{
		"fval": nil,
		"nit":  3.0,
		"x":    []any{1.0, nil},
		"params": map[string]any{
			"treated":   []any{1.0},
			"untreated": nil,
			"choice":    nil,
			"sigma1":    nil,
			"sigma0":    1.0,
			"rho1v":     0.0,
			"rho0v":     0.0,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("json mismatch (-want +got):\n%s", diff)
	}
}

// #endregion workflow-tests

// #region remote-tests
func TestRemoteSimulateEstimate(t *testing.T) {
	server := startRemote(t)
	dir := t.TempDir()
	local := filepath.Join(dir, "local.db")
	specPath := filepath.Join(dir, "spec.yaml")
	mustRun(t, local, "random-spec", "--seed", "5", "--out", specPath)

	simOut := mustRun(t, local, "simulate", "--spec", specPath, "--remote", remoteAddr)
	datasetID, _, _ := strings.Cut(simOut, "\t")
	if _, err := server.GetDataset(datasetID); err != nil {
		t.Fatalf("server lacks dataset %q: %v", datasetID, err)
	}

	estOut := mustRun(t, local, "estimate", "--spec", specPath, "--dataset", datasetID, "--remote", remoteAddr, "--json")
	var res map[string]any
	if err := json.Unmarshal([]byte(estOut), &res); err != nil {
		t.Fatalf("estimate --json output is not JSON: %v\n%s", err, estOut)
	}
	if res["dataset_id"] != datasetID {
		t.Fatalf("estimated dataset %v, want %s", res["dataset_id"], datasetID)
	}

	runs, err := server.ListRuns(5)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one run on the server, got %d (%v)", len(runs), err)
	}
	if res["run_id"] != runs[0].RunID {
		t.Fatalf("reply run %v, server stored %s", res["run_id"], runs[0].RunID)
	}

	localRuns := mustRun(t, local, "runs")
	if !strings.Contains(localRuns, "No runs") {
		t.Fatalf("remote run leaked into the local database:\n%s", localRuns)
	}

	textOut := mustRun(t, local, "estimate", "--spec", specPath, "--remote", remoteAddr)
	if !strings.Contains(textOut, "fval") || !strings.Contains(textOut, "run") {
		t.Fatalf("remote text output lacks result rows:\n%s", textOut)
	}
}

func TestRemoteEstimate_RejectsDataFile(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "spec.yaml")
	mustRun(t, filepath.Join(dir, "a.db"), "random-spec", "--seed", "3", "--out", specPath)

	_, err := runCmd(t, filepath.Join(dir, "a.db"), "estimate", "--spec", specPath,
		"--data", filepath.Join(dir, "data.tsv"), "--remote", remoteAddr)
	if err == nil || !strings.Contains(err.Error(), "--remote") {
		t.Fatalf("expected --data/--remote conflict, got %v", err)
	}
}

func TestRemoteEstimate_NoDataset(t *testing.T) {
	startRemote(t)
	dir := t.TempDir()
	specPath := filepath.Join(dir, "spec.yaml")
	mustRun(t, filepath.Join(dir, "a.db"), "random-spec", "--seed", "3", "--out", specPath)

	_, err := runCmd(t, filepath.Join(dir, "a.db"), "estimate", "--spec", specPath, "--remote", remoteAddr)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound from the server, got %v", err)
	}
}

// #endregion remote-tests

// #region debug-tests
func TestDebug_RecordThenCheck(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "grmpy.db")
	fixture := filepath.Join(dir, "fixture.json")

	recorded := mustRun(t, db, "debug", "--seed", "124", "--fixture", fixture, "--record")
	f, err := smoke.LoadFixture(fixture)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.Seed != 124 {
		t.Fatalf("fixture seed %d, want 124", f.Seed)
	}

	checked := mustRun(t, db, "debug", "--seed", "124", "--fixture", fixture)
	if checked != recorded {
		t.Fatalf("second run printed %q, first printed %q", checked, recorded)
	}
	got, err := strconv.ParseFloat(strings.TrimSpace(checked), 64)
	if err != nil {
		t.Fatalf("output %q is not a number: %v", checked, err)
	}
	if got != f.Fval {
		t.Fatalf("printed %v, fixture holds %v", got, f.Fval)
	}
}

func TestDebug_DefaultPasses(t *testing.T) {
	out := mustRun(t, filepath.Join(t.TempDir(), "grmpy.db"), "debug")
	got, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		t.Fatalf("output %q is not a number: %v", out, err)
	}
	if math.Abs(got-smoke.DefaultFval) >= smoke.DefaultTolerance {
		t.Fatalf("printed %v, want %v", got, smoke.DefaultFval)
	}
}

func TestDebug_DriftFails(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "fixture.json")
	if err := smoke.WriteFixture(fixture, smoke.Fixture{Seed: 124, Fval: 1e6, Tolerance: 1e-5}); err != nil {
		t.Fatalf("WriteFixture: %v", err)
	}

	_, err := runCmd(t, filepath.Join(dir, "grmpy.db"), "debug", "--seed", "124", "--fixture", fixture)
	if !errors.Is(err, smoke.ErrNumericDrift) {
		t.Fatalf("expected ErrNumericDrift, got %v", err)
	}
}

func TestDebug_Persist(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "grmpy.db")

	mustRun(t, db, "debug", "--seed", "124", "--persist")

	st, err := store.NewStore(db)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer st.Close()

	if _, err := st.LatestDataset("debug"); err != nil {
		t.Fatalf("dataset not persisted: %v", err)
	}
	runs, err := st.ListRuns(5)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one run, got %d (%v)", len(runs), err)
	}
	var decision string
	if err := st.DB().QueryRow("SELECT decision FROM check_log WHERE run_id = ?", runs[0].RunID).Scan(&decision); err != nil {
		t.Fatalf("check_log row: %v", err)
	}
	if decision != "pass" {
		t.Fatalf("decision %q, want pass", decision)
	}
}

func TestEncodeMetrics(t *testing.T) {
	got, err := encodeMetrics([]check.Metric{
		{Name: check.MetricConvergence, Value: 1, Pass: true},
		{Name: check.MetricFvalDeviation, Value: math.NaN(), Pass: true, Informational: true},
	})
	if err != nil {
		t.Fatalf("encodeMetrics: %v", err)
	}
	want := `[{"name":"convergence","value":1,"pass":true},{"name":"fval_deviation","value":null,"pass":true,"informational":true}]`
	if got != want {
		t.Fatalf("got %s\nwant %s", got, want)
	}
}

// #endregion debug-tests
