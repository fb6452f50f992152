package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/grmpy-go/internal/data"
	"github.com/danielpatrickdp/grmpy-go/internal/estimate"
	"github.com/danielpatrickdp/grmpy-go/internal/model"
	"github.com/danielpatrickdp/grmpy-go/internal/store"
)

func newEstimateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate a model spec by maximum likelihood",
		Long: `Fit the model described by --spec.

The sample is read from --data when given, else from the stored dataset
named by --dataset, else from the latest stored dataset for
spec.simulation.source. The run is recorded in the database.

With --remote the fit runs on a grmpy server (see serve) against the
server's own database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			specPath, _ := cmd.Flags().GetString("spec")
			dataPath, _ := cmd.Flags().GetString("data")
			datasetID, _ := cmd.Flags().GetString("dataset")
			jsonOut, _ := cmd.Flags().GetBool("json")
			remote, _ := cmd.Flags().GetString("remote")
			logger := loggerFor(cmd)

			spec, err := model.Load(specPath)
			if err != nil {
				return err
			}

			if remote != "" {
				if dataPath != "" {
					return fmt.Errorf("--data cannot be used with --remote; simulate on the server and pass --dataset")
				}
				return estimateRemote(cmd, remote, spec, datasetID, jsonOut)
			}

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			var ds *data.Dataset
			switch {
			case dataPath != "":
				ds, err = data.ReadFile(dataPath)
				datasetID = ""
			case datasetID != "":
				var rec store.DatasetRecord
				rec, err = st.GetDataset(datasetID)
				ds = rec.Data
			default:
				var rec store.DatasetRecord
				rec, err = st.LatestDataset(spec.Simulation.Source)
				ds, datasetID = rec.Data, rec.DatasetID
			}
			if err != nil {
				return err
			}

			res, err := estimate.Estimate(cmd.Context(), spec, ds, estimate.WithLogger(logger))
			if err != nil {
				return err
			}

			runID, err := st.SaveRun(store.RunRecord{
				DatasetID:  datasetID,
				Success:    res.Success,
				Status:     res.Status,
				Fval:       res.Fval,
				Iterations: res.Iterations,
				Params:     res.Params,
			})
			if err != nil {
				return fmt.Errorf("store run: %w", err)
			}

			if jsonOut {
				m := res.AsMap()
				m["run_id"] = runID
				m["dataset_id"] = datasetID
				return writeResultJSON(cmd.OutOrStdout(), m, res.Params)
			}
			printResult(cmd.OutOrStdout(), runID, res)
			return nil
		},
	}

	cmd.Flags().String("spec", "", "Model spec file (.yaml, .json or .jsonc)")
	cmd.Flags().String("data", "", "Read the sample from this text file instead of the database")
	cmd.Flags().String("dataset", "", "Stored dataset ID (default: latest for spec.simulation.source)")
	cmd.Flags().Bool("json", false, "Output as JSON")
	cmd.Flags().String("remote", "", "Estimate on the grmpy server at this address instead of locally")
	cmd.MarkFlagRequired("spec")
	return cmd
}

func estimateRemote(cmd *cobra.Command, addr string, spec model.Spec, datasetID string, jsonOut bool) error {
	client, err := dialRemote(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	reply, err := client.Estimate(cmd.Context(), spec, datasetID)
	if err != nil {
		return err
	}
	loggerFor(cmd).Info("remote estimation finished",
		"addr", addr,
		"run_id", reply.RunID,
		"dataset_id", reply.DatasetID,
		"status", reply.Status,
	)

	res := resultFromReply(reply)
	if jsonOut {
		m := map[string]any{
			"run_id":     reply.RunID,
			"dataset_id": reply.DatasetID,
			"success":    res.Success,
			"status":     res.Status,
			"message":    res.Message,
			"fval":       res.Fval,
			"fval0":      res.StartFval,
			"nit":        res.Iterations,
			"x":          floats(res.X),
		}
		return writeResultJSON(cmd.OutOrStdout(), m, res.Params)
	}
	printResult(cmd.OutOrStdout(), reply.RunID, res)
	return nil
}

func writeResultJSON(out io.Writer, m map[string]any, params model.Params) error {
	m = finiteJSON(m)
	m["params"] = params
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

func floats(v []float64) []any {
	out := make([]any, len(v))
	for i, f := range v {
		out[i] = f
	}
	return out
}

func printResult(out io.Writer, runID string, res estimate.Result) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "run\t%s\n", runID)
	fmt.Fprintf(w, "success\t%t\n", res.Success)
	fmt.Fprintf(w, "status\t%s\n", res.Status)
	fmt.Fprintf(w, "message\t%s\n", res.Message)
	fmt.Fprintf(w, "fval\t%.12g\n", res.Fval)
	fmt.Fprintf(w, "fval0\t%.12g\n", res.StartFval)
	fmt.Fprintf(w, "nit\t%d\n", res.Iterations)
	fmt.Fprintf(w, "treated\t%v\n", res.Params.Treated)
	fmt.Fprintf(w, "untreated\t%v\n", res.Params.Untreated)
	fmt.Fprintf(w, "choice\t%v\n", res.Params.Choice)
	fmt.Fprintf(w, "sigma1, sigma0\t%.6g, %.6g\n", res.Params.Sigma1, res.Params.Sigma0)
	fmt.Fprintf(w, "rho1v, rho0v\t%.6g, %.6g\n", res.Params.Rho1V, res.Params.Rho0V)
	w.Flush()
}
