package rpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/grmpy-go/internal/estimate"
	"github.com/danielpatrickdp/grmpy-go/internal/model"
)

// Request and reply field names.
const (
	fieldSpec      = "spec"
	fieldDatasetID = "dataset_id"
	fieldRunID     = "run_id"
	fieldAgents    = "agents"
	fieldTreated   = "treated_share"
	fieldMeanY     = "mean_y"
	fieldParams    = "params"
)

// #region spec-conversion
// specToStruct encodes spec through its JSON form. Numbers become doubles,
// so seeds above 2^53 lose precision.
func specToStruct(spec model.Spec) (*structpb.Struct, error) {
	b, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("marshal spec: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal spec: %w", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("spec struct: %w", err)
	}
	return s, nil
}

// specFromRequest decodes the "spec" field of req and applies defaults.
func specFromRequest(req *structpb.Struct) (model.Spec, error) {
	v := req.GetFields()[fieldSpec].GetStructValue()
	if v == nil {
		return model.Spec{}, fmt.Errorf("%w: request has no %q object", model.ErrInvalidSpec, fieldSpec)
	}
	b, err := json.Marshal(v.AsMap())
	if err != nil {
		return model.Spec{}, fmt.Errorf("marshal spec: %w", err)
	}
	var spec model.Spec
	if err := json.Unmarshal(b, &spec); err != nil {
		return model.Spec{}, fmt.Errorf("%w: %v", model.ErrInvalidSpec, err)
	}
	spec.ApplyDefaults()
	return spec, nil
}

// #endregion spec-conversion

// #region result-conversion
func floatList(v []float64) []any {
	out := make([]any, len(v))
	for i, f := range v {
		out[i] = f
	}
	return out
}

func paramsMap(p model.Params) map[string]any {
	return map[string]any{
		"treated":   floatList(p.Treated),
		"untreated": floatList(p.Untreated),
		"choice":    floatList(p.Choice),
		"sigma1":    p.Sigma1,
		"sigma0":    p.Sigma0,
		"rho1v":     p.Rho1V,
		"rho0v":     p.Rho0V,
	}
}

func resultStruct(res estimate.Result, runID, datasetID string) (*structpb.Struct, error) {
	m := res.AsMap()
	m[fieldRunID] = runID
	m[fieldDatasetID] = datasetID
	m[fieldParams] = paramsMap(res.Params)
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("result struct: %w", err)
	}
	return s, nil
}

func numberList(v *structpb.Value) []float64 {
	vals := v.GetListValue().GetValues()
	out := make([]float64, len(vals))
	for i, x := range vals {
		out[i] = x.GetNumberValue()
	}
	return out
}

func paramsFromValue(v *structpb.Value) model.Params {
	f := v.GetStructValue().GetFields()
	return model.Params{
		Treated:   numberList(f["treated"]),
		Untreated: numberList(f["untreated"]),
		Choice:    numberList(f["choice"]),
		Sigma1:    f["sigma1"].GetNumberValue(),
		Sigma0:    f["sigma0"].GetNumberValue(),
		Rho1V:     f["rho1v"].GetNumberValue(),
		Rho0V:     f["rho0v"].GetNumberValue(),
	}
}

// #endregion result-conversion
