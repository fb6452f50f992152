package main

import (
	"math"

	"google.golang.org/grpc"

	"github.com/danielpatrickdp/grmpy-go/internal/estimate"
	"github.com/danielpatrickdp/grmpy-go/internal/rpc"
)

// dialOptions are appended to every --remote connection.
var dialOptions []grpc.DialOption

// #region remote
func dialRemote(addr string) (*rpc.Client, error) {
	return rpc.NewClient(addr, dialOptions...)
}

func resultFromReply(r rpc.EstimateReply) estimate.Result {
	return estimate.Result{
		Success:    r.Success,
		Status:     r.Status,
		Message:    r.Message,
		Fval:       r.Fval,
		StartFval:  r.StartFval,
		Iterations: r.Iterations,
		X:          r.X,
		Params:     r.Params,
	}
}

// #endregion remote

// #region json-output
// finiteJSON replaces NaN and ±Inf in m, including inside []any values,
// with nil so that encoding/json accepts the map.
func finiteJSON(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = finiteValue(v)
	}
	return m
}

func finiteValue(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case []any:
		for i := range x {
			x[i] = finiteValue(x[i])
		}
	}
	return v
}

// #endregion json-output
