package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/grmpy-go/internal/model"
)

// #region types
// SimulateReply is the decoded reply of a Simulate call.
type SimulateReply struct {
	DatasetID    string
	Agents       int
	TreatedShare float64
	MeanY        float64
}

// EstimateReply is the decoded reply of an Estimate call.
type EstimateReply struct {
	RunID      string
	DatasetID  string
	Success    bool
	Status     string
	Message    string
	Fval       float64
	StartFval  float64
	Iterations int
	X          []float64
	Params     model.Params
}

// #endregion types

// #region client-struct
// Client calls a remote Estimation service.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewClient connects to the Estimation service at addr without transport
// security. opts are applied after the credentials option.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn wraps an existing connection. Close does not close cc.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// #endregion constructor

// #region close
// Close shuts down a connection opened by NewClient.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region simulate
// Simulate asks the service to draw and store a dataset for spec.
func (c *Client) Simulate(ctx context.Context, spec model.Spec) (SimulateReply, error) {
	specStruct, err := specToStruct(spec)
	if err != nil {
		return SimulateReply{}, err
	}
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldSpec: structpb.NewStructValue(specStruct),
	}}

	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SimulateMethod, req, resp); err != nil {
		return SimulateReply{}, fmt.Errorf("simulate rpc: %w", err)
	}
	f := resp.GetFields()
	return SimulateReply{
		DatasetID:    f[fieldDatasetID].GetStringValue(),
		Agents:       int(f[fieldAgents].GetNumberValue()),
		TreatedShare: f[fieldTreated].GetNumberValue(),
		MeanY:        f[fieldMeanY].GetNumberValue(),
	}, nil
}

// #endregion simulate

// #region estimate
// Estimate asks the service to fit spec. An empty datasetID selects the
// latest dataset for spec.Simulation.Source.
func (c *Client) Estimate(ctx context.Context, spec model.Spec, datasetID string) (EstimateReply, error) {
	specStruct, err := specToStruct(spec)
	if err != nil {
		return EstimateReply{}, err
	}
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldSpec: structpb.NewStructValue(specStruct),
	}}
	if datasetID != "" {
		req.Fields[fieldDatasetID] = structpb.NewStringValue(datasetID)
	}

	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, EstimateMethod, req, resp); err != nil {
		return EstimateReply{}, fmt.Errorf("estimate rpc: %w", err)
	}
	f := resp.GetFields()
	return EstimateReply{
		RunID:      f[fieldRunID].GetStringValue(),
		DatasetID:  f[fieldDatasetID].GetStringValue(),
		Success:    f["success"].GetBoolValue(),
		Status:     f["status"].GetStringValue(),
		Message:    f["message"].GetStringValue(),
		Fval:       f["fval"].GetNumberValue(),
		StartFval:  f["fval0"].GetNumberValue(),
		Iterations: int(f["nit"].GetNumberValue()),
		X:          numberList(f["x"]),
		Params:     paramsFromValue(f[fieldParams]),
	}, nil
}

// #endregion estimate
