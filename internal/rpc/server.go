package rpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/grmpy-go/internal/data"
	"github.com/danielpatrickdp/grmpy-go/internal/estimate"
	"github.com/danielpatrickdp/grmpy-go/internal/logging"
	"github.com/danielpatrickdp/grmpy-go/internal/metrics"
	"github.com/danielpatrickdp/grmpy-go/internal/model"
	"github.com/danielpatrickdp/grmpy-go/internal/simulate"
	"github.com/danielpatrickdp/grmpy-go/internal/store"
)

// #region server-struct
// Server implements EstimationServer on top of a store.
type Server struct {
	store   *store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewServer creates a Server. m and logger may be nil.
func NewServer(st *store.Store, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{store: st, metrics: m, logger: logger}
}

// #endregion server-struct

// #region simulate
// Simulate draws a dataset from the request spec, seeded by
// spec.simulation.seed, and stores it under spec.simulation.source.
func (s *Server) Simulate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	spec, err := specFromRequest(req)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, toStatus(err)
	}

	ds, err := simulate.Simulate(spec, model.NewRand(spec.Simulation.Seed))
	if err != nil {
		return nil, toStatus(err)
	}
	id, err := s.store.SaveDataset(store.DatasetRecord{Spec: spec, Data: ds})
	if err != nil {
		return nil, toStatus(err)
	}
	s.metrics.ObserveSimulation(ds.Len())

	sum := simulate.Summarize(ds)
	s.logger.Info("dataset simulated", "dataset_id", id, "source", spec.Simulation.Source, "agents", sum.Agents)

	reply, err := structpb.NewStruct(map[string]any{
		fieldDatasetID: id,
		fieldAgents:    sum.Agents,
		fieldTreated:   sum.TreatedShare,
		fieldMeanY:     sum.MeanY,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "reply: %v", err)
	}
	return reply, nil
}

// #endregion simulate

// #region estimate
// Estimate fits the request spec to a stored dataset: the one named by
// dataset_id, or else the latest dataset for spec.simulation.source.
func (s *Server) Estimate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	spec, err := specFromRequest(req)
	if err != nil {
		return nil, toStatus(err)
	}

	var rec store.DatasetRecord
	if id := req.GetFields()[fieldDatasetID].GetStringValue(); id != "" {
		rec, err = s.store.GetDataset(id)
	} else {
		rec, err = s.store.LatestDataset(spec.Simulation.Source)
	}
	if err != nil {
		return nil, toStatus(err)
	}

	res, err := estimate.Estimate(ctx, spec, rec.Data, estimate.WithLogger(s.logger))
	if err != nil {
		return nil, toStatus(err)
	}
	s.metrics.ObserveEstimation(res.Status, res.Fval, res.Runtime)

	runID, err := s.store.SaveRun(store.RunRecord{
		DatasetID:  rec.DatasetID,
		Success:    res.Success,
		Status:     res.Status,
		Fval:       res.Fval,
		Iterations: res.Iterations,
		Params:     res.Params,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	reply, err := resultStruct(res, runID, rec.DatasetID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "reply: %v", err)
	}
	return reply, nil
}

// #endregion estimate

// #region errors
func toStatus(err error) error {
	switch {
	case errors.Is(err, model.ErrInvalidSpec):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, store.ErrNoDataset):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, data.ErrUnknownColumn):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// #endregion errors
