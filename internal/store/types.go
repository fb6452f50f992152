package store

import (
	"time"

	"github.com/danielpatrickdp/grmpy-go/internal/data"
	"github.com/danielpatrickdp/grmpy-go/internal/model"
)

// #region dataset-record
// DatasetRecord is a stored sample together with the spec that generated it.
type DatasetRecord struct {
	DatasetID string
	Source    string
	Spec      model.Spec
	Data      *data.Dataset
	CreatedAt time.Time
}

// #endregion dataset-record

// #region run-record
// RunRecord is one stored estimation run.
type RunRecord struct {
	RunID      string
	DatasetID  string // empty when the data did not come from the store
	Success    bool
	Status     string
	Fval       float64
	Iterations int
	Params     model.Params
	CreatedAt  time.Time
}

// #endregion run-record
