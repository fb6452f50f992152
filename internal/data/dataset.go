// Package data holds simulated or observed samples as named float64 columns.
package data

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Reserved column names written by the simulator and read by the estimator.
const (
	ColY  = "Y"  // observed outcome
	ColD  = "D"  // treatment indicator, 1 or 0
	ColY1 = "Y1" // potential outcome if treated
	ColY0 = "Y0" // potential outcome if untreated
	ColU1 = "U1"
	ColU0 = "U0"
	ColV  = "V"
)

// ErrUnknownColumn is returned when a requested column does not exist.
var ErrUnknownColumn = errors.New("unknown column")

// #region dataset
// Dataset is a column-oriented table of equal-length float64 columns.
type Dataset struct {
	names   []string
	columns [][]float64
	index   map[string]int
}

// New builds a dataset, checking that names are unique and columns have equal length.
func New(names []string, columns [][]float64) (*Dataset, error) {
	if len(names) != len(columns) {
		return nil, fmt.Errorf("new dataset: %d names for %d columns", len(names), len(columns))
	}
	idx := make(map[string]int, len(names))
	for i, n := range names {
		if _, dup := idx[n]; dup {
			return nil, fmt.Errorf("new dataset: duplicate column %q", n)
		}
		if len(columns[i]) != len(columns[0]) {
			return nil, fmt.Errorf("new dataset: column %q has %d rows, want %d", n, len(columns[i]), len(columns[0]))
		}
		idx[n] = i
	}
	return &Dataset{
		names:   slices.Clone(names),
		columns: columns,
		index:   idx,
	}, nil
}

// Names returns the column names in storage order.
func (d *Dataset) Names() []string { return slices.Clone(d.names) }

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if len(d.columns) == 0 {
		return 0
	}
	return len(d.columns[0])
}

// Column returns the named column. The slice is shared with the dataset.
func (d *Dataset) Column(name string) ([]float64, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// Matrix returns an n×len(vars) design matrix with the named columns.
func (d *Dataset) Matrix(vars []string) (*mat.Dense, error) {
	n := d.Len()
	if n == 0 || len(vars) == 0 {
		return nil, fmt.Errorf("matrix: empty selection (%d rows, %d vars)", n, len(vars))
	}
	m := mat.NewDense(n, len(vars), nil)
	for j, v := range vars {
		col, ok := d.Column(v)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, v)
		}
		m.SetCol(j, col)
	}
	return m, nil
}

// Subset returns a new dataset holding the rows where keep is true.
func (d *Dataset) Subset(keep []bool) (*Dataset, error) {
	if len(keep) != d.Len() {
		return nil, fmt.Errorf("subset: mask has %d rows, dataset has %d", len(keep), d.Len())
	}
	cols := make([][]float64, len(d.columns))
	for j, src := range d.columns {
		dst := make([]float64, 0, len(src))
		for i, v := range src {
			if keep[i] {
				dst = append(dst, v)
			}
		}
		cols[j] = dst
	}
	return New(d.names, cols)
}

// #endregion dataset
