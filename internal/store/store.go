// Package store persists simulated datasets and estimation runs in SQLite.
package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/grmpy-go/internal/data"
)

// ErrNoDataset is returned when no dataset matches a lookup.
var ErrNoDataset = errors.New("no dataset")

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS datasets (
	dataset_id  TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	spec_json   TEXT NOT NULL,
	agents      INTEGER NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS datasets_source ON datasets(source, created_at);

CREATE TABLE IF NOT EXISTS dataset_columns (
	dataset_id  TEXT NOT NULL,
	position    INTEGER NOT NULL,
	name        TEXT NOT NULL,
	vals        BLOB NOT NULL,
	PRIMARY KEY (dataset_id, position),
	FOREIGN KEY (dataset_id) REFERENCES datasets(dataset_id)
);

CREATE TABLE IF NOT EXISTS estimation_runs (
	run_id       TEXT PRIMARY KEY,
	dataset_id   TEXT,
	success      INTEGER NOT NULL,
	status       TEXT NOT NULL,
	fval         REAL NOT NULL,
	iterations   INTEGER NOT NULL,
	params_json  TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (dataset_id) REFERENCES datasets(dataset_id)
);

CREATE TABLE IF NOT EXISTS check_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT,
	seed          INTEGER NOT NULL,
	decision      TEXT NOT NULL,
	reason        TEXT,
	metrics_json  TEXT,
	created_at    TEXT NOT NULL
);
`

// #endregion schema

// #region store-struct
// Store manages datasets and estimation runs in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion close

// #region save-dataset
// SaveDataset stores rec under a new ID and returns it. Columns are kept
// as little-endian float64 blobs in their original order.
func (s *Store) SaveDataset(rec DatasetRecord) (string, error) {
	if rec.Data == nil {
		return "", fmt.Errorf("save dataset: nil data")
	}
	if rec.DatasetID == "" {
		rec.DatasetID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Source == "" {
		rec.Source = rec.Spec.Simulation.Source
	}

	specJSON, err := json.Marshal(rec.Spec)
	if err != nil {
		return "", fmt.Errorf("marshal spec: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO datasets (dataset_id, source, spec_json, agents, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.DatasetID, rec.Source, string(specJSON), rec.Data.Len(),
		rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("insert dataset: %w", err)
	}

	for pos, name := range rec.Data.Names() {
		col, _ := rec.Data.Column(name)
		_, err = tx.Exec(
			`INSERT INTO dataset_columns (dataset_id, position, name, vals) VALUES (?, ?, ?, ?)`,
			rec.DatasetID, pos, name, encodeColumn(col),
		)
		if err != nil {
			return "", fmt.Errorf("insert column %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return rec.DatasetID, nil
}

// #endregion save-dataset

// #region get-dataset
// GetDataset retrieves a dataset by ID.
func (s *Store) GetDataset(id string) (DatasetRecord, error) {
	var rec DatasetRecord
	var specJSON, createdStr string
	err := s.db.QueryRow(
		`SELECT dataset_id, source, spec_json, created_at FROM datasets WHERE dataset_id = ?`, id,
	).Scan(&rec.DatasetID, &rec.Source, &specJSON, &createdStr)
	if errors.Is(err, sql.ErrNoRows) {
		return DatasetRecord{}, fmt.Errorf("%w: id %s", ErrNoDataset, id)
	}
	if err != nil {
		return DatasetRecord{}, fmt.Errorf("get dataset %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(specJSON), &rec.Spec); err != nil {
		return DatasetRecord{}, fmt.Errorf("unmarshal spec: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(timeLayout, createdStr)

	rows, err := s.db.Query(
		`SELECT name, vals FROM dataset_columns WHERE dataset_id = ? ORDER BY position ASC`, id,
	)
	if err != nil {
		return DatasetRecord{}, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var names []string
	var cols [][]float64
	for rows.Next() {
		var name string
		var blob []byte
		if err := rows.Scan(&name, &blob); err != nil {
			return DatasetRecord{}, fmt.Errorf("scan column: %w", err)
		}
		names = append(names, name)
		cols = append(cols, decodeColumn(blob))
	}
	if err := rows.Err(); err != nil {
		return DatasetRecord{}, fmt.Errorf("iterate columns: %w", err)
	}

	rec.Data, err = data.New(names, cols)
	if err != nil {
		return DatasetRecord{}, fmt.Errorf("rebuild dataset %s: %w", id, err)
	}
	return rec, nil
}

// LatestDataset returns the most recently stored dataset for source.
func (s *Store) LatestDataset(source string) (DatasetRecord, error) {
	var id string
	err := s.db.QueryRow(
		`SELECT dataset_id FROM datasets WHERE source = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`, source,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return DatasetRecord{}, fmt.Errorf("%w: source %q", ErrNoDataset, source)
	}
	if err != nil {
		return DatasetRecord{}, fmt.Errorf("latest dataset: %w", err)
	}
	return s.GetDataset(id)
}

// #endregion get-dataset

// #region runs
// SaveRun stores an estimation run and returns its ID. Non-finite
// parameters are stored as null and read back as NaN.
func (s *Store) SaveRun(rec RunRecord) (string, error) {
	if rec.RunID == "" {
		rec.RunID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	paramsJSON, err := json.Marshal(rec.Params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}

	var datasetPtr interface{}
	if rec.DatasetID != "" {
		datasetPtr = rec.DatasetID
	}
	// NaN is not representable in SQLite REAL.
	fval := rec.Fval
	if math.IsNaN(fval) {
		fval = math.Inf(1)
	}

	_, err = s.db.Exec(
		`INSERT INTO estimation_runs (run_id, dataset_id, success, status, fval, iterations, params_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, datasetPtr, rec.Success, rec.Status, fval, rec.Iterations,
		string(paramsJSON), rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return rec.RunID, nil
}

// ListRuns returns the most recent estimation runs.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, dataset_id, success, status, fval, iterations, params_json, created_at
		 FROM estimation_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var datasetID sql.NullString
		var paramsJSON, createdStr string
		if err := rows.Scan(&rec.RunID, &datasetID, &rec.Success, &rec.Status, &rec.Fval,
			&rec.Iterations, &paramsJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if datasetID.Valid {
			rec.DatasetID = datasetID.String
		}
		if err := json.Unmarshal([]byte(paramsJSON), &rec.Params); err != nil {
			return nil, fmt.Errorf("unmarshal params: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion runs

// #region column-encoding
func encodeColumn(v []float64) []byte {
	buf := make([]byte, len(v)*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decodeColumn(b []byte) []float64 {
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v
}

// #endregion column-encoding
