package smoke

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"

	"github.com/danielpatrickdp/grmpy-go/internal/check"
)

// Reference run: seed 123 and the criterion value this implementation
// reproduces for it.
const (
	DefaultSeed      uint64  = 123
	DefaultFval      float64 = 2.0468714383004647
	DefaultTolerance float64 = 0.00001
)

// LegacyFval is the seed-123 criterion value of the earlier grmpy release.
// Its random streams differ, so this implementation cannot reproduce it;
// it ships as testdata/reference.json for comparison runs.
const LegacyFval float64 = 0.734631068458

// #region fixture-types
// Fixture pins the criterion value a seeded smoke run must reproduce. The
// value only applies to the seed it was recorded with.
type Fixture struct {
	Description string  `json:"description"`
	Seed        uint64  `json:"seed"`
	Fval        float64 `json:"fval"`
	Tolerance   float64 `json:"tolerance"`
}

// DefaultFixture returns the built-in reference for seed 123.
func DefaultFixture() Fixture {
	return Fixture{
		Description: "reference estimation run for seed 123",
		Seed:        DefaultSeed,
		Fval:        DefaultFval,
		Tolerance:   DefaultTolerance,
	}
}

// CheckConfig returns the check configuration for a run with seed. Runs
// with any other seed are only checked for convergence.
func (f Fixture) CheckConfig(seed uint64) check.Config {
	c := check.DefaultConfig()
	if f.Tolerance > 0 {
		c.Tolerance = f.Tolerance
	}
	if seed == f.Seed {
		c.HasReference = true
		c.ReferenceFval = f.Fval
	}
	return c
}

// #endregion fixture-types

// #region fixture-loader
// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture stores f as indented JSON, replacing path atomically.
func WriteFixture(path string, f Fixture) error {
	out, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	out = append(out, '\n')
	if err := atomic.WriteFile(path, bytes.NewReader(out)); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-loader
