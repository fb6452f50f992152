package model

import (
	"encoding/json"
	"math"
)

// paramsJSON mirrors Params with nullable numbers. encoding/json rejects
// NaN and ±Inf, which a diverged optimizer can produce.
type paramsJSON struct {
	Treated   []*float64 `json:"treated"`
	Untreated []*float64 `json:"untreated"`
	Choice    []*float64 `json:"choice"`
	Sigma1    *float64   `json:"sigma1"`
	Sigma0    *float64   `json:"sigma0"`
	Rho1V     *float64   `json:"rho1v"`
	Rho0V     *float64   `json:"rho0v"`
}

// MarshalJSON writes non-finite values as null.
func (p Params) MarshalJSON() ([]byte, error) {
	return json.Marshal(paramsJSON{
		Treated:   finiteList(p.Treated),
		Untreated: finiteList(p.Untreated),
		Choice:    finiteList(p.Choice),
		Sigma1:    finite(p.Sigma1),
		Sigma0:    finite(p.Sigma0),
		Rho1V:     finite(p.Rho1V),
		Rho0V:     finite(p.Rho0V),
	})
}

// UnmarshalJSON reads null as NaN.
func (p *Params) UnmarshalJSON(b []byte) error {
	var raw paramsJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = Params{
		Treated:   valueList(raw.Treated),
		Untreated: valueList(raw.Untreated),
		Choice:    valueList(raw.Choice),
		Sigma1:    value(raw.Sigma1),
		Sigma0:    value(raw.Sigma0),
		Rho1V:     value(raw.Rho1V),
		Rho0V:     value(raw.Rho0V),
	}
	return nil
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func finiteList(v []float64) []*float64 {
	if v == nil {
		return nil
	}
	out := make([]*float64, len(v))
	for i, x := range v {
		out[i] = finite(x)
	}
	return out
}

func value(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func valueList(v []*float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = value(x)
	}
	return out
}
