package estimate

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// tailCutoff is where the normal CDF switches to its asymptotic expansion.
// Below it Φ(x) underflows and distuv has no log-CDF.
const tailCutoff = -20.0

// logNormPDF returns log φ(x).
func logNormPDF(x float64) float64 {
	return distuv.UnitNormal.LogProb(x)
}

// logNormCDF returns log Φ(x), accurate far into the lower tail.
func logNormCDF(x float64) float64 {
	if x < tailCutoff {
		return logNormPDF(x) - math.Log(-x) + math.Log1p(-1/(x*x))
	}
	return math.Log(distuv.UnitNormal.CDF(x))
}

// mills returns the inverse Mills ratio φ(x)/Φ(x).
func mills(x float64) float64 {
	if x < tailCutoff {
		return -x / (1 - 1/(x*x))
	}
	return math.Exp(logNormPDF(x) - logNormCDF(x))
}
