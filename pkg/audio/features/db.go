package features

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Decibel conversion floor
const amin = 1e-10

// PowerToDB converts a power matrix to decibels relative to 1.0. When topDB
// is positive every value is clamped to at least max-topDB, where max is
// taken over the whole matrix.
func PowerToDB(power mat.Matrix, topDB float64) *mat.Dense {
	r, c := power.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 {
		return 10 * math.Log10(math.Max(amin, v))
	}, power)

	if topDB > 0 {
		floor := mat.Max(out) - topDB
		out.Apply(func(_, _ int, v float64) float64 {
			return math.Max(v, floor)
		}, out)
	}
	return out
}
