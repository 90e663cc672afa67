package formulas

import (
	"fmt"
	"math"
)

// RMSE calculates the root-mean-square deviation of a set of weight vectors from a reference
// vector. Every row is compared against the same reference, so the result is
//
//	sqrt( sum_{t,i} (rows[t][i] - ref[i])^2 / (T * N) )
func RMSE(rows [][]float64, ref []float64) (float64, error) {
	if len(rows) == 0 {
		return 0, fmt.Errorf("no rows provided")
	}
	if len(ref) == 0 {
		return 0, fmt.Errorf("empty reference vector")
	}

	var sumSq float64
	for t, row := range rows {
		if len(row) != len(ref) {
			return 0, fmt.Errorf("%w: row %d has %d entries, reference has %d", ErrDimensionMismatch, t, len(row), len(ref))
		}
		for i, v := range row {
			d := v - ref[i]
			sumSq += d * d
		}
	}

	return math.Sqrt(sumSq / float64(len(rows)*len(ref))), nil
}
