package profiling

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"lumen/internal/errors"
)

// Correlation is a Pearson correlation matrix over named columns
type Correlation struct {
	Names   []string
	Matrix  *mat.SymDense
	Dropped []string // numeric columns without variance
}

// At returns the coefficient between columns i and j
func (c *Correlation) At(i, j int) float64 {
	return c.Matrix.At(i, j)
}

// CorrelationMatrix computes pairwise Pearson correlation over the numeric columns of df.
// Rows with a NaN in any numeric column are left out, and constant columns are dropped
// because their coefficient is undefined.
func CorrelationMatrix(df dataframe.DataFrame) (*Correlation, error) {
	result := &Correlation{}
	var cols [][]float64
	for _, name := range NumericColumns(df) {
		values := df.Col(name).Float()
		if constant(values) {
			result.Dropped = append(result.Dropped, name)
			continue
		}
		result.Names = append(result.Names, name)
		cols = append(cols, values)
	}
	if len(cols) < 2 {
		return nil, errors.EmptyDataset("correlation needs at least two non-constant numeric columns")
	}

	rows := completeRows(cols)
	if len(rows) < 2 {
		return nil, errors.EmptyDataset("correlation needs at least two complete rows")
	}
	X := mat.NewDense(len(rows), len(cols), nil)
	for r, i := range rows {
		for j, col := range cols {
			X.Set(r, j, col[i])
		}
	}

	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, X, nil)
	result.Matrix = &corr
	return result, nil
}

func completeRows(cols [][]float64) []int {
	var rows []int
	for i := range cols[0] {
		ok := true
		for _, col := range cols {
			if math.IsNaN(col[i]) {
				ok = false
				break
			}
		}
		if ok {
			rows = append(rows, i)
		}
	}
	return rows
}

func constant(values []float64) bool {
	v := finite(values)
	for _, x := range v {
		if x != v[0] {
			return false
		}
	}
	return true
}
