package profiling

import (
	"math"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"lumen/internal/errors"
)

// Describe computes the summary statistics of one column. NaN values are ignored.
func Describe(name string, data []float64) (ColumnSummary, error) {
	values := finite(data)
	summary := ColumnSummary{Name: name, Count: len(values)}
	if len(values) == 0 {
		return summary, errors.EmptyDataset("column " + name + " has no values")
	}

	var err error
	if summary.Mean, err = stats.Mean(values); err != nil {
		return summary, err
	}
	if len(values) > 1 {
		if summary.Std, err = stats.StandardDeviationSample(values); err != nil {
			return summary, err
		}
	}
	if summary.Min, err = stats.Min(values); err != nil {
		return summary, err
	}
	if summary.Max, err = stats.Max(values); err != nil {
		return summary, err
	}
	if summary.Median, err = stats.Median(values); err != nil {
		return summary, err
	}

	// Quartiles for IQR-based outlier detection
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	summary.Q25 = stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	summary.Q75 = stat.Quantile(0.75, stat.LinInterp, sorted, nil)

	summary.Skewness = calculateSkewness(values, summary.Mean)
	summary.Kurtosis = calculateKurtosis(values, summary.Mean)
	summary.Outliers = detectOutliers(values, summary.Q25, summary.Q75)
	return summary, nil
}

// DescribeFrame summarizes every numeric column of df in column order
func DescribeFrame(df dataframe.DataFrame) ([]ColumnSummary, error) {
	var out []ColumnSummary
	for _, name := range NumericColumns(df) {
		summary, err := Describe(name, df.Col(name).Float())
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

// NumericColumns lists the int and float columns of df in column order
func NumericColumns(df dataframe.DataFrame) []string {
	var names []string
	for i, t := range df.Types() {
		if t == series.Int || t == series.Float {
			names = append(names, df.Names()[i])
		}
	}
	return names
}

// centralMoment returns the population central moment of order k
func centralMoment(data []float64, mean float64, k int) float64 {
	sum := 0.0
	for _, x := range data {
		sum += math.Pow(x-mean, float64(k))
	}
	return sum / float64(len(data))
}

// calculateSkewness computes sample skewness using the adjusted Fisher-Pearson coefficient
func calculateSkewness(data []float64, mean float64) float64 {
	if len(data) < 3 {
		return 0
	}
	n := float64(len(data))
	m2 := centralMoment(data, mean, 2)
	if m2 == 0 {
		return 0
	}
	g1 := centralMoment(data, mean, 3) / math.Pow(m2, 1.5)
	return g1 * math.Sqrt(n*(n-1)) / (n - 2)
}

// calculateKurtosis computes bias-corrected sample excess kurtosis
func calculateKurtosis(data []float64, mean float64) float64 {
	if len(data) < 4 {
		return 0
	}
	n := float64(len(data))
	m2 := centralMoment(data, mean, 2)
	if m2 == 0 {
		return 0
	}
	g2 := centralMoment(data, mean, 4)/(m2*m2) - 3
	return ((n+1)*g2 + 6) * (n - 1) / ((n - 2) * (n - 3))
}

// detectOutliers identifies outliers using IQR method
func detectOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lowerBound := q25 - 1.5*iqr
	upperBound := q75 + 1.5*iqr

	outlierCount := 0
	for _, x := range data {
		if x < lowerBound || x > upperBound {
			outlierCount++
		}
	}
	return outlierCount
}

func finite(data []float64) []float64 {
	out := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func formatCount(n int) string {
	return strconv.Itoa(n)
}
