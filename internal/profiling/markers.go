// Package profiling computes the exploratory statistics of the modeling table: per-column
// summaries, the numeric correlation matrix and top-N exports.
package profiling

// ColumnSummary holds the descriptive statistics of one numeric column.
// Std is the sample standard deviation; Skewness and Kurtosis are bias-corrected, with
// Kurtosis reported as excess kurtosis.
type ColumnSummary struct {
	Name     string  `json:"name"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	Min      float64 `json:"min"`
	Q25      float64 `json:"q25"`
	Median   float64 `json:"median"`
	Q75      float64 `json:"q75"`
	Max      float64 `json:"max"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
	Outliers int     `json:"outliers"`
}

// Row returns the summary as a header-aligned string slice for console tables
func (s ColumnSummary) Row(format func(float64) string) []string {
	return []string{
		s.Name,
		formatCount(s.Count),
		format(s.Mean),
		format(s.Std),
		format(s.Min),
		format(s.Q25),
		format(s.Median),
		format(s.Q75),
		format(s.Max),
		format(s.Skewness),
		format(s.Kurtosis),
		formatCount(s.Outliers),
	}
}

// SummaryHeader names the columns of Row
var SummaryHeader = []string{"column", "count", "mean", "std", "min", "25%", "50%", "75%", "max", "skew", "kurtosis", "outliers"}
