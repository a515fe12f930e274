package profiling

import (
	"github.com/go-gota/gota/dataframe"

	"lumen/adapters/tabular"
	"lumen/internal/errors"
)

// TopN returns the n rows with the largest values of column, in descending order.
// Fewer rows are returned when the table is shorter than n.
func TopN(df dataframe.DataFrame, column string, n int) (dataframe.DataFrame, error) {
	if err := tabular.RequireColumns(df, column); err != nil {
		return dataframe.DataFrame{}, err
	}
	sorted := df.Arrange(dataframe.RevSort(column))
	if sorted.Err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(sorted.Err, "failed to sort by %s", column)
	}
	if sorted.Nrow() <= n {
		return sorted, nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	head := sorted.Subset(idx)
	if head.Err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(head.Err, "failed to take top %d rows", n)
	}
	return head, nil
}
