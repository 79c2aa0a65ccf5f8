package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vantagelabs/vantage/pkg/domain"
)

func table(header []string, rows ...[]string) *Table {
	return &Table{Header: header, Rows: rows}
}

func TestSeries_Basic(t *testing.T) {
	tbl := table([]string{"day", "value"},
		[]string{"mon", "10"},
		[]string{"tue", "12.5"},
		[]string{"wed", " 9 "},
	)

	series, diags, err := Series(tbl, Options{Metric: "value"}, zaptest.NewLogger(t))

	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Equal(t, 3, series.Len())
	assert.Equal(t, []float64{10, 12.5, 9}, series.PresentValues())
	assert.Equal(t, 0, series.Points[0].Index)
	assert.Equal(t, 2, series.Points[2].Index)
}

func TestSeries_EmptyCellsAreMissing(t *testing.T) {
	tbl := table([]string{"value"},
		[]string{"10"},
		[]string{""},
		[]string{"30"},
	)

	series, diags, err := Series(tbl, Options{Metric: "value"}, zaptest.NewLogger(t))

	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.True(t, series.Points[1].Missing)
	assert.Equal(t, 2, series.PresentCount())
}

func TestSeries_NonCoercibleFatalByDefault(t *testing.T) {
	tbl := table([]string{"value"},
		[]string{"10"},
		[]string{"n/a"},
	)

	_, _, err := Series(tbl, Options{Metric: "value"}, zaptest.NewLogger(t))

	var schemaErr *domain.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "value", schemaErr.Field)
}

func TestSeries_NonCoercibleWithinTolerance(t *testing.T) {
	tbl := table([]string{"value"},
		[]string{"10"},
		[]string{"n/a"},
		[]string{"30"},
		[]string{"40"},
	)

	series, diags, err := Series(tbl, Options{Metric: "value", MaxMissingRatio: 0.5}, zaptest.NewLogger(t))

	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, domain.DiagExtractionWarning, diags[0].Code)
	assert.True(t, series.Points[1].Missing)
	assert.Equal(t, []float64{10, 30, 40}, series.PresentValues())
}

func TestSeries_MetricColumnAbsent(t *testing.T) {
	tbl := table([]string{"a"}, []string{"1"})

	_, _, err := Series(tbl, Options{Metric: "value"}, zaptest.NewLogger(t))

	var schemaErr *domain.SchemaError
	require.True(t, errors.As(err, &schemaErr))
}

func TestSeries_OrderByNumeric(t *testing.T) {
	tbl := table([]string{"seq", "value"},
		[]string{"3", "30"},
		[]string{"1", "10"},
		[]string{"2", "20"},
	)

	series, _, err := Series(tbl, Options{Metric: "value", OrderBy: "seq"}, zaptest.NewLogger(t))

	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30}, series.PresentValues())
	assert.Equal(t, "1", series.Points[0].Ordinal)
	// Indices are reassigned after ordering.
	assert.Equal(t, []int{0, 1, 2}, []int{series.Points[0].Index, series.Points[1].Index, series.Points[2].Index})
}

func TestSeries_OrderByTimestamp(t *testing.T) {
	tbl := table([]string{"ts", "value"},
		[]string{"2026-02-03", "3"},
		[]string{"2026-02-01", "1"},
		[]string{"2026-02-02", "2"},
	)

	series, _, err := Series(tbl, Options{Metric: "value", OrderBy: "ts"}, zaptest.NewLogger(t))

	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, series.PresentValues())
}

func TestSeries_OrderByUnsortable(t *testing.T) {
	tbl := table([]string{"ts", "value"},
		[]string{"sometime", "1"},
	)

	_, _, err := Series(tbl, Options{Metric: "value", OrderBy: "ts"}, zaptest.NewLogger(t))

	var schemaErr *domain.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "ts", schemaErr.Field)
}

func TestSeries_OrderByStable(t *testing.T) {
	tbl := table([]string{"seq", "value"},
		[]string{"1", "10"},
		[]string{"1", "20"},
		[]string{"1", "30"},
	)

	series, _, err := Series(tbl, Options{Metric: "value", OrderBy: "seq"}, zaptest.NewLogger(t))

	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30}, series.PresentValues())
}

func TestTable_HashStable(t *testing.T) {
	a := table([]string{"x"}, []string{"1"}, []string{"2"})
	b := table([]string{"x"}, []string{"1"}, []string{"2"})
	c := table([]string{"x"}, []string{"1"}, []string{"3"})

	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestSeries_RaggedRows(t *testing.T) {
	tbl := table([]string{"a", "value"},
		[]string{"1", "10"},
		[]string{"2"},
	)

	series, _, err := Series(tbl, Options{Metric: "value"}, zaptest.NewLogger(t))

	require.NoError(t, err)
	assert.True(t, series.Points[1].Missing)
}
