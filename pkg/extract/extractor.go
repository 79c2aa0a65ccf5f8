// Package extract projects raw tabular input into a clean, ordered
// MetricSeries. It is a pure transform: no I/O, no mutation of the
// input table.
package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vantagelabs/vantage/pkg/domain"
)

// Table is the boundary's parsed tabular input: a header row plus data
// rows of raw string cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the position of a named column.
func (t *Table) Column(name string) (int, bool) {
	for i, h := range t.Header {
		if h == name {
			return i, true
		}
	}
	return 0, false
}

// Hash returns a content hash of the table, used to key memoization.
func (t *Table) Hash() string {
	h := sha256.New()
	for _, cell := range t.Header {
		h.Write([]byte(cell))
		h.Write([]byte{0})
	}
	h.Write([]byte{1})
	for _, row := range t.Rows {
		for _, cell := range row {
			h.Write([]byte(cell))
			h.Write([]byte{0})
		}
		h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Options selects what to extract and how tolerant to be.
type Options struct {
	// Metric is the column to project. Required.
	Metric string
	// OrderBy optionally names a column to sort rows by before
	// indexing. It accepts numeric values or timestamps.
	OrderBy string
	// MaxMissingRatio is the tolerated fraction of non-coercible cells
	// in the metric column. Above it extraction fails. Empty cells are
	// missing values, not coercion failures.
	MaxMissingRatio float64
}

// timestamp layouts accepted for order-by columns, tried in order.
var orderLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Series projects the selected metric column into a MetricSeries.
// Rows whose metric cell is empty become missing points; rows whose
// cell is non-empty but not numeric count against MaxMissingRatio and
// become missing points with a warning when tolerated.
func Series(table *Table, opts Options, logger *zap.Logger) (*domain.MetricSeries, []domain.Diagnostic, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Metric == "" {
		return nil, nil, domain.NewSchemaError("metric", "metric column name is required")
	}
	if len(table.Header) == 0 {
		return nil, nil, domain.NewSchemaError("header", "table has no header row")
	}

	metricCol, ok := table.Column(opts.Metric)
	if !ok {
		return nil, nil, domain.NewSchemaError(opts.Metric, "metric column not found in header")
	}

	order := make([]int, len(table.Rows))
	for i := range order {
		order[i] = i
	}

	orderCol := -1
	if opts.OrderBy != "" {
		orderCol, ok = table.Column(opts.OrderBy)
		if !ok {
			return nil, nil, domain.NewSchemaError(opts.OrderBy, "order-by column not found in header")
		}
		keys := make([]float64, len(table.Rows))
		for i, row := range table.Rows {
			key, err := orderKey(cellAt(row, orderCol))
			if err != nil {
				return nil, nil, domain.WrapSchemaError(opts.OrderBy,
					fmt.Sprintf("row %d has an unsortable order key", i), err)
			}
			keys[i] = key
		}
		sort.SliceStable(order, func(a, b int) bool { return keys[order[a]] < keys[order[b]] })
	}

	points := make([]domain.SeriesPoint, 0, len(table.Rows))
	var diags []domain.Diagnostic
	badCells := 0
	for idx, rowIdx := range order {
		row := table.Rows[rowIdx]
		raw := strings.TrimSpace(cellAt(row, metricCol))
		point := domain.SeriesPoint{Index: idx}
		if orderCol >= 0 {
			point.Ordinal = strings.TrimSpace(cellAt(row, orderCol))
		} else {
			point.Ordinal = strconv.Itoa(rowIdx)
		}

		switch {
		case raw == "":
			point.Missing = true
		default:
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				badCells++
				point.Missing = true
				diags = append(diags, domain.Diagnostic{
					Code:      domain.DiagExtractionWarning,
					Component: "extract",
					Subject:   opts.Metric,
					Message:   fmt.Sprintf("row %d: cell %q is not numeric, treated as missing", rowIdx, raw),
				})
			} else {
				point.Value = value
			}
		}
		points = append(points, point)
	}

	if len(table.Rows) > 0 {
		ratio := float64(badCells) / float64(len(table.Rows))
		if ratio > opts.MaxMissingRatio {
			return nil, nil, domain.NewSchemaError(opts.Metric,
				fmt.Sprintf("%d of %d cells are not numeric-coercible (%.1f%% > %.1f%% tolerated)",
					badCells, len(table.Rows), ratio*100, opts.MaxMissingRatio*100))
		}
	}

	series := &domain.MetricSeries{Metric: opts.Metric, Points: points}
	logger.Debug("Extracted metric series",
		zap.String("metric", opts.Metric),
		zap.Int("points", series.Len()),
		zap.Int("present", series.PresentCount()))

	return series, diags, nil
}

// orderKey coerces an order-by cell into a sortable float. Numeric
// values sort as-is; timestamps sort by epoch nanoseconds.
func orderKey(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty order key")
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v, nil
	}
	for _, layout := range orderLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return float64(ts.UnixNano()), nil
		}
	}
	return 0, fmt.Errorf("value %q is neither numeric nor a recognized timestamp", raw)
}

func cellAt(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}
