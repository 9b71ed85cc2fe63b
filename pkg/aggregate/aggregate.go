// Package aggregate implements client-side grouping and summary statistics over
// unstructured result rows. Questions are matched to an aggregation plan by a
// pluggable Planner; the default planner is keyword-driven.
package aggregate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Reduction is the result of a numeric aggregation over a set of rows.
type Reduction struct {
	Result float64
	Count  int
}

// Reduce computes an aggregation over rows. For "count" the field is ignored.
// For sum/avg/max/min the field is coerced to float64 per row; rows where the
// field is absent or non-numeric are dropped from the computation rather than
// treated as zero. An unknown aggregation type returns the surviving-value
// count as the result.
func Reduce(rows []map[string]any, aggType, field string) Reduction {
	if len(rows) == 0 {
		return Reduction{}
	}

	aggType = strings.ToLower(aggType)
	if aggType == "count" || field == "" {
		return Reduction{Result: float64(len(rows)), Count: len(rows)}
	}

	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		v, ok := row[field]
		if !ok {
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			continue
		}
		values = append(values, f)
	}

	if len(values) == 0 {
		return Reduction{}
	}

	switch aggType {
	case "sum":
		return Reduction{Result: sum(values), Count: len(values)}
	case "avg":
		return Reduction{Result: sum(values) / float64(len(values)), Count: len(values)}
	case "max":
		m := values[0]
		for _, v := range values[1:] {
			if v > m {
				m = v
			}
		}
		return Reduction{Result: m, Count: len(values)}
	case "min":
		m := values[0]
		for _, v := range values[1:] {
			if v < m {
				m = v
			}
		}
		return Reduction{Result: m, Count: len(values)}
	default:
		return Reduction{Result: float64(len(values)), Count: len(values)}
	}
}

// GroupBy partitions rows by the string value of groupField, reduces each
// partition, and emits one row per group: {groupField: key,
// "{aggType}_{aggField|items}": value, "count": members}. Rows missing the
// group field are dropped. Output is sorted by aggregated value descending;
// ties preserve the order groups were first seen.
func GroupBy(rows []map[string]any, groupField, aggField, aggType string) []map[string]any {
	groups := make(map[string][]map[string]any)
	order := make([]string, 0)

	for _, row := range rows {
		v, ok := row[groupField]
		if !ok {
			continue
		}
		key := fmt.Sprintf("%v", v)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}

	valueColumn := aggType + "_items"
	if aggField != "" {
		valueColumn = aggType + "_" + aggField
	}

	results := make([]map[string]any, 0, len(order))
	for _, key := range order {
		red := Reduce(groups[key], aggType, aggField)
		results = append(results, map[string]any{
			groupField:  key,
			valueColumn: red.Result,
			"count":     red.Count,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, _ := toFloat(results[i][valueColumn])
		b, _ := toFloat(results[j][valueColumn])
		return a > b
	})

	return results
}

// sortByField sorts rows by a numeric field descending. Values that cannot be
// coerced sort as zero.
func sortByField(rows []map[string]any, field string) []map[string]any {
	sorted := make([]map[string]any, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, _ := toFloat(sorted[i][field])
		b, _ := toFloat(sorted[j][field])
		return a > b
	})
	return sorted
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
