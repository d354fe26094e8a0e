package query

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ethanbaker/tabletalk/internal/table"
	"github.com/expr-lang/expr"
)

// FunctionDocs describes the helpers available inside expressions. It is
// injected into the agent prompt so the model knows the vocabulary
var FunctionDocs = []string{
	"col(name) -> list of every value in the column, in row order",
	"total(list) -> sum of the numeric values",
	"average(list) -> mean of the numeric values",
	"middle(list) -> median of the numeric values",
	"largest(list) / smallest(list) -> maximum / minimum numeric value",
	"distinct(list) -> unique values in first-seen order",
	"tally(list) -> map of value to occurrence count",
	"pluck(rows, name) -> the named field of every row in a list of rows",
	"top(rows, name, n) -> the n rows with the largest value in the column",
}

// functions returns the expr options registering every table helper
func functions(t *table.Table) []expr.Option {
	return []expr.Option{
		expr.Function("col", func(params ...any) (any, error) {
			name, err := stringParam("col", params, 0)
			if err != nil {
				return nil, err
			}
			return t.Values(name)
		}),
		expr.Function("total", func(params ...any) (any, error) {
			nums, err := numericParam("total", params)
			if err != nil {
				return nil, err
			}
			var sum float64
			for _, n := range nums {
				sum += n
			}
			return sum, nil
		}),
		expr.Function("average", func(params ...any) (any, error) {
			nums, err := numericParam("average", params)
			if err != nil {
				return nil, err
			}
			if len(nums) == 0 {
				return nil, errors.New("average: no numeric values")
			}
			var sum float64
			for _, n := range nums {
				sum += n
			}
			return sum / float64(len(nums)), nil
		}),
		expr.Function("middle", func(params ...any) (any, error) {
			nums, err := numericParam("middle", params)
			if err != nil {
				return nil, err
			}
			if len(nums) == 0 {
				return nil, errors.New("middle: no numeric values")
			}
			sort.Float64s(nums)
			mid := len(nums) / 2
			if len(nums)%2 == 0 {
				return (nums[mid-1] + nums[mid]) / 2, nil
			}
			return nums[mid], nil
		}),
		expr.Function("largest", func(params ...any) (any, error) {
			return extreme("largest", params, math.Max)
		}),
		expr.Function("smallest", func(params ...any) (any, error) {
			return extreme("smallest", params, math.Min)
		}),
		expr.Function("distinct", func(params ...any) (any, error) {
			values, err := listParam("distinct", params, 0)
			if err != nil {
				return nil, err
			}
			seen := make(map[string]bool, len(values))
			unique := make([]any, 0, len(values))
			for _, v := range values {
				key := Format(v)
				if !seen[key] {
					seen[key] = true
					unique = append(unique, v)
				}
			}
			return unique, nil
		}),
		expr.Function("tally", func(params ...any) (any, error) {
			values, err := listParam("tally", params, 0)
			if err != nil {
				return nil, err
			}
			counts := make(map[string]int, len(values))
			for _, v := range values {
				counts[Format(v)]++
			}
			return counts, nil
		}),
		expr.Function("pluck", func(params ...any) (any, error) {
			rows, err := listParam("pluck", params, 0)
			if err != nil {
				return nil, err
			}
			name, err := stringParam("pluck", params, 1)
			if err != nil {
				return nil, err
			}
			return pluck(rows, name)
		}),
		expr.Function("top", func(params ...any) (any, error) {
			rows, err := listParam("top", params, 0)
			if err != nil {
				return nil, err
			}
			name, err := stringParam("top", params, 1)
			if err != nil {
				return nil, err
			}
			if len(params) < 3 {
				return nil, errors.New("top: expected (rows, name, n)")
			}
			n, ok := toFloat(params[2])
			if !ok || n < 0 {
				return nil, fmt.Errorf("top: n must be a non-negative number, got %v", params[2])
			}
			return top(rows, name, int(n))
		}),
	}
}

func stringParam(fn string, params []any, i int) (string, error) {
	if len(params) <= i {
		return "", fmt.Errorf("%s: missing argument %d", fn, i+1)
	}
	s, ok := params[i].(string)
	if !ok {
		return "", fmt.Errorf("%s: argument %d must be a string, got %T", fn, i+1, params[i])
	}
	return s, nil
}

func listParam(fn string, params []any, i int) ([]any, error) {
	if len(params) <= i {
		return nil, fmt.Errorf("%s: missing argument %d", fn, i+1)
	}

	switch v := params[i].(type) {
	case []any:
		return v, nil
	case []map[string]any:
		list := make([]any, len(v))
		for j, m := range v {
			list[j] = m
		}
		return list, nil
	case []float64:
		list := make([]any, len(v))
		for j, f := range v {
			list[j] = f
		}
		return list, nil
	case []string:
		list := make([]any, len(v))
		for j, s := range v {
			list[j] = s
		}
		return list, nil
	default:
		return nil, fmt.Errorf("%s: argument %d must be a list, got %T", fn, i+1, params[i])
	}
}

// numericParam collects the numeric members of the first argument, skipping
// empty cells and text
func numericParam(fn string, params []any) ([]float64, error) {
	values, err := listParam(fn, params, 0)
	if err != nil {
		return nil, err
	}

	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := toFloat(v); ok {
			nums = append(nums, f)
		}
	}
	return nums, nil
}

func extreme(fn string, params []any, pick func(a, b float64) float64) (any, error) {
	nums, err := numericParam(fn, params)
	if err != nil {
		return nil, err
	}
	if len(nums) == 0 {
		return nil, fmt.Errorf("%s: no numeric values", fn)
	}

	result := nums[0]
	for _, n := range nums[1:] {
		result = pick(result, n)
	}
	return result, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func pluck(rows []any, name string) ([]any, error) {
	values := make([]any, len(rows))
	for i, r := range rows {
		record, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("pluck: element %d is not a row", i)
		}
		v, exists := record[name]
		if !exists {
			return nil, fmt.Errorf("pluck: unknown column %q", name)
		}
		values[i] = v
	}
	return values, nil
}

func top(rows []any, name string, n int) ([]any, error) {
	type ranked struct {
		row   any
		value float64
	}

	candidates := make([]ranked, 0, len(rows))
	for i, r := range rows {
		record, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("top: element %d is not a row", i)
		}
		if f, ok := toFloat(record[name]); ok {
			candidates = append(candidates, ranked{row: r, value: f})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].value > candidates[j].value
	})

	if n > len(candidates) {
		n = len(candidates)
	}

	result := make([]any, n)
	for i := range n {
		result[i] = candidates[i].row
	}
	return result, nil
}
