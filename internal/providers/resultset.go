package providers

import (
	"fmt"
	"strconv"
)

// The stats API returns tabular payloads: named result sets with a header
// row and untyped cells. Conversion to typed values happens here so the
// rest of the codebase never touches interface{} cells.

type resultSetResponse struct {
	ResultSets []resultSet `json:"resultSets"`
}

type resultSet struct {
	Name    string          `json:"name"`
	Headers []string        `json:"headers"`
	RowSet  [][]interface{} `json:"rowSet"`
}

func (r *resultSetResponse) resultSet(name string) (*resultSet, error) {
	for i := range r.ResultSets {
		if r.ResultSets[i].Name == name {
			return &r.ResultSets[i], nil
		}
	}
	return nil, fmt.Errorf("result set %q not present in response", name)
}

type resultRow struct {
	index map[string]int
	cells []interface{}
}

func (rs *resultSet) row(i int) resultRow {
	index := make(map[string]int, len(rs.Headers))
	for j, h := range rs.Headers {
		index[h] = j
	}
	return resultRow{index: index, cells: rs.RowSet[i]}
}

func (r resultRow) cell(header string) interface{} {
	j, ok := r.index[header]
	if !ok || j >= len(r.cells) {
		return nil
	}
	return r.cells[j]
}

func (r resultRow) stringAt(header string) string {
	switch v := r.cell(header).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func (r resultRow) intAt(header string) int {
	switch v := r.cell(header).(type) {
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// optionalIntAt distinguishes absent/zero ids from real values; the stats
// API uses 0 for "no team".
func (r resultRow) optionalIntAt(header string) *int {
	n := r.intAt(header)
	if n == 0 {
		return nil
	}
	return &n
}
