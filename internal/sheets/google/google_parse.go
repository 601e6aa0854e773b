package google

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"fhtally/internal/core"
)

// parseReportRows converts a values matrix (as returned by Sheets API for
// A:<count>) into report rows. The first row is the header and is skipped,
// as are rows without both a month and a category column.
func parseReportRows(values [][]interface{}, countColumn int) []core.ReportRow {
	var out []core.ReportRow
	for i := 1; i < len(values); i++ {
		cols := toStrings(values[i])
		if len(cols) < 2 {
			continue
		}
		out = append(out, core.ReportRow{
			Row:      i + 1,
			Month:    cols[0],
			Category: cols[1],
			Count:    parseCount(safeGet(cols, countColumn-1)),
		})
	}
	return out
}

// parseRow converts the values of a single-row read. A blank row yields a
// ReportRow with empty month and category.
func parseRow(values [][]interface{}, row, countColumn int) core.ReportRow {
	r := core.ReportRow{Row: row}
	if len(values) == 0 {
		return r
	}
	cols := toStrings(values[0])
	r.Month = safeGet(cols, 0)
	r.Category = safeGet(cols, 1)
	r.Count = parseCount(safeGet(cols, countColumn-1))
	return r
}

// parseCount treats blank or non-numeric cells as zero.
func parseCount(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}
	// "3.0" comes back when the column is formatted as a number
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f == math.Trunc(f) {
		return int(f)
	}
	return 0
}

// a1Range quotes the sheet name so titles with spaces or quotes are valid A1 notation.
func a1Range(sheet, rng string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheet, "'", "''"), rng)
}

// columnLetter converts a 1-based column number to its letter(s): 1 -> A, 27 -> AA.
func columnLetter(n int) string {
	if n < 1 {
		return ""
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

func headerMatches(got []interface{}, want []string) bool {
	cols := toStrings(got)
	if len(cols) != len(want) {
		return false
	}
	for i := range want {
		if cols[i] != want[i] {
			return false
		}
	}
	return true
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
