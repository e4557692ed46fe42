// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesis

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mrmallick07/project-samarth-backend/pkg/types"
)

// Portal datasets name the same logical columns inconsistently. Candidate
// lists are tried in order against the normalized field names of a dataset.
var (
	stateFieldCandidates    = []string{"state_name", "state", "state_ut_name", "subdivision"}
	districtFieldCandidates = []string{"district_name", "district"}
	cropFieldCandidates     = []string{"crop", "crop_name"}
	yearFieldCandidates     = []string{"crop_year", "year"}
	rainfallValueCandidates = []string{"annual", "annual_rainfall", "actual_rainfall", "rainfall"}
	productionCandidates    = []string{"production_", "production", "production_in_tonnes"}
)

var leadingYearRe = regexp.MustCompile(`^\s*((?:19|20)\d{2})`)

// findField returns the first candidate present in the dataset's records,
// as the original (un-normalized) field name usable with Record.Field.
func findField(records []types.DatasetRecord, candidates ...string) (string, bool) {
	if len(records) == 0 {
		return "", false
	}
	for _, cand := range candidates {
		want := types.NormalizeFieldName(cand)
		for name := range records[0].Fields {
			if types.NormalizeFieldName(name) == want {
				return name, true
			}
		}
	}
	return "", false
}

// numValue coerces a record field value to float64.
func numValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// strValue renders a record field value for string comparison.
func strValue(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

// recordYear extracts a 4-digit year from a field that may hold a number
// (2022) or a split-year string ("2022-23").
func recordYear(rec types.DatasetRecord, yearField string) (int, bool) {
	v, ok := rec.Field(yearField)
	if !ok {
		return 0, false
	}
	if f, ok := numValue(v); ok && f >= 1000 && f <= 9999 {
		return int(f), true
	}
	if m := leadingYearRe.FindStringSubmatch(strValue(v)); m != nil {
		y, _ := strconv.Atoi(m[1])
		return y, true
	}
	return 0, false
}

// matchField reports whether the record's field equals want, comparing
// case-insensitively after trimming.
func matchField(rec types.DatasetRecord, field, want string) bool {
	v, ok := rec.Field(field)
	if !ok {
		return false
	}
	return strings.EqualFold(strValue(v), strings.TrimSpace(want))
}

// yearSet turns a year window into a membership set; an empty window
// admits every year.
func yearSet(years []int) map[int]bool {
	if len(years) == 0 {
		return nil
	}
	set := make(map[int]bool, len(years))
	for _, y := range years {
		set[y] = true
	}
	return set
}

// seriesByYear averages the value field per year over the given window,
// skipping records with missing years or non-numeric values. Missing
// years are absent from the map, never zero.
func seriesByYear(records []types.DatasetRecord, yearField, valueField string, years []int) map[int]float64 {
	admit := yearSet(years)
	sums := make(map[int]float64)
	counts := make(map[int]int)

	for _, rec := range records {
		y, ok := recordYear(rec, yearField)
		if !ok || (admit != nil && !admit[y]) {
			continue
		}
		v, ok := rec.Field(valueField)
		if !ok {
			continue
		}
		f, ok := numValue(v)
		if !ok {
			continue
		}
		sums[y] += f
		counts[y]++
	}

	series := make(map[int]float64, len(sums))
	for y, sum := range sums {
		series[y] = sum / float64(counts[y])
	}
	return series
}

// sortedYears returns the series keys in chronological order.
func sortedYears(series map[int]float64) []int {
	years := make([]int, 0, len(series))
	for y := range series {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// mean is the arithmetic mean of the series values; ok is false for an
// empty series.
func mean(series map[int]float64) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series)), true
}

// pearson computes the Pearson correlation coefficient of two equal-length
// samples. Degenerate samples (length < 2 or zero variance) return ok false.
func pearson(xs, ys []float64) (float64, bool) {
	n := len(xs)
	if n != len(ys) || n < 2 {
		return 0, false
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}
	return cov / math.Sqrt(varX*varY), true
}

// describeCorrelation renders a coefficient as qualitative prose.
func describeCorrelation(r float64) string {
	strength := "weak"
	switch abs := math.Abs(r); {
	case abs >= 0.7:
		strength = "strong"
	case abs >= 0.4:
		strength = "moderate"
	}
	direction := "positive"
	if r < 0 {
		direction = "negative"
	}
	return strength + " " + direction
}

// formatNum renders a value with one decimal place, dropping a trailing .0.
func formatNum(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}
