// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesis computes the statistic a parsed query asks for from
// one or more normalized datasets and renders it as prose with citations.
// Every number in the rendered answer is computed from dataset records;
// nothing is ever invented, and each consulted dataset contributes exactly
// one citation in first-use order.
package synthesis

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mrmallick07/project-samarth-backend/internal/datagov"
	"github.com/mrmallick07/project-samarth-backend/pkg/types"
)

// nowFunc anchors relative and default year windows. Tests override it.
var nowFunc = time.Now

// ErrInsufficientData marks a query whose requested statistic cannot be
// computed from the available records. The coordinator converts it into a
// soft failure answer.
var ErrInsufficientData = errors.New("insufficient data for the requested statistic")

// defaultYearWindow is the number of recent complete years used when a
// query carries no year signal.
const defaultYearWindow = 4

// Result is the synthesized answer with its provenance.
type Result struct {
	Answer   string
	Sources  []types.Citation
	Metadata map[string]any
}

// Synthesize dispatches on the intent's query type and computes the answer
// from the fetched datasets, keyed by registry dataset id.
func Synthesize(intent types.Intent, datasets map[string]*types.DatasetResult) (Result, error) {
	years := resolveYears(intent)
	cits := &citationList{}

	var answer string
	var err error
	md := map[string]any{
		"query_type": string(intent.Type),
		"years":      years,
	}
	if len(intent.States) > 0 {
		md["states"] = intent.States
	}
	if len(intent.Crops) > 0 {
		md["crops"] = intent.Crops
	}

	switch intent.Type {
	case types.QueryComparison:
		answer, err = comparison(intent, datasets, years, cits)
	case types.QueryExtreme:
		answer, err = extreme(intent, datasets, years, cits, md)
	case types.QueryTrend:
		answer, err = trend(intent, datasets, years, cits)
	case types.QueryCorrelation:
		answer, err = correlation(intent, datasets, years, cits, md)
	default:
		answer, err = generic(intent, datasets, cits)
	}
	if err != nil {
		return Result{Sources: cits.list, Metadata: md}, err
	}

	return Result{Answer: answer, Sources: cits.list, Metadata: md}, nil
}

// resolveYears materializes the intent's year window, defaulting to the
// last complete calendar years when the query gave no signal.
func resolveYears(intent types.Intent) []int {
	if years := intent.Years.Resolve(nowFunc()); len(years) > 0 {
		return years
	}
	last := nowFunc().Year() - 1
	years := make([]int, 0, defaultYearWindow)
	for y := last - defaultYearWindow + 1; y <= last; y++ {
		years = append(years, y)
	}
	return years
}

// citationList collects one citation per consulted dataset, deduplicated
// by resource id, preserving first-use order.
type citationList struct {
	seen map[string]bool
	list []types.Citation
}

func (c *citationList) use(d *types.DatasetResult) {
	if d == nil {
		return
	}
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	if c.seen[d.ResourceID] {
		return
	}
	c.seen[d.ResourceID] = true
	c.list = append(c.list, d.Citation())
}

// yearRangeLabel renders a window like "2019-2023" or "2023".
func yearRangeLabel(years []int) string {
	if len(years) == 0 {
		return ""
	}
	lo, hi := years[0], years[0]
	for _, y := range years {
		if y < lo {
			lo = y
		}
		if y > hi {
			hi = y
		}
	}
	if lo == hi {
		return fmt.Sprintf("%d", lo)
	}
	return fmt.Sprintf("%d-%d", lo, hi)
}

// comparison renders a side-by-side aggregate for each compared entity.
// States compare average annual rainfall; crops compare average production.
func comparison(intent types.Intent, datasets map[string]*types.DatasetResult, years []int, cits *citationList) (string, error) {
	rain := datasets[datagov.DatasetRainfall]
	prod := datasets[datagov.DatasetCropProduction]

	var b strings.Builder

	switch {
	case len(intent.States) >= 2 && rain != nil:
		stateField, okS := findField(rain.Records, stateFieldCandidates...)
		yearField, okY := findField(rain.Records, yearFieldCandidates...)
		valueField, okV := findField(rain.Records, rainfallValueCandidates...)
		if !okS || !okY || !okV {
			return "", fmt.Errorf("rainfall dataset lacks state/year/value columns: %w", ErrInsufficientData)
		}

		fmt.Fprintf(&b, "**Rainfall Comparison (%s)**\n\n", yearRangeLabel(years))
		found := 0
		for _, state := range intent.States {
			var filtered []types.DatasetRecord
			for _, rec := range rain.Records {
				if matchField(rec, stateField, state) {
					filtered = append(filtered, rec)
				}
			}
			series := seriesByYear(filtered, yearField, valueField, years)
			avg, ok := mean(series)
			if !ok {
				fmt.Fprintf(&b, "**%s:** no rainfall records for this period\n", state)
				continue
			}
			found++
			fmt.Fprintf(&b, "**%s:** average annual rainfall %s mm across %d year(s)\n",
				state, formatNum(avg), len(series))
		}
		if found == 0 {
			return "", fmt.Errorf("no rainfall records for %s: %w",
				strings.Join(intent.States, ", "), ErrInsufficientData)
		}
		cits.use(rain)

		// A named crop adds a production side-by-side from the second
		// dataset when it was fetched.
		if prod != nil && len(intent.Crops) > 0 {
			if section, err := productionComparison(intent.States, intent.Crops[0], prod, years); err == nil {
				b.WriteString("\n" + section)
				cits.use(prod)
			}
		}
		return b.String(), nil

	case len(intent.Crops) >= 2 && prod != nil:
		section, err := cropComparison(intent, prod, years)
		if err != nil {
			return "", err
		}
		cits.use(prod)
		return section, nil

	case len(intent.States) >= 2 && len(intent.Crops) > 0 && prod != nil:
		// Rainfall was wanted but did not arrive; a per-state production
		// comparison is still a complete answer from what succeeded.
		section, err := productionComparison(intent.States, intent.Crops[0], prod, years)
		if err != nil {
			return "", err
		}
		cits.use(prod)
		return section, nil

	default:
		return "", fmt.Errorf("comparison needs at least two states or two crops and a matching dataset: %w", ErrInsufficientData)
	}
}

// productionComparison renders per-state average production of one crop.
func productionComparison(states []string, crop string, prod *types.DatasetResult, years []int) (string, error) {
	stateField, okS := findField(prod.Records, stateFieldCandidates...)
	yearField, okY := findField(prod.Records, yearFieldCandidates...)
	valueField, okV := findField(prod.Records, productionCandidates...)
	cropField, okC := findField(prod.Records, cropFieldCandidates...)
	if !okS || !okY || !okV || !okC {
		return "", ErrInsufficientData
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s Production (%s)**\n\n", crop, yearRangeLabel(years))
	found := 0
	for _, state := range states {
		var filtered []types.DatasetRecord
		for _, rec := range prod.Records {
			if matchField(rec, stateField, state) && matchField(rec, cropField, crop) {
				filtered = append(filtered, rec)
			}
		}
		series := seriesByYear(filtered, yearField, valueField, years)
		avg, ok := mean(series)
		if !ok {
			fmt.Fprintf(&b, "**%s:** no %s production records for this period\n", state, crop)
			continue
		}
		found++
		fmt.Fprintf(&b, "**%s:** average %s production %s tonnes/year\n", state, crop, formatNum(avg))
	}
	if found == 0 {
		return "", ErrInsufficientData
	}
	return b.String(), nil
}

// cropComparison renders per-crop average production, optionally within a
// single state.
func cropComparison(intent types.Intent, prod *types.DatasetResult, years []int) (string, error) {
	cropField, okC := findField(prod.Records, cropFieldCandidates...)
	yearField, okY := findField(prod.Records, yearFieldCandidates...)
	valueField, okV := findField(prod.Records, productionCandidates...)
	if !okC || !okY || !okV {
		return "", fmt.Errorf("production dataset lacks crop/year/value columns: %w", ErrInsufficientData)
	}

	stateField, haveStateField := findField(prod.Records, stateFieldCandidates...)
	scope := ""
	if len(intent.States) == 1 && haveStateField {
		scope = intent.States[0]
	}

	var b strings.Builder
	title := "**Crop Production Comparison"
	if scope != "" {
		title += " in " + scope
	}
	fmt.Fprintf(&b, "%s (%s)**\n\n", title, yearRangeLabel(years))

	found := 0
	for _, crop := range intent.Crops {
		var filtered []types.DatasetRecord
		for _, rec := range prod.Records {
			if !matchField(rec, cropField, crop) {
				continue
			}
			if scope != "" && !matchField(rec, stateField, scope) {
				continue
			}
			filtered = append(filtered, rec)
		}
		series := seriesByYear(filtered, yearField, valueField, years)
		avg, ok := mean(series)
		if !ok {
			fmt.Fprintf(&b, "**%s:** no production records for this period\n", crop)
			continue
		}
		found++
		fmt.Fprintf(&b, "**%s:** average production %s tonnes/year\n", crop, formatNum(avg))
	}
	if found == 0 {
		return "", fmt.Errorf("no production records for %s: %w",
			strings.Join(intent.Crops, ", "), ErrInsufficientData)
	}
	return b.String(), nil
}

// extreme scans districts for the highest and lowest value of the target
// crop and reports each with its share of the state total.
func extreme(intent types.Intent, datasets map[string]*types.DatasetResult, years []int, cits *citationList, md map[string]any) (string, error) {
	prod := datasets[datagov.DatasetCropProduction]
	if prod == nil {
		return "", fmt.Errorf("extremes need the crop production dataset: %w", ErrInsufficientData)
	}

	districtField, okD := findField(prod.Records, districtFieldCandidates...)
	yearField, okY := findField(prod.Records, yearFieldCandidates...)
	valueField, okV := findField(prod.Records, productionCandidates...)
	if !okD || !okY || !okV {
		return "", fmt.Errorf("production dataset lacks district/year/value columns: %w", ErrInsufficientData)
	}

	cropField, haveCropField := findField(prod.Records, cropFieldCandidates...)
	stateField, haveStateField := findField(prod.Records, stateFieldCandidates...)

	var crop, state string
	if len(intent.Crops) > 0 {
		crop = intent.Crops[0]
	}
	if len(intent.States) > 0 {
		state = intent.States[0]
	}

	admit := yearSet(years)
	sums := make(map[string]float64)
	latestYear := 0
	for _, rec := range prod.Records {
		if crop != "" && haveCropField && !matchField(rec, cropField, crop) {
			continue
		}
		if state != "" && haveStateField && !matchField(rec, stateField, state) {
			continue
		}
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
		district, _ := rec.Field(districtField)
		name := strValue(district)
		if name == "" {
			continue
		}
		sums[name] += f
		if y > latestYear {
			latestYear = y
		}
	}
	if len(sums) == 0 {
		return "", fmt.Errorf("no matching production records: %w", ErrInsufficientData)
	}

	var total float64
	maxName, minName := "", ""
	maxVal, minVal := 0.0, 0.0
	for name, v := range sums {
		total += v
		if maxName == "" || v > maxVal {
			maxName, maxVal = name, v
		}
		if minName == "" || v < minVal {
			minName, minVal = name, v
		}
	}

	subject := "Production"
	if crop != "" {
		subject = crop + " Production"
	}
	scope := ""
	if state != "" {
		scope = " in " + state
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s Extremes%s (%s)**\n\n", subject, scope, yearRangeLabel(years))
	fmt.Fprintf(&b, "- Highest producing district: %s with %s tonnes (%s%% of the regional total)\n",
		maxName, formatNum(maxVal), formatNum(maxVal/total*100))
	if minName != maxName {
		fmt.Fprintf(&b, "- Lowest producing district: %s with %s tonnes (%s%% of the regional total)\n",
			minName, formatNum(minVal), formatNum(minVal/total*100))
	}
	fmt.Fprintf(&b, "- Districts considered: %d, combined production %s tonnes\n", len(sums), formatNum(total))

	md["districts"] = len(sums)
	if latestYear > 0 {
		md["latest_year"] = latestYear
	}

	cits.use(prod)
	return b.String(), nil
}

// trend reports the chronological movement of the primary series and, when
// a climate dataset is also present, its qualitative co-movement.
func trend(intent types.Intent, datasets map[string]*types.DatasetResult, years []int, cits *citationList) (string, error) {
	prod := datasets[datagov.DatasetCropProduction]
	rain := datasets[datagov.DatasetRainfall]

	var primary, secondary *types.DatasetResult
	switch {
	case len(intent.Crops) > 0 && prod != nil:
		primary, secondary = prod, rain
	case rain != nil:
		primary, secondary = rain, prod
	default:
		primary, secondary = prod, rain
	}
	if primary == nil {
		return "", fmt.Errorf("trend needs at least one dataset: %w", ErrInsufficientData)
	}

	series, label, err := entitySeries(intent, primary, years)
	if err != nil {
		return "", err
	}
	order := sortedYears(series)
	if len(order) < 2 {
		return "", fmt.Errorf("trend needs at least two years of data: %w", ErrInsufficientData)
	}

	first, last := series[order[0]], series[order[len(order)-1]]
	direction := "stable"
	switch {
	case last > first:
		direction = "rising"
	case last < first:
		direction = "falling"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s Trend (%d-%d)**\n\n", label, order[0], order[len(order)-1])
	for _, y := range order {
		fmt.Fprintf(&b, "- %d: %s\n", y, formatNum(series[y]))
	}
	change := 0.0
	if first != 0 {
		change = (last - first) / first * 100
	}
	fmt.Fprintf(&b, "\nThe series is %s: %s in %d against %s in %d (%s%% change).\n",
		direction, formatNum(last), order[len(order)-1], formatNum(first), order[0], formatNum(change))
	cits.use(primary)

	if secondary != nil {
		if sentence, ok := coMovement(intent, series, secondary, years); ok {
			b.WriteString(sentence)
			cits.use(secondary)
		}
	}
	return b.String(), nil
}

// entitySeries builds the per-year series for the intent's target entity
// from one dataset, labeling it for prose.
func entitySeries(intent types.Intent, ds *types.DatasetResult, years []int) (map[int]float64, string, error) {
	yearField, okY := findField(ds.Records, yearFieldCandidates...)
	if !okY {
		return nil, "", fmt.Errorf("dataset %s lacks a year column: %w", ds.ResourceID, ErrInsufficientData)
	}

	valueField, label := "", ""
	if f, ok := findField(ds.Records, productionCandidates...); ok {
		valueField, label = f, "Production"
	} else if f, ok := findField(ds.Records, rainfallValueCandidates...); ok {
		valueField, label = f, "Rainfall"
	} else {
		return nil, "", fmt.Errorf("dataset %s lacks a value column: %w", ds.ResourceID, ErrInsufficientData)
	}

	records := ds.Records
	if len(intent.States) > 0 {
		if stateField, ok := findField(ds.Records, stateFieldCandidates...); ok {
			records = filterMatching(records, stateField, intent.States[0])
			label += " in " + intent.States[0]
		}
	}
	if label == "Production" || strings.HasPrefix(label, "Production ") {
		if len(intent.Crops) > 0 {
			if cropField, ok := findField(ds.Records, cropFieldCandidates...); ok {
				records = filterMatching(records, cropField, intent.Crops[0])
				label = intent.Crops[0] + " " + label
			}
		}
	}

	return seriesByYear(records, yearField, valueField, years), label, nil
}

func filterMatching(records []types.DatasetRecord, field, want string) []types.DatasetRecord {
	var out []types.DatasetRecord
	for _, rec := range records {
		if matchField(rec, field, want) {
			out = append(out, rec)
		}
	}
	return out
}

// coMovement correlates the primary series with the secondary dataset's
// series over overlapping years and renders one qualitative sentence.
func coMovement(intent types.Intent, primary map[int]float64, secondary *types.DatasetResult, years []int) (string, bool) {
	other, _, err := entitySeries(intent, secondary, years)
	if err != nil {
		return "", false
	}

	var xs, ys []float64
	for _, y := range sortedYears(primary) {
		if v, ok := other[y]; ok {
			xs = append(xs, primary[y])
			ys = append(ys, v)
		}
	}
	r, ok := pearson(xs, ys)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("Across the %d overlapping years the two series show a %s correlation.\n",
		len(xs), describeCorrelation(r)), true
}

// correlation pairs the rainfall and production series by year and
// reports the direction and strength of their co-movement.
func correlation(intent types.Intent, datasets map[string]*types.DatasetResult, years []int, cits *citationList, md map[string]any) (string, error) {
	rain := datasets[datagov.DatasetRainfall]
	prod := datasets[datagov.DatasetCropProduction]
	if rain == nil || prod == nil {
		return "", fmt.Errorf("correlation needs both the rainfall and production datasets: %w", ErrInsufficientData)
	}

	rainSeries, rainLabel, err := entitySeries(intent, rain, years)
	if err != nil {
		return "", err
	}
	prodSeries, prodLabel, err := entitySeries(intent, prod, years)
	if err != nil {
		return "", err
	}

	var overlap []int
	for _, y := range sortedYears(rainSeries) {
		if _, ok := prodSeries[y]; ok {
			overlap = append(overlap, y)
		}
	}
	if len(overlap) < 2 {
		return "", fmt.Errorf("correlation needs at least two overlapping years: %w", ErrInsufficientData)
	}

	xs := make([]float64, len(overlap))
	ys := make([]float64, len(overlap))
	for i, y := range overlap {
		xs[i] = rainSeries[y]
		ys[i] = prodSeries[y]
	}
	r, ok := pearson(xs, ys)
	if !ok {
		return "", fmt.Errorf("series have no variance to correlate: %w", ErrInsufficientData)
	}

	cits.use(rain)
	cits.use(prod)
	md["overlap_years"] = overlap
	md["correlation"] = r

	var b strings.Builder
	fmt.Fprintf(&b, "**Correlation: %s vs %s (%d-%d)**\n\n",
		rainLabel, prodLabel, overlap[0], overlap[len(overlap)-1])
	fmt.Fprintf(&b, "Across %d overlapping years the series show a %s correlation (coefficient %s).\n",
		len(overlap), describeCorrelation(r), formatNum(r))
	rainAvg, _ := mean(rainSeries)
	prodAvg, _ := mean(prodSeries)
	fmt.Fprintf(&b, "Average %s: %s mm; average %s: %s tonnes.\n",
		strings.ToLower(rainLabel), formatNum(rainAvg), strings.ToLower(prodLabel), formatNum(prodAvg))
	return b.String(), nil
}

// generic summarizes whatever was fetched without a statistical operation.
func generic(intent types.Intent, datasets map[string]*types.DatasetResult, cits *citationList) (string, error) {
	if len(datasets) == 0 {
		return "", fmt.Errorf("no datasets fetched: %w", ErrInsufficientData)
	}

	ids := make([]string, 0, len(datasets))
	for id := range datasets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("**Agricultural Data Summary**\n\n")
	if len(intent.States) > 0 {
		fmt.Fprintf(&b, "States: %s\n", strings.Join(intent.States, ", "))
	}
	if len(intent.Crops) > 0 {
		fmt.Fprintf(&b, "Crops: %s\n", strings.Join(intent.Crops, ", "))
	}
	b.WriteString("\n")
	for _, id := range ids {
		ds := datasets[id]
		fmt.Fprintf(&b, "- %s: %d records available\n", ds.Title, len(ds.Records))
		cits.use(ds)
	}
	b.WriteString("\nAsk for a comparison, extreme, trend, or correlation over specific states, crops, and years for a detailed analysis.")
	return b.String(), nil
}
