// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package queryparse turns a free-text question into a structured Intent:
// which states and crops it mentions, which years it covers, and what kind
// of statistic it asks for. Parsing never fails; text that matches nothing
// degrades to an Intent with empty entity sets and a generic query type.
package queryparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mrmallick07/project-samarth-backend/internal/gazetteer"
	"github.com/mrmallick07/project-samarth-backend/pkg/types"
)

var (
	yearRe  = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	lastNRe = regexp.MustCompile(`last\s+(\d+)\s+years?`)
)

// Classification cue sets, checked in fixed priority order:
// comparison > extreme > trend > correlation > generic. The order is part
// of the observable contract; synthesis dispatch depends on it.
var (
	comparisonCues  = []string{"compare", "comparison", " vs ", " vs.", "versus", "difference between"}
	extremeCues     = []string{"highest", "lowest", "most", "least", "maximum", "minimum", "top "}
	trendCues       = []string{"trend", "over the years", "over time", "last decade", "year-over-year"}
	correlationCues = []string{"correlat", "relationship between", "impact of", "effect of"}
)

// Parse extracts a structured Intent from a raw query.
func Parse(raw string) types.Intent {
	query := strings.TrimSpace(raw)
	lower := strings.ToLower(query)

	intent := types.Intent{
		RawQuery: raw,
		States:   gazetteer.FindStates(query),
		Crops:    gazetteer.FindCrops(query),
		Years:    extractYears(lower),
	}
	intent.Type = classify(lower, intent)
	return intent
}

// extractYears finds the query's year signal: an explicit list of distinct
// 4-digit years in order of appearance, or a "last N years" window, or
// nothing. An explicit "last N" phrase wins over stray years, matching the
// original behavior of the portal backend this replaces.
func extractYears(lower string) types.YearSpec {
	if m := lastNRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return types.YearSpec{LastN: n}
		}
	}
	if strings.Contains(lower, "last decade") {
		return types.YearSpec{LastN: 10}
	}

	var years []int
	seen := make(map[int]bool)
	for _, m := range yearRe.FindAllStringSubmatch(lower, -1) {
		y, err := strconv.Atoi(m[1])
		if err != nil || seen[y] {
			continue
		}
		seen[y] = true
		years = append(years, y)
	}
	return types.YearSpec{Years: years}
}

// classify picks the query type by the first cue set that fires.
func classify(lower string, intent types.Intent) types.QueryType {
	switch {
	case containsAny(lower, comparisonCues) || len(intent.States) >= 2 || len(intent.Crops) >= 2:
		return types.QueryComparison
	case containsAny(lower, extremeCues):
		return types.QueryExtreme
	case containsAny(lower, trendCues):
		return types.QueryTrend
	case containsAny(lower, correlationCues) ||
		(gazetteer.HasClimateTerm(lower) && len(intent.Crops) > 0):
		return types.QueryCorrelation
	default:
		return types.QueryGeneric
	}
}

func containsAny(s string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(s, cue) {
			return true
		}
	}
	return false
}
