// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the samarth pipeline:
// the parsed query Intent, normalized dataset records, citations, and the
// AnswerResult envelope returned at the system boundary.
package types

import "time"

// QueryType classifies what kind of statistic a query asks for.
type QueryType string

const (
	QueryComparison  QueryType = "comparison"
	QueryExtreme     QueryType = "extreme"
	QueryTrend       QueryType = "trend"
	QueryCorrelation QueryType = "correlation"
	QueryGeneric     QueryType = "generic"
)

// YearSpec captures the time window a query refers to. Exactly one of the
// fields is set: Years for explicit 4-digit years in order of appearance,
// LastN for a relative "last N years" window. The zero value means the
// query carried no year signal and downstream synthesis applies a default.
type YearSpec struct {
	Years []int `json:"years,omitempty" yaml:"years,omitempty"`
	LastN int   `json:"last_n,omitempty" yaml:"last_n,omitempty"`
}

// IsUnspecified reports whether the query carried no year signal.
func (y YearSpec) IsUnspecified() bool {
	return len(y.Years) == 0 && y.LastN == 0
}

// Resolve materializes the window into a concrete list of years. Relative
// windows end at the year of now. An unspecified spec resolves to nil;
// callers choose their own default window.
func (y YearSpec) Resolve(now time.Time) []int {
	if len(y.Years) > 0 {
		out := make([]int, len(y.Years))
		copy(out, y.Years)
		return out
	}
	if y.LastN > 0 {
		current := now.Year()
		years := make([]int, 0, y.LastN)
		for yr := current - y.LastN + 1; yr <= current; yr++ {
			years = append(years, yr)
		}
		return years
	}
	return nil
}

// Intent is the structured representation of a parsed natural-language
// query. States and Crops hold only gazetteer entries, ordered by first
// appearance in the query and deduplicated.
type Intent struct {
	RawQuery string    `json:"raw_query" yaml:"raw_query"`
	Type     QueryType `json:"query_type" yaml:"query_type"`
	States   []string  `json:"states,omitempty" yaml:"states,omitempty"`
	Crops    []string  `json:"crops,omitempty" yaml:"crops,omitempty"`
	Years    YearSpec  `json:"year_spec" yaml:"year_spec"`
}
