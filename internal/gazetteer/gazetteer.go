// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gazetteer holds the static reference lists of recognized entity
// names (Indian states, crops, climate terms) and matches them against
// free text. The lists are the only source of entities the pipeline ever
// extracts; text that matches nothing is dropped, never fuzzy-matched.
package gazetteer

import (
	"sort"
	"strings"
	"unicode"
)

// states lists the recognized Indian state names.
var states = []string{
	"Andhra Pradesh", "Arunachal Pradesh", "Assam", "Bihar", "Chhattisgarh",
	"Goa", "Gujarat", "Haryana", "Himachal Pradesh", "Jammu and Kashmir",
	"Jharkhand", "Karnataka", "Kerala", "Madhya Pradesh", "Maharashtra",
	"Manipur", "Meghalaya", "Mizoram", "Nagaland", "Odisha", "Punjab",
	"Rajasthan", "Sikkim", "Tamil Nadu", "Telangana", "Tripura",
	"Uttar Pradesh", "Uttarakhand", "West Bengal",
}

// crops lists the recognized crop names.
var crops = []string{
	"Rice", "Wheat", "Maize", "Bajra", "Jowar", "Ragi", "Barley",
	"Cotton", "Jute", "Sugarcane", "Groundnut", "Soybean", "Sunflower",
	"Mustard", "Rapeseed", "Sesamum", "Castor", "Coconut", "Arecanut",
	"Tea", "Coffee", "Rubber", "Potato", "Onion", "Tomato", "Banana",
	"Mango", "Chillies", "Turmeric", "Ginger", "Gram", "Tur", "Lentil",
}

// climateTerms are the cues that mark a query as being about climate data.
var climateTerms = []string{
	"rainfall", "rain", "monsoon", "precipitation", "temperature",
	"climate", "drought",
}

// States returns the state reference list.
func States() []string { return append([]string(nil), states...) }

// Crops returns the crop reference list.
func Crops() []string { return append([]string(nil), crops...) }

// FindStates returns every state name present in the query, ordered by
// first appearance.
func FindStates(query string) []string { return findAll(query, states) }

// FindCrops returns every crop name present in the query, ordered by
// first appearance.
func FindCrops(query string) []string { return findAll(query, crops) }

// HasClimateTerm reports whether the query mentions any climate cue.
func HasClimateTerm(query string) bool {
	return len(findAll(query, climateTerms)) > 0
}

// findAll matches entries against the query, case-insensitive and
// word-bounded. Longer entries are tried first and claim the text they
// matched, so a shorter entry sharing a prefix ("Uttar Pradesh" vs a
// hypothetical "Uttar") can never re-match inside a longer match. Every
// entry found anywhere in the text is included exactly once.
func findAll(query string, entries []string) []string {
	lower := strings.ToLower(query)
	claimed := make([]bool, len(lower))

	byLength := append([]string(nil), entries...)
	sort.SliceStable(byLength, func(i, j int) bool {
		return len(byLength[i]) > len(byLength[j])
	})

	type match struct {
		entry string
		pos   int
	}
	var found []match

	for _, entry := range byLength {
		needle := strings.ToLower(entry)
		first := -1
		for start := 0; start <= len(lower)-len(needle); {
			i := strings.Index(lower[start:], needle)
			if i < 0 {
				break
			}
			i += start
			end := i + len(needle)
			if wordBounded(lower, i, end) && unclaimed(claimed, i, end) {
				for p := i; p < end; p++ {
					claimed[p] = true
				}
				if first < 0 {
					first = i
				}
			}
			start = i + 1
		}
		if first >= 0 {
			found = append(found, match{entry: entry, pos: first})
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	out := make([]string, len(found))
	for i, m := range found {
		out[i] = m.entry
	}
	return out
}

// wordBounded reports whether s[start:end] is not embedded in a larger word.
func wordBounded(s string, start, end int) bool {
	if start > 0 && isWordByte(s[start-1]) {
		return false
	}
	if end < len(s) && isWordByte(s[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b))
}

func unclaimed(claimed []bool, start, end int) bool {
	for p := start; p < end; p++ {
		if claimed[p] {
			return false
		}
	}
	return true
}
