// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// DatasetRecord is one row of normalized tabular data from the upstream
// portal. Field names are kept exactly as the portal returned them; use
// Field for whitespace/case-insensitive lookup. Records are never mutated
// after the dataset client creates them.
type DatasetRecord struct {
	Fields     map[string]any `json:"fields" yaml:"fields"`
	ResourceID string         `json:"resource_id" yaml:"resource_id"`
	Ministry   string         `json:"ministry" yaml:"ministry"`
}

// NormalizeFieldName lowercases a field name and collapses the separators
// the portal mixes freely (spaces, dashes) into underscores, so that
// "State Name", "state_name" and "STATE-NAME" all compare equal.
func NormalizeFieldName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	return name
}

// Field returns the value for name, matching field names after
// normalization. The second return reports whether the field exists.
func (r DatasetRecord) Field(name string) (any, bool) {
	want := NormalizeFieldName(name)
	for k, v := range r.Fields {
		if NormalizeFieldName(k) == want {
			return v, true
		}
	}
	return nil, false
}

// DatasetResult is the normalized outcome of one upstream fetch for one
// resource. It is owned by the call that fetched it and never mutated;
// the dataset client cache hands the same value to later identical calls.
type DatasetResult struct {
	Records    []DatasetRecord `json:"records" yaml:"records"`
	ResourceID string          `json:"resource_id" yaml:"resource_id"`
	Title      string          `json:"title" yaml:"title"`
	Ministry   string          `json:"ministry" yaml:"ministry"`
	SourceURL  string          `json:"source_url" yaml:"source_url"`
}

// Citation derives the provenance record for this dataset.
func (d *DatasetResult) Citation() Citation {
	return Citation{
		Dataset:    d.Title,
		Source:     d.Ministry,
		URL:        d.SourceURL,
		ResourceID: d.ResourceID,
	}
}

// Citation is the minimal provenance record for one dataset that
// contributed to an answer. The JSON field names match the wire format the
// frontend consumes.
type Citation struct {
	Dataset    string `json:"dataset" yaml:"dataset"`
	Source     string `json:"source" yaml:"source"`
	URL        string `json:"url" yaml:"url"`
	ResourceID string `json:"resource_id" yaml:"resource_id"`
}

// AnswerResult is the terminal envelope returned for every query. It is
// always JSON-serializable and Success is always set; failures carry a
// human-readable Answer and an Error kind instead of a raw fault.
type AnswerResult struct {
	Success   bool           `json:"success"`
	Query     string         `json:"query"`
	Answer    string         `json:"answer"`
	Sources   []Citation     `json:"sources"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Error     string         `json:"error,omitempty"`
}
