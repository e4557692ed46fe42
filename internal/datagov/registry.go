// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package datagov

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// Well-known dataset ids the pipeline routes queries to.
const (
	DatasetCropProduction = "crop_production"
	DatasetRainfall       = "rainfall"
)

// Dataset describes one portal resource the pipeline knows how to query.
type Dataset struct {
	ID         string `yaml:"id" json:"id"`
	ResourceID string `yaml:"resource_id" json:"resource_id"`
	Title      string `yaml:"name" json:"name"`
	Ministry   string `yaml:"source" json:"source"`
	URL        string `yaml:"url" json:"url"`
}

// Registry maps dataset ids to portal resources. The built-in registry
// covers the two resources the original deployment used; a YAML file can
// replace it for other portals or additional datasets.
type Registry struct {
	datasets []Dataset
}

// BuiltinRegistry returns the default dataset registry.
func BuiltinRegistry() *Registry {
	return &Registry{datasets: []Dataset{
		{
			ID:         DatasetCropProduction,
			ResourceID: "9ef84268-d588-465a-a308-a864a43d0070",
			Title:      "District-wise Crop Production Statistics",
			Ministry:   "Ministry of Agriculture & Farmers Welfare",
			URL:        "https://www.data.gov.in/catalog/district-wise-season-wise-crop-production-statistics-0",
		},
		{
			ID:         DatasetRainfall,
			ResourceID: "e9aafad3-6a08-4f66-b59d-38c65e7ae44f",
			Title:      "Rainfall in India",
			Ministry:   "India Meteorological Department (IMD)",
			URL:        "https://www.data.gov.in/catalog/rainfall-india",
		},
	}}
}

// LoadRegistry reads a YAML dataset list from path. The file is a
// sequence of dataset entries with id, resource_id, name, source and url
// keys. An empty or entry-less file is an error; a registry with no
// datasets can answer nothing.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset registry %s: %w", path, err)
	}

	var datasets []Dataset
	if err := yaml.Unmarshal(data, &datasets); err != nil {
		return nil, fmt.Errorf("parsing dataset registry %s: %w", path, err)
	}
	if len(datasets) == 0 {
		return nil, fmt.Errorf("dataset registry %s contains no datasets", path)
	}
	for _, d := range datasets {
		if d.ID == "" || d.ResourceID == "" {
			return nil, fmt.Errorf("dataset registry %s: every entry needs id and resource_id", path)
		}
	}

	return &Registry{datasets: datasets}, nil
}

// Lookup returns the dataset registered under id.
func (r *Registry) Lookup(id string) (Dataset, bool) {
	for _, d := range r.datasets {
		if d.ID == id {
			return d, true
		}
	}
	return Dataset{}, false
}

// ByResourceID returns the dataset with the given portal resource id.
func (r *Registry) ByResourceID(resourceID string) (Dataset, bool) {
	for _, d := range r.datasets {
		if d.ResourceID == resourceID {
			return d, true
		}
	}
	return Dataset{}, false
}

// All returns the registered datasets in registration order.
func (r *Registry) All() []Dataset {
	return append([]Dataset(nil), r.datasets...)
}
