// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package datagov

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinRegistry(t *testing.T) {
	r := BuiltinRegistry()

	crop, ok := r.Lookup(DatasetCropProduction)
	if !ok {
		t.Fatal("crop_production missing from builtin registry")
	}
	if crop.ResourceID != "9ef84268-d588-465a-a308-a864a43d0070" {
		t.Errorf("crop ResourceID = %q", crop.ResourceID)
	}

	rain, ok := r.Lookup(DatasetRainfall)
	if !ok {
		t.Fatal("rainfall missing from builtin registry")
	}
	if rain.Ministry != "India Meteorological Department (IMD)" {
		t.Errorf("rain Ministry = %q", rain.Ministry)
	}

	if _, ok := r.Lookup("nope"); ok {
		t.Error("Lookup of unknown id should fail")
	}

	byRes, ok := r.ByResourceID(rain.ResourceID)
	if !ok || byRes.ID != DatasetRainfall {
		t.Errorf("ByResourceID = %+v, ok=%v", byRes, ok)
	}

	if got := len(r.All()); got != 2 {
		t.Errorf("len(All()) = %d, want 2", got)
	}
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "datasets.yaml")
	content := `- id: rainfall
  resource_id: res-1
  name: Rainfall in India
  source: IMD
  url: https://example.org/rainfall
- id: soil_health
  resource_id: res-2
  name: Soil Health Statistics
  source: Ministry of Agriculture
  url: https://example.org/soil
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(r.All()) != 2 {
		t.Fatalf("len(All()) = %d, want 2", len(r.All()))
	}
	soil, ok := r.Lookup("soil_health")
	if !ok || soil.ResourceID != "res-2" {
		t.Errorf("soil_health = %+v, ok=%v", soil, ok)
	}
}

func TestLoadRegistryErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadRegistry(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	empty := filepath.Join(dir, "empty.yaml")
	os.WriteFile(empty, []byte("[]\n"), 0o644)
	if _, err := LoadRegistry(empty); err == nil {
		t.Error("expected error for empty registry")
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("- id: x\n  name: missing resource id\n"), 0o644)
	if _, err := LoadRegistry(bad); err == nil {
		t.Error("expected error for entry without resource_id")
	}
}
