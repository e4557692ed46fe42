// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for components that make network
// requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "samarth/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// PortalConfig holds settings for the data.gov.in dataset client.
type PortalConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the portal resource endpoint. Empty selects the default
	// (https://api.data.gov.in/resource).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// APIKey authenticates every portal request. Required; the process
	// refuses to start without it.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// PageSize is the number of records requested per page (default 100).
	PageSize int `json:"page_size" yaml:"page_size"`

	// MaxRecords caps the total records accumulated across pages for one
	// fetch (default 5000), bounding pagination if the upstream
	// end-of-data signal is ever wrong.
	MaxRecords int `json:"max_records" yaml:"max_records"`

	// MaxRetries is the number of retry attempts for transient upstream
	// failures (default 1).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// CacheTTL is how long a fetched dataset stays valid in the
	// process-local cache (default 15m).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// ServerConfig holds settings for the HTTP boundary.
type ServerConfig struct {
	// Host is the listen address (default "0.0.0.0").
	Host string `json:"host" yaml:"host"`

	// Port is the listen port (default 5000).
	Port int `json:"port" yaml:"port"`

	// AllowedOrigins lists CORS origins; ["*"] allows any origin.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// PipelineConfig groups all configuration for the query pipeline.
type PipelineConfig struct {
	Portal PortalConfig `json:"portal" yaml:"portal"`
	Server ServerConfig `json:"server" yaml:"server"`

	// RegistryPath optionally points at a YAML dataset registry that
	// replaces the built-in one.
	RegistryPath string `json:"registry_path,omitempty" yaml:"registry_path,omitempty"`
}
