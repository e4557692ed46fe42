package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/mrmallick07/project-samarth-backend/internal/datagov"
	"github.com/mrmallick07/project-samarth-backend/internal/secrets"
	"github.com/mrmallick07/project-samarth-backend/pkg/types"
)

func init() {
	viper.SetDefault("portal.page_size", 100)
	viper.SetDefault("portal.max_records", 5000)
	viper.SetDefault("portal.timeout", "20s")
	viper.SetDefault("portal.cache_ttl", "15m")
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 5000)
	viper.SetDefault("server.allowed_origins", []string{"*"})
}

// buildConfig assembles the pipeline configuration from the config file,
// SAMARTH_* environment variables, and the secrets directory. The portal
// API key resolves in that order, falling back to the conventional
// DATA_GOV_API_KEY variable last.
func buildConfig() types.PipelineConfig {
	cfg := types.PipelineConfig{
		Portal: types.PortalConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("portal.timeout"),
				UserAgent: "samarth/" + version,
			},
			BaseURL:    viper.GetString("portal.base_url"),
			APIKey:     viper.GetString("portal.api_key"),
			PageSize:   viper.GetInt("portal.page_size"),
			MaxRecords: viper.GetInt("portal.max_records"),
			CacheTTL:   viper.GetDuration("portal.cache_ttl"),
		},
		Server: types.ServerConfig{
			Host:           viper.GetString("server.host"),
			Port:           viper.GetInt("server.port"),
			AllowedOrigins: viper.GetStringSlice("server.allowed_origins"),
		},
		RegistryPath: viper.GetString("registry_path"),
	}

	if cfg.Portal.APIKey == "" {
		cfg.Portal.APIKey = loadedSecrets[secrets.KeyDataGovIn]
	}
	if cfg.Portal.APIKey == "" {
		cfg.Portal.APIKey = os.Getenv("DATA_GOV_API_KEY")
	}
	if cfg.Portal.CacheTTL <= 0 {
		cfg.Portal.CacheTTL = 15 * time.Minute
	}
	return cfg
}

// requireAPIKey enforces the startup contract: without a portal key every
// fetch would fail, so refusing to start beats failing per-query.
func requireAPIKey(cfg types.PipelineConfig) error {
	if cfg.Portal.APIKey == "" {
		return fmt.Errorf("configuration: no data.gov.in API key; set portal.api_key, SAMARTH_PORTAL_API_KEY, DATA_GOV_API_KEY, or .secrets/%s", secrets.KeyDataGovIn)
	}
	return nil
}

// loadRegistry resolves the dataset registry: a YAML file when configured,
// otherwise the built-in catalog.
func loadRegistry(cfg types.PipelineConfig) (*datagov.Registry, error) {
	if cfg.RegistryPath != "" {
		return datagov.LoadRegistry(cfg.RegistryPath)
	}
	return datagov.BuiltinRegistry(), nil
}
