package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/mrmallick07/project-samarth-backend/internal/datagov"
	"github.com/mrmallick07/project-samarth-backend/internal/pipeline"
	"github.com/mrmallick07/project-samarth-backend/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API for the Samarth frontend",
	Long: `Serve starts the query API: POST /api/query answers questions,
GET /api/health reports status, GET /api/datasets lists the dataset
catalog. Requires a data.gov.in API key; the process refuses to start
without one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig()
		if cmd.Flags().Changed("host") {
			cfg.Server.Host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if err := requireAPIKey(cfg); err != nil {
			return err
		}
		registry, err := loadRegistry(cfg)
		if err != nil {
			return err
		}

		client := datagov.NewClient(cfg.Portal, registry, datagov.NewCache(cfg.Portal.CacheTTL))
		coordinator := pipeline.NewCoordinator(client, registry)

		if debug, _ := cmd.Flags().GetBool("debug"); !debug {
			gin.SetMode(gin.ReleaseMode)
		}

		srv := server.New(coordinator, registry, cfg.Server, version, true)
		fmt.Fprintf(os.Stderr, "samarth %s serving on %s:%d (%d datasets, cache TTL %s)\n",
			version, cfg.Server.Host, cfg.Server.Port, len(registry.All()), cfg.Portal.CacheTTL.Round(time.Second))
		return srv.Run()
	},
}

func init() {
	serveCmd.Flags().String("host", "", "listen address (overrides config)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")
	serveCmd.Flags().Bool("debug", false, "verbose request logging")

	rootCmd.AddCommand(serveCmd)
}
