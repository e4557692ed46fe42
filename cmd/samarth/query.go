package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrmallick07/project-samarth-backend/internal/datagov"
	"github.com/mrmallick07/project-samarth-backend/internal/pipeline"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Answer one question from the command line",
	Long: `Query runs a single question through the full pipeline and prints the
answer. Pass the question as arguments:

  samarth query Compare rainfall in Punjab and Haryana over the last 5 years`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig()
		if err := requireAPIKey(cfg); err != nil {
			return err
		}
		registry, err := loadRegistry(cfg)
		if err != nil {
			return err
		}

		client := datagov.NewClient(cfg.Portal, registry, datagov.NewCache(cfg.Portal.CacheTTL))
		coordinator := pipeline.NewCoordinator(client, registry)

		result := coordinator.Answer(cmd.Context(), strings.Join(args, " "))

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		fmt.Println(result.Answer)
		if len(result.Sources) > 0 {
			fmt.Println("\nSources:")
			for _, s := range result.Sources {
				fmt.Printf("  - %s (%s)\n    %s\n", s.Dataset, s.Source, s.URL)
			}
		}
		if !result.Success {
			return fmt.Errorf("query failed (%s)", result.Error)
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().Bool("json", false, "print the full answer envelope as JSON")

	rootCmd.AddCommand(queryCmd)
}

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List the portal datasets the pipeline can query",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry(buildConfig())
		if err != nil {
			return err
		}
		for _, d := range registry.All() {
			fmt.Printf("%s\t%s\n\t%s — %s\n", d.ID, d.ResourceID, d.Title, d.Ministry)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
}
