package commands

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"cpaintel-backend/lib/enrichment"
	"cpaintel-backend/lib/serviceutil"
)

var (
	enrichBatch *int
	enrichDelay *int
)

func init() {
	enrichBatch = enrichCmd.Flags().Int("batch", 200, "Records per run.")
	enrichDelay = enrichCmd.Flags().Int("delay", 1, "Seconds between fetch attempts.")
	rootCmd.AddCommand(enrichCmd)
}

var enrichCmd = &cobra.Command{
	Use:   "enrich [--batch <n>] [--delay <seconds>]",
	Short: "Guesses firm websites for un-enriched members and scrapes contact emails.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store, database := cfg.openMembersStore()
		defer database.Close()

		pipeline := enrichment.NewPipeline(store, enrichment.Options{
			BatchSize: *enrichBatch,
			Delay:     time.Duration(*enrichDelay) * time.Second,
		})

		t1 := time.Now()
		stats, err := pipeline.Run(cmd.Context())
		if err != nil {
			serviceutil.Fatal("enrichment run failed", err)
		}
		slog.Info("enrichment run finished",
			"processed", stats.Processed,
			"enriched", stats.Enriched,
			"seconds", time.Since(t1).Seconds())
	},
}
