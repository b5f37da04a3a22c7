package commands

import (
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"cpaintel-backend/lib/serviceutil"
	"cpaintel-backend/services/registry"
)

var (
	businessProvince *string
	businessIndustry *string
	businessPage     *int
	businessLimit    *int
)

func init() {
	rootCmd.AddCommand(registryCmd)
	registryCmd.AddCommand(registryLoadCmd)

	businessProvince = registryListCmd.Flags().String("province", "", "Filter by province.")
	businessIndustry = registryListCmd.Flags().String("industry", "", "Filter by industry label.")
	businessPage = registryListCmd.Flags().Int("page", 1, "Page number.")
	businessLimit = registryListCmd.Flags().Int("limit", 20, "Page size, capped at 100.")
	registryCmd.AddCommand(registryListCmd)
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Business-registry ingestion and queries.",
}

var registryLoadCmd = &cobra.Command{
	Use:   "load [source]",
	Short: "Runs the configured registry ingests: all of them, or one named source.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store, database := cfg.openRegistryStore()
		defer database.Close()
		service := cfg.registryService(store)

		outcomes := map[string]registry.Outcome{}
		if len(args) == 1 {
			jobID, counts, err := service.RunSingle(cmd.Context(), args[0])
			outcomes[args[0]] = registry.Outcome{JobID: jobID, Counts: counts, Err: err}
		} else {
			outcomes = service.RunAll(cmd.Context())
		}

		sources := make([]string, 0, len(outcomes))
		for source := range outcomes {
			sources = append(sources, source)
		}
		sort.Strings(sources)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"Source", "Job", "Found", "Inserted", "Skipped", "Failed", "Note / Error",
		})
		for _, source := range sources {
			outcome := outcomes[source]
			note := outcome.Counts.Note
			if outcome.Err != nil {
				note = outcome.Err.Error()
			}
			t.AppendRow(table.Row{
				source, outcome.JobID,
				outcome.Counts.Found, outcome.Counts.Inserted,
				outcome.Counts.Skipped, outcome.Counts.Failed, note,
			})
		}
		t.Render()
	},
}

var registryListCmd = &cobra.Command{
	Use:   "list [--province <p>] [--industry <i>]",
	Short: "Lists ingested businesses with filters and paging.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store, database := cfg.openRegistryStore()
		defer database.Close()

		businesses, err := store.ListBusinesses(cmd.Context(), registry.BusinessFilter{
			Province: *businessProvince,
			Industry: *businessIndustry,
			Page:     *businessPage,
			Limit:    *businessLimit,
		})
		if err != nil {
			serviceutil.Fatal("failed to list businesses", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"ID", "Number", "Name", "City", "Province", "Industry",
			"Status", "Source",
		})
		for _, b := range businesses {
			t.AppendRow(table.Row{
				b.ID, b.RegistryNumber, b.Name, b.City, b.Province,
				b.Industry, b.OperatingStatus, b.Source,
			})
		}
		t.Render()
	},
}
