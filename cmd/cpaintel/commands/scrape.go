package commands

import (
	"errors"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	directoryscraper "cpaintel-backend/lib/scrapers/directory"
	"cpaintel-backend/lib/serviceutil"
	"cpaintel-backend/services/members"
)

var scrapeRescrape *bool

func init() {
	scrapeRescrape = scrapeCmd.Flags().Bool("rescrape", false,
		"Purge all existing records for the source before running. Irreversible.")
	rootCmd.AddCommand(scrapeCmd)
}

func membersService(cfg Config, store members.Store) *members.Service {
	service, err := members.NewService(store, cfg.sessionOptions(),
		directoryscraper.Jurisdictions())
	if err != nil {
		serviceutil.Fatal("failed to initialize members service", err)
	}
	return service
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [source]",
	Short: "Runs the provincial directory scrapers: all of them, or one named source.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store, database := cfg.openMembersStore()
		defer database.Close()
		service := membersService(cfg, store)

		t1 := time.Now()
		outcomes := map[string]members.Outcome{}
		if len(args) == 1 {
			source := args[0]
			var jobID string
			var counts directoryscraper.Counts
			var err error
			if *scrapeRescrape {
				jobID, counts, err = service.Rescrape(cmd.Context(), source)
			} else {
				jobID, counts, err = service.RunSingle(cmd.Context(), source)
			}
			outcomes[source] = members.Outcome{JobID: jobID, Counts: counts, Err: err}
		} else {
			if *scrapeRescrape {
				serviceutil.Fatal("refusing to rescrape every source at once",
					errors.New("pass a single source with --rescrape"))
			}
			outcomes = service.RunAll(cmd.Context())
		}
		slog.Info("scraping time", "seconds", time.Since(t1).Seconds())

		printOutcomes(outcomes)
	},
}

func printOutcomes(outcomes map[string]members.Outcome) {
	sources := make([]string, 0, len(outcomes))
	for source := range outcomes {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Source", "Job", "Found", "Inserted", "Skipped", "Note / Error"})
	for _, source := range sources {
		outcome := outcomes[source]
		note := outcome.Counts.Note
		if outcome.Err != nil {
			note = outcome.Err.Error()
		}
		t.AppendRow(table.Row{
			source, outcome.JobID,
			outcome.Counts.Found, outcome.Counts.Inserted,
			outcome.Counts.Skipped, note,
		})
	}
	t.Render()
}
