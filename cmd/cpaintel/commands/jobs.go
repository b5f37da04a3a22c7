package commands

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"cpaintel-backend/lib/serviceutil"
)

var (
	jobsLimit    *int
	jobsRegistry *bool
)

func init() {
	jobsLimit = jobsCmd.Flags().Int("limit", 20, "How many jobs to show.")
	jobsRegistry = jobsCmd.Flags().Bool("registry", false,
		"Show business-registry jobs instead of member-directory jobs.")
	rootCmd.AddCommand(jobsCmd)
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Format(time.DateTime)
}

var jobsCmd = &cobra.Command{
	Use:   "jobs [--registry] [--limit <n>]",
	Short: "Lists recent scrape jobs, most recent first.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"Job", "Source", "Status", "Found", "Inserted", "Skipped",
			"Started", "Completed", "Note / Error",
		})

		if *jobsRegistry {
			store, database := cfg.openRegistryStore()
			defer database.Close()
			jobs, err := store.RecentJobs(cmd.Context(), *jobsLimit)
			if err != nil {
				serviceutil.Fatal("failed to list registry jobs", err)
			}
			for _, job := range jobs {
				note := job.Note
				if job.Error != "" {
					note = job.Error
				}
				t.AppendRow(table.Row{
					job.ID, job.Source, job.Status,
					job.Found, job.Inserted, job.Skipped,
					formatTime(job.StartedAt), formatTime(job.CompletedAt),
					note,
				})
			}
		} else {
			store, database := cfg.openMembersStore()
			defer database.Close()
			jobs, err := store.RecentJobs(cmd.Context(), *jobsLimit)
			if err != nil {
				serviceutil.Fatal("failed to list jobs", err)
			}
			for _, job := range jobs {
				note := job.Note
				if job.Error != "" {
					note = job.Error
				}
				t.AppendRow(table.Row{
					job.ID, job.Source, job.Status,
					job.Found, job.Inserted, job.Skipped,
					formatTime(job.StartedAt), formatTime(job.CompletedAt),
					note,
				})
			}
		}
		t.Render()
	},
}
