package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"cpaintel-backend/lib/serviceutil"
	"cpaintel-backend/services/members"
)

var (
	membersProvince *string
	membersCity     *string
	membersSource   *string
	membersStatus   *string
	membersPage     *int
	membersLimit    *int
)

func init() {
	membersProvince = membersCmd.Flags().String("province", "", "Filter by province.")
	membersCity = membersCmd.Flags().String("city", "", "Filter by city.")
	membersSource = membersCmd.Flags().String("source", "", "Filter by source tag.")
	membersStatus = membersCmd.Flags().String("status", "", "Filter by lifecycle status.")
	membersPage = membersCmd.Flags().Int("page", 1, "Page number.")
	membersLimit = membersCmd.Flags().Int("limit", 20, "Page size, capped at 100.")
	rootCmd.AddCommand(membersCmd)
}

var membersCmd = &cobra.Command{
	Use:   "members [--province <p>] [--city <c>] [--source <s>] [--status <s>]",
	Short: "Lists scraped member records with filters and paging.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store, database := cfg.openMembersStore()
		defer database.Close()

		filter := members.PersonFilter{
			Province: *membersProvince,
			City:     *membersCity,
			Source:   *membersSource,
			Status:   members.PersonStatus(*membersStatus),
			Page:     *membersPage,
			Limit:    *membersLimit,
		}

		total, err := store.CountPersons(cmd.Context(), filter)
		if err != nil {
			serviceutil.Fatal("failed to count members", err)
		}
		people, err := store.ListPersons(cmd.Context(), filter)
		if err != nil {
			serviceutil.Fatal("failed to list members", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"ID", "Name", "Designation", "City", "Province", "Firm",
			"Email", "Status", "Source",
		})
		for _, p := range people {
			t.AppendRow(table.Row{
				p.ID, p.FullName, p.Designation, p.City, p.Province,
				p.Firm, p.Email, p.Status, p.Source,
			})
		}
		t.Render()
		fmt.Printf("%d of %d records (page %d)\n", len(people), total, *membersPage)
	},
}
