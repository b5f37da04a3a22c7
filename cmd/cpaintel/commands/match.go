package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/titanous/json5"

	"cpaintel-backend/lib/matching"
	"cpaintel-backend/lib/serviceutil"
)

var (
	matchClientFile     *string
	matchCandidatesFile *string
	matchLimit          *int
)

func init() {
	matchClientFile = matchCmd.Flags().String("client", "client.json5",
		"Client profile file.")
	matchCandidatesFile = matchCmd.Flags().String("candidates", "candidates.json5",
		"Candidate profiles file (a JSON array).")
	matchLimit = matchCmd.Flags().Int("limit", 10, "How many matches to return.")
	rootCmd.AddCommand(matchCmd)
}

func readJSON5[T any](path string) (T, error) {
	var out T
	raw, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	if err := json5.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("parse %v: %w", path, err)
	}
	return out, nil
}

var matchCmd = &cobra.Command{
	Use:   "match --client <client.json5> --candidates <candidates.json5>",
	Short: "Ranks candidate accountants against a client profile.",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := readJSON5[matching.ClientProfile](*matchClientFile)
		if err != nil {
			serviceutil.Fatal("failed to read client profile", err)
		}
		candidates, err := readJSON5[[]matching.CandidateProfile](*matchCandidatesFile)
		if err != nil {
			serviceutil.Fatal("failed to read candidate profiles", err)
		}

		ranked := matching.FindTopMatches(client, candidates, *matchLimit)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"Candidate", "Score", "Label", "Spec", "Loc", "Budget",
			"Comm", "Size", "Urgency",
		})
		for _, match := range ranked {
			f := match.Result.Factors
			t.AppendRow(table.Row{
				match.Candidate.Name, match.Result.Total, match.Result.Label,
				fmt.Sprintf("%.2f", f.Specialization),
				fmt.Sprintf("%.2f", f.Location),
				fmt.Sprintf("%.2f", f.Budget),
				fmt.Sprintf("%.2f", f.Communication),
				fmt.Sprintf("%.2f", f.OrgSize),
				fmt.Sprintf("%.2f", f.Urgency),
			})
		}
		t.Render()
	},
}
