package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"cpaintel-backend/lib/serviceutil"
)

var purgeRegistry *bool

func init() {
	purgeRegistry = purgeCmd.Flags().Bool("registry", false,
		"Purge a business-registry source instead of a member directory.")
	rootCmd.AddCommand(purgeCmd)
}

var purgeCmd = &cobra.Command{
	Use:   "purge <source>",
	Short: "Hard-deletes every record for a source. Irreversible.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		source := args[0]

		var purged int64
		var err error
		if *purgeRegistry {
			store, database := cfg.openRegistryStore()
			defer database.Close()
			purged, err = store.PurgeSource(cmd.Context(), source)
		} else {
			store, database := cfg.openMembersStore()
			defer database.Close()
			purged, err = store.PurgeSource(cmd.Context(), source)
		}
		if err != nil {
			serviceutil.Fatal("purge failed", err)
		}
		slog.Info("purged source", "source", source, "records", purged)
	},
}
