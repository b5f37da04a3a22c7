package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cpaintel-backend/lib/configutil"
	configsqlite "cpaintel-backend/lib/configutil/sqlite"
	registryscraper "cpaintel-backend/lib/scrapers/registry"
	"cpaintel-backend/lib/serviceutil"
	"cpaintel-backend/lib/sessionform"
	"cpaintel-backend/lib/telemetry"
	"cpaintel-backend/services/members"
	membersdb "cpaintel-backend/services/members/db"
	"cpaintel-backend/services/registry"
	registrydb "cpaintel-backend/services/registry/db"
)

var verbose bool

// set by PersistentPreRun; the zero value shuts down as a no-op when
// telemetry was never configured
var tel telemetry.Telemetry

var rootCmd = &cobra.Command{
	Use:   "cpaintel",
	Short: "cpaintel collects, enriches and matches Canadian CPA and business-registry data.",
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		telemetry.InitSlog(verbose)
		t, err := telemetry.SetupFromEnv(cmd.Context(), "cpaintel")
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to setup telemetry", "err", err)
		}
		tel = t
		telemetry.InstrumentPerfStats(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if shutdownErr := tel.Shutdown(context.Background()); shutdownErr != nil {
		slog.Warn("telemetry shutdown failed", "err", shutdownErr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type registryBulkConfig struct {
	Source      string `json:"source"`
	DownloadUrl string `json:"download_url"`
}

type registrySearchConfig struct {
	Source          string `json:"source"`
	Province        string `json:"province"`
	EntryUrl        string `json:"entry_url"`
	SearchUrl       string `json:"search_url"`
	KeywordField    string `json:"keyword_field"`
	IdParam         string `json:"id_param"`
	DetailUrlFormat string `json:"detail_url_format"`
}

type Config struct {
	MembersDb      configsqlite.Struct    `json:"members_db"`
	RegistryDb     configsqlite.Struct    `json:"registry_db"`
	DelaySeconds   int                    `json:"delay_seconds"`
	RegistryBulk   []registryBulkConfig   `json:"registry_bulk"`
	RegistrySearch []registrySearchConfig `json:"registry_search"`
}

func loadConfig() Config {
	cfg, err := configutil.ReadConfigEnv[Config]("CPAINTEL_CONFIG", "config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if cfg.MembersDb.File == "" {
		cfg.MembersDb.File = "members.db"
	}
	if cfg.RegistryDb.File == "" {
		cfg.RegistryDb.File = "registry.db"
	}
	return cfg
}

func (c Config) sessionOptions() sessionform.Options {
	return sessionform.Options{
		Delay: time.Duration(c.DelaySeconds) * time.Second,
	}
}

func (c Config) openMembersStore() (members.Store, *sql.DB) {
	database, err := c.MembersDb.OpenDB(membersdb.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open members db", err)
	}
	return members.NewStore(database), database
}

func (c Config) openRegistryStore() (registry.Store, *sql.DB) {
	database, err := c.RegistryDb.OpenDB(registrydb.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open registry db", err)
	}
	return registry.NewStore(database), database
}

func (c Config) registryService(store registry.Store) *registry.Service {
	var bulk []registryscraper.BulkConfig
	for _, b := range c.RegistryBulk {
		bulk = append(bulk, registryscraper.BulkConfig{
			Source:      b.Source,
			DownloadURL: b.DownloadUrl,
		})
	}
	var search []registryscraper.SearchConfig
	for _, s := range c.RegistrySearch {
		search = append(search, registryscraper.SearchConfig{
			Source:          s.Source,
			Province:        s.Province,
			EntryURL:        s.EntryUrl,
			SearchURL:       s.SearchUrl,
			KeywordField:    s.KeywordField,
			IDParam:         s.IdParam,
			DetailURLFormat: s.DetailUrlFormat,
		})
	}

	service, err := registry.NewService(store, c.sessionOptions(), bulk, search)
	if err != nil {
		serviceutil.Fatal("failed to initialize registry service", err)
	}
	return service
}
