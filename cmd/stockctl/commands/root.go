package commands

import (
	"fmt"
	"os"

	"bookshop-pos/config"
	"bookshop-pos/internal/store"
	"bookshop-pos/internal/util"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	dbDriver string
	dbURL    string
	env      string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "stockctl",
	Short: "Operations tool for the bookshop inventory database",
	Long: `stockctl works directly against the bookshop database.

Connection settings default to DB_DRIVER and DATABASE_URL from the
environment (or .env) and can be overridden with --driver and --db.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("driver") {
			dbDriver = cfg.Database.Driver
		}
		if !cmd.Flags().Changed("db") {
			dbURL = cfg.Database.URL
		}
		return util.InitLogger(env)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", store.DriverSQLite, "Database driver (sqlite or postgres)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL or SQLite file path")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "Logging environment (development or production)")
}

// openStore connects without migrating
func openStore() (*store.Store, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("database URL is required (--db or DATABASE_URL)")
	}
	return store.Open(dbDriver, dbURL)
}

// openMigratedStore connects and applies pending migrations
func openMigratedStore() (*store.Store, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("database URL is required (--db or DATABASE_URL)")
	}
	return store.NewStore(dbDriver, dbURL)
}
