package cmd

import (
	"database/sql"
	"fmt"

	"parking-report-importer/cmd/importer/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var migrationsDir string

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Migrate applies all pending schema migrations to the database
referenced by DATABASE_URL.

Examples:
  parking-importer migrate
  parking-importer migrate --migrations-dir ./internal/store/migrations`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().StringVar(&migrationsDir, "migrations-dir", "internal/store/migrations", "directory holding goose migration files")
	viper.BindPFlag("migrations-dir", migrateCmd.Flags().Lookup("migrations-dir"))
}

func runMigrate(cmd *cobra.Command, args []string) error {
	migrationsDir = viper.GetString("migrations-dir")

	databaseURL, err := config.DatabaseURL()
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := goose.Up(db, migrationsDir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	fmt.Println("Migrations applied")
	return nil
}
