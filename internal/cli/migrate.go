package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sovtrack/sovtrack/internal/db"
)

var migrationsDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Apply all pending database migrations to the SQLite store.`,
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "", "migrations directory (default is internal/db/migrations)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	fmt.Println("🔄 Running database migrations...")

	if err := db.RunMigrations(context.Background(), sqlStore.DB(), migrationsDir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println(FormatSuccess("✅ Migrations completed successfully!"))
	return nil
}
