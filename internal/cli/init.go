package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sovtrack/sovtrack/internal/config"
	"github.com/sovtrack/sovtrack/internal/db/sqlite"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize sovtrack configuration",
	Long:  `Interactive wizard to set up the sovtrack configuration file and database.`,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("🚀 Welcome to Sovtrack Setup")
	fmt.Println("============================")
	fmt.Println()

	// Check if config already exists
	configPath := config.GetConfigPath()
	if config.Exists(configPath) {
		fmt.Printf("Configuration file already exists at: %s\n", configPath)
		confirmed, err := promptYesNo(reader, "Do you want to overwrite it? (y/N): ")
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Setup cancelled.")
			return nil
		}
	}

	cfg := config.DefaultConfig()

	// Database configuration
	fmt.Println("\n📊 Database Configuration")
	fmt.Println("--------------------------")

	uri, err := promptOptional(reader, "SQLite database path [sovtrack.db]: ", "sovtrack.db")
	if err != nil {
		return err
	}
	cfg.Database.URI = uri

	// Engine configuration
	fmt.Println("\n⚙️  Engine Configuration")
	fmt.Println("------------------------")

	workers, err := promptInt(reader, "Max concurrent LLM calls [10]: ", 10)
	if err != nil {
		return err
	}
	cfg.Engine.MaxWorkers = workers

	cronExpr, err := promptOptional(reader, "Daily run cron expression [0 6 * * *]: ", "0 6 * * *")
	if err != nil {
		return err
	}
	cfg.Engine.CronExpr = cronExpr

	// Optional raw-response archive
	fmt.Println("\n🗄️  Raw-Response Archive (optional)")
	fmt.Println("-----------------------------------")

	wantArchive, err := promptYesNo(reader, "Archive raw LLM responses to MongoDB? (y/N): ")
	if err != nil {
		return err
	}
	if wantArchive {
		archiveURI, err := promptOptional(reader, "MongoDB URI [mongodb://localhost:27017]: ", "mongodb://localhost:27017")
		if err != nil {
			return err
		}
		cfg.Archive.URI = archiveURI

		archiveDB, err := promptOptional(reader, "MongoDB database [sovtrack]: ", "sovtrack")
		if err != nil {
			return err
		}
		cfg.Archive.Database = archiveDB
	}

	// Test database connection
	fmt.Println("\n🔌 Testing database connection...")
	testStore := sqlite.New(cfg.Database.URI)
	if err := testStore.Connect(context.Background()); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	testStore.Disconnect(context.Background())
	fmt.Println(FormatSuccess("✅ Database connection successful!"))

	// Save configuration
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println(FormatSuccess("✅ Configuration saved to: " + configPath))
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Export your LLM API keys:")
	fmt.Printf("     export %s=sk-...\n", config.EnvOpenAIKey)
	fmt.Printf("     export %s=sk-ant-...\n", config.EnvAnthropicKey)
	fmt.Printf("     export %s=...\n", config.EnvGoogleKey)
	fmt.Printf("     export %s=pplx-...\n", config.EnvPerplexityKey)
	fmt.Println("  2. Run 'sovtrack run' to analyze your projects once")
	fmt.Println("  3. Run 'sovtrack scheduler' to start the daily daemon")

	return nil
}
