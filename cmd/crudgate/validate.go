package main

import (
	"fmt"
	"os"

	"github.com/artpar/crudgate/adapters/sqlite"
	"github.com/artpar/crudgate/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the CRUDGate configuration file.

Checks:
  - YAML syntax is valid
  - Storage driver, resource names, actions and field types are known
  - Database is writable (optional)

Examples:
  crudgate validate
  crudgate validate --config /etc/crudgate/config.yaml`,
	RunE: runValidate,
}

var validateCheckDatabase bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckDatabase, "check-database", false, "check if the sqlite database is writable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Validating %s...\n\n", cfgFile)

	// Check file exists
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Printf("  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Printf("  %s Config file exists\n", checkMark)

	// Load and validate config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Printf("  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Printf("  %s Config valid\n", checkMark)

	// Show config summary
	fmt.Printf("  %s Listen: %s\n", checkMark, cfg.Server.Addr())
	fmt.Printf("  %s Storage: %s (%s)\n", checkMark, cfg.Storage.Driver, storageTarget(cfg))
	fmt.Printf("  %s Base path: %s\n", checkMark, cfg.API.BasePath)
	fmt.Printf("  %s Resources: %d\n", checkMark, len(cfg.Resources))

	// Optional: check database
	if validateCheckDatabase && cfg.Storage.Driver == "sqlite" {
		if err := checkDatabaseWritable(cfg.Storage.DSN); err != nil {
			fmt.Printf("  %s Database writable\n", crossMark)
			fmt.Printf("      Error: %v\n", err)
		} else {
			fmt.Printf("  %s Database writable\n", checkMark)
		}
	}

	fmt.Println()
	fmt.Println("Configuration is valid.")
	return nil
}

func storageTarget(cfg *config.Config) string {
	switch cfg.Storage.Driver {
	case "mongo":
		return cfg.Storage.DSN + "/" + cfg.Storage.Database
	case "memory":
		return "not persisted"
	default:
		return cfg.Storage.DSN
	}
}

func checkDatabaseWritable(dsn string) error {
	db, err := sqlite.Open(dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
