package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "crudgate",
	Short: "Config-driven REST CRUD server for react-admin style clients",
	Long: `CRUDGate serves REST CRUD routes for declared resources.

Resources are declared in crudgate.yaml; each one gets list, get,
create, update and delete routes following the react-admin data
provider conventions (range/sort/filter query parameters and a
Content-Range header on list responses).

Quick start:
  crudgate validate   # Check the configuration
  crudgate serve      # Start the server

Inspection:
  crudgate resources  # Show declared resources and routes`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "crudgate.yaml", "config file path")
}
