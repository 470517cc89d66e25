package main

import (
	"fmt"

	apihttp "github.com/artpar/crudgate/adapters/http"
	"github.com/artpar/crudgate/bootstrap"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the CRUD server",
	Long: `Start the CRUDGate server.

The server will:
  - Load configuration from crudgate.yaml (or --config)
  - Open the configured storage backend (sqlite, mongo or memory)
  - Create missing tables or indexes for the declared resources
  - Serve the generated CRUD routes under the configured base path

Environment variables override file values (for Docker deployments):
  CRUDGATE_SERVER_PORT      - Server port (default: 8080)
  CRUDGATE_STORAGE_DRIVER   - Storage driver: sqlite, mongo or memory
  CRUDGATE_STORAGE_DSN      - Database path or connection string
  CRUDGATE_LOG_LEVEL        - Log level: debug, info, warn, error

Examples:
  crudgate serve
  crudgate serve --config /etc/crudgate/config.yaml
  crudgate serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	apihttp.Version = version

	app, err := bootstrap.New(bootstrap.Options{
		ConfigPath: cfgFile,
		HotReload:  hotReload,
	})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
