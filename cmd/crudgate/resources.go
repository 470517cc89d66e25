package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/artpar/crudgate/config"
	"github.com/artpar/crudgate/crud"
	"github.com/spf13/cobra"
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "Show declared resources and their routes",
	Long: `Show the resources declared in the configuration, the storage
they map to, and the actions each one exposes.`,
	RunE: runResources,
}

func init() {
	rootCmd.AddCommand(resourcesCmd)
}

func runResources(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTABLE\tPRIMARY KEY\tACTIONS\tFIELDS")
	fmt.Fprintln(w, "----\t-----\t-----------\t-------\t------")

	for _, res := range cfg.Resources {
		actions := res.Actions
		if len(actions) == 0 {
			for _, a := range crud.AllActions() {
				actions = append(actions, a.String())
			}
		}

		fields := make([]string, 0, len(res.Fields))
		for _, f := range res.Fields {
			fields = append(fields, f.Name)
		}
		fieldList := strings.Join(fields, ",")
		if fieldList == "" {
			fieldList = "-"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			res.Name, res.Table, res.PrimaryKey,
			strings.Join(actions, ","), fieldList)
	}

	w.Flush()

	fmt.Println()
	fmt.Printf("Routes are mounted under %s\n", cfg.API.BasePath)
	return nil
}
