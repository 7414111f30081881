package main

import (
	"fmt"
	"sort"

	"github.com/orientamada/orientamada/internal/repository"
	"github.com/orientamada/orientamada/internal/seed"
	"github.com/orientamada/orientamada/internal/service"
	"github.com/spf13/cobra"
)

func newSeedCmd(env *cliEnv) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reference data from a YAML file; rows already present are kept",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := seed.Load(file)
			if err != nil {
				return err
			}

			database, err := env.openMigrated()
			if err != nil {
				return err
			}
			defer database.Close()

			adapter := repository.NewAdapter(database, env.conf.Database.Type)
			cats := service.NewCatalogs(adapter.CatalogRepositories(), env.conf, nil)

			rep, err := seed.NewSeeder(cats).Apply(cmd.Context(), f)
			printReport(cmd, rep)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "seed/reference.yaml", "seed file")
	return cmd
}

func printReport(cmd *cobra.Command, rep seed.Report) {
	entities := map[string]bool{}
	for k := range rep.Created {
		entities[k] = true
	}
	for k := range rep.Existing {
		entities[k] = true
	}
	names := make([]string, 0, len(entities))
	for k := range entities {
		names = append(names, k)
	}
	sort.Strings(names)

	out := cmd.OutOrStdout()
	for _, name := range names {
		fmt.Fprintf(out, "%-24s created %4d  existing %4d\n", name, rep.Created[name], rep.Existing[name])
	}
}
