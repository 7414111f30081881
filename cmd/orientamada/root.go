package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/orientamada/orientamada/internal/app"
	"github.com/orientamada/orientamada/internal/config"
	"github.com/orientamada/orientamada/internal/logging"
	"github.com/spf13/cobra"
)

// cliEnv is shared by the subcommands / Partagé par les sous-commandes
type cliEnv struct {
	configFile string
	conf       *config.Config
	closeLog   func() error
}

func newRootCmd() *cobra.Command {
	env := &cliEnv{}

	root := &cobra.Command{
		Use:           "orientamada",
		Short:         "Catalog of higher-education establishments in Madagascar",
		Long:          "orientamada serves the OrientaMada REST API and runs its maintenance tasks (migrations, seed data, accounts).",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			conf, err := config.Load(env.configFile)
			if err != nil {
				return err
			}
			env.conf = conf
			env.closeLog = logging.Setup(conf, os.Stdout)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if env.closeLog != nil {
				return env.closeLog()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&env.configFile, "config", "c", "", "config file (default ./config.yaml)")

	root.AddCommand(
		newServeCmd(env),
		newMigrateCmd(env),
		newSeedCmd(env),
		newCreateAdminCmd(env),
		newVersionCmd(),
	)
	return root
}

// openMigrated opens the database and applies pending migrations / Ouvre la base et applique les migrations
func (e *cliEnv) openMigrated() (*sql.DB, error) {
	database, err := app.OpenDatabase(e.conf)
	if err != nil {
		return nil, err
	}
	m, err := app.NewMigrator(e.conf, database)
	if err != nil {
		database.Close()
		return nil, err
	}
	if err := m.Up(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "orientamada", app.Version)
		},
	}
}
