package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/repository"
	"github.com/orientamada/orientamada/internal/service"
	"github.com/spf13/cobra"
)

func newCreateAdminCmd(env *cliEnv) *cobra.Command {
	var in service.RegisterInput
	var role string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a verified administrator account",
		Long:  "Create a verified account with the admin role (or --role moderator). The password is read from stdin when --password is empty.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given")
				}
				in.Password = strings.TrimRight(line, "\r\n")
			}

			database, err := env.openMigrated()
			if err != nil {
				return err
			}
			defer database.Close()

			adapter := repository.NewAdapter(database, env.conf.Database.Type)
			users := service.NewUserService(adapter.UserRepository(), adapter.RefreshTokenStore(), nil, env.conf, nil)

			user, err := users.Provision(cmd.Context(), in, domain.UserRole(role))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s #%d <%s>\n", user.Role, user.ID, user.Email)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Email, "email", "", "account email")
	f.StringVar(&in.Password, "password", "", "account password (prompted when empty)")
	f.StringVar(&in.FirstName, "first-name", "Admin", "first name")
	f.StringVar(&in.LastName, "last-name", "OrientaMada", "last name")
	f.StringVar(&role, "role", string(domain.RoleAdmin), "admin or moderator")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
