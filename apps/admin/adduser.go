package main

import (
	"context"
	"fmt"

	"github.com/eliseea/mobility/core/user"
)

// addUser creates a user.User, or replaces the one with the same ID.
func (cli *commandLine) addUser(nu user.NewUser) error {
	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cli.out, "%s %s <%s> %s\n", usr.ID, usr.Name, usr.Email, usr.Role)
	return err
}
