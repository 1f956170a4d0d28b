package main

import (
	"context"
	"fmt"

	echoapi "github.com/eliseea/mobility/apps/api/echo"
)

// token prints a bearer token for the user identified by id.
func (cli *commandLine) token(id string) error {
	usr, err := cli.usrSvc.GetByID(context.Background(), id)
	if err != nil {
		return err
	}
	token, err := echoapi.GenerateToken(cli.conf, echoapi.GetUserClaims(cli.conf, usr))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cli.out, token)
	return err
}
