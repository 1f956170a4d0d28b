package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"golang.org/x/term"

	"github.com/eliseea/mobility/core"
	"github.com/eliseea/mobility/core/user"
	"github.com/eliseea/mobility/storage/database"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp    = errors.New("help provided")
	errAborted = errors.New("aborted")
)

type commandLine struct {
	conf     *core.Config
	db       *sql.DB
	usrSvc   *user.Service
	seedFunc func(ctx context.Context, f database.Fixtures) error
	in       io.Reader
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, redo, version, ...)")
	fmt.Fprintln(cli.out, "  seed [-force] - load the demo users, mobility, checklist and journal")
	fmt.Fprintln(cli.out, "  adduser -name NAME -email EMAIL -role STUDENT|TEACHER|ADMIN [-id ID] - create a user")
	fmt.Fprintln(cli.out, "  token -user ID - print a bearer token for a user")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	seedCmd := flag.NewFlagSet("seed", flag.ContinueOnError)
	seedForce := seedCmd.Bool("force", false, "Do not ask for confirmation.")

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserID := addUserCmd.String("id", "", "The user's ID. Generated when empty.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserRole := addUserCmd.String("role", string(user.RoleStudent), "STUDENT, TEACHER or ADMIN.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenUser := tokenCmd.String("user", "", "The user's ID.")

	for _, fs := range []*flag.FlagSet{seedCmd, addUserCmd, tokenCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		return cli.migrate(args[2:])
	case "seed":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.seed(*seedForce)
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(user.NewUser{
			ID:    *addUserID,
			Name:  *addUserName,
			Email: *addUserEmail,
			Role:  user.Role(*addUserRole),
		})
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *tokenUser == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenUser)
	default:
		cli.printUsage()
		return errHelp
	}
}
