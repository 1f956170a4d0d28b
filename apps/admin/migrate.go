package main

import (
	"github.com/trezcool/goose"

	"github.com/eliseea/mobility/fs"
	"github.com/eliseea/mobility/storage/database"
)

var gooseRunFunc = goose.RunFS // mockable

func (cli *commandLine) migrate(args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db, appfs.FS, database.MigrationsDir, arguments...)
}
