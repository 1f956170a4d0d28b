package main

import (
	"context"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/eliseea/mobility/core"
	"github.com/eliseea/mobility/core/user"
	"github.com/eliseea/mobility/storage/database"
	sqlxrepos "github.com/eliseea/mobility/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	sqlDB, err := database.Open(conf)
	errAndDie(err)
	db := sqlx.NewDb(sqlDB, conf.Database.Engine)

	translator := core.NewTranslator()
	validate := core.NewValidate(translator)
	user.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		conf:   conf,
		db:     sqlDB,
		usrSvc: user.NewService(sqlxrepos.NewUserRepository(db), validate),
		seedFunc: func(ctx context.Context, f database.Fixtures) error {
			return sqlxrepos.Seed(ctx, db, f)
		},
		in:  os.Stdin,
		out: os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
