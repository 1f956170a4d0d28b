package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/eliseea/mobility/apps/api/echo"
	"github.com/eliseea/mobility/core"
	"github.com/eliseea/mobility/core/journal"
	"github.com/eliseea/mobility/core/mobility"
	"github.com/eliseea/mobility/core/testimonial"
	"github.com/eliseea/mobility/core/user"
	"github.com/eliseea/mobility/fs"
	emailsvc "github.com/eliseea/mobility/services/email"
	generationsvc "github.com/eliseea/mobility/services/generation"
	logsvc "github.com/eliseea/mobility/services/logger"
	"github.com/eliseea/mobility/storage/database"
	inmemdb "github.com/eliseea/mobility/storage/database/inmem"
	sqlxrepos "github.com/eliseea/mobility/storage/database/sqlx"
)

type repositories struct {
	users        user.Repository
	mobilities   mobility.Repository
	journal      journal.Repository
	testimonials testimonial.Repository
	close        func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	repos, err := setUpRepositories(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	translator := core.NewTranslator()
	validate := core.NewValidate(translator)
	user.InitValidators(validate, translator)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	if conf.Generation.APIKey == "" {
		logger.Warn("generation API key is not set, testimonials will use the fallback draft")
	}

	usrSvc := user.NewService(repos.users, validate)
	mobSvc := mobility.NewService(repos.mobilities)
	journalSvc := journal.NewService(repos.journal, repos.mobilities, validate)
	testimonialSvc := testimonial.NewService(testimonial.Deps{
		Repo:         repos.testimonials,
		Mobilities:   repos.mobilities,
		Journal:      repos.journal,
		Generator:    generationsvc.NewGeminiGenerator(conf, nil),
		Mailer:       mailSvc,
		Coordinators: conf.CoordinatorEmails,
		Logger:       logger,
		Validate:     validate,
		Timeout:      conf.Generation.Timeout,
	})

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : %s", conf))
	defer logger.Info("Application stopped")

	core.ParseEmailTemplates(appfs.FS, "templates/email", conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:           conf,
			Logger:         logger,
			UserSvc:        usrSvc,
			MobilitySvc:    mobSvc,
			JournalSvc:     journalSvc,
			TestimonialSvc: testimonialSvc,
			Translator:     translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpRepositories returns the seeded in-memory store, or the migrated postgres database.
func setUpRepositories(conf *core.Config) (*repositories, error) {
	if conf.Database.InMemory {
		db := inmemdb.Open()
		db.Seed(database.DemoFixtures())
		return &repositories{
			users:        inmemdb.NewUserRepository(db),
			mobilities:   inmemdb.NewMobilityRepository(db),
			journal:      inmemdb.NewJournalRepository(db),
			testimonials: inmemdb.NewTestimonialRepository(db),
			close:        func() error { return nil },
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	sqlDB, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	db := sqlx.NewDb(sqlDB, conf.Database.Engine)
	return &repositories{
		users:        sqlxrepos.NewUserRepository(db),
		mobilities:   sqlxrepos.NewMobilityRepository(db),
		journal:      sqlxrepos.NewJournalRepository(db),
		testimonials: sqlxrepos.NewTestimonialRepository(db),
		close:        db.Close,
	}, nil
}
