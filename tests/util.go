package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"net/mail"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/eliseea/mobility/core"
	"github.com/eliseea/mobility/core/journal"
	"github.com/eliseea/mobility/core/mobility"
	"github.com/eliseea/mobility/core/testimonial"
	"github.com/eliseea/mobility/core/user"
	"github.com/eliseea/mobility/fs"
	emailsvc "github.com/eliseea/mobility/services/email"
	logsvc "github.com/eliseea/mobility/services/logger"
	"github.com/eliseea/mobility/storage/database"
	inmemdb "github.com/eliseea/mobility/storage/database/inmem"
)

// NewConfig returns a TEST configuration that does not depend on the environment.
func NewConfig() *core.Config {
	return &core.Config{
		TestMode:         true,
		Env:              "TEST",
		Build:            "test",
		AppName:          "ELISEEA Mobility",
		SecretKey:        "t3st-s3cr3t",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "ELISEEA", Address: "noreply@eliseea.eu"},
		CoordinatorEmails: []mail.Address{
			{Name: "Coordination ELISEEA", Address: "coordination@eliseea.eu"},
		},
		Server: core.ServerConfig{
			Address:              ":0",
			ShutdownTimeout:      time.Second,
			TokenExpirationDelta: time.Hour,
			DisableRequestLogs:   true,
		},
		Database:   core.DatabaseConfig{InMemory: true},
		Generation: core.GenerationConfig{Timeout: 5 * time.Second},
	}
}

// NewLogger returns a logger writing nowhere, with Rollbar disabled.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

func NewValidate() (*validator.Validate, ut.Translator) {
	translator := core.NewTranslator()
	validate := core.NewValidate(translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// NewDB returns an in-memory database loaded with the demo fixtures.
func NewDB() *inmemdb.DB {
	db := inmemdb.Open()
	db.Seed(database.DemoFixtures())
	return db
}

// DemoUser returns the seeded user with the given ID.
func DemoUser(t *testing.T, id string) user.User {
	t.Helper()
	for _, usr := range database.DemoFixtures().Users {
		if usr.ID == id {
			return usr
		}
	}
	t.Fatalf("DemoUser(): no user %q", id)
	return user.User{}
}

// StubGenerator returns Draft, or Err when set. When Release is set, Generate waits for it.
type StubGenerator struct {
	Draft   testimonial.Draft
	Err     error
	Release chan struct{}
	Started chan struct{}

	mu       sync.Mutex
	requests []testimonial.GenerationRequest
}

var _ testimonial.Generator = (*StubGenerator)(nil)

func (g *StubGenerator) Generate(ctx context.Context, req testimonial.GenerationRequest) (testimonial.Draft, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if g.Started != nil {
		g.Started <- struct{}{}
	}
	if g.Release != nil {
		select {
		case <-g.Release:
		case <-ctx.Done():
			return testimonial.Draft{}, ctx.Err()
		}
	}
	if g.Err != nil {
		return testimonial.Draft{}, g.Err
	}
	return g.Draft, nil
}

// Requests returns the requests received so far.
func (g *StubGenerator) Requests() []testimonial.GenerationRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	reqs := make([]testimonial.GenerationRequest, len(g.requests))
	copy(reqs, g.requests)
	return reqs
}

// Services is the whole service layer on top of a seeded in-memory database.
type Services struct {
	Conf        *core.Config
	Logger      core.Logger
	Validate    *validator.Validate
	Translator  ut.Translator
	DB          *inmemdb.DB
	Mailer      *emailsvc.ConsoleServiceMock
	User        *user.Service
	Mobility    *mobility.Service
	Journal     *journal.Service
	Testimonial *testimonial.Service
}

// NewServices wires the services. testimonials may be nil, the in-memory repository is used then.
func NewServices(gen testimonial.Generator, testimonials testimonial.Repository) *Services {
	conf := NewConfig()
	logger := NewLogger(conf)
	validate, translator := NewValidate()
	db := NewDB()
	mailer := emailsvc.NewConsoleServiceMock(conf, logger)
	core.ParseEmailTemplates(appfs.FS, "templates/email", conf, logger)

	if testimonials == nil {
		testimonials = inmemdb.NewTestimonialRepository(db)
	}
	mobRepo := inmemdb.NewMobilityRepository(db)
	journalRepo := inmemdb.NewJournalRepository(db)

	return &Services{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		DB:         db,
		Mailer:     mailer,
		User:       user.NewService(inmemdb.NewUserRepository(db), validate),
		Mobility:   mobility.NewService(mobRepo),
		Journal:    journal.NewService(journalRepo, mobRepo, validate),
		Testimonial: testimonial.NewService(testimonial.Deps{
			Repo:         testimonials,
			Mobilities:   mobRepo,
			Journal:      journalRepo,
			Generator:    gen,
			Mailer:       mailer,
			Coordinators: conf.CoordinatorEmails,
			Logger:       logger,
			Validate:     validate,
			Timeout:      conf.Generation.Timeout,
		}),
	}
}
