package testimonial

import (
	"context"
	"expvar"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/eliseea/mobility/core"
	"github.com/eliseea/mobility/core/journal"
	"github.com/eliseea/mobility/core/mobility"
	"github.com/eliseea/mobility/core/user"
)

const (
	defaultTimeout   = time.Minute
	defaultRetention = 24 * time.Hour
	sweepInterval    = time.Minute
)

// generations counts drafts by outcome: generated, fallback, failed.
var generations = expvar.NewMap("testimonial_generations")

type (
	// Repository is the testimonial side of the persistence gateway.
	Repository interface {
		// SaveTestimonial inserts t. Saving the same testimonial twice is a no-op,
		// saving a different one under an existing ID returns ErrAlreadyExists.
		SaveTestimonial(ctx context.Context, t Testimonial) error
		QueryTestimonials(ctx context.Context, mobilityID string) ([]Testimonial, error)
	}

	MobilityRepository interface {
		GetMobility(ctx context.Context, id string) (mobility.Mobility, error)
		GetMobilityByUser(ctx context.Context, userID string) (mobility.Mobility, error)
	}

	JournalRepository interface {
		QueryEntries(ctx context.Context, mobilityID string) ([]journal.Entry, error)
	}

	Deps struct {
		Repo         Repository
		Mobilities   MobilityRepository
		Journal      JournalRepository
		Generator    Generator
		Mailer       core.EmailService // optional
		Coordinators []mail.Address    // notified on publication
		Logger       core.Logger
		Validate     *validator.Validate
		Timeout      time.Duration // generation and save timeout
		Retention    time.Duration // how long a published run stays visible, 24h by default
		Now          func() time.Time
	}

	// Service holds one Pipeline per student.
	Service struct {
		repo         Repository
		mobilities   MobilityRepository
		journal      JournalRepository
		generator    Generator
		mailer       core.EmailService
		coordinators []mail.Address
		logger       core.Logger
		validate     *validator.Validate
		timeout      time.Duration
		retention    time.Duration
		now          func() time.Time
		newID        func() string

		// pipelines holds at most one run per student. Runs published more than
		// retention ago are dropped, the student's next access starts a new run.
		mu        sync.Mutex
		pipelines map[string]*Pipeline // {userID: *Pipeline}
		lastSweep time.Time
	}
)

func NewService(deps Deps) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Repo, "Repo"),
		vala.IsNotNil(deps.Mobilities, "Mobilities"),
		vala.IsNotNil(deps.Journal, "Journal"),
		vala.IsNotNil(deps.Generator, "Generator"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Validate, "Validate"),
	).CheckAndPanic()

	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retention := deps.Retention
	if retention <= 0 {
		retention = defaultRetention
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:         deps.Repo,
		mobilities:   deps.Mobilities,
		journal:      deps.Journal,
		generator:    deps.Generator,
		mailer:       deps.Mailer,
		coordinators: deps.Coordinators,
		logger:       deps.Logger,
		validate:     deps.Validate,
		timeout:      timeout,
		retention:    retention,
		now:          now,
		newID:        func() string { return uuid.New().String() },
		pipelines:    make(map[string]*Pipeline),
	}
}

// Pipeline returns the current run of a student, starting one if needed.
func (svc *Service) Pipeline(actor user.User) (*Pipeline, error) {
	if !actor.IsStudent() {
		return nil, ErrNotStudent
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.sweep()

	p, ok := svc.pipelines[actor.ID]
	if !ok {
		p = newPipeline(svc, actor)
		svc.pipelines[actor.ID] = p
	}
	return p, nil
}

// Restart replaces the student's run by a new one in FORM. Runs in flight cannot be replaced.
func (svc *Service) Restart(actor user.User) (*Pipeline, error) {
	if !actor.IsStudent() {
		return nil, ErrNotStudent
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if p, ok := svc.pipelines[actor.ID]; ok && p.busy() {
		return nil, ErrBusy
	}
	p := newPipeline(svc, actor)
	svc.pipelines[actor.ID] = p
	return p, nil
}

// sweep drops the runs published more than retention ago. svc.mu must be held.
func (svc *Service) sweep() {
	now := svc.now()
	if now.Sub(svc.lastSweep) < sweepInterval {
		return
	}
	svc.lastSweep = now
	cutoff := now.Add(-svc.retention)
	for id, p := range svc.pipelines {
		if p.publishedBefore(cutoff) {
			delete(svc.pipelines, id)
		}
	}
}

// Query lists the testimonials of a mobility visible to actor.
func (svc *Service) Query(ctx context.Context, actor user.User, mobilityID string) ([]Testimonial, error) {
	mob, err := svc.mobilities.GetMobility(ctx, mobilityID)
	if err != nil {
		return nil, err
	}
	if !mobility.CanAccess(actor, mob) {
		return nil, mobility.ErrNotFound
	}
	ts, err := svc.repo.QueryTestimonials(ctx, mob.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying testimonials")
	}
	return ts, nil
}

// generate drafts a testimonial for author. fallback is true when the generator has no credential.
func (svc *Service) generate(ctx context.Context, author user.User, eval Evaluation) (draft Draft, fallback bool, mob mobility.Mobility, err error) {
	mob, err = svc.mobilities.GetMobilityByUser(ctx, author.ID)
	if err != nil {
		return Draft{}, false, mobility.Mobility{}, errors.Wrap(err, "getting mobility")
	}
	entries, err := svc.journal.QueryEntries(ctx, mob.ID)
	if err != nil {
		return Draft{}, false, mobility.Mobility{}, errors.Wrap(err, "querying journal entries")
	}

	req := NewGenerationRequest(author.Name, mob.Destination, eval, entries)
	draft, err = svc.generator.Generate(ctx, req)
	switch {
	case errors.Is(err, ErrCredentialMissing):
		generations.Add("fallback", 1)
		svc.logger.Warn("generation credential missing, using the fallback draft", map[string]interface{}{"mobility_id": mob.ID}, author)
		return FallbackDraft(), true, mob, nil
	case err != nil:
		generations.Add("failed", 1)
		var genErr *GenerationError
		if !errors.As(err, &genErr) {
			err = NewGenerationError(err)
		}
		svc.logger.Error(fmt.Sprintf("generating testimonial: %v", err), err, author)
		return Draft{}, false, mobility.Mobility{}, err
	}
	generations.Add("generated", 1)
	return draft, false, mob, nil
}

type publishedMailData struct {
	AuthorName  string
	Destination string
	MobilityID  string
	Title       string
	Content     string
}

func (svc *Service) notifyPublished(t Testimonial, mob mobility.Mobility) {
	if svc.mailer == nil || len(svc.coordinators) == 0 {
		return
	}
	svc.mailer.SendMessages(&core.EmailMessage{
		To:           svc.coordinators,
		Subject:      "Nouveau témoignage : " + t.Title,
		TemplateName: "testimonial_published",
		TemplateData: publishedMailData{
			AuthorName:  t.AuthorName,
			Destination: mob.Destination,
			MobilityID:  t.MobilityID,
			Title:       t.Title,
			Content:     t.Content,
		},
	})
}
