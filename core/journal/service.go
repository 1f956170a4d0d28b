package journal

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/eliseea/mobility/core"
	"github.com/eliseea/mobility/core/mobility"
	"github.com/eliseea/mobility/core/user"
)

type (
	// Repository is the journal side of the persistence gateway.
	Repository interface {
		// QueryEntries returns the entries of a mobility in chronological order.
		QueryEntries(ctx context.Context, mobilityID string) ([]Entry, error)
		// CreateEntry stores entry under a newly assigned ID and returns it.
		CreateEntry(ctx context.Context, entry Entry) (Entry, error)
	}

	MobilityGetter interface {
		GetMobility(ctx context.Context, id string) (mobility.Mobility, error)
	}

	Service struct {
		repo       Repository
		mobilities MobilityGetter
		validate   *validator.Validate
		now        func() time.Time
	}
)

func NewService(repo Repository, mobilities MobilityGetter, validate *validator.Validate) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(mobilities, "mobilities"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()
	return &Service{
		repo:       repo,
		mobilities: mobilities,
		validate:   validate,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (svc *Service) getMobility(ctx context.Context, actor user.User, mobilityID string) (mobility.Mobility, error) {
	mob, err := svc.mobilities.GetMobility(ctx, mobilityID)
	if err != nil {
		return mobility.Mobility{}, err
	}
	if !mobility.CanAccess(actor, mob) {
		return mobility.Mobility{}, mobility.ErrNotFound
	}
	return mob, nil
}

// List returns the journal of a mobility, oldest entry first.
func (svc *Service) List(ctx context.Context, actor user.User, mobilityID string) ([]Entry, error) {
	if _, err := svc.getMobility(ctx, actor, mobilityID); err != nil {
		return nil, err
	}
	entries, err := svc.repo.QueryEntries(ctx, mobilityID)
	if err != nil {
		return nil, errors.Wrap(err, "querying journal entries")
	}
	return entries, nil
}

// Add appends an entry to the journal. Only the student owning the mobility writes in it.
func (svc *Service) Add(ctx context.Context, actor user.User, mobilityID string, ne NewEntry) (Entry, error) {
	mob, err := svc.getMobility(ctx, actor, mobilityID)
	if err != nil {
		return Entry{}, err
	}
	if mob.UserID != actor.ID {
		return Entry{}, core.ErrForbidden
	}
	if err = ne.Validate(svc.validate); err != nil {
		return Entry{}, err
	}
	date, err := time.Parse(DateLayout, ne.Date)
	if err != nil {
		return Entry{}, core.NewValidationError(err, core.FieldError{Field: "date", Error: "date must be formatted as YYYY-MM-DD"})
	}

	photos := ne.Photos
	if photos == nil {
		photos = []string{}
	}
	entry, err := svc.repo.CreateEntry(ctx, Entry{
		MobilityID: mob.ID,
		Date:       date,
		Content:    ne.Content,
		Activities: ne.Activities,
		Skills:     ne.Skills,
		Mood:       ne.Mood,
		Photos:     photos,
		CreatedAt:  svc.now(),
	})
	if err != nil {
		return Entry{}, core.NewPersistenceError(err, "creating journal entry")
	}
	return entry, nil
}
