package mobility

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/eliseea/mobility/core"
	"github.com/eliseea/mobility/core/user"
)

var (
	// errors
	ErrNotFound       = errors.WithMessage(core.ErrNotFound, "mobility")
	ErrItemNotFound   = errors.WithMessage(core.ErrNotFound, "checklist item")
	ErrStatusConflict = errors.New("checklist item status has changed, reload and try again")
)

type (
	// Repository is the mobility side of the persistence gateway.
	// A user has at most one Mobility in scope.
	Repository interface {
		GetMobility(ctx context.Context, id string) (Mobility, error)
		GetMobilityByUser(ctx context.Context, userID string) (Mobility, error)
		// QueryChecklist returns the items of a mobility ordered by position.
		QueryChecklist(ctx context.Context, mobilityID string) ([]ChecklistItem, error)
		GetChecklistItem(ctx context.Context, id string) (ChecklistItem, error)
		UpdateChecklistItemStatus(ctx context.Context, id string, status ItemStatus) error
	}

	Service struct {
		repo Repository
		now  func() time.Time
	}
)

func NewService(repo Repository) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
	).CheckAndPanic()
	return &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CanAccess reports whether actor may see mob: staff see every mobility, students only their own.
func CanAccess(actor user.User, mob Mobility) bool {
	return actor.IsStaff() || mob.UserID == actor.ID
}

// ForUser returns the mobility of the user identified by userID, or the actor's when userID is empty.
func (svc *Service) ForUser(ctx context.Context, actor user.User, userID string) (Mobility, error) {
	userID = core.CleanString(userID)
	if userID == "" {
		userID = actor.ID
	}
	if !actor.IsStaff() && userID != actor.ID {
		return Mobility{}, ErrNotFound
	}
	return svc.repo.GetMobilityByUser(ctx, userID)
}

func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Mobility, error) {
	mob, err := svc.repo.GetMobility(ctx, id)
	if err != nil {
		return Mobility{}, err
	}
	if !CanAccess(actor, mob) {
		return Mobility{}, ErrNotFound
	}
	return mob, nil
}

func (svc *Service) Checklist(ctx context.Context, actor user.User, mobilityID string) ([]ChecklistItem, error) {
	if _, err := svc.Get(ctx, actor, mobilityID); err != nil {
		return nil, err
	}
	items, err := svc.repo.QueryChecklist(ctx, mobilityID)
	if err != nil {
		return nil, errors.Wrap(err, "querying checklist")
	}
	return items, nil
}

func (svc *Service) Progress(ctx context.Context, actor user.User, mobilityID string) (Progress, error) {
	items, err := svc.Checklist(ctx, actor, mobilityID)
	if err != nil {
		return Progress{}, err
	}
	return ComputeProgress(items), nil
}

// Advance applies the actor's transition to the item and persists it.
// The updated item is only returned once the write succeeded; on a *core.PersistenceError nothing changed.
//
// When from is set it must be the status the caller last saw. If the item already holds the status
// from transitions to, the call is a replay of a successful request and the item is returned as is.
func (svc *Service) Advance(ctx context.Context, actor user.User, itemID string, from ItemStatus) (ChecklistItem, error) {
	item, err := svc.repo.GetChecklistItem(ctx, itemID)
	if err != nil {
		return ChecklistItem{}, errors.Wrap(err, "getting checklist item")
	}
	mob, err := svc.repo.GetMobility(ctx, item.MobilityID)
	if err != nil {
		return ChecklistItem{}, errors.Wrap(err, "getting mobility")
	}
	if !CanAccess(actor, mob) {
		return ChecklistItem{}, ErrItemNotFound
	}

	if from != "" && from != item.Status {
		if !from.IsValid() {
			return ChecklistItem{}, core.NewValidationError(
				errors.Errorf("invalid status %q", from),
				core.FieldError{Field: "from", Error: "unknown status"},
			)
		}
		if next, ok := NextStatus(from, actor.Role); ok && next == item.Status {
			return item, nil
		}
		return ChecklistItem{}, ErrStatusConflict
	}

	next := Transition(item, actor.Role)
	if next.Status == item.Status {
		return item, nil
	}
	if err = svc.repo.UpdateChecklistItemStatus(ctx, item.ID, next.Status); err != nil {
		return ChecklistItem{}, core.NewPersistenceError(err, "updating checklist item status")
	}
	next.UpdatedAt = svc.now()
	return next, nil
}
