package mobility

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliseea/mobility/core"
	"github.com/eliseea/mobility/core/user"
)

type fakeRepo struct {
	mu        sync.Mutex
	mobs      map[string]Mobility
	items     map[string]ChecklistItem
	updateErr error
	updates   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		mobs: map[string]Mobility{
			"m1": {ID: "m1", UserID: "u1", Destination: "Séville, Espagne"},
			"m2": {ID: "m2", UserID: "u9", Destination: "Porto, Portugal"},
		},
		items: map[string]ChecklistItem{
			"c2": {ID: "c2", MobilityID: "m1", Position: 2, Status: ItemDone},
			"c1": {ID: "c1", MobilityID: "m1", Position: 1, Status: ItemValidated},
			"c3": {ID: "c3", MobilityID: "m1", Position: 3, Status: ItemTodo},
			"x1": {ID: "x1", MobilityID: "m2", Position: 1, Status: ItemTodo},
		},
	}
}

func (r *fakeRepo) GetMobility(_ context.Context, id string) (Mobility, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mob, ok := r.mobs[id]; ok {
		return mob, nil
	}
	return Mobility{}, ErrNotFound
}

func (r *fakeRepo) GetMobilityByUser(_ context.Context, userID string) (Mobility, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mob := range r.mobs {
		if mob.UserID == userID {
			return mob, nil
		}
	}
	return Mobility{}, ErrNotFound
}

func (r *fakeRepo) QueryChecklist(_ context.Context, mobilityID string) ([]ChecklistItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]ChecklistItem, 0)
	for pos := 1; pos <= len(r.items); pos++ {
		for _, item := range r.items {
			if item.MobilityID == mobilityID && item.Position == pos {
				items = append(items, item)
			}
		}
	}
	return items, nil
}

func (r *fakeRepo) GetChecklistItem(_ context.Context, id string) (ChecklistItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.items[id]; ok {
		return item, nil
	}
	return ChecklistItem{}, ErrItemNotFound
}

func (r *fakeRepo) UpdateChecklistItemStatus(_ context.Context, id string, status ItemStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	if r.updateErr != nil {
		return r.updateErr
	}
	item := r.items[id]
	item.Status = status
	r.items[id] = item
	return nil
}

func (r *fakeRepo) status(id string) ItemStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id].Status
}

var (
	student      = user.User{ID: "u1", Name: "Alice Martin", Role: user.RoleStudent}
	otherStudent = user.User{ID: "u7", Name: "Bob", Role: user.RoleStudent}
	teacher      = user.User{ID: "u2", Name: "M. Dupont", Role: user.RoleTeacher}
	admin        = user.User{ID: "u3", Name: "Admin ELISEEA", Role: user.RoleAdmin}
)

func newTestService(repo Repository) *Service {
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestService_ForUser(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   user.User
		userID  string
		wantID  string
		wantErr error
	}{
		{name: "student: own", actor: student, wantID: "m1"},
		{name: "student: own by id", actor: student, userID: " u1 ", wantID: "m1"},
		{name: "student: someone else's", actor: student, userID: "u9", wantErr: ErrNotFound},
		{name: "student: none", actor: otherStudent, wantErr: ErrNotFound},
		{name: "teacher: any", actor: teacher, userID: "u9", wantID: "m2"},
		{name: "admin: any", actor: admin, userID: "u1", wantID: "m1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mob, err := svc.ForUser(ctx, tt.actor, tt.userID)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "err = %v", err)
				assert.True(t, errors.Is(err, core.ErrNotFound))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, mob.ID)
		})
	}
}

func TestService_Checklist(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ctx := context.Background()

	items, err := svc.Checklist(ctx, student, "m1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"c1", "c2", "c3"}, []string{items[0].ID, items[1].ID, items[2].ID})

	_, err = svc.Checklist(ctx, student, "m2")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = svc.Checklist(ctx, teacher, "m2")
	assert.NoError(t, err)

	progress, err := svc.Progress(ctx, admin, "m1")
	require.NoError(t, err)
	assert.Equal(t, 3, progress.Total)
	assert.Equal(t, 2, progress.Completed)
	assert.Equal(t, 67, progress.Percent)
}

func TestService_Advance(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		actor      user.User
		item       string
		from       ItemStatus
		want       ItemStatus
		wantWrites int
		wantErr    error
	}{
		{name: "student ticks todo", actor: student, item: "c3", want: ItemDone, wantWrites: 1},
		{name: "student unticks done", actor: student, item: "c2", want: ItemInProgress, wantWrites: 1},
		{name: "student on validated is a no-op", actor: student, item: "c1", want: ItemValidated},
		{name: "teacher validates done", actor: teacher, item: "c2", want: ItemValidated, wantWrites: 1},
		{name: "teacher on todo is a no-op", actor: teacher, item: "c3", want: ItemTodo},
		{name: "admin unvalidates", actor: admin, item: "c1", want: ItemDone, wantWrites: 1},
		{name: "expected status matches", actor: student, item: "c3", from: ItemTodo, want: ItemDone, wantWrites: 1},
		{name: "replay of a saved request", actor: teacher, item: "c1", from: ItemDone, want: ItemValidated},
		{name: "stale status", actor: student, item: "c3", from: ItemDone, wantErr: ErrStatusConflict},
		{name: "other student's item", actor: student, item: "x1", wantErr: ErrItemNotFound},
		{name: "unknown item", actor: admin, item: "nope", wantErr: ErrItemNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			svc := newTestService(repo)

			got, err := svc.Advance(ctx, tt.actor, tt.item, tt.from)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "err = %v", err)
				assert.Zero(t, repo.updates)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, tt.want, repo.status(tt.item))
			assert.Equal(t, tt.wantWrites, repo.updates)
		})
	}
}

func TestService_Advance_invalidFrom(t *testing.T) {
	svc := newTestService(newFakeRepo())

	_, err := svc.Advance(context.Background(), student, "c3", ItemStatus("LOL"))
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "err = %v", err)
	assert.Equal(t, "from", vErr.Fields[0].Field)
}

func TestService_Advance_persistenceFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.updateErr = errors.New("connection reset")
	svc := newTestService(repo)

	got, err := svc.Advance(context.Background(), student, "c3", "")
	require.Error(t, err)
	assert.True(t, core.IsPersistenceError(err))
	assert.Equal(t, ChecklistItem{}, got)
	assert.Equal(t, ItemTodo, repo.status("c3"), "nothing was applied")

	// retry once the store is back
	repo.updateErr = nil
	got, err = svc.Advance(context.Background(), student, "c3", ItemTodo)
	require.NoError(t, err)
	assert.Equal(t, ItemDone, got.Status)
	assert.Equal(t, time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC), got.UpdatedAt)
}
