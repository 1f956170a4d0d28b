package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliseea/mobility/core"
	"github.com/eliseea/mobility/core/user"
	"github.com/eliseea/mobility/storage/database"
	inmemdb "github.com/eliseea/mobility/storage/database/inmem"
	"github.com/eliseea/mobility/tests"
)

func setup(t *testing.T) *user.Service {
	t.Helper()
	validate, _ := testutil.NewValidate()
	return user.NewService(inmemdb.NewUserRepository(testutil.NewDB()), validate)
}

func TestService_Create(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		nu         user.NewUser
		wantFields []string
		wantErr    error
	}{
		{name: "blank name", nu: user.NewUser{Name: "  ", Email: "bob@eliseea.eu", Role: user.RoleStudent}, wantFields: []string{"Name"}},
		{name: "invalid email", nu: user.NewUser{Name: "Bob", Email: "bob", Role: user.RoleStudent}, wantFields: []string{"Email"}},
		{name: "invalid role", nu: user.NewUser{Name: "Bob", Email: "bob@eliseea.eu", Role: "GUEST"}, wantFields: []string{"Role"}},
		{name: "email taken", nu: user.NewUser{Name: "Bob", Email: " Alice.Martin@eliseea.eu ", Role: user.RoleStudent}, wantErr: user.ErrEmailExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.nu)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "Create() error = %v, wantErr %v", err, tt.wantErr)
				var valErr *core.ValidationError
				assert.True(t, errors.As(err, &valErr))
				return
			}
			var vErrs validator.ValidationErrors
			require.True(t, errors.As(err, &vErrs), "Create() error = %v", err)
			fields := make([]string, 0, len(vErrs))
			for _, e := range vErrs {
				fields = append(fields, e.StructField())
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}

	t.Run("generated ID", func(t *testing.T) {
		usr, err := svc.Create(ctx, user.NewUser{Name: " Bob Durand ", Email: "Bob@Eliseea.eu", Role: " TEACHER "})
		require.NoError(t, err)
		assert.NotEmpty(t, usr.ID)
		assert.Equal(t, "Bob Durand", usr.Name)
		assert.Equal(t, "bob@eliseea.eu", usr.Email)
		assert.Equal(t, user.RoleTeacher, usr.Role)
		assert.False(t, usr.CreatedAt.IsZero())

		got, err := svc.GetByID(ctx, " "+usr.ID+" ")
		require.NoError(t, err)
		assert.Equal(t, usr, got)
	})

	t.Run("same ID replaces", func(t *testing.T) {
		usr, err := svc.Create(ctx, user.NewUser{ID: database.DemoStudentID, Name: "Alice Martin-Roux", Email: "alice.martin@eliseea.eu", Role: user.RoleStudent})
		require.NoError(t, err)
		assert.Equal(t, "Alice Martin-Roux", usr.Name)
	})
}

func TestService_Query(t *testing.T) {
	svc := setup(t)

	users, err := svc.Query(context.Background())
	require.NoError(t, err)
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"Admin ELISEEA", "Alice Martin", "M. Dupont"}, names)

	_, err = svc.GetByID(context.Background(), "ghost")
	assert.True(t, errors.Is(err, user.ErrNotFound))
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestRole(t *testing.T) {
	tests := []struct {
		role      user.Role
		wantValid bool
		wantStaff bool
	}{
		{user.RoleStudent, true, false},
		{user.RoleTeacher, true, true},
		{user.RoleAdmin, true, true},
		{"GUEST", false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.wantValid, tt.role.IsValid())
			assert.Equal(t, tt.wantStaff, tt.role.IsStaff())
		})
	}
}
