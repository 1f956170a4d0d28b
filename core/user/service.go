package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/eliseea/mobility/core"
)

var (
	// errors
	ErrNotFound    = errors.WithMessage(core.ErrNotFound, "user")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		// CreateUser stores usr, ErrEmailExists is returned when the email is taken by another ID.
		// Creating a user with an existing ID replaces it.
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		QueryUsers(ctx context.Context) ([]User, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return User{}, err
	}
	if nu.ID == "" {
		nu.ID = uuid.New().String()
	}
	usr := User{
		ID:        nu.ID,
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		CreatedAt: time.Now().UTC(),
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return User{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, core.CleanString(id))
}

func (svc *Service) Query(ctx context.Context) ([]User, error) {
	return svc.repo.QueryUsers(ctx)
}
