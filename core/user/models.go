package user

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/eliseea/mobility/core"
)

type Role string

// Roles
const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
	RoleAdmin   Role = "ADMIN"
)

var AllRoles = []Role{RoleStudent, RoleTeacher, RoleAdmin}

func (r Role) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role may validate checklist items.
func (r Role) IsStaff() bool {
	return r == RoleTeacher || r == RoleAdmin
}

type User struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

func (u User) IsStudent() bool { return u.Role == RoleStudent }
func (u User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u User) IsStaff() bool   { return u.Role.IsStaff() }

// NewUser contains information needed to create a new User.
// ID is optional, one is generated when empty.
type NewUser struct {
	ID    string `json:"id"`
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"required,email"`
	Role  Role   `json:"role" validate:"required,userrole"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.ID = core.CleanString(nu.ID)
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = Role(core.CleanString(string(nu.Role)))
	return validate.Struct(nu)
}
