package employee

import (
	"time"

	"hrflow/internal/domain/auth"
)

const (
	StatusActive      = "active"
	StatusDeactivated = "deactivated"
	StatusRejoined    = "rejoined"
)

type Employee struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Department  string    `json:"department"`
	Role        auth.Role `json:"role"`
	ManagerCode string    `json:"managerCode,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IsActive reports whether the employee can act in the system. Rejoined
// employees count as active.
func (e Employee) IsActive() bool {
	return e.Status != StatusDeactivated
}

type Filter struct {
	Role       auth.Role
	Status     string
	Department string
}

type CreateInput struct {
	Code        string    `json:"code" validate:"required,max=32"`
	Name        string    `json:"name" validate:"required,max=200"`
	Email       string    `json:"email" validate:"omitempty,email"`
	Department  string    `json:"department" validate:"max=100"`
	Role        auth.Role `json:"role" validate:"required,oneof=employee manager hr superadmin"`
	ManagerCode string    `json:"managerCode" validate:"max=32"`
	Password    string    `json:"password" validate:"omitempty,min=8"`
}
