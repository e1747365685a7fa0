package employee

import "context"

type StoreAPI interface {
	GetEmployee(ctx context.Context, code string) (Employee, error)
	ListEmployees(ctx context.Context, filter Filter) ([]Employee, error)
	CreateEmployee(ctx context.Context, emp Employee, passwordHash string) (Employee, error)
	SetStatus(ctx context.Context, code, status string) error
}
