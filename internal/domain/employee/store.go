package employee

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"hrflow/internal/domain/apperr"
	"hrflow/internal/domain/auth"
	"hrflow/internal/platform/querier"
)

const employeeColumns = `code, name, COALESCE(email, ''), COALESCE(department, ''), role,
           COALESCE(manager_code, ''), status, created_at, updated_at`

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) GetEmployee(ctx context.Context, code string) (Employee, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE code = $1
  `, code)
	emp, err := scanEmployee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, apperr.NotFound("employee", code)
	}
	if err != nil {
		return Employee{}, apperr.Store("get employee", err)
	}
	return emp, nil
}

func (s *Store) ListEmployees(ctx context.Context, filter Filter) ([]Employee, error) {
	query := "SELECT " + employeeColumns + " FROM employees WHERE 1=1"
	var args []any
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		query += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		query += fmt.Sprintf(" AND department = $%d", len(args))
	}
	query += " ORDER BY code"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Store("list employees", err)
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, apperr.Store("scan employee", err)
		}
		out = append(out, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("list employees", err)
	}
	return out, nil
}

func (s *Store) CreateEmployee(ctx context.Context, emp Employee, passwordHash string) (Employee, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO employees (code, name, email, department, role, manager_code, status, password_hash)
    VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''), $7, NULLIF($8, ''))
    RETURNING `+employeeColumns,
		emp.Code, emp.Name, emp.Email, emp.Department, string(emp.Role), emp.ManagerCode, emp.Status, passwordHash)
	created, err := scanEmployee(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Employee{}, apperr.Conflict("employee %s already exists", emp.Code)
		}
		return Employee{}, apperr.Store("insert employee", err)
	}
	return created, nil
}

func (s *Store) SetStatus(ctx context.Context, code, status string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE employees SET status = $1, updated_at = now() WHERE code = $2", status, code)
	if err != nil {
		return apperr.Store("update employee status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("employee", code)
	}
	return nil
}

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	var role string
	err := row.Scan(&emp.Code, &emp.Name, &emp.Email, &emp.Department, &role,
		&emp.ManagerCode, &emp.Status, &emp.CreatedAt, &emp.UpdatedAt)
	emp.Role = auth.Role(role)
	return emp, err
}
