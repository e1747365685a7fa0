package employee

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"hrflow/internal/domain/apperr"
	"hrflow/internal/domain/auth"
)

type Service struct {
	Store     StoreAPI
	Directory *Directory
}

func NewService(store StoreAPI, dir *Directory) *Service {
	return &Service{Store: store, Directory: dir}
}

func (s *Service) Get(ctx context.Context, code string) (Employee, error) {
	return s.Store.GetEmployee(ctx, code)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Employee, error) {
	return s.Store.ListEmployees(ctx, filter)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Employee, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.ManagerCode = strings.TrimSpace(in.ManagerCode)
	if in.Code == "" || in.Name == "" {
		return Employee{}, apperr.Validation("code and name are required")
	}
	if !in.Role.Valid() {
		return Employee{}, apperr.Validation("unknown role %q", in.Role)
	}
	if in.ManagerCode == in.Code {
		return Employee{}, apperr.Validation("employee cannot manage themselves")
	}
	if in.ManagerCode != "" {
		if _, err := s.Store.GetEmployee(ctx, in.ManagerCode); err != nil {
			if IsNotFound(err) {
				return Employee{}, apperr.Validation("manager %s does not exist", in.ManagerCode)
			}
			return Employee{}, err
		}
	}

	var hash string
	if in.Password != "" {
		h, err := auth.HashPassword(in.Password)
		if err != nil {
			return Employee{}, err
		}
		hash = h
	}

	created, err := s.Store.CreateEmployee(ctx, Employee{
		Code:        in.Code,
		Name:        in.Name,
		Email:       strings.TrimSpace(in.Email),
		Department:  strings.TrimSpace(in.Department),
		Role:        in.Role,
		ManagerCode: in.ManagerCode,
		Status:      StatusActive,
	}, hash)
	if err != nil {
		return Employee{}, err
	}
	s.refresh(ctx)
	return created, nil
}

func (s *Service) Deactivate(ctx context.Context, code string) (Employee, error) {
	return s.transition(ctx, code, StatusDeactivated)
}

func (s *Service) Rejoin(ctx context.Context, code string) (Employee, error) {
	return s.transition(ctx, code, StatusRejoined)
}

func (s *Service) transition(ctx context.Context, code, next string) (Employee, error) {
	emp, err := s.Store.GetEmployee(ctx, code)
	if err != nil {
		return Employee{}, err
	}
	switch next {
	case StatusDeactivated:
		if !emp.IsActive() {
			return emp, nil
		}
	case StatusRejoined:
		if emp.IsActive() {
			return Employee{}, apperr.Validation("employee %s is not deactivated", code)
		}
	}
	if err := s.Store.SetStatus(ctx, code, next); err != nil {
		return Employee{}, err
	}
	emp.Status = next
	s.refresh(ctx)
	return emp, nil
}

func (s *Service) refresh(ctx context.Context) {
	if s.Directory == nil {
		return
	}
	if err := s.Directory.Refresh(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("employee directory refresh failed")
	}
}
