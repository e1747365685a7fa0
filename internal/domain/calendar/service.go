package calendar

import (
	"context"
	"strings"
	"time"

	"hrflow/internal/domain/apperr"
)

type Service struct {
	Store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store}
}

type HolidayInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Type      HolidayType
}

func (s *Service) ListHolidays(ctx context.Context, from, to time.Time) ([]Holiday, error) {
	return s.Store.ListHolidays(ctx, from, to)
}

func (s *Service) CreateHoliday(ctx context.Context, in HolidayInput) (Holiday, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Holiday{}, apperr.Validation("holiday name is required")
	}
	if in.StartDate.IsZero() {
		return Holiday{}, apperr.Validation("holiday start date is required")
	}
	end := in.EndDate
	if end.IsZero() {
		end = in.StartDate
	}
	days, err := InclusiveDays(DateOf(in.StartDate), DateOf(end))
	if err != nil {
		return Holiday{}, apperr.Validation("holiday end date before start date")
	}
	kind := in.Type
	if kind == "" {
		kind = HolidayPublic
	}
	if kind != HolidayPublic && kind != HolidayRegional {
		return Holiday{}, apperr.Validation("holiday type must be public or regional")
	}

	created, err := s.Store.CreateHoliday(ctx, Holiday{
		Name:      name,
		StartDate: DateOf(in.StartDate),
		EndDate:   DateOf(end),
		Type:      kind,
	})
	if err != nil {
		return Holiday{}, err
	}
	created.Days = days
	return created, nil
}

func (s *Service) DeleteHoliday(ctx context.Context, id string) error {
	return s.Store.DeleteHoliday(ctx, id)
}
