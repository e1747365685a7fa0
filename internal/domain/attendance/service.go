package attendance

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"hrflow/internal/domain/apperr"
	"hrflow/internal/domain/calendar"
	"hrflow/internal/domain/employee"
	"hrflow/internal/domain/leave"
)

type Directory interface {
	GetEmployee(ctx context.Context, code string) (employee.Employee, error)
	Active(ctx context.Context) ([]employee.Employee, error)
}

// RequestLister finds the approved requests that explain an absence.
type RequestLister interface {
	ListRequests(ctx context.Context, filter leave.RequestFilter) ([]leave.Request, error)
}

type Service struct {
	Store     StoreAPI
	Directory Directory
	Requests  RequestLister
}

func NewService(store StoreAPI, dir Directory, requests RequestLister) *Service {
	return &Service{Store: store, Directory: dir, Requests: requests}
}

// Save recomputes metrics from the raw times and upserts the record keyed by
// employee and date.
func (s *Service) Save(ctx context.Context, employeeCode string, date time.Time, in SaveInput) (Record, error) {
	inTime, err := calendar.ParseOptionalClock(in.InTime)
	if err != nil {
		return Record{}, err
	}
	outTime, err := calendar.ParseOptionalClock(in.OutTime)
	if err != nil {
		return Record{}, err
	}
	if inTime == nil && outTime != nil {
		return Record{}, apperr.Validation("out time requires an in time")
	}
	if _, err := s.Directory.GetEmployee(ctx, employeeCode); err != nil {
		return Record{}, err
	}

	rec := Record{
		EmployeeCode: employeeCode,
		Date:         calendar.DateOf(date),
		InTime:       inTime,
		OutTime:      outTime,
		Metrics:      ComputeMetrics(inTime, outTime),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.Store.UpsertAttendance(ctx, rec); err != nil {
		return Record{}, err
	}
	zerolog.Ctx(ctx).Debug().
		Str("employee", employeeCode).
		Str("date", calendar.FormatDate(rec.Date)).
		Str("status", rec.Metrics.Status).
		Msg("attendance saved")
	return rec, nil
}

// Get loads a record and recomputes its metrics so stored values never drift.
func (s *Service) Get(ctx context.Context, employeeCode string, date time.Time) (Record, error) {
	rec, err := s.Store.GetAttendance(ctx, employeeCode, date)
	if err != nil {
		return Record{}, err
	}
	rec.Metrics = ComputeMetrics(rec.InTime, rec.OutTime)
	return rec, nil
}

// SummarizeDay buckets every active employee for the date. A clock-in always
// wins over request lookups.
func (s *Service) SummarizeDay(ctx context.Context, date time.Time) (DaySummary, error) {
	date = calendar.DateOf(date)
	active, err := s.Directory.Active(ctx)
	if err != nil {
		return DaySummary{}, err
	}
	records, err := s.Store.ListAttendanceForDate(ctx, date)
	if err != nil {
		return DaySummary{}, err
	}
	approved, err := s.Requests.ListRequests(ctx, leave.RequestFilter{Status: leave.StatusApproved, From: date, To: date})
	if err != nil {
		return DaySummary{}, err
	}

	byCode := make(map[string]Record, len(records))
	for _, rec := range records {
		byCode[rec.EmployeeCode] = rec
	}
	requestsByCode := map[string][]leave.Request{}
	for _, req := range approved {
		if req.Covers(date) {
			requestsByCode[req.EmployeeCode] = append(requestsByCode[req.EmployeeCode], req)
		}
	}

	summary := DaySummary{
		Date:       date,
		Present:    []SummaryEntry{},
		Late:       []SummaryEntry{},
		Permission: []SummaryEntry{},
		Absent:     []SummaryEntry{},
	}
	for _, emp := range active {
		entry := SummaryEntry{EmployeeCode: emp.Code, Name: emp.Name, Department: emp.Department}
		if rec, ok := byCode[emp.Code]; ok && rec.InTime != nil {
			entry.InTime, entry.OutTime = rec.InTime, rec.OutTime
			entry.Status = ComputeMetrics(rec.InTime, rec.OutTime).Status
			if rec.InTime.Minutes() <= StdIn {
				summary.Present = append(summary.Present, entry)
			} else {
				summary.Late = append(summary.Late, entry)
			}
			continue
		}
		reqs := requestsByCode[emp.Code]
		if hasKind(reqs, leave.KindPermission) {
			entry.Reason = leave.KindLabel(leave.KindPermission)
			summary.Permission = append(summary.Permission, entry)
			continue
		}
		entry.Reason = absenceReason(reqs)
		summary.Absent = append(summary.Absent, entry)
	}

	summary.Counts = Counts{
		Present:    len(summary.Present),
		Late:       len(summary.Late),
		Permission: len(summary.Permission),
		Absent:     len(summary.Absent),
		Total:      len(active),
	}
	return summary, nil
}

func hasKind(reqs []leave.Request, kind leave.Kind) bool {
	for _, r := range reqs {
		if r.Kind == kind {
			return true
		}
	}
	return false
}

func absenceReason(reqs []leave.Request) string {
	switch {
	case hasKind(reqs, leave.KindLeave):
		return ReasonOnLeave
	case hasKind(reqs, leave.KindHalfDay):
		return ReasonOnHalfDay
	case hasKind(reqs, leave.KindOD):
		return ReasonOnDuty
	}
	return ReasonNoRecord
}
