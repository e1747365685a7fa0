package attendance

import (
	"context"
	"time"
)

type StoreAPI interface {
	GetAttendance(ctx context.Context, employeeCode string, date time.Time) (Record, error)
	UpsertAttendance(ctx context.Context, rec Record) error
	ListAttendanceForDate(ctx context.Context, date time.Time) ([]Record, error)
}
