package attendance

import (
	"time"

	"hrflow/internal/domain/calendar"
)

type Metrics struct {
	Status            string  `json:"status"`
	WorkingHours      float64 `json:"workingHours"`
	LateMinutes       int     `json:"lateMinutes"`
	PermissionMinutes int     `json:"permissionMinutes"`
	ExtraMinutes      int     `json:"extraMinutes"`
	IsLate            bool    `json:"isLate"`
	IsPermission      bool    `json:"isPermission"`
	IsExtra           bool    `json:"isExtra"`
	IsFullPresent     bool    `json:"isFullPresent"`
}

// Record is one employee-day. Metrics are derived from InTime and OutTime
// and are recomputed whenever a record is saved or loaded.
type Record struct {
	EmployeeCode string              `json:"employeeCode"`
	Date         time.Time           `json:"date"`
	InTime       *calendar.ClockTime `json:"inTime"`
	OutTime      *calendar.ClockTime `json:"outTime"`
	Metrics      Metrics             `json:"metrics"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

type SaveInput struct {
	InTime  string `json:"inTime" validate:"omitempty,max=8"`
	OutTime string `json:"outTime" validate:"omitempty,max=8"`
}

type SummaryEntry struct {
	EmployeeCode string              `json:"employeeCode"`
	Name         string              `json:"name"`
	Department   string              `json:"department,omitempty"`
	InTime       *calendar.ClockTime `json:"inTime,omitempty"`
	OutTime      *calendar.ClockTime `json:"outTime,omitempty"`
	Status       string              `json:"status,omitempty"`
	Reason       string              `json:"reason,omitempty"`
}

type Counts struct {
	Present    int `json:"present"`
	Late       int `json:"late"`
	Permission int `json:"permission"`
	Absent     int `json:"absent"`
	Total      int `json:"total"`
}

type DaySummary struct {
	Date       time.Time      `json:"date"`
	Present    []SummaryEntry `json:"present"`
	Late       []SummaryEntry `json:"late"`
	Permission []SummaryEntry `json:"permission"`
	Absent     []SummaryEntry `json:"absent"`
	Counts     Counts         `json:"counts"`
}

const (
	ReasonOnLeave   = "On Leave"
	ReasonOnHalfDay = "On Half Day"
	ReasonOnDuty    = "On Duty"
	ReasonNoRecord  = "No Record"
)
