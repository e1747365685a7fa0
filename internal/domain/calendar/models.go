package calendar

import "time"

type HolidayType string

const (
	HolidayPublic   HolidayType = "public"
	HolidayRegional HolidayType = "regional"
)

type Holiday struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	StartDate time.Time   `json:"startDate"`
	EndDate   time.Time   `json:"endDate"`
	Type      HolidayType `json:"type"`
	Days      int         `json:"days"`
	CreatedAt time.Time   `json:"createdAt"`
}
