package leave

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"hrflow/internal/domain/calendar"
)

const (
	NotifyKindRequest  = "request"
	NotifyKindApproval = "approval"
	NotifyKindReject   = "rejection"
	NotifyKindInfo     = "info"
)

func KindLabel(k Kind) string {
	switch k {
	case KindLeave:
		return "Leave"
	case KindHalfDay:
		return "Half Day"
	case KindPermission:
		return "Permission"
	case KindOD:
		return "On Duty"
	}
	return string(k)
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// Describe renders the kind-specific part of a notification.
func Describe(req Request) string {
	start := calendar.FormatDate(req.StartDate)
	end := calendar.FormatDate(req.EndDate)
	switch req.Kind {
	case KindLeave:
		days, err := calendar.InclusiveDays(req.StartDate, req.EndDate)
		if err != nil {
			days = 1
		}
		unit := "days"
		if days == 1 {
			unit = "day"
		}
		mode := ""
		if req.LeaveMode != "" {
			mode = titleCase(string(req.LeaveMode)) + " "
		}
		return fmt.Sprintf("%sLeave from %s to %s (%d %s)", mode, start, end, days, unit)
	case KindHalfDay:
		return fmt.Sprintf("Half Day (%s session) on %s", titleCase(string(req.Session)), start)
	case KindPermission:
		return fmt.Sprintf("Permission on %s from %s to %s", start, calendar.FormatClock(req.StartTime), calendar.FormatClock(req.EndTime))
	case KindOD:
		if start == end {
			return fmt.Sprintf("On Duty on %s", start)
		}
		return fmt.Sprintf("On Duty from %s to %s", start, end)
	}
	return fmt.Sprintf("%s from %s to %s", KindLabel(req.Kind), start, end)
}

func ApprovalMessage(req Request, tier Tier, approverName string) string {
	return fmt.Sprintf("Your %s has been approved by %s %s.", Describe(req), tier.Title(), approverName)
}

func RejectionMessage(req Request, tier Tier, approverName, reason string) string {
	return fmt.Sprintf("Your %s has been rejected by %s %s. Reason: %s", Describe(req), tier.Title(), approverName, reason)
}

func LateralMessage(req Request, requesterName string, tier Tier, approverName string) string {
	return fmt.Sprintf("%s %s approved %s's %s.", tier.Title(), approverName, requesterName, Describe(req))
}

func CreationMessage(req Request, requesterName string) string {
	return fmt.Sprintf("%s submitted a %s request: %s. Awaiting your approval.", requesterName, KindLabel(req.Kind), Describe(req))
}
