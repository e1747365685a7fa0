package attendance

import (
	"strings"

	"hrflow/internal/domain/calendar"
)

// Standard shift boundaries in minutes since midnight.
const (
	StdIn  = 9 * 60
	StdOut = 18 * 60
)

const (
	TagLate        = "Late Comer"
	TagPermission  = "Permission"
	TagExtra       = "Extra Working Time"
	TagFullPresent = "Full Present"
	LabelPresent   = "Present"
	LabelAbsent    = "Absent"
)

// ComputeMetrics derives the metrics bundle from raw clock times. It is pure:
// the same pair always yields the same result. Working time is not clamped,
// so an out time before the in time produces negative hours.
func ComputeMetrics(in, out *calendar.ClockTime) Metrics {
	if in == nil {
		return Metrics{Status: LabelAbsent}
	}
	inMin := in.Minutes()

	late := max(0, inMin-StdIn)
	extraBefore := max(0, StdIn-inMin)

	var working, extraAfter, permission int
	fullPresent := false
	if out != nil {
		outMin := out.Minutes()
		working = outMin - inMin
		extraAfter = max(0, outMin-StdOut)
		permission = max(0, StdOut-outMin)
		fullPresent = inMin <= StdIn && outMin >= StdOut
	}
	extra := extraBefore + extraAfter

	var tags []string
	if late > 0 {
		tags = append(tags, TagLate)
	}
	if permission > 0 {
		tags = append(tags, TagPermission)
	}
	if extra > 0 {
		tags = append(tags, TagExtra)
	}
	if fullPresent {
		tags = append(tags, TagFullPresent)
	}
	status := LabelPresent
	if len(tags) > 0 {
		status = strings.Join(tags, ", ")
	}

	return Metrics{
		Status:            status,
		WorkingHours:      float64(working) / 60,
		LateMinutes:       late,
		PermissionMinutes: permission,
		ExtraMinutes:      extra,
		IsLate:            late > 0,
		IsPermission:      permission > 0,
		IsExtra:           extra > 0,
		IsFullPresent:     fullPresent,
	}
}
