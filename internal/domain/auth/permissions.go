package auth

const (
	PermEmployeesRead    = "employees.read"
	PermEmployeesWrite   = "employees.write"
	PermRequestsRead     = "requests.read"
	PermRequestsWrite    = "requests.write"
	PermRequestsApprove  = "requests.approve"
	PermAttendanceRead   = "attendance.read"
	PermAttendanceWrite  = "attendance.write"
	PermAttendanceReport = "attendance.report"
	PermHolidaysRead     = "holidays.read"
	PermHolidaysWrite    = "holidays.write"
	PermAuditRead        = "audit.read"
	PermSystemMetrics    = "system.metrics"
	PermSystemJobs       = "system.jobs"
)

var DefaultPermissions = []string{
	PermEmployeesRead,
	PermEmployeesWrite,
	PermRequestsRead,
	PermRequestsWrite,
	PermRequestsApprove,
	PermAttendanceRead,
	PermAttendanceWrite,
	PermAttendanceReport,
	PermHolidaysRead,
	PermHolidaysWrite,
	PermAuditRead,
	PermSystemMetrics,
	PermSystemJobs,
}

var RolePermissions = map[Role][]string{
	RoleEmployee: {
		PermRequestsRead,
		PermRequestsWrite,
		PermAttendanceRead,
		PermHolidaysRead,
	},
	RoleManager: {
		PermEmployeesRead,
		PermRequestsRead,
		PermRequestsWrite,
		PermRequestsApprove,
		PermAttendanceRead,
		PermAttendanceReport,
		PermHolidaysRead,
	},
	RoleHR: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermRequestsRead,
		PermRequestsWrite,
		PermRequestsApprove,
		PermAttendanceRead,
		PermAttendanceWrite,
		PermAttendanceReport,
		PermHolidaysRead,
		PermHolidaysWrite,
		PermAuditRead,
	},
	RoleSuperAdmin: DefaultPermissions,
}

func HasPermission(role Role, permission string) bool {
	for _, perm := range RolePermissions[role] {
		if perm == permission {
			return true
		}
	}
	return false
}
