package auth

type Role string

const (
	RoleEmployee   Role = "employee"
	RoleManager    Role = "manager"
	RoleHR         Role = "hr"
	RoleSuperAdmin Role = "superadmin"
)

var Roles = []Role{RoleEmployee, RoleManager, RoleHR, RoleSuperAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleHR, RoleSuperAdmin:
		return true
	}
	return false
}

// Title is the display name used in notifications.
func (r Role) Title() string {
	switch r {
	case RoleManager:
		return "Manager"
	case RoleHR:
		return "HR"
	case RoleSuperAdmin:
		return "Super Admin"
	default:
		return "Employee"
	}
}

// UserContext is the authenticated caller attached to a request context.
type UserContext struct {
	EmployeeCode string `json:"employeeCode"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
}
