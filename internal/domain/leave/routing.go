package leave

import "hrflow/internal/domain/auth"

// CloseOnAnyApproval ends the workflow on the first human approval from any
// tier, even when later tiers were not bypassed. Flip it to walk the full
// chain instead; see nextRequiredTier.
const CloseOnAnyApproval = true

const (
	ReasonRequesterHR      = "Requester is HR"
	ReasonRequesterManager = "Requester is Manager"
	ReasonHROnLeave        = "HR on Leave"
	ReasonManagerOnLeave   = "Manager on Leave"
)

const (
	SystemApproverID   = "system"
	SystemApproverName = "System"
)

type Bypass struct {
	Tier   Tier
	Reason string
}

// Route is the routing decision taken once at creation and snapshotted onto
// the request.
type Route struct {
	Bypassed []Bypass
	Next     Tier
}

type routeKey struct {
	role              auth.Role
	supervisorOnLeave bool
}

var routingTable = map[routeKey]Route{
	{auth.RoleHR, false}: {
		Bypassed: []Bypass{{TierManager, ReasonRequesterHR}, {TierHR, ReasonRequesterHR}},
		Next:     TierSuperAdmin,
	},
	{auth.RoleHR, true}: {
		Bypassed: []Bypass{{TierManager, ReasonRequesterHR}, {TierHR, ReasonRequesterHR}},
		Next:     TierSuperAdmin,
	},
	{auth.RoleManager, false}: {
		Bypassed: []Bypass{{TierManager, ReasonRequesterManager}},
		Next:     TierHR,
	},
	{auth.RoleManager, true}: {
		Bypassed: []Bypass{{TierManager, ReasonRequesterManager}, {TierHR, ReasonHROnLeave}},
		Next:     TierSuperAdmin,
	},
	{auth.RoleEmployee, false}: {
		Next: TierAny,
	},
	{auth.RoleEmployee, true}: {
		Bypassed: []Bypass{{TierManager, ReasonManagerOnLeave}},
		Next:     TierHR,
	},
}

// routingRole collapses every role without its own row onto the employee row.
func routingRole(role auth.Role) auth.Role {
	switch role {
	case auth.RoleHR, auth.RoleManager:
		return role
	}
	return auth.RoleEmployee
}

// needsSupervisorCheck reports whether the supervisor's leave can change the
// route for this role. HR requests always go to the super admin.
func needsSupervisorCheck(role auth.Role) bool {
	return routingRole(role) != auth.RoleHR
}

func RouteFor(role auth.Role, supervisorOnLeave bool) Route {
	return routingTable[routeKey{routingRole(role), supervisorOnLeave}]
}

// closeWorkflow decides the overall status and next tier after an approval
// has been placed into req.
func closeWorkflow(req Request, closeOnAny bool) (Status, Tier) {
	if closeOnAny {
		return StatusApproved, TierNone
	}
	next := nextRequiredTier(req)
	if next == TierNone {
		return StatusApproved, TierNone
	}
	return StatusPending, next
}

// nextRequiredTier walks manager then HR, plus the super admin when HR was
// bypassed, and returns the first tier whose slot is still empty.
func nextRequiredTier(req Request) Tier {
	required := []Tier{TierManager, TierHR}
	if req.HRApproval != nil && req.HRApproval.Status == SlotBypassed {
		required = append(required, TierSuperAdmin)
	}
	for _, tier := range required {
		if req.Slot(tier) == nil {
			return tier
		}
	}
	return TierNone
}
