package leave

import (
	"time"

	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/calendar"
)

type Kind string

const (
	KindLeave      Kind = "leave"
	KindHalfDay    Kind = "halfday"
	KindPermission Kind = "permission"
	KindOD         Kind = "od"
)

// AbsenceKinds are the request kinds that take an approver away from their desk.
var AbsenceKinds = []Kind{KindLeave, KindHalfDay, KindOD}

func (k Kind) Valid() bool {
	switch k {
	case KindLeave, KindHalfDay, KindPermission, KindOD:
		return true
	}
	return false
}

type LeaveMode string

const (
	ModeCasual LeaveMode = "casual"
	ModeUnpaid LeaveMode = "unpaid"
)

type Session string

const (
	SessionMorning   Session = "morning"
	SessionAfternoon Session = "afternoon"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type Tier string

const (
	TierAny        Tier = "any"
	TierManager    Tier = "manager"
	TierHR         Tier = "hr"
	TierSuperAdmin Tier = "superadmin"
	TierNone       Tier = "none"
)

// TierForRole maps an approver role onto the slot it owns.
func TierForRole(role auth.Role) (Tier, bool) {
	switch role {
	case auth.RoleManager:
		return TierManager, true
	case auth.RoleHR:
		return TierHR, true
	case auth.RoleSuperAdmin:
		return TierSuperAdmin, true
	}
	return "", false
}

func (t Tier) Title() string {
	switch t {
	case TierManager:
		return auth.RoleManager.Title()
	case TierHR:
		return auth.RoleHR.Title()
	case TierSuperAdmin:
		return auth.RoleSuperAdmin.Title()
	}
	return string(t)
}

type SlotStatus string

const (
	SlotApproved SlotStatus = "approved"
	SlotRejected SlotStatus = "rejected"
	SlotBypassed SlotStatus = "bypassed"
	// SlotPending is never written by the router but is accepted on read.
	SlotPending SlotStatus = "pending"
)

type Approval struct {
	Status       SlotStatus `json:"status"`
	ApproverID   string     `json:"approverId"`
	ApproverName string     `json:"approverName"`
	Reason       string     `json:"reason,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

type FirstApprover struct {
	Role         Tier      `json:"role"`
	ApproverID   string    `json:"approverId"`
	ApproverName string    `json:"approverName"`
	Timestamp    time.Time `json:"timestamp"`
}

type Request struct {
	ID                 string              `json:"id"`
	EmployeeCode       string              `json:"employeeCode"`
	RoleAtCreation     auth.Role           `json:"roleAtCreation"`
	Kind               Kind                `json:"kind"`
	LeaveMode          LeaveMode           `json:"leaveMode,omitempty"`
	StartDate          time.Time           `json:"startDate"`
	EndDate            time.Time           `json:"endDate"`
	StartTime          *calendar.ClockTime `json:"startTime,omitempty"`
	EndTime            *calendar.ClockTime `json:"endTime,omitempty"`
	Session            Session             `json:"session,omitempty"`
	Reason             string              `json:"reason"`
	AlternateCode      string              `json:"alternateCode,omitempty"`
	Status             Status              `json:"status"`
	CurrentApprover    Tier                `json:"currentApprover"`
	ManagerApproval    *Approval           `json:"managerApproval"`
	HRApproval         *Approval           `json:"hrApproval"`
	SuperAdminApproval *Approval           `json:"superAdminApproval"`
	FirstApprover      *FirstApprover      `json:"firstApprover,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// Slot returns the approval record held for a tier, or nil when empty.
func (r Request) Slot(t Tier) *Approval {
	switch t {
	case TierManager:
		return r.ManagerApproval
	case TierHR:
		return r.HRApproval
	case TierSuperAdmin:
		return r.SuperAdminApproval
	}
	return nil
}

func (r *Request) setSlot(t Tier, a *Approval) {
	switch t {
	case TierManager:
		r.ManagerApproval = a
	case TierHR:
		r.HRApproval = a
	case TierSuperAdmin:
		r.SuperAdminApproval = a
	}
}

// Covers reports whether the request's date range includes day.
func (r Request) Covers(day time.Time) bool {
	return calendar.Overlaps(r.StartDate, r.EndDate, day, day)
}

type RequestFilter struct {
	Status       Status
	EmployeeCode string
	Kinds        []Kind
	From         time.Time
	To           time.Time
	Limit        int
	Offset       int
}

// ApprovalUpdate is a single-slot write. The store applies it only while the
// slot is empty and the request is not rejected.
type ApprovalUpdate struct {
	Tier            Tier
	Approval        Approval
	Status          Status
	CurrentApprover Tier
	FirstApprover   *FirstApprover
}

type CreateInput struct {
	EmployeeCode  string    `json:"-"`
	Kind          Kind      `json:"kind" validate:"required,oneof=leave halfday permission od"`
	LeaveMode     LeaveMode `json:"leaveMode" validate:"omitempty,oneof=casual unpaid"`
	StartDate     string    `json:"startDate" validate:"required"`
	EndDate       string    `json:"endDate"`
	StartTime     string    `json:"startTime"`
	EndTime       string    `json:"endTime"`
	Session       Session   `json:"session" validate:"omitempty,oneof=morning afternoon"`
	Reason        string    `json:"reason" validate:"max=1000"`
	AlternateCode string    `json:"alternateCode" validate:"max=32"`
}

// DecisionEvent is published for every state change of a request.
type DecisionEvent struct {
	Type            string    `json:"type"`
	RequestID       string    `json:"requestId"`
	EmployeeCode    string    `json:"employeeCode"`
	Kind            Kind      `json:"kind"`
	Status          Status    `json:"status"`
	CurrentApprover Tier      `json:"currentApprover"`
	Tier            Tier      `json:"tier,omitempty"`
	ActorID         string    `json:"actorId,omitempty"`
	OccurredAt      time.Time `json:"occurredAt"`
}

const (
	EventCreated  = "request.created"
	EventApproved = "request.approved"
	EventRejected = "request.rejected"
)
