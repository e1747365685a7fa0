package leave

import (
	"context"
	"errors"
	"sort"
	"time"

	"hrflow/internal/domain/apperr"
	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/calendar"
	"hrflow/internal/domain/employee"
)

var errDown = errors.New("connection refused")

type memStore struct {
	rows map[string]Request

	getCalls    int
	updateCalls int
	failGet     bool
	failInsert  bool
	failUpdate  bool
	failOverlap bool
	// beforeUpdate runs inside UpdateRequestApproval ahead of the slot guard.
	beforeUpdate func(m *memStore, id string)
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]Request{}}
}

func (m *memStore) put(req Request) {
	m.rows[req.ID] = req
}

func (m *memStore) GetRequestByID(_ context.Context, id string) (Request, error) {
	m.getCalls++
	if m.failGet {
		return Request{}, apperr.Store("get request", errDown)
	}
	req, ok := m.rows[id]
	if !ok {
		return Request{}, apperr.NotFound("request", id)
	}
	return cloneRequest(req), nil
}

func (m *memStore) ListRequests(_ context.Context, filter RequestFilter) ([]Request, error) {
	var out []Request
	for _, req := range m.rows {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.EmployeeCode != "" && req.EmployeeCode != filter.EmployeeCode {
			continue
		}
		out = append(out, cloneRequest(req))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) InsertRequest(_ context.Context, req Request) (Request, error) {
	if m.failInsert {
		return Request{}, apperr.Store("insert request", errDown)
	}
	m.rows[req.ID] = cloneRequest(req)
	return cloneRequest(req), nil
}

func (m *memStore) UpdateRequestApproval(_ context.Context, id string, update ApprovalUpdate) (Request, error) {
	if m.failUpdate {
		return Request{}, apperr.Store("update request approval", errDown)
	}
	if m.beforeUpdate != nil {
		m.beforeUpdate(m, id)
	}
	req, ok := m.rows[id]
	if !ok {
		return Request{}, apperr.NotFound("request", id)
	}
	if req.Slot(update.Tier) != nil || req.Status == StatusRejected {
		return Request{}, ErrSlotTaken
	}
	m.updateCalls++
	approval := update.Approval
	req.setSlot(update.Tier, &approval)
	req.Status = update.Status
	req.CurrentApprover = update.CurrentApprover
	if req.FirstApprover == nil && update.FirstApprover != nil {
		fa := *update.FirstApprover
		req.FirstApprover = &fa
	}
	m.rows[id] = req
	return cloneRequest(req), nil
}

func (m *memStore) ListApprovedOverlapping(_ context.Context, code string, start, end time.Time, kinds []Kind) ([]Request, error) {
	if m.failOverlap {
		return nil, apperr.Store("list approved overlapping", errDown)
	}
	var out []Request
	for _, req := range m.rows {
		if req.EmployeeCode != code || req.Status != StatusApproved {
			continue
		}
		if !containsKind(kinds, req.Kind) {
			continue
		}
		if calendar.Overlaps(req.StartDate, req.EndDate, start, end) {
			out = append(out, cloneRequest(req))
		}
	}
	return out, nil
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, v := range kinds {
		if v == k {
			return true
		}
	}
	return false
}

func cloneRequest(r Request) Request {
	out := r
	copySlot := func(a *Approval) *Approval {
		if a == nil {
			return nil
		}
		c := *a
		return &c
	}
	out.ManagerApproval = copySlot(r.ManagerApproval)
	out.HRApproval = copySlot(r.HRApproval)
	out.SuperAdminApproval = copySlot(r.SuperAdminApproval)
	if r.FirstApprover != nil {
		fa := *r.FirstApprover
		out.FirstApprover = &fa
	}
	return out
}

type memDirectory struct {
	emps map[string]employee.Employee
}

func newMemDirectory(emps ...employee.Employee) *memDirectory {
	d := &memDirectory{emps: map[string]employee.Employee{}}
	for _, e := range emps {
		if e.Status == "" {
			e.Status = employee.StatusActive
		}
		d.emps[e.Code] = e
	}
	return d
}

func (d *memDirectory) GetEmployee(_ context.Context, code string) (employee.Employee, error) {
	emp, ok := d.emps[code]
	if !ok {
		return employee.Employee{}, apperr.NotFound("employee", code)
	}
	return emp, nil
}

func (d *memDirectory) ResolveName(_ context.Context, code string) string {
	if emp, ok := d.emps[code]; ok {
		return emp.Name
	}
	return code
}

func (d *memDirectory) ActiveByRole(_ context.Context, role auth.Role) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, emp := range d.emps {
		if emp.Role == role && emp.IsActive() {
			out = append(out, emp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

type sentNote struct {
	userID, message, kind, requestID string
}

type memNotifier struct {
	sent []sentNote
}

func (n *memNotifier) Notify(_ context.Context, userID, message, kind, requestID string) {
	n.sent = append(n.sent, sentNote{userID, message, kind, requestID})
}

func (n *memNotifier) to(userID string) []sentNote {
	var out []sentNote
	for _, s := range n.sent {
		if s.userID == userID {
			out = append(out, s)
		}
	}
	return out
}

type memEvents struct {
	events []DecisionEvent
	fail   bool
}

func (e *memEvents) Publish(_ context.Context, evt DecisionEvent) error {
	if e.fail {
		return errDown
	}
	e.events = append(e.events, evt)
	return nil
}

type fixture struct {
	svc      *Service
	store    *memStore
	dir      *memDirectory
	notifier *memNotifier
	events   *memEvents
}

var fixedNow = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

// newFixture builds the standard org: SA1 super admin, H1 HR, M1 manager
// reporting to H1, E1 employee reporting to M1.
func newFixture() *fixture {
	dir := newMemDirectory(
		employee.Employee{Code: "SA1", Name: "Sara", Role: auth.RoleSuperAdmin},
		employee.Employee{Code: "H1", Name: "Hema", Role: auth.RoleHR},
		employee.Employee{Code: "M1", Name: "Meera", Role: auth.RoleManager, ManagerCode: "H1"},
		employee.Employee{Code: "E1", Name: "Asha", Role: auth.RoleEmployee, ManagerCode: "M1"},
	)
	store := newMemStore()
	notifier := &memNotifier{}
	events := &memEvents{}
	svc := NewService(store, dir, notifier, events, nil)
	svc.now = func() time.Time { return fixedNow }
	seq := 0
	svc.newID = func(time.Time) string {
		seq++
		return "REQ" + string(rune('A'+seq-1))
	}
	return &fixture{svc: svc, store: store, dir: dir, notifier: notifier, events: events}
}

// approvedAbsence seeds an approved request directly into the store.
func (f *fixture) approvedAbsence(id, code string, kind Kind, start, end time.Time) {
	f.store.put(Request{
		ID:              id,
		EmployeeCode:    code,
		Kind:            kind,
		StartDate:       start,
		EndDate:         end,
		Status:          StatusApproved,
		CurrentApprover: TierNone,
	})
}
