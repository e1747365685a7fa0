package leave

// Inbox predicates run over the pending request set. None of them is stored.

func ManagerInbox(req Request) bool {
	return req.Status == StatusPending && req.ManagerApproval == nil
}

func HRInbox(req Request) bool {
	if req.Status != StatusPending {
		return false
	}
	return req.HRApproval == nil || req.HRApproval.Status == SlotPending
}

// SuperAdminInbox takes the live "HR on leave today" flag, evaluated at
// query time rather than read from the routing snapshot.
func SuperAdminInbox(req Request, hrOnLeaveToday bool) bool {
	if req.Status != StatusPending || req.SuperAdminApproval != nil {
		return false
	}
	hrBypassed := req.HRApproval != nil && req.HRApproval.Status == SlotBypassed
	return hrBypassed || hrOnLeaveToday || req.CurrentApprover == TierSuperAdmin
}

func filterRequests(in []Request, keep func(Request) bool) []Request {
	out := make([]Request, 0, len(in))
	for _, req := range in {
		if keep(req) {
			out = append(out, req)
		}
	}
	return out
}
