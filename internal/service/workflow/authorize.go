package workflow

import "incident-workflow/internal/domain"

// May reports whether u may perform op on n. It decides on roles and
// assignment only; whether op is legal from the current status is checked
// separately. Inactive or missing users may do nothing but intake.
func May(u *domain.User, op domain.Operation, n *domain.Notification) bool {
	if op == domain.OpIntake {
		return true
	}
	if u == nil || !u.Active {
		return false
	}
	if u.IsAdmin() {
		return true
	}

	switch op {
	case domain.OpClassify, domain.OpRejectAtClassification, domain.OpAcceptExecution, domain.OpRejectExecution:
		return u.HasRole(domain.RoleClassifier)
	case domain.OpRecordAction, domain.OpConcludeMyPart, domain.OpAddExecutor:
		return u.HasRole(domain.RoleExecutor) && n.IsAssigned(u.ID)
	case domain.OpApprove, domain.OpRejectApproval:
		return u.HasRole(domain.RoleApprover) && n.Approver != nil && *n.Approver == u.ID
	default:
		return false
	}
}
