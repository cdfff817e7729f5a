package workflow

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"incident-workflow/internal/domain"
)

func TestMay(t *testing.T) {
	classifier := &domain.User{ID: uuid.New(), Roles: []domain.UserRole{domain.RoleClassifier}, Active: true}
	executor := &domain.User{ID: uuid.New(), Roles: []domain.UserRole{domain.RoleExecutor}, Active: true}
	stranger := &domain.User{ID: uuid.New(), Roles: []domain.UserRole{domain.RoleExecutor}, Active: true}
	approver := &domain.User{ID: uuid.New(), Roles: []domain.UserRole{domain.RoleApprover}, Active: true}
	otherApprover := &domain.User{ID: uuid.New(), Roles: []domain.UserRole{domain.RoleApprover}, Active: true}
	admin := &domain.User{ID: uuid.New(), Roles: []domain.UserRole{domain.RoleAdmin}, Active: true}
	inactive := &domain.User{ID: uuid.New(), Roles: []domain.UserRole{domain.RoleClassifier}, Active: false}

	n := &domain.Notification{
		ID:        1,
		Executors: []uuid.UUID{executor.ID},
		Approver:  &approver.ID,
	}

	tests := []struct {
		name string
		user *domain.User
		op   domain.Operation
		want bool
	}{
		{"intake needs no user", nil, domain.OpIntake, true},
		{"nil user", nil, domain.OpClassify, false},
		{"classifier classifies", classifier, domain.OpClassify, true},
		{"classifier rejects at intake", classifier, domain.OpRejectAtClassification, true},
		{"classifier reviews", classifier, domain.OpAcceptExecution, true},
		{"classifier requests rework", classifier, domain.OpRejectExecution, true},
		{"classifier cannot act", classifier, domain.OpRecordAction, false},
		{"executor cannot classify", executor, domain.OpClassify, false},
		{"assigned executor records", executor, domain.OpRecordAction, true},
		{"assigned executor concludes", executor, domain.OpConcludeMyPart, true},
		{"assigned executor adds a colleague", executor, domain.OpAddExecutor, true},
		{"unassigned executor", stranger, domain.OpRecordAction, false},
		{"assigned approver approves", approver, domain.OpApprove, true},
		{"assigned approver rejects", approver, domain.OpRejectApproval, true},
		{"other approver", otherApprover, domain.OpApprove, false},
		{"approver cannot review", approver, domain.OpAcceptExecution, false},
		{"admin approves", admin, domain.OpApprove, true},
		{"admin records", admin, domain.OpRecordAction, true},
		{"inactive classifier", inactive, domain.OpClassify, false},
		{"unknown operation", classifier, domain.Operation("reopen"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, May(tt.user, tt.op, n))
		})
	}
}

func TestMay_NoApproverAssigned(t *testing.T) {
	approver := &domain.User{ID: uuid.New(), Roles: []domain.UserRole{domain.RoleApprover}, Active: true}
	n := &domain.Notification{ID: 1}

	assert.False(t, May(approver, domain.OpApprove, n))
	assert.False(t, May(approver, domain.OpRejectApproval, n))
}
