package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"incident-workflow/internal/domain"
)

func TestStatus_Transitions(t *testing.T) {
	assert.True(t, domain.StatusPendingClassification.Allows(domain.OpClassify, domain.StatusClassified))
	assert.True(t, domain.StatusAwaitingRework.Allows(domain.OpClassify, domain.StatusClassified))
	assert.True(t, domain.StatusAwaitingReview.Allows(domain.OpAcceptExecution, domain.StatusApproved))
	assert.True(t, domain.StatusInExecution.Allows(domain.OpConcludeMyPart, domain.StatusAwaitingReview))

	assert.False(t, domain.StatusRejectedAtIntake.Accepts(domain.OpClassify))
	assert.False(t, domain.StatusClassified.Accepts(domain.OpAddExecutor))
	assert.False(t, domain.StatusApproved.Accepts(domain.OpRecordAction))
	assert.False(t, domain.StatusAwaitingReview.Allows(domain.OpAcceptExecution, domain.StatusClassified))
}

func TestStatus_TableIsClosed(t *testing.T) {
	for _, tr := range domain.Transitions() {
		assert.True(t, tr.From.IsValid(), tr.From)
		assert.False(t, tr.From.IsTerminal(), "terminal status %s has outgoing transition", tr.From)
		for _, target := range tr.Targets {
			assert.True(t, target.IsValid(), target)
		}
	}
}

func TestUser_HasRole(t *testing.T) {
	admin := &domain.User{Roles: []domain.UserRole{domain.RoleAdmin}}
	executor := &domain.User{Roles: []domain.UserRole{domain.RoleExecutor}}

	assert.True(t, admin.HasRole(domain.RoleApprover))
	assert.True(t, admin.IsAdmin())
	assert.True(t, executor.HasRole(domain.RoleExecutor))
	assert.False(t, executor.HasRole(domain.RoleClassifier))
	assert.Equal(t, "alice", domain.NormalizeUsername("  Alice "))
}
