package workflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"incident-workflow/internal/domain"
	"incident-workflow/internal/pkg/keylock"
	"incident-workflow/internal/pkg/logger"
	"incident-workflow/internal/pkg/metrics"
	"incident-workflow/internal/pkg/validation"
	"incident-workflow/internal/repository"
	"incident-workflow/internal/service/attachment"
	"incident-workflow/internal/service/dashboard"
)

const outcomeApproved = "approved"

// Service applies workflow transitions. Every successful call moves the
// notification along the transition table, appends one history entry and
// persists the record before returning.
type Service interface {
	RejectAtClassification(ctx context.Context, id int64, callerID uuid.UUID, input domain.RejectInput) (*domain.Notification, error)
	Classify(ctx context.Context, id int64, callerID uuid.UUID, input domain.ClassifyInput) (*domain.Notification, error)
	RecordAction(ctx context.Context, id int64, callerID uuid.UUID, input domain.RecordActionInput) (*domain.Notification, error)
	ConcludeMyPart(ctx context.Context, id int64, callerID uuid.UUID, input domain.ConcludeInput, evidence []domain.Upload) (*domain.Notification, error)
	AddExecutor(ctx context.Context, id int64, callerID uuid.UUID, input domain.AddExecutorInput) (*domain.Notification, error)
	ReviewExecution(ctx context.Context, id int64, callerID uuid.UUID, input domain.ReviewExecutionInput) (*domain.Notification, error)
	DecideApproval(ctx context.Context, id int64, callerID uuid.UUID, input domain.ApprovalDecisionInput) (*domain.Notification, error)
	SetClock(now func() time.Time)
}

type service struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	attachments      attachment.Service
	stats            dashboard.Service
	metrics          *metrics.Collector
	log              *logger.Logger
	locks            *keylock.Locker[int64]
	now              func() time.Time
}

func NewService(
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	attachments attachment.Service,
	stats dashboard.Service,
	m *metrics.Collector,
	log *logger.Logger,
) Service {
	return &service{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		attachments:      attachments,
		stats:            stats,
		metrics:          m,
		log:              log,
		locks:            keylock.New[int64](),
		now:              time.Now,
	}
}

func (s *service) SetClock(now func() time.Time) {
	s.now = now
}

// step is the working state of one transition.
type step struct {
	n       *domain.Notification
	caller  *domain.User
	now     time.Time
	details string
	// blobs written during the step; removed again if the step fails.
	blobs []domain.AttachmentRef
}

func (st *step) at() domain.Timestamp {
	return domain.NewTimestamp(st.now)
}

// run serializes op on notification id and applies mutate to a private copy.
// Checks happen in a fixed order: existence, authorization, transition
// legality, then payload validation inside mutate.
func (s *service) run(ctx context.Context, id int64, callerID uuid.UUID, op domain.Operation, mutate func(*step) error) (*domain.Notification, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	n, err := s.apply(ctx, id, callerID, op, mutate)
	s.metrics.RecordOperation(op, err)
	return n, err
}

func (s *service) apply(ctx context.Context, id int64, callerID uuid.UUID, op domain.Operation, mutate func(*step) error) (*domain.Notification, error) {
	n, err := s.notificationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, domain.NotFoundError("notification %d not found", id)
	}

	caller, err := s.userRepo.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !May(caller, op, n) {
		actor := callerID.String()
		if caller != nil {
			actor = caller.Username
		}
		s.log.Audit(actor, string(op), resource(id), false, map[string]interface{}{"reason": "unauthorized"})
		return nil, domain.UnauthorizedError("not allowed to %s notification %d", op, id)
	}

	from := n.Status
	if !from.Accepts(op) {
		return nil, domain.InvalidTransitionError("cannot %s notification %d in status %s", op, id, from)
	}

	st := &step{n: n, caller: caller, now: s.now()}
	if err := mutate(st); err != nil {
		s.discard(ctx, st)
		return nil, err
	}
	if !from.Allows(op, n.Status) {
		s.discard(ctx, st)
		return nil, domain.InvalidTransitionError("%s cannot move notification %d from %s to %s", op, id, from, n.Status)
	}

	n.RecordHistory(string(op), displayName(caller), st.at(), st.details)

	if err := s.notificationRepo.Update(ctx, n); err != nil {
		s.discard(ctx, st)
		s.log.Audit(caller.Username, string(op), resource(id), false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	s.stats.Invalidate(ctx)
	s.log.Audit(caller.Username, string(op), resource(id), true, map[string]interface{}{
		"from": from,
		"to":   n.Status,
	})
	return n, nil
}

func (s *service) discard(ctx context.Context, st *step) {
	if len(st.blobs) > 0 {
		s.attachments.Discard(context.WithoutCancel(ctx), st.n.ID, st.blobs)
	}
}

func (s *service) RejectAtClassification(ctx context.Context, id int64, callerID uuid.UUID, input domain.RejectInput) (*domain.Notification, error) {
	return s.run(ctx, id, callerID, domain.OpRejectAtClassification, func(st *step) error {
		if err := validateReason(input.Reason); err != nil {
			return err
		}
		reason := strings.TrimSpace(input.Reason)

		st.n.RejectionClassification = rejection(st, reason)
		st.n.Status = domain.StatusRejectedAtIntake
		st.details = "Reason: " + reason
		return nil
	})
}

func (s *service) Classify(ctx context.Context, id int64, callerID uuid.UUID, input domain.ClassifyInput) (*domain.Notification, error) {
	return s.run(ctx, id, callerID, domain.OpClassify, func(st *step) error {
		classification, err := input.Classification.Build(st.caller, st.now)
		if err != nil {
			return err
		}

		executors, err := s.resolveAssignees(ctx, input.Executors)
		if err != nil {
			return err
		}

		var approver *uuid.UUID
		if classification.RequiresApproval {
			if input.Approver == nil || *input.Approver == uuid.Nil {
				return domain.ValidationError("an approver is required when approval is requested")
			}
			if _, err := s.resolveUser(ctx, *input.Approver, domain.RoleApprover); err != nil {
				return err
			}
			approverID := *input.Approver
			approver = &approverID
		}

		n := st.n
		n.Classification = classification
		n.Executors = executors
		n.Approver = approver
		n.Actions = []domain.ActionEntry{}
		n.ExecutionReview = nil
		n.Approval = nil
		n.Conclusion = nil
		n.Status = domain.StatusClassified

		st.details = fmt.Sprintf("NNC: %s; priority: %s; deadline: %s (%d days)",
			classification.NNCClass, classification.Priority, classification.DeadlineDate, classification.DeadlineDays)
		return nil
	})
}

func (s *service) RecordAction(ctx context.Context, id int64, callerID uuid.UUID, input domain.RecordActionInput) (*domain.Notification, error) {
	return s.run(ctx, id, callerID, domain.OpRecordAction, func(st *step) error {
		if err := validation.Struct(input); err != nil {
			return err
		}
		description := strings.TrimSpace(input.Description)
		if description == "" {
			return domain.ValidationError("description is required")
		}

		st.n.Actions = append(st.n.Actions, domain.ActionEntry{
			ExecutorID:   st.caller.ID,
			ExecutorName: displayName(st.caller),
			Description:  description,
			Timestamp:    st.at(),
		})
		st.n.Status = domain.StatusInExecution
		st.details = description
		return nil
	})
}

func (s *service) ConcludeMyPart(ctx context.Context, id int64, callerID uuid.UUID, input domain.ConcludeInput, evidence []domain.Upload) (*domain.Notification, error) {
	return s.run(ctx, id, callerID, domain.OpConcludeMyPart, func(st *step) error {
		if err := validation.Struct(input); err != nil {
			return err
		}
		description := strings.TrimSpace(input.Description)
		if description == "" {
			return domain.ValidationError("description is required")
		}
		if st.n.HasConcluded(st.caller.ID) {
			return domain.ValidationError("%s has already concluded their part", displayName(st.caller))
		}

		refs, err := s.attachments.SaveAll(ctx, st.n.ID, evidence)
		if err != nil {
			return err
		}
		st.blobs = refs

		entry := domain.ActionEntry{
			ExecutorID:          st.caller.ID,
			ExecutorName:        displayName(st.caller),
			Description:         description,
			Timestamp:           st.at(),
			Final:               true,
			EvidenceAttachments: refs,
		}
		if input.EvidenceDescription != nil && strings.TrimSpace(*input.EvidenceDescription) != "" {
			text := strings.TrimSpace(*input.EvidenceDescription)
			entry.EvidenceDescription = &text
		}
		st.n.Actions = append(st.n.Actions, entry)

		st.details = description
		if st.n.AllExecutorsConcluded() {
			st.n.Status = domain.StatusAwaitingReview
			st.details += "; all executors concluded"
		} else {
			st.n.Status = domain.StatusInExecution
		}
		return nil
	})
}

func (s *service) AddExecutor(ctx context.Context, id int64, callerID uuid.UUID, input domain.AddExecutorInput) (*domain.Notification, error) {
	return s.run(ctx, id, callerID, domain.OpAddExecutor, func(st *step) error {
		if err := validation.Struct(input); err != nil {
			return err
		}
		if st.n.IsAssigned(input.ExecutorID) {
			return domain.ValidationError("user %s is already assigned", input.ExecutorID)
		}
		executor, err := s.resolveUser(ctx, input.ExecutorID, domain.RoleExecutor)
		if err != nil {
			return err
		}

		st.n.Executors = append(st.n.Executors, executor.ID)
		st.n.Status = domain.StatusInExecution
		st.details = "Added executor: " + displayName(executor)
		return nil
	})
}

func (s *service) ReviewExecution(ctx context.Context, id int64, callerID uuid.UUID, input domain.ReviewExecutionInput) (*domain.Notification, error) {
	op := domain.OpAcceptExecution
	if input.Decision == domain.ReviewReject {
		op = domain.OpRejectExecution
	}

	return s.run(ctx, id, callerID, op, func(st *step) error {
		if err := validation.Struct(input); err != nil {
			return err
		}
		n := st.n
		notes := strings.TrimSpace(input.Notes)

		if op == domain.OpRejectExecution {
			reason := strings.TrimSpace(input.Reason)
			if reason == "" {
				reason = notes
			}
			if err := validateReason(reason); err != nil {
				return err
			}

			n.RejectionExecutionReview = rejection(st, reason)
			n.Classification = nil
			n.Executors = []uuid.UUID{}
			n.Approver = nil
			n.Actions = []domain.ActionEntry{}
			n.ExecutionReview = nil
			n.Approval = nil
			n.Conclusion = nil
			n.Status = domain.StatusPendingClassification
			st.details = "Rework requested: " + reason
			return nil
		}

		n.ExecutionReview = &domain.ReviewRecord{
			Decision:     domain.ReviewAccept,
			Notes:        notes,
			ReviewerID:   st.caller.ID,
			ReviewerName: displayName(st.caller),
			ReviewedAt:   st.at(),
		}
		if n.Classification != nil && n.Classification.RequiresApproval {
			n.Status = domain.StatusAwaitingApproval
			st.details = "Execution accepted; awaiting approval"
		} else {
			n.Conclusion = conclusion(st)
			n.Status = domain.StatusApproved
			st.details = "Execution accepted; notification concluded"
		}
		if notes != "" {
			st.details += ": " + notes
		}
		return nil
	})
}

func (s *service) DecideApproval(ctx context.Context, id int64, callerID uuid.UUID, input domain.ApprovalDecisionInput) (*domain.Notification, error) {
	op := domain.OpApprove
	if input.Decision == domain.ApprovalReject {
		op = domain.OpRejectApproval
	}

	return s.run(ctx, id, callerID, op, func(st *step) error {
		if err := validation.Struct(input); err != nil {
			return err
		}
		n := st.n
		notes := strings.TrimSpace(input.Notes)

		record := &domain.ApprovalRecord{
			Decision:     input.Decision,
			Notes:        notes,
			ApproverID:   st.caller.ID,
			ApproverName: displayName(st.caller),
			DecidedAt:    st.at(),
		}

		if op == domain.OpRejectApproval {
			if err := validateReason(notes); err != nil {
				return err
			}
			n.Approval = record
			n.RejectionApproval = rejection(st, notes)
			n.Status = domain.StatusAwaitingRework
			st.details = "Reason: " + notes
			return nil
		}

		n.Approval = record
		n.Conclusion = conclusion(st)
		n.Status = domain.StatusApproved
		st.details = notes
		return nil
	})
}

// resolveAssignees validates an executor list: non-empty, no duplicates and
// every entry an active user with the executor capability.
func (s *service) resolveAssignees(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, domain.ValidationError("at least one executor is required")
	}

	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, domain.ValidationError("executor %s is listed twice", id)
		}
		seen[id] = true
		if _, err := s.resolveUser(ctx, id, domain.RoleExecutor); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func (s *service) resolveUser(ctx context.Context, id uuid.UUID, role domain.UserRole) (*domain.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ValidationError("%s %s does not exist", role, id)
	}
	if !u.Active {
		return nil, domain.ValidationError("%s %s is inactive", role, displayName(u))
	}
	if !u.HasRole(role) {
		return nil, domain.ValidationError("user %s lacks the %s capability", displayName(u), role)
	}
	return u, nil
}

func validateReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return domain.ValidationError("reason is required")
	}
	return nil
}

func rejection(st *step, reason string) *domain.RejectionRecord {
	return &domain.RejectionRecord{
		Reason:   reason,
		UserID:   st.caller.ID,
		UserName: displayName(st.caller),
		At:       st.at(),
	}
}

func conclusion(st *step) *domain.ConclusionRecord {
	return &domain.ConclusionRecord{
		Outcome:     outcomeApproved,
		UserID:      st.caller.ID,
		UserName:    displayName(st.caller),
		ConcludedAt: st.at(),
	}
}

func displayName(u *domain.User) string {
	if u == nil {
		return ""
	}
	return u.DisplayName()
}

func resource(id int64) string {
	return "notification:" + strconv.FormatInt(id, 10)
}
