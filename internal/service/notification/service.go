package notification

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"incident-workflow/internal/domain"
	"incident-workflow/internal/pkg/logger"
	"incident-workflow/internal/pkg/metrics"
	"incident-workflow/internal/pkg/validation"
	"incident-workflow/internal/repository"
	"incident-workflow/internal/service/attachment"
	"incident-workflow/internal/service/dashboard"
)

// intakeUser is the history user of anonymous intake.
const intakeUser = "anonymous"

type Service interface {
	// Create records a new notification in pending_classification together
	// with its uploaded attachments.
	Create(ctx context.Context, input domain.CreateNotificationInput, uploads []domain.Upload) (*domain.Notification, error)
	GetByID(ctx context.Context, id int64) (*domain.NotificationDetail, error)
	List(ctx context.Context, filter domain.NotificationFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.NotificationSummary], error)
	History(ctx context.Context, id int64) ([]domain.HistoryEntry, error)
	SetClock(now func() time.Time)
}

type service struct {
	notificationRepo repository.NotificationRepository
	attachments      attachment.Service
	stats            dashboard.Service
	metrics          *metrics.Collector
	log              *logger.Logger
	now              func() time.Time
}

func NewService(
	notificationRepo repository.NotificationRepository,
	attachments attachment.Service,
	stats dashboard.Service,
	m *metrics.Collector,
	log *logger.Logger,
) Service {
	return &service{
		notificationRepo: notificationRepo,
		attachments:      attachments,
		stats:            stats,
		metrics:          m,
		log:              log,
		now:              time.Now,
	}
}

func (s *service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *service) Create(ctx context.Context, input domain.CreateNotificationInput, uploads []domain.Upload) (*domain.Notification, error) {
	n, err := s.buildNotification(input)
	if err != nil {
		s.metrics.RecordOperation(domain.OpIntake, err)
		return nil, err
	}

	id, err := s.notificationRepo.ReserveID(ctx)
	if err != nil {
		s.metrics.RecordOperation(domain.OpIntake, err)
		return nil, err
	}
	n.ID = id

	refs, err := s.attachments.SaveAll(ctx, id, uploads)
	if err != nil {
		s.metrics.RecordOperation(domain.OpIntake, err)
		return nil, err
	}
	if refs != nil {
		n.Attachments = refs
	}

	if err := s.notificationRepo.Create(ctx, n); err != nil {
		s.attachments.Discard(context.WithoutCancel(ctx), id, refs)
		s.metrics.RecordOperation(domain.OpIntake, err)
		return nil, err
	}

	s.metrics.RecordOperation(domain.OpIntake, nil)
	s.metrics.RecordIntake()
	s.stats.Invalidate(ctx)
	s.log.Audit(intakeUser, string(domain.OpIntake), notificationResource(n.ID), true, map[string]interface{}{
		"attachments": len(n.Attachments),
	})
	return n, nil
}

func (s *service) buildNotification(input domain.CreateNotificationInput) (*domain.Notification, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if !input.EventShift.IsValid() {
		return nil, domain.ValidationError("event_shift must be one of: Day Night")
	}

	occurred, err := domain.ParseDate(strings.TrimSpace(input.OccurrenceDate))
	if err != nil {
		return nil, domain.ValidationError("occurrence_date: %v", err)
	}
	now := s.now()
	if occurred.After(domain.DateOf(now).Time) {
		return nil, domain.ValidationError("occurrence_date cannot be in the future")
	}

	n := &domain.Notification{
		Title:                     strings.TrimSpace(input.Title),
		Description:               strings.TrimSpace(input.Description),
		Location:                  strings.TrimSpace(input.Location),
		OccurrenceDate:            occurred,
		OccurrenceTime:            optional(input.OccurrenceTime),
		ReportingDepartment:       strings.TrimSpace(input.ReportingDepartment),
		ReportingDepartmentDetail: optional(input.ReportingDepartmentDetail),
		NotifiedDepartment:        strings.TrimSpace(input.NotifiedDepartment),
		NotifiedDepartmentDetail:  optional(input.NotifiedDepartmentDetail),
		EventShift:                input.EventShift,
		ImmediateActionsTaken:     input.ImmediateActionsTaken,
		PatientInvolved:           input.PatientInvolved,
		AdditionalNotes:           optional(input.AdditionalNotes),
		Attachments:               []domain.AttachmentRef{},
		Status:                    domain.StatusPendingClassification,
		Executors:                 []uuid.UUID{},
		Actions:                   []domain.ActionEntry{},
		CreatedAt:                 domain.NewTimestamp(now),
	}

	if input.ImmediateActionsTaken {
		n.ImmediateActionsDescription = optional(input.ImmediateActionsDescription)
		if n.ImmediateActionsDescription == nil {
			return nil, domain.ValidationError("immediate_actions_description is required when immediate actions were taken")
		}
	}
	if input.PatientInvolved {
		n.PatientID = optional(input.PatientID)
		if input.PatientDeath != nil {
			death := *input.PatientDeath
			n.PatientDeath = &death
		}
	}

	n.RecordHistory(string(domain.OpIntake), intakeUser, n.CreatedAt, "Notification created")
	return n, nil
}

func (s *service) GetByID(ctx context.Context, id int64) (*domain.NotificationDetail, error) {
	n, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.NotificationDetail{
		Notification:   n,
		DeadlineStatus: n.DeadlineStatus(domain.DateOf(s.now())),
	}, nil
}

func (s *service) List(ctx context.Context, filter domain.NotificationFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.NotificationSummary], error) {
	params.Validate()
	if filter.SortBy == "" {
		filter.SortBy = domain.SortByID
	}
	if !filter.SortBy.IsValid() {
		return domain.PaginatedResponse[domain.NotificationSummary]{}, domain.ValidationError("cannot sort by %q", filter.SortBy)
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedFrom.After(filter.CreatedTo.Time) {
		return domain.PaginatedResponse[domain.NotificationSummary]{}, domain.ValidationError("created_from must not be after created_to")
	}

	all, err := s.notificationRepo.List(ctx)
	if err != nil {
		return domain.PaginatedResponse[domain.NotificationSummary]{}, err
	}

	selected := Select(all, filter)
	page := domain.Paginate(selected, params)

	today := domain.DateOf(s.now())
	summaries := make([]domain.NotificationSummary, 0, len(page))
	for i := range page {
		summaries = append(summaries, page[i].Summary(today))
	}

	return domain.NewPaginatedResponse(summaries, params.Page, params.PerPage, int64(len(selected))), nil
}

func (s *service) History(ctx context.Context, id int64) ([]domain.HistoryEntry, error) {
	n, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.History == nil {
		return []domain.HistoryEntry{}, nil
	}
	return n.History, nil
}

func (s *service) load(ctx context.Context, id int64) (*domain.Notification, error) {
	n, err := s.notificationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, domain.NotFoundError("notification %d not found", id)
	}
	return n, nil
}

func notificationResource(id int64) string {
	return "notification:" + strconv.FormatInt(id, 10)
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
