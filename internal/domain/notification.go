package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

type Notification struct {
	ID int64 `json:"id"`

	Title                       string          `json:"title"`
	Description                 string          `json:"description"`
	Location                    string          `json:"location"`
	OccurrenceDate              Date            `json:"occurrence_date"`
	OccurrenceTime              *string         `json:"occurrence_time,omitempty"`
	ReportingDepartment         string          `json:"reporting_department"`
	ReportingDepartmentDetail   *string         `json:"reporting_department_complement,omitempty"`
	NotifiedDepartment          string          `json:"notified_department"`
	NotifiedDepartmentDetail    *string         `json:"notified_department_complement,omitempty"`
	EventShift                  EventShift      `json:"event_shift"`
	ImmediateActionsTaken       bool            `json:"immediate_actions_taken"`
	ImmediateActionsDescription *string         `json:"immediate_actions_description,omitempty"`
	PatientInvolved             bool            `json:"patient_involved"`
	PatientID                   *string         `json:"patient_id,omitempty"`
	PatientDeath                *bool           `json:"patient_death,omitempty"`
	AdditionalNotes             *string         `json:"additional_notes,omitempty"`
	Attachments                 []AttachmentRef `json:"attachments"`

	Status                   Status            `json:"status"`
	Classification           *Classification   `json:"classification"`
	Executors                []uuid.UUID       `json:"executors"`
	Approver                 *uuid.UUID        `json:"approver"`
	Actions                  []ActionEntry     `json:"actions"`
	ExecutionReview          *ReviewRecord     `json:"execution_review"`
	Approval                 *ApprovalRecord   `json:"approval"`
	RejectionClassification  *RejectionRecord  `json:"rejection_classification"`
	RejectionApproval        *RejectionRecord  `json:"rejection_approval"`
	RejectionExecutionReview *RejectionRecord  `json:"rejection_execution_review"`
	Conclusion               *ConclusionRecord `json:"conclusion"`

	CreatedAt Timestamp      `json:"created_at"`
	History   []HistoryEntry `json:"history"`

	Unknown map[string]json.RawMessage `json:"-"`
}

type ActionEntry struct {
	ExecutorID          uuid.UUID       `json:"executor_id"`
	ExecutorName        string          `json:"executor_name"`
	Description         string          `json:"description"`
	Timestamp           Timestamp       `json:"timestamp"`
	Final               bool            `json:"final"`
	EvidenceDescription *string         `json:"evidence_description,omitempty"`
	EvidenceAttachments []AttachmentRef `json:"evidence_attachments,omitempty"`

	Unknown map[string]json.RawMessage `json:"-"`
}

type HistoryEntry struct {
	Action    string    `json:"action"`
	User      string    `json:"user"`
	Timestamp Timestamp `json:"timestamp"`
	Details   string    `json:"details"`

	Unknown map[string]json.RawMessage `json:"-"`
}

type ReviewRecord struct {
	Decision     ReviewDecision `json:"decision"`
	Notes        string         `json:"notes"`
	ReviewerID   uuid.UUID      `json:"reviewer_id"`
	ReviewerName string         `json:"reviewer_name"`
	ReviewedAt   Timestamp      `json:"reviewed_at"`

	Unknown map[string]json.RawMessage `json:"-"`
}

type ApprovalRecord struct {
	Decision     ApprovalDecision `json:"decision"`
	Notes        string           `json:"notes"`
	ApproverID   uuid.UUID        `json:"approver_id"`
	ApproverName string           `json:"approver_name"`
	DecidedAt    Timestamp        `json:"decided_at"`

	Unknown map[string]json.RawMessage `json:"-"`
}

type RejectionRecord struct {
	Reason   string    `json:"reason"`
	UserID   uuid.UUID `json:"user_id"`
	UserName string    `json:"user_name"`
	At       Timestamp `json:"at"`

	Unknown map[string]json.RawMessage `json:"-"`
}

type ConclusionRecord struct {
	Outcome     string    `json:"outcome"`
	UserID      uuid.UUID `json:"user_id"`
	UserName    string    `json:"user_name"`
	ConcludedAt Timestamp `json:"concluded_at"`

	Unknown map[string]json.RawMessage `json:"-"`
}

type EventShift string

const (
	ShiftDay   EventShift = "Day"
	ShiftNight EventShift = "Night"
)

func (s EventShift) IsValid() bool {
	return s == ShiftDay || s == ShiftNight
}

type ReviewDecision string

const (
	ReviewAccept ReviewDecision = "accept"
	ReviewReject ReviewDecision = "reject"
)

type ApprovalDecision string

const (
	ApprovalApprove ApprovalDecision = "approve"
	ApprovalReject  ApprovalDecision = "reject"
)

type CreateNotificationInput struct {
	Title                       string     `json:"title" validate:"required,max=200"`
	Description                 string     `json:"description" validate:"required"`
	Location                    string     `json:"location" validate:"required"`
	OccurrenceDate              string     `json:"occurrence_date" validate:"required"`
	OccurrenceTime              *string    `json:"occurrence_time,omitempty" validate:"omitempty,datetime=15:04"`
	ReportingDepartment         string     `json:"reporting_department" validate:"required"`
	ReportingDepartmentDetail   *string    `json:"reporting_department_complement,omitempty"`
	NotifiedDepartment          string     `json:"notified_department" validate:"required"`
	NotifiedDepartmentDetail    *string    `json:"notified_department_complement,omitempty"`
	EventShift                  EventShift `json:"event_shift" validate:"required"`
	ImmediateActionsTaken       bool       `json:"immediate_actions_taken"`
	ImmediateActionsDescription *string    `json:"immediate_actions_description,omitempty"`
	PatientInvolved             bool       `json:"patient_involved"`
	PatientID                   *string    `json:"patient_id,omitempty"`
	PatientDeath                *bool      `json:"patient_death,omitempty"`
	AdditionalNotes             *string    `json:"additional_notes,omitempty"`
}

type ClassifyInput struct {
	Classification ClassificationDraft `json:"classification"`
	Executors      []uuid.UUID         `json:"executors"`
	Approver       *uuid.UUID          `json:"approver,omitempty"`
}

type RejectInput struct {
	Reason string `json:"reason" validate:"required"`
}

type RecordActionInput struct {
	Description string `json:"description" validate:"required"`
}

type ConcludeInput struct {
	Description         string  `json:"description" validate:"required"`
	EvidenceDescription *string `json:"evidence_description,omitempty"`
}

type AddExecutorInput struct {
	ExecutorID uuid.UUID `json:"executor_id" validate:"required"`
}

type ReviewExecutionInput struct {
	Decision ReviewDecision `json:"decision" validate:"required,oneof=accept reject"`
	Notes    string         `json:"notes"`
	Reason   string         `json:"reason"`
}

type ApprovalDecisionInput struct {
	Decision ApprovalDecision `json:"decision" validate:"required,oneof=approve reject"`
	Notes    string           `json:"notes"`
}

// IsAssigned reports whether userID is one of the notification's executors.
func (n *Notification) IsAssigned(userID uuid.UUID) bool {
	for _, id := range n.Executors {
		if id == userID {
			return true
		}
	}
	return false
}

// HasConcluded reports whether userID already recorded a final action.
func (n *Notification) HasConcluded(userID uuid.UUID) bool {
	for _, a := range n.Actions {
		if a.Final && a.ExecutorID == userID {
			return true
		}
	}
	return false
}

// AllExecutorsConcluded is true once every assignee has a final action.
func (n *Notification) AllExecutorsConcluded() bool {
	if len(n.Executors) == 0 {
		return false
	}
	for _, id := range n.Executors {
		if !n.HasConcluded(id) {
			return false
		}
	}
	return true
}

// DeadlineStatus is the derived deadline view as of today. It is empty
// for notifications that were never classified.
func (n *Notification) DeadlineStatus(today Date) DeadlineStatus {
	if n.Classification == nil || n.Classification.DeadlineDate == nil {
		return ""
	}
	var concluded *Date
	if n.Conclusion != nil {
		d := DateOf(n.Conclusion.ConcludedAt.Time)
		concluded = &d
	}
	return ComputeDeadlineStatus(*n.Classification.DeadlineDate, today, concluded)
}

// RecordHistory appends one audit entry.
func (n *Notification) RecordHistory(action, user string, at Timestamp, details string) {
	n.History = append(n.History, HistoryEntry{Action: action, User: user, Timestamp: at, Details: details})
}
