package domain

type Status string

const (
	StatusPendingClassification Status = "pending_classification"
	StatusClassified            Status = "classified"
	StatusInExecution           Status = "in_execution"
	StatusAwaitingReview        Status = "awaiting_execution_review"
	StatusAwaitingRework        Status = "awaiting_classifier_rework"
	StatusAwaitingApproval      Status = "awaiting_approval"
	StatusApproved              Status = "approved"
	StatusRejectedAtIntake      Status = "rejected_at_intake"
	StatusRejectedAtApproval    Status = "rejected_at_approval"
)

var AllStatuses = []Status{
	StatusPendingClassification,
	StatusClassified,
	StatusInExecution,
	StatusAwaitingReview,
	StatusAwaitingRework,
	StatusAwaitingApproval,
	StatusApproved,
	StatusRejectedAtIntake,
	StatusRejectedAtApproval,
}

func (s Status) IsValid() bool {
	for _, candidate := range AllStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejectedAtIntake || s == StatusRejectedAtApproval
}

// Operation names double as history action labels.
type Operation string

const (
	OpIntake                 Operation = "intake"
	OpRejectAtClassification Operation = "reject_at_classification"
	OpClassify               Operation = "classify"
	OpRecordAction           Operation = "record_action"
	OpConcludeMyPart         Operation = "conclude_my_part"
	OpAddExecutor            Operation = "add_executor"
	OpAcceptExecution        Operation = "accept_execution"
	OpRejectExecution        Operation = "reject_execution"
	OpApprove                Operation = "approve"
	OpRejectApproval         Operation = "reject_approval"
)

// Transition is one row of the workflow table. Targets lists every status
// the operation may lead to from From; the operation picks among them.
type Transition struct {
	From    Status
	Op      Operation
	Targets []Status
}

var transitions = []Transition{
	{From: StatusPendingClassification, Op: OpRejectAtClassification, Targets: []Status{StatusRejectedAtIntake}},
	{From: StatusPendingClassification, Op: OpClassify, Targets: []Status{StatusClassified}},
	{From: StatusAwaitingRework, Op: OpClassify, Targets: []Status{StatusClassified}},
	{From: StatusClassified, Op: OpRecordAction, Targets: []Status{StatusInExecution}},
	{From: StatusInExecution, Op: OpRecordAction, Targets: []Status{StatusInExecution}},
	{From: StatusClassified, Op: OpConcludeMyPart, Targets: []Status{StatusInExecution, StatusAwaitingReview}},
	{From: StatusInExecution, Op: OpConcludeMyPart, Targets: []Status{StatusInExecution, StatusAwaitingReview}},
	{From: StatusInExecution, Op: OpAddExecutor, Targets: []Status{StatusInExecution}},
	{From: StatusAwaitingReview, Op: OpAcceptExecution, Targets: []Status{StatusAwaitingApproval, StatusApproved}},
	{From: StatusAwaitingReview, Op: OpRejectExecution, Targets: []Status{StatusPendingClassification}},
	{From: StatusAwaitingApproval, Op: OpApprove, Targets: []Status{StatusApproved}},
	{From: StatusAwaitingApproval, Op: OpRejectApproval, Targets: []Status{StatusAwaitingRework}},
}

// Transitions returns a copy of the workflow table.
func Transitions() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}

// Allows reports whether op may be applied from s and end in target.
func (s Status) Allows(op Operation, target Status) bool {
	for _, t := range transitions {
		if t.From != s || t.Op != op {
			continue
		}
		for _, candidate := range t.Targets {
			if candidate == target {
				return true
			}
		}
	}
	return false
}

// Accepts reports whether op has any row starting at s.
func (s Status) Accepts(op Operation) bool {
	for _, t := range transitions {
		if t.From == s && t.Op == op {
			return true
		}
	}
	return false
}
