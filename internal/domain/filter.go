package domain

type SortField string

const (
	SortByID        SortField = "id"
	SortByCreatedAt SortField = "created_at"
	SortByTitle     SortField = "title"
	SortByLocation  SortField = "location"
	SortByPriority  SortField = "priority"
)

func (f SortField) IsValid() bool {
	switch f {
	case SortByID, SortByCreatedAt, SortByTitle, SortByLocation, SortByPriority:
		return true
	default:
		return false
	}
}

// NotificationFilter selects notifications for listing. Empty subsets and
// nil bounds match everything; date bounds are inclusive.
type NotificationFilter struct {
	Statuses    []Status
	NNCClasses  []NNCClass
	Priorities  []Priority
	CreatedFrom *Date
	CreatedTo   *Date
	Search      string
	SortBy      SortField
	Descending  bool
}

// NotificationSummary is the listing row.
type NotificationSummary struct {
	ID             int64          `json:"id"`
	Title          string         `json:"title"`
	Location       string         `json:"location"`
	Status         Status         `json:"status"`
	NNCClass       NNCClass       `json:"nnc_class,omitempty"`
	Priority       Priority       `json:"priority,omitempty"`
	DeadlineDate   *Date          `json:"deadline_date,omitempty"`
	DeadlineStatus DeadlineStatus `json:"deadline_status,omitempty"`
	CreatedAt      Timestamp      `json:"created_at"`
}

func (n *Notification) Summary(today Date) NotificationSummary {
	s := NotificationSummary{
		ID:             n.ID,
		Title:          n.Title,
		Location:       n.Location,
		Status:         n.Status,
		DeadlineStatus: n.DeadlineStatus(today),
		CreatedAt:      n.CreatedAt,
	}
	if n.Classification != nil {
		s.NNCClass = n.Classification.NNCClass
		s.Priority = n.Classification.Priority
		s.DeadlineDate = n.Classification.DeadlineDate
	}
	return s
}

// NotificationDetail is a notification together with its derived deadline view.
type NotificationDetail struct {
	*Notification
	DeadlineStatus DeadlineStatus `json:"deadline_status,omitempty"`
}
