package notification

import (
	"sort"
	"strconv"
	"strings"

	"incident-workflow/internal/domain"
)

// Select applies the filter and ordering of f to items and returns the
// matching notifications. items is not modified.
func Select(items []domain.Notification, f domain.NotificationFilter) []domain.Notification {
	out := make([]domain.Notification, 0, len(items))
	for i := range items {
		if matches(&items[i], f) {
			out = append(out, items[i])
		}
	}
	sortNotifications(out, f.SortBy, f.Descending)
	return out
}

func matches(n *domain.Notification, f domain.NotificationFilter) bool {
	if len(f.Statuses) > 0 && !contains(f.Statuses, n.Status) {
		return false
	}

	if len(f.NNCClasses) > 0 {
		if n.Classification == nil || !contains(f.NNCClasses, n.Classification.NNCClass) {
			return false
		}
	}
	if len(f.Priorities) > 0 {
		if n.Classification == nil || !contains(f.Priorities, n.Classification.Priority) {
			return false
		}
	}

	created := domain.DateOf(n.CreatedAt.Time)
	if f.CreatedFrom != nil && created.Before(f.CreatedFrom.Time) {
		return false
	}
	if f.CreatedTo != nil && created.After(f.CreatedTo.Time) {
		return false
	}

	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		fields := []string{strconv.FormatInt(n.ID, 10), n.Title, n.Description, n.Location}
		found := false
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field), term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func contains[T comparable](set []T, v T) bool {
	for _, candidate := range set {
		if candidate == v {
			return true
		}
	}
	return false
}

// sortNotifications orders by field, breaking ties by ascending id so pages
// are stable.
func sortNotifications(items []domain.Notification, field domain.SortField, desc bool) {
	less := func(a, b *domain.Notification) int {
		switch field {
		case domain.SortByCreatedAt:
			return a.CreatedAt.Compare(b.CreatedAt.Time)
		case domain.SortByTitle:
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case domain.SortByLocation:
			return strings.Compare(strings.ToLower(a.Location), strings.ToLower(b.Location))
		case domain.SortByPriority:
			return priorityRank(a) - priorityRank(b)
		default:
			return compareIDs(a.ID, b.ID)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		c := less(&items[i], &items[j])
		if c == 0 {
			return items[i].ID < items[j].ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func priorityRank(n *domain.Notification) int {
	if n.Classification == nil {
		return 0
	}
	return n.Classification.Priority.Rank()
}

func compareIDs(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
