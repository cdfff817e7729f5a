package domain

type DeadlineStatus string

const (
	DeadlineOnTrack DeadlineStatus = "on_track"
	DeadlineDueSoon DeadlineStatus = "due_soon"
	DeadlineOverdue DeadlineStatus = "overdue"
)

// dueSoonWindow is how many days ahead of the deadline an open
// notification counts as due soon.
const dueSoonWindow = 7

var deadlineDaysByClass = map[NNCClass]int{
	NNCNonConformity:    30,
	NNCRiskCircumstance: 30,
	NNCNearMiss:         30,
	NNCEventWithoutHarm: 10,
}

var deadlineDaysByDamage = map[DamageLevel]int{
	DamageLight:    7,
	DamageModerate: 5,
	DamageSevere:   3,
	DamageDeath:    3,
}

// DeadlineDays maps a classification to the number of calendar days allowed
// to close it. Unknown input yields 0, meaning the deadline is the
// classification date itself.
func DeadlineDays(class NNCClass, damage *DamageLevel) int {
	if class == NNCEventWithHarm {
		if damage == nil {
			return 0
		}
		return deadlineDaysByDamage[*damage]
	}
	return deadlineDaysByClass[class]
}

func DeadlineDate(classifiedOn Date, class NNCClass, damage *DamageLevel) Date {
	return classifiedOn.AddDays(DeadlineDays(class, damage))
}

// ComputeDeadlineStatus derives the status shown next to a deadline. A
// concluded notification is judged by its conclusion date alone.
func ComputeDeadlineStatus(deadline, today Date, concluded *Date) DeadlineStatus {
	if concluded != nil {
		if concluded.After(deadline.Time) {
			return DeadlineOverdue
		}
		return DeadlineOnTrack
	}

	remaining := today.DaysUntil(deadline)
	switch {
	case remaining < 0:
		return DeadlineOverdue
	case remaining <= dueSoonWindow:
		return DeadlineDueSoon
	default:
		return DeadlineOnTrack
	}
}
