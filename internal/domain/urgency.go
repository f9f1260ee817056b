package domain

// Urgency classifies how close an invoice is to its due date.
type Urgency int

const (
	UrgencyUnknown Urgency = iota
	UrgencyNormal
	UrgencySoon
	UrgencyOverdue
)

// SoonWindowDays is how many days ahead a due date counts as soon.
const SoonWindowDays = 3

// DueUrgency classifies a due date relative to today: before today is
// overdue, today up to SoonWindowDays ahead is soon.
func DueUrgency(due, today Date) Urgency {
	if !due.Valid() || !today.Valid() {
		return UrgencyUnknown
	}
	days := today.DaysUntil(due)
	switch {
	case days < 0:
		return UrgencyOverdue
	case days <= SoonWindowDays:
		return UrgencySoon
	default:
		return UrgencyNormal
	}
}

// Color is the display color used for the urgency.
func (u Urgency) Color() string {
	switch u {
	case UrgencyOverdue:
		return "red"
	case UrgencySoon:
		return "yellow"
	default:
		return "gray"
	}
}

func (u Urgency) String() string {
	return [...]string{"unknown", "normal", "soon", "overdue"}[u]
}
