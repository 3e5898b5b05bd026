package domain

import "time"

// Milestone is an immutable value object tracking one step of a ticket.
// "Completing" a milestone produces a new instance; instances are never
// mutated in place.
type Milestone struct {
	Title       string
	DueDate     *time.Time
	Completed   bool
	CompletedAt *time.Time
	Order       int
}

// NewMilestone validates and builds a milestone. Order is assigned by the
// owning ticket on append.
func NewMilestone(title string, dueDate *time.Time) (Milestone, error) {
	if title == "" {
		return Milestone{}, NewValidation("milestone title must not be empty")
	}
	return Milestone{Title: title, DueDate: dueDate}, nil
}

// MarkCompleted returns a completed copy stamped with now.
func (m Milestone) MarkCompleted(now time.Time) Milestone {
	return Milestone{
		Title:       m.Title,
		DueDate:     m.DueDate,
		Completed:   true,
		CompletedAt: &now,
		Order:       m.Order,
	}
}

// IsOverdue reports whether the due date has passed without completion.
func (m Milestone) IsOverdue(now time.Time) bool {
	if m.DueDate == nil || m.Completed {
		return false
	}
	return now.After(*m.DueDate)
}

func (m Milestone) withOrder(order int) Milestone {
	m.Order = order
	return m
}
