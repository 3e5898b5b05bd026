package domain

import "time"

// TicketStatus is the closed set of workflow states.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketDone       TicketStatus = "done"
)

// ParseTicketStatus validates a wire-level status string.
func ParseTicketStatus(s string) (TicketStatus, error) {
	switch TicketStatus(s) {
	case TicketOpen, TicketInProgress, TicketDone:
		return TicketStatus(s), nil
	}
	return "", NewValidation("unknown ticket status %q", s)
}

// ticketTransitions is the directed transition table. No self-loops.
var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketOpen:       {TicketInProgress},
	TicketInProgress: {TicketDone, TicketOpen},
	TicketDone:       {TicketOpen},
}

// Ticket is the workflow aggregate: state machine, milestones, assignment.
// Replies and attachments are child records owned by the ticket; cross-entity
// references (creator, assignee) are weak references by id.
type Ticket struct {
	Recorder

	ID          int64
	Title       string
	Description string
	Status      TicketStatus
	Milestones  []Milestone
	AssignedTo  *int64
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTicket builds an open ticket, re-ordering any provided milestones into a
// dense zero-based sequence.
func NewTicket(title, description string, createdBy int64, milestones []Milestone, now time.Time) (*Ticket, error) {
	if title == "" {
		return nil, NewValidation("ticket title must not be empty")
	}
	t := &Ticket{
		Title:       title,
		Description: description,
		Status:      TicketOpen,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, m := range milestones {
		t.Milestones = append(t.Milestones, m.withOrder(i))
	}
	return t, nil
}

// CanTransitionTo reports whether the requested edge exists.
func (t *Ticket) CanTransitionTo(next TicketStatus) bool {
	for _, allowed := range ticketTransitions[t.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the ticket along the state machine. On an invalid edge
// the ticket is left unmodified and no event is recorded.
func (t *Ticket) TransitionTo(next TicketStatus, changedBy int64, now time.Time) error {
	if !t.CanTransitionTo(next) {
		return NewInvalidTransition(string(t.Status), string(next))
	}
	old := t.Status
	t.Status = next
	t.UpdatedAt = now
	t.record(TicketStatusChanged{
		Occurrence: newOccurrence(now),
		TicketID:   t.ID,
		OldStatus:  old,
		NewStatus:  next,
		ChangedBy:  changedBy,
	})
	return nil
}

// AssignTo sets the assignee. The agent-role and active checks are enforced by
// the orchestrating use case, which has repository access.
func (t *Ticket) AssignTo(userID int64, assignedBy int64, now time.Time) {
	old := t.AssignedTo
	t.AssignedTo = &userID
	t.UpdatedAt = now
	t.record(TicketAssigned{
		Occurrence:  newOccurrence(now),
		TicketID:    t.ID,
		OldAssignee: old,
		NewAssignee: t.AssignedTo,
		AssignedBy:  assignedBy,
	})
}

// AddMilestone appends at the end with the next order index.
func (t *Ticket) AddMilestone(m Milestone, now time.Time) {
	m = m.withOrder(len(t.Milestones))
	t.Milestones = append(t.Milestones, m)
	t.UpdatedAt = now
	t.record(MilestoneAdded{
		Occurrence: newOccurrence(now),
		TicketID:   t.ID,
		Title:      m.Title,
		DueDate:    m.DueDate,
		Order:      m.Order,
	})
}

// CompleteMilestone marks the milestone at index completed. Completing an
// already-completed milestone is a no-op: no event, no timestamp bump.
func (t *Ticket) CompleteMilestone(index int, now time.Time) error {
	if index < 0 || index >= len(t.Milestones) {
		return NewValidation("milestone index %d out of range", index)
	}
	old := t.Milestones[index]
	if old.Completed {
		return nil
	}
	t.Milestones[index] = old.MarkCompleted(now)
	t.UpdatedAt = now
	t.record(MilestoneCompleted{
		Occurrence: newOccurrence(now),
		TicketID:   t.ID,
		Title:      old.Title,
		Order:      old.Order,
	})
	return nil
}

// AllMilestonesCompleted reports whether the ticket has milestones and every
// one of them is completed.
func (t *Ticket) AllMilestonesCompleted() bool {
	if len(t.Milestones) == 0 {
		return false
	}
	for _, m := range t.Milestones {
		if !m.Completed {
			return false
		}
	}
	return true
}

// OverdueMilestones returns the milestones past their due date.
func (t *Ticket) OverdueMilestones(now time.Time) []Milestone {
	var overdue []Milestone
	for _, m := range t.Milestones {
		if m.IsOverdue(now) {
			overdue = append(overdue, m)
		}
	}
	return overdue
}

// RecordCreation is called once the repository has assigned an id.
func (t *Ticket) RecordCreation(now time.Time) {
	t.record(TicketCreated{
		Occurrence: newOccurrence(now),
		TicketID:   t.ID,
		Title:      t.Title,
		CreatedBy:  t.CreatedBy,
	})
}

// RecordUpdate registers a generic field-level update.
func (t *Ticket) RecordUpdate(changes ChangeSet, performedBy int64, now time.Time) {
	if len(changes) == 0 {
		return
	}
	t.record(TicketUpdated{
		Occurrence:  newOccurrence(now),
		TicketID:    t.ID,
		Changes:     changes,
		PerformedBy: performedBy,
	})
}

// RecordDeletion registers the deletion fact before the row is removed.
func (t *Ticket) RecordDeletion(deletedBy int64, now time.Time) {
	t.record(TicketDeleted{
		Occurrence: newOccurrence(now),
		TicketID:   t.ID,
		DeletedBy:  deletedBy,
	})
}

// RecordReply registers a reply added by the use case after persistence.
func (t *Ticket) RecordReply(replyID, authorID int64, now time.Time) {
	t.record(ReplyAdded{
		Occurrence: newOccurrence(now),
		TicketID:   t.ID,
		ReplyID:    replyID,
		AuthorID:   authorID,
	})
}

// Reply is a message on a ticket thread.
type Reply struct {
	ID        int64
	TicketID  int64
	AuthorID  int64
	Body      string
	CreatedAt time.Time
}

// Validate checks reply invariants.
func (r *Reply) Validate() error {
	if r == nil || r.Body == "" {
		return NewValidation("reply body must not be empty")
	}
	return nil
}

// Attachment is file metadata attached to a ticket or one of its replies.
// The bytes themselves live in the blob store.
type Attachment struct {
	ID               int64
	TicketID         int64
	ReplyID          *int64
	UploadedBy       int64
	OriginalFilename string
	StoredKey        string
	ContentType      string
	FileSize         int64
	CreatedAt        time.Time
}

// Validate checks attachment invariants.
func (a *Attachment) Validate() error {
	if a == nil || a.OriginalFilename == "" {
		return NewValidation("attachment filename must not be empty")
	}
	if a.FileSize <= 0 {
		return NewValidation("attachment must not be empty")
	}
	return nil
}
