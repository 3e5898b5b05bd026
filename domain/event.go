package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of a domain event. The set is closed: the
// dispatcher resolves handlers against these tags at registration time.
type EventType string

// User events.
const (
	EventUserCreated     EventType = "user.created"
	EventUserUpdated     EventType = "user.updated"
	EventUserDeleted     EventType = "user.deleted"
	EventUserRoleChanged EventType = "user.role_changed"
)

// Ticket events.
const (
	EventTicketCreated       EventType = "ticket.created"
	EventTicketUpdated       EventType = "ticket.updated"
	EventTicketDeleted       EventType = "ticket.deleted"
	EventTicketStatusChanged EventType = "ticket.status_changed"
	EventTicketAssigned      EventType = "ticket.assigned"
	EventMilestoneAdded      EventType = "ticket.milestone_added"
	EventMilestoneCompleted  EventType = "ticket.milestone_completed"
	EventReplyAdded          EventType = "ticket.reply_added"
)

// Dataset events.
const (
	EventDatasetCreated       EventType = "dataset.created"
	EventDatasetUpdated       EventType = "dataset.updated"
	EventDatasetDeleted       EventType = "dataset.deleted"
	EventDatasetStatusChanged EventType = "dataset.status_changed"
)

// Event is an immutable fact describing a state change. Events are produced
// only as a side effect of entity mutations, never by infrastructure.
type Event interface {
	EventID() string
	EventType() EventType
	OccurredAt() time.Time
}

// Occurrence carries the identity and timestamp shared by every event.
type Occurrence struct {
	ID string
	At time.Time
}

func newOccurrence(now time.Time) Occurrence {
	return Occurrence{ID: uuid.NewString(), At: now}
}

func (o Occurrence) EventID() string       { return o.ID }
func (o Occurrence) OccurredAt() time.Time { return o.At }

// FieldChange captures an old/new value pair for audit trails.
type FieldChange struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

// ChangeSet maps changed field names to their old/new values.
type ChangeSet map[string]FieldChange

// ── User events ──

type UserCreated struct {
	Occurrence
	UserID   int64
	Username string
	Email    string
	Role     Role
}

func (UserCreated) EventType() EventType { return EventUserCreated }

type UserUpdated struct {
	Occurrence
	UserID      int64
	Changes     ChangeSet
	PerformedBy int64
}

func (UserUpdated) EventType() EventType { return EventUserUpdated }

type UserDeleted struct {
	Occurrence
	UserID      int64
	PerformedBy int64
}

func (UserDeleted) EventType() EventType { return EventUserDeleted }

type UserRoleChanged struct {
	Occurrence
	UserID      int64
	OldRole     Role
	NewRole     Role
	PerformedBy int64
}

func (UserRoleChanged) EventType() EventType { return EventUserRoleChanged }

// ── Ticket events ──

type TicketCreated struct {
	Occurrence
	TicketID  int64
	Title     string
	CreatedBy int64
}

func (TicketCreated) EventType() EventType { return EventTicketCreated }

type TicketUpdated struct {
	Occurrence
	TicketID    int64
	Changes     ChangeSet
	PerformedBy int64
}

func (TicketUpdated) EventType() EventType { return EventTicketUpdated }

type TicketDeleted struct {
	Occurrence
	TicketID  int64
	DeletedBy int64
}

func (TicketDeleted) EventType() EventType { return EventTicketDeleted }

type TicketStatusChanged struct {
	Occurrence
	TicketID  int64
	OldStatus TicketStatus
	NewStatus TicketStatus
	ChangedBy int64
}

func (TicketStatusChanged) EventType() EventType { return EventTicketStatusChanged }

type TicketAssigned struct {
	Occurrence
	TicketID    int64
	OldAssignee *int64
	NewAssignee *int64
	AssignedBy  int64
}

func (TicketAssigned) EventType() EventType { return EventTicketAssigned }

type MilestoneAdded struct {
	Occurrence
	TicketID int64
	Title    string
	DueDate  *time.Time
	Order    int
}

func (MilestoneAdded) EventType() EventType { return EventMilestoneAdded }

type MilestoneCompleted struct {
	Occurrence
	TicketID int64
	Title    string
	Order    int
}

func (MilestoneCompleted) EventType() EventType { return EventMilestoneCompleted }

type ReplyAdded struct {
	Occurrence
	TicketID int64
	ReplyID  int64
	AuthorID int64
}

func (ReplyAdded) EventType() EventType { return EventReplyAdded }

// ── Dataset events ──

type DatasetCreated struct {
	Occurrence
	DatasetID   int64
	OwnerID     int64
	Name        string
	TargetModel string
}

func (DatasetCreated) EventType() EventType { return EventDatasetCreated }

type DatasetUpdated struct {
	Occurrence
	DatasetID   int64
	Changes     ChangeSet
	PerformedBy int64
}

func (DatasetUpdated) EventType() EventType { return EventDatasetUpdated }

type DatasetDeleted struct {
	Occurrence
	DatasetID   int64
	PerformedBy int64
}

func (DatasetDeleted) EventType() EventType { return EventDatasetDeleted }

type DatasetStatusChanged struct {
	Occurrence
	DatasetID int64
	OldStatus DatasetStatus
	NewStatus DatasetStatus
}

func (DatasetStatusChanged) EventType() EventType { return EventDatasetStatusChanged }
