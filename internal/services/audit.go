package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/deskcore/backend/domain"
	"github.com/deskcore/backend/repository"
	"github.com/deskcore/backend/usecase"
)

// AuditWriter translates domain events into append-only audit log entries.
// Handlers run after the unit of work that produced the events commits, so a
// failed append never rolls back the mutation; the dispatcher logs it.
type AuditWriter struct {
	repo   repository.AuditRepository
	logger *zap.Logger
}

func NewAuditWriter(repo repository.AuditRepository, logger *zap.Logger) *AuditWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditWriter{repo: repo, logger: logger}
}

// RegisterAuditHandlers subscribes the writer to every event type that leaves
// an audit trail.
func RegisterAuditHandlers(dispatcher *usecase.EventDispatcher, writer *AuditWriter) {
	handler := usecase.EventHandler{Name: "audit", Fn: writer.Handle}

	for _, eventType := range []domain.EventType{
		domain.EventUserCreated,
		domain.EventUserUpdated,
		domain.EventUserDeleted,
		domain.EventUserRoleChanged,
		domain.EventTicketCreated,
		domain.EventTicketUpdated,
		domain.EventTicketDeleted,
		domain.EventTicketStatusChanged,
		domain.EventTicketAssigned,
		domain.EventMilestoneAdded,
		domain.EventMilestoneCompleted,
		domain.EventReplyAdded,
		domain.EventDatasetCreated,
		domain.EventDatasetUpdated,
		domain.EventDatasetDeleted,
		domain.EventDatasetStatusChanged,
	} {
		dispatcher.Register(eventType, handler)
	}
}

// Handle maps one event to its audit entry and appends it.
func (w *AuditWriter) Handle(ctx context.Context, event domain.Event) error {
	switch e := event.(type) {
	case domain.UserCreated:
		return w.repo.AppendUserLog(ctx, repository.AuditEntry{
			SubjectID:   e.UserID,
			Action:      "created",
			Changes:     domain.ChangeSet{"username": {New: e.Username}, "email": {New: e.Email}, "role": {New: string(e.Role)}},
			PerformedBy: e.UserID,
			PerformedAt: e.OccurredAt(),
		})
	case domain.UserUpdated:
		return w.repo.AppendUserLog(ctx, repository.AuditEntry{
			SubjectID:   e.UserID,
			Action:      "updated",
			Changes:     e.Changes,
			PerformedBy: e.PerformedBy,
			PerformedAt: e.OccurredAt(),
		})
	case domain.UserDeleted:
		return w.repo.AppendUserLog(ctx, repository.AuditEntry{
			SubjectID:   e.UserID,
			Action:      "deleted",
			PerformedBy: e.PerformedBy,
			PerformedAt: e.OccurredAt(),
		})
	case domain.UserRoleChanged:
		return w.repo.AppendUserLog(ctx, repository.AuditEntry{
			SubjectID:   e.UserID,
			Action:      "role_changed",
			Changes:     domain.ChangeSet{"role": {Old: string(e.OldRole), New: string(e.NewRole)}},
			PerformedBy: e.PerformedBy,
			PerformedAt: e.OccurredAt(),
		})

	case domain.TicketCreated:
		return w.repo.AppendTicketLog(ctx, repository.AuditEntry{
			SubjectID:   e.TicketID,
			Action:      "created",
			Changes:     domain.ChangeSet{"title": {New: e.Title}},
			PerformedBy: e.CreatedBy,
			PerformedAt: e.OccurredAt(),
		})
	case domain.TicketUpdated:
		return w.repo.AppendTicketLog(ctx, repository.AuditEntry{
			SubjectID:   e.TicketID,
			Action:      "updated",
			Changes:     e.Changes,
			PerformedBy: e.PerformedBy,
			PerformedAt: e.OccurredAt(),
		})
	case domain.TicketDeleted:
		return w.repo.AppendTicketLog(ctx, repository.AuditEntry{
			SubjectID:   e.TicketID,
			Action:      "deleted",
			PerformedBy: e.DeletedBy,
			PerformedAt: e.OccurredAt(),
		})
	case domain.TicketStatusChanged:
		return w.repo.AppendTicketLog(ctx, repository.AuditEntry{
			SubjectID:   e.TicketID,
			Action:      "status_changed",
			Changes:     domain.ChangeSet{"status": {Old: string(e.OldStatus), New: string(e.NewStatus)}},
			PerformedBy: e.ChangedBy,
			PerformedAt: e.OccurredAt(),
		})
	case domain.TicketAssigned:
		return w.repo.AppendTicketLog(ctx, repository.AuditEntry{
			SubjectID:   e.TicketID,
			Action:      "assigned",
			Changes:     domain.ChangeSet{"assigned_to": {Old: assigneeValue(e.OldAssignee), New: assigneeValue(e.NewAssignee)}},
			PerformedBy: e.AssignedBy,
			PerformedAt: e.OccurredAt(),
		})
	case domain.MilestoneAdded:
		return w.repo.AppendTicketLog(ctx, repository.AuditEntry{
			SubjectID:   e.TicketID,
			Action:      "milestone_added",
			Changes:     domain.ChangeSet{"milestone": {New: fmt.Sprintf("%d:%s", e.Order, e.Title)}},
			PerformedAt: e.OccurredAt(),
		})
	case domain.MilestoneCompleted:
		return w.repo.AppendTicketLog(ctx, repository.AuditEntry{
			SubjectID:   e.TicketID,
			Action:      "milestone_completed",
			Changes:     domain.ChangeSet{"milestone": {New: fmt.Sprintf("%d:%s", e.Order, e.Title)}},
			PerformedAt: e.OccurredAt(),
		})
	case domain.ReplyAdded:
		return w.repo.AppendTicketLog(ctx, repository.AuditEntry{
			SubjectID:   e.TicketID,
			Action:      "reply_added",
			Changes:     domain.ChangeSet{"reply_id": {New: e.ReplyID}},
			PerformedBy: e.AuthorID,
			PerformedAt: e.OccurredAt(),
		})

	case domain.DatasetCreated:
		return w.repo.AppendDatasetLog(ctx, repository.AuditEntry{
			SubjectID:   e.DatasetID,
			Action:      "created",
			Changes:     domain.ChangeSet{"name": {New: e.Name}, "target_model": {New: e.TargetModel}},
			PerformedBy: e.OwnerID,
			PerformedAt: e.OccurredAt(),
		})
	case domain.DatasetUpdated:
		return w.repo.AppendDatasetLog(ctx, repository.AuditEntry{
			SubjectID:   e.DatasetID,
			Action:      "updated",
			Changes:     e.Changes,
			PerformedBy: e.PerformedBy,
			PerformedAt: e.OccurredAt(),
		})
	case domain.DatasetDeleted:
		return w.repo.AppendDatasetLog(ctx, repository.AuditEntry{
			SubjectID:   e.DatasetID,
			Action:      "deleted",
			PerformedBy: e.PerformedBy,
			PerformedAt: e.OccurredAt(),
		})
	case domain.DatasetStatusChanged:
		return w.repo.AppendDatasetLog(ctx, repository.AuditEntry{
			SubjectID:   e.DatasetID,
			Action:      "status_changed",
			Changes:     domain.ChangeSet{"status": {Old: string(e.OldStatus), New: string(e.NewStatus)}},
			PerformedAt: e.OccurredAt(),
		})

	default:
		w.logger.Warn("no audit mapping for event",
			zap.String("event_type", string(event.EventType())),
			zap.String("event_id", event.EventID()))
		return nil
	}
}

func assigneeValue(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
