package repository

import (
	"context"
	"time"

	"github.com/deskcore/backend/domain"
)

// AuditEntry is one audit-log row written by a post-commit event handler.
// PerformedBy is zero when the action was triggered by the system.
type AuditEntry struct {
	SubjectID   int64
	Action      string
	Changes     domain.ChangeSet
	PerformedBy int64
	PerformedAt time.Time
}

type AuditRepository interface {
	AppendUserLog(ctx context.Context, entry AuditEntry) error
	AppendTicketLog(ctx context.Context, entry AuditEntry) error
	AppendDatasetLog(ctx context.Context, entry AuditEntry) error
}
