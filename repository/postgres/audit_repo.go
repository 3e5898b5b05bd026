package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskcore/backend/domain"
	pgInfra "github.com/deskcore/backend/internal/infrastructure/postgres"
	"github.com/deskcore/backend/repository"
)

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository returns a Postgres-backed implementation of
// AuditRepository. Each entity family gets its own append-only log table.
func NewAuditRepository(pool *pgxpool.Pool) repository.AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) AppendUserLog(ctx context.Context, entry repository.AuditEntry) error {
	return r.append(ctx, "user_audit_logs", "user_id", entry)
}

func (r *auditRepository) AppendTicketLog(ctx context.Context, entry repository.AuditEntry) error {
	return r.append(ctx, "ticket_audit_logs", "ticket_id", entry)
}

func (r *auditRepository) AppendDatasetLog(ctx context.Context, entry repository.AuditEntry) error {
	return r.append(ctx, "dataset_audit_logs", "dataset_id", entry)
}

func (r *auditRepository) append(ctx context.Context, table, subjectColumn string, entry repository.AuditEntry) error {
	changes, err := marshalChanges(entry.Changes)
	if err != nil {
		return err
	}

	query := `INSERT INTO ` + table + ` (` + subjectColumn + `, action, changes, performed_by, performed_at)
	VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))`

	_, err = pgInfra.QuerierFrom(ctx, r.pool).Exec(ctx, query,
		entry.SubjectID,
		entry.Action,
		changes,
		entry.PerformedBy,
		nullTime(entry.PerformedAt),
	)
	return err
}

func marshalChanges(changes domain.ChangeSet) ([]byte, error) {
	if len(changes) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(changes)
}
