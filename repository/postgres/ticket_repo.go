package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskcore/backend/domain"
	pgInfra "github.com/deskcore/backend/internal/infrastructure/postgres"
	"github.com/deskcore/backend/repository"
)

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository returns a Postgres-backed implementation of
// TicketRepository. Milestones are stored as a JSONB document on the ticket
// row; replies and attachments get their own tables.
func NewTicketRepository(pool *pgxpool.Pool) repository.TicketRepository {
	return &ticketRepository{pool: pool}
}

// milestoneDoc is the JSONB shape of one milestone. Conversion between the
// value object and its persisted form is confined to this file.
type milestoneDoc struct {
	Title       string     `json:"title"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Order       int        `json:"order"`
}

func marshalMilestones(milestones []domain.Milestone) []byte {
	docs := make([]milestoneDoc, 0, len(milestones))
	for _, m := range milestones {
		docs = append(docs, milestoneDoc{
			Title:       m.Title,
			DueDate:     m.DueDate,
			Completed:   m.Completed,
			CompletedAt: m.CompletedAt,
			Order:       m.Order,
		})
	}
	b, err := json.Marshal(docs)
	if err != nil {
		return []byte("[]")
	}
	return b
}

func unmarshalMilestones(data []byte) []domain.Milestone {
	if len(data) == 0 {
		return nil
	}
	var docs []milestoneDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil
	}
	milestones := make([]domain.Milestone, 0, len(docs))
	for _, d := range docs {
		milestones = append(milestones, domain.Milestone{
			Title:       d.Title,
			DueDate:     d.DueDate,
			Completed:   d.Completed,
			CompletedAt: d.CompletedAt,
			Order:       d.Order,
		})
	}
	return milestones
}

const ticketColumns = `id, title, description, status, milestones, assigned_to, created_by, created_at, updated_at`

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	row := pgInfra.QuerierFrom(ctx, r.pool).QueryRow(ctx, query, id)
	return scanTicket(row)
}

func (r *ticketRepository) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	const query = `
	SELECT ` + ticketColumns + `
	FROM tickets
	WHERE ($1 = '' OR status = $1)
	  AND ($2 = 0 OR assigned_to = $2)
	  AND ($3 = 0 OR created_by = $3)
	  AND ($4 = '' OR title ILIKE '%' || $4 || '%' OR description ILIKE '%' || $4 || '%')
	ORDER BY created_at DESC
	LIMIT $5 OFFSET $6
	`
	rows, err := pgInfra.QuerierFrom(ctx, r.pool).Query(ctx, query,
		filter.Status, filter.AssignedTo, filter.CreatedBy, filter.Search,
		clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, rows.Err()
}

func (r *ticketRepository) Count(ctx context.Context, filter repository.TicketFilter) (int64, error) {
	const query = `
	SELECT COUNT(*)
	FROM tickets
	WHERE ($1 = '' OR status = $1)
	  AND ($2 = 0 OR assigned_to = $2)
	  AND ($3 = 0 OR created_by = $3)
	  AND ($4 = '' OR title ILIKE '%' || $4 || '%' OR description ILIKE '%' || $4 || '%')
	`
	var count int64
	err := pgInfra.QuerierFrom(ctx, r.pool).QueryRow(ctx, query,
		filter.Status, filter.AssignedTo, filter.CreatedBy, filter.Search).Scan(&count)
	return count, err
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO tickets (title, description, status, milestones, assigned_to, created_by, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()), COALESCE($7, NOW()))
	RETURNING id, created_at, updated_at
	`
	return pgInfra.QuerierFrom(ctx, r.pool).QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		string(ticket.Status),
		marshalMilestones(ticket.Milestones),
		ticket.AssignedTo,
		ticket.CreatedBy,
		nullTime(ticket.CreatedAt),
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	if ticket == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE tickets
	SET title = $2,
		description = $3,
		status = $4,
		milestones = $5,
		assigned_to = $6,
		updated_at = $7
	WHERE id = $1
	RETURNING updated_at
	`
	if err := pgInfra.QuerierFrom(ctx, r.pool).QueryRow(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		string(ticket.Status),
		marshalMilestones(ticket.Milestones),
		ticket.AssignedTo,
		ticket.UpdatedAt,
	).Scan(&ticket.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTicketNotFound
		}
		return err
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	tag, err := pgInfra.QuerierFrom(ctx, r.pool).Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

func (r *ticketRepository) AddReply(ctx context.Context, reply *domain.Reply) error {
	if reply == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO ticket_replies (ticket_id, author_id, body, created_at)
	VALUES ($1, $2, $3, COALESCE($4, NOW()))
	RETURNING id, created_at
	`
	return pgInfra.QuerierFrom(ctx, r.pool).QueryRow(ctx, query,
		reply.TicketID,
		reply.AuthorID,
		reply.Body,
		nullTime(reply.CreatedAt),
	).Scan(&reply.ID, &reply.CreatedAt)
}

func (r *ticketRepository) ListReplies(ctx context.Context, ticketID int64) ([]domain.Reply, error) {
	const query = `
	SELECT id, ticket_id, author_id, body, created_at
	FROM ticket_replies
	WHERE ticket_id = $1
	ORDER BY created_at, id
	`
	rows, err := pgInfra.QuerierFrom(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var replies []domain.Reply
	for rows.Next() {
		var reply domain.Reply
		if err := rows.Scan(&reply.ID, &reply.TicketID, &reply.AuthorID, &reply.Body, &reply.CreatedAt); err != nil {
			return nil, err
		}
		replies = append(replies, reply)
	}
	return replies, rows.Err()
}

func (r *ticketRepository) AddAttachment(ctx context.Context, attachment *domain.Attachment) error {
	if attachment == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO ticket_attachments (ticket_id, reply_id, uploaded_by, original_filename, stored_key, content_type, file_size, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
	RETURNING id, created_at
	`
	return pgInfra.QuerierFrom(ctx, r.pool).QueryRow(ctx, query,
		attachment.TicketID,
		attachment.ReplyID,
		attachment.UploadedBy,
		attachment.OriginalFilename,
		attachment.StoredKey,
		attachment.ContentType,
		attachment.FileSize,
		nullTime(attachment.CreatedAt),
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *ticketRepository) ListAttachments(ctx context.Context, ticketID int64) ([]domain.Attachment, error) {
	const query = `
	SELECT id, ticket_id, reply_id, uploaded_by, original_filename, stored_key, content_type, file_size, created_at
	FROM ticket_attachments
	WHERE ticket_id = $1
	ORDER BY created_at, id
	`
	rows, err := pgInfra.QuerierFrom(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.ID, &a.TicketID, &a.ReplyID, &a.UploadedBy, &a.OriginalFilename, &a.StoredKey, &a.ContentType, &a.FileSize, &a.CreatedAt); err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var (
		status     string
		milestones []byte
	)

	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&status,
		&milestones,
		&ticket.AssignedTo,
		&ticket.CreatedBy,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, err
	}
	ticket.Status = domain.TicketStatus(status)
	ticket.Milestones = unmarshalMilestones(milestones)
	return &ticket, nil
}
