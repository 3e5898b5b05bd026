package repository

import (
	"context"

	"github.com/deskcore/backend/domain"
)

type TicketFilter struct {
	Status     string
	AssignedTo int64
	CreatedBy  int64
	Search     string
	Limit      int
	Offset     int
}

type TicketRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Count(ctx context.Context, filter TicketFilter) (int64, error)
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id int64) error

	AddReply(ctx context.Context, reply *domain.Reply) error
	ListReplies(ctx context.Context, ticketID int64) ([]domain.Reply, error)
	AddAttachment(ctx context.Context, attachment *domain.Attachment) error
	ListAttachments(ctx context.Context, ticketID int64) ([]domain.Attachment, error)
}
