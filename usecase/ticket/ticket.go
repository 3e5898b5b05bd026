package ticket

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deskcore/backend/domain"
	"github.com/deskcore/backend/repository"
	"github.com/deskcore/backend/usecase"
)

type UseCase struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	blobs      BlobStore
	authz      domain.AuthorizationService
	txm        usecase.TxStarter
	dispatcher *usecase.EventDispatcher
	clock      usecase.Clock
	logger     *zap.Logger
	maxUpload  int64
}

func New(
	tickets repository.TicketRepository,
	users repository.UserRepository,
	blobs BlobStore,
	txm usecase.TxStarter,
	dispatcher *usecase.EventDispatcher,
	clock usecase.Clock,
	logger *zap.Logger,
	maxUpload int64,
) *UseCase {
	if clock == nil {
		clock = usecase.UTCNow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &UseCase{
		tickets:    tickets,
		users:      users,
		blobs:      blobs,
		authz:      domain.NewAuthorizationService(),
		txm:        txm,
		dispatcher: dispatcher,
		clock:      clock,
		logger:     logger,
		maxUpload:  maxUpload,
	}
}

func (uc *UseCase) actor(ctx context.Context, actorID int64) (*domain.User, error) {
	actor, err := uc.users.GetByID(ctx, actorID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	return actor, nil
}

type MilestoneInput struct {
	Title   string
	DueDate *time.Time
}

type CreateInput struct {
	Title       string
	Description string
	Milestones  []MilestoneInput
}

// Create opens a new ticket owned by the actor.
func (uc *UseCase) Create(ctx context.Context, actorID int64, input CreateInput) (*domain.Ticket, error) {
	if _, err := uc.actor(ctx, actorID); err != nil {
		return nil, err
	}

	now := uc.clock()
	milestones := make([]domain.Milestone, 0, len(input.Milestones))
	for _, m := range input.Milestones {
		milestone, err := domain.NewMilestone(m.Title, m.DueDate)
		if err != nil {
			return nil, err
		}
		milestones = append(milestones, milestone)
	}

	ticket, err := domain.NewTicket(input.Title, input.Description, actorID, milestones, now)
	if err != nil {
		return nil, err
	}

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	if err := uc.tickets.Create(txCtx, ticket); err != nil {
		return nil, err
	}
	ticket.RecordCreation(now)
	uow.CollectEventsFrom(ticket)
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Get returns the ticket if the actor is its creator, assignee or an admin.
func (uc *UseCase) Get(ctx context.Context, actorID, ticketID int64) (*domain.Ticket, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	ticket, err := uc.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := uc.authz.EnsureCanAccessTicket(actor, ticket.CreatedBy, ticket.AssignedTo); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Detail is the ticket thread view with replies and attachments.
type Detail struct {
	Ticket      *domain.Ticket
	Replies     []domain.Reply
	Attachments []domain.Attachment
}

// GetWithReplies returns the full thread, access-guarded like Get.
func (uc *UseCase) GetWithReplies(ctx context.Context, actorID, ticketID int64) (*Detail, error) {
	ticket, err := uc.Get(ctx, actorID, ticketID)
	if err != nil {
		return nil, err
	}
	replies, err := uc.tickets.ListReplies(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	attachments, err := uc.tickets.ListAttachments(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return &Detail{Ticket: ticket, Replies: replies, Attachments: attachments}, nil
}

// ListResult carries one page plus the unpaged total.
type ListResult struct {
	Tickets []domain.Ticket
	Total   int64
}

// List returns tickets matching the filter. Actors below agent only see
// tickets they created.
func (uc *UseCase) List(ctx context.Context, actorID int64, filter repository.TicketFilter) (*ListResult, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAgentOrAbove() {
		filter.CreatedBy = actor.ID
	}
	tickets, err := uc.tickets.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := uc.tickets.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListResult{Tickets: tickets, Total: total}, nil
}

type UpdateInput struct {
	TicketID    int64
	Title       *string
	Description *string
	Status      *string
}

// Update mutates title/description and optionally drives a status transition
// in the same unit of work.
func (uc *UseCase) Update(ctx context.Context, actorID int64, input UpdateInput) (*domain.Ticket, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	ticket, err := uc.tickets.GetByID(txCtx, input.TicketID)
	if err != nil {
		return nil, err
	}
	if err := uc.authz.EnsureCanAccessTicket(actor, ticket.CreatedBy, ticket.AssignedTo); err != nil {
		return nil, err
	}

	now := uc.clock()
	changes := domain.ChangeSet{}
	if input.Title != nil && *input.Title != ticket.Title {
		if *input.Title == "" {
			return nil, domain.NewValidation("ticket title must not be empty")
		}
		changes["title"] = domain.FieldChange{Old: ticket.Title, New: *input.Title}
		ticket.Title = *input.Title
	}
	if input.Description != nil && *input.Description != ticket.Description {
		changes["description"] = domain.FieldChange{Old: ticket.Description, New: *input.Description}
		ticket.Description = *input.Description
	}
	if len(changes) > 0 {
		ticket.UpdatedAt = now
		ticket.RecordUpdate(changes, actorID, now)
	}
	if input.Status != nil {
		status, err := domain.ParseTicketStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		if err := ticket.TransitionTo(status, actorID, now); err != nil {
			return nil, err
		}
	}

	if err := uc.tickets.Update(txCtx, ticket); err != nil {
		return nil, err
	}
	uow.CollectEventsFrom(ticket)
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Transition moves the ticket along its state machine.
func (uc *UseCase) Transition(ctx context.Context, actorID, ticketID int64, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	ticket, err := uc.tickets.GetByID(txCtx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := uc.authz.EnsureCanAccessTicket(actor, ticket.CreatedBy, ticket.AssignedTo); err != nil {
		return nil, err
	}
	if err := ticket.TransitionTo(newStatus, actorID, uc.clock()); err != nil {
		return nil, err
	}
	if err := uc.tickets.Update(txCtx, ticket); err != nil {
		return nil, err
	}
	uow.CollectEventsFrom(ticket)
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Assign hands the ticket to an active agent; admin only. The agent checks
// live here because the entity has no repository access.
func (uc *UseCase) Assign(ctx context.Context, actorID, ticketID, agentID int64) (*domain.Ticket, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := uc.authz.EnsureCanAssignTicket(actor); err != nil {
		return nil, err
	}

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	ticket, err := uc.tickets.GetByID(txCtx, ticketID)
	if err != nil {
		return nil, err
	}
	agent, err := uc.users.GetByID(txCtx, agentID)
	if err != nil {
		return nil, err
	}
	if err := uc.authz.EnsureIsActiveAgent(agent); err != nil {
		return nil, err
	}

	ticket.AssignTo(agentID, actorID, uc.clock())
	if err := uc.tickets.Update(txCtx, ticket); err != nil {
		return nil, err
	}
	uow.CollectEventsFrom(ticket)
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

// AddMilestone appends a milestone at the end of the ticket's list.
func (uc *UseCase) AddMilestone(ctx context.Context, actorID, ticketID int64, input MilestoneInput) (*domain.Ticket, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	milestone, err := domain.NewMilestone(input.Title, input.DueDate)
	if err != nil {
		return nil, err
	}

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	ticket, err := uc.tickets.GetByID(txCtx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := uc.authz.EnsureCanAccessTicket(actor, ticket.CreatedBy, ticket.AssignedTo); err != nil {
		return nil, err
	}

	ticket.AddMilestone(milestone, uc.clock())
	if err := uc.tickets.Update(txCtx, ticket); err != nil {
		return nil, err
	}
	uow.CollectEventsFrom(ticket)
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

// CompleteMilestone marks the milestone at index completed; idempotent.
func (uc *UseCase) CompleteMilestone(ctx context.Context, actorID, ticketID int64, index int) (*domain.Ticket, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	ticket, err := uc.tickets.GetByID(txCtx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := uc.authz.EnsureCanAccessTicket(actor, ticket.CreatedBy, ticket.AssignedTo); err != nil {
		return nil, err
	}
	if err := ticket.CompleteMilestone(index, uc.clock()); err != nil {
		return nil, err
	}
	if err := uc.tickets.Update(txCtx, ticket); err != nil {
		return nil, err
	}
	uow.CollectEventsFrom(ticket)
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

// AddReply appends to the thread; creator, assignee or admin only.
func (uc *UseCase) AddReply(ctx context.Context, actorID, ticketID int64, body string) (*domain.Reply, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	ticket, err := uc.tickets.GetByID(txCtx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := uc.authz.EnsureCanReplyTicket(actor, ticket.CreatedBy, ticket.AssignedTo); err != nil {
		return nil, err
	}

	now := uc.clock()
	reply := &domain.Reply{
		TicketID:  ticketID,
		AuthorID:  actorID,
		Body:      body,
		CreatedAt: now,
	}
	if err := reply.Validate(); err != nil {
		return nil, err
	}
	if err := uc.tickets.AddReply(txCtx, reply); err != nil {
		return nil, err
	}
	ticket.RecordReply(reply.ID, actorID, now)
	uow.CollectEventsFrom(ticket)
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return reply, nil
}

type AttachmentInput struct {
	TicketID    int64
	ReplyID     *int64
	Filename    string
	ContentType string
	Data        []byte
}

// AddAttachment stores the bytes in the blob store under a generated key and
// records the metadata row in the same unit of work. The blob is removed again
// if the transaction fails to commit.
func (uc *UseCase) AddAttachment(ctx context.Context, actorID int64, input AttachmentInput) (*domain.Attachment, error) {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if int64(len(input.Data)) > uc.maxUpload {
		return nil, domain.NewValidation("attachment exceeds %d bytes", uc.maxUpload)
	}

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	ticket, err := uc.tickets.GetByID(txCtx, input.TicketID)
	if err != nil {
		return nil, err
	}
	if err := uc.authz.EnsureCanAttachFile(actor, ticket.CreatedBy, ticket.AssignedTo); err != nil {
		return nil, err
	}

	now := uc.clock()
	attachment := &domain.Attachment{
		TicketID:         input.TicketID,
		ReplyID:          input.ReplyID,
		UploadedBy:       actorID,
		OriginalFilename: input.Filename,
		StoredKey:        fmt.Sprintf("tickets/%d/%s", input.TicketID, uuid.NewString()),
		ContentType:      input.ContentType,
		FileSize:         int64(len(input.Data)),
		CreatedAt:        now,
	}
	if err := attachment.Validate(); err != nil {
		return nil, err
	}

	if err := uc.blobs.Put(ctx, attachment.StoredKey, input.Data); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "store attachment", err)
	}
	if err := uc.tickets.AddAttachment(txCtx, attachment); err != nil {
		_ = uc.blobs.Delete(ctx, attachment.StoredKey)
		return nil, err
	}
	if err := uow.Commit(ctx); err != nil {
		_ = uc.blobs.Delete(ctx, attachment.StoredKey)
		return nil, err
	}
	return attachment, nil
}

// OpenAttachment streams back attachment bytes, access-guarded like Get.
func (uc *UseCase) OpenAttachment(ctx context.Context, actorID, ticketID, attachmentID int64) (*domain.Attachment, []byte, error) {
	if _, err := uc.Get(ctx, actorID, ticketID); err != nil {
		return nil, nil, err
	}
	attachments, err := uc.tickets.ListAttachments(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	for i := range attachments {
		if attachments[i].ID == attachmentID {
			data, err := uc.blobs.Get(ctx, attachments[i].StoredKey)
			if err != nil {
				return nil, nil, domain.WrapError(domain.ErrCodeInternal, "load attachment", err)
			}
			return &attachments[i], data, nil
		}
	}
	return nil, nil, domain.ErrAttachmentNotFound
}

// Delete removes a ticket; creator or admin. The deletion event is recorded
// before the rows go away.
func (uc *UseCase) Delete(ctx context.Context, actorID, ticketID int64) error {
	actor, err := uc.actor(ctx, actorID)
	if err != nil {
		return err
	}

	txCtx, uow, err := usecase.Begin(ctx, uc.txm, uc.dispatcher, uc.logger)
	if err != nil {
		return err
	}
	defer uow.Rollback(ctx)

	ticket, err := uc.tickets.GetByID(txCtx, ticketID)
	if err != nil {
		return err
	}
	if err := uc.authz.EnsureOwnerOrAdmin(actor, ticket.CreatedBy); err != nil {
		return err
	}

	ticket.RecordDeletion(actorID, uc.clock())
	if err := uc.tickets.Delete(txCtx, ticketID); err != nil {
		return err
	}
	uow.CollectEventsFrom(ticket)
	return uow.Commit(ctx)
}
