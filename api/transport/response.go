package transport

import (
	"encoding/json"
	"time"

	"github.com/deskcore/backend/domain"
)

// Envelope is the standard API response wrapper used for both success and
// error payloads.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

// NewSuccess returns a success envelope.
func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "success",
		Data:   data,
		Meta:   meta,
	}
}

// NewError returns an error envelope with optional metadata.
func NewError(code string, err interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "error",
		Code:   code,
		Error:  err,
		Meta:   meta,
	}
}

// String returns the JSON representation (best-effort) for logging purposes.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}

// ListMeta carries pagination details alongside list payloads.
type ListMeta struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// UserView is the public projection of a user. The password hash never
// crosses the API boundary.
type UserView struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUserView(user *domain.User) UserView {
	return UserView{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      string(user.Role),
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func NewUserViews(users []domain.User) []UserView {
	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, NewUserView(&users[i]))
	}
	return views
}

type MilestoneView struct {
	Title       string     `json:"title"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Order       int        `json:"order"`
}

type TicketView struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Milestones  []MilestoneView `json:"milestones"`
	AssignedTo  *int64          `json:"assigned_to,omitempty"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func NewTicketView(ticket *domain.Ticket) TicketView {
	milestones := make([]MilestoneView, 0, len(ticket.Milestones))
	for _, m := range ticket.Milestones {
		milestones = append(milestones, MilestoneView{
			Title:       m.Title,
			DueDate:     m.DueDate,
			Completed:   m.Completed,
			CompletedAt: m.CompletedAt,
			Order:       m.Order,
		})
	}
	return TicketView{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      string(ticket.Status),
		Milestones:  milestones,
		AssignedTo:  ticket.AssignedTo,
		CreatedBy:   ticket.CreatedBy,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

func NewTicketViews(tickets []domain.Ticket) []TicketView {
	views := make([]TicketView, 0, len(tickets))
	for i := range tickets {
		views = append(views, NewTicketView(&tickets[i]))
	}
	return views
}

type ReplyView struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	AuthorID  int64     `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func NewReplyView(reply *domain.Reply) ReplyView {
	return ReplyView{
		ID:        reply.ID,
		TicketID:  reply.TicketID,
		AuthorID:  reply.AuthorID,
		Body:      reply.Body,
		CreatedAt: reply.CreatedAt,
	}
}

type AttachmentView struct {
	ID               int64     `json:"id"`
	TicketID         int64     `json:"ticket_id"`
	ReplyID          *int64    `json:"reply_id,omitempty"`
	UploadedBy       int64     `json:"uploaded_by"`
	OriginalFilename string    `json:"original_filename"`
	ContentType      string    `json:"content_type"`
	FileSize         int64     `json:"file_size"`
	CreatedAt        time.Time `json:"created_at"`
}

func NewAttachmentView(attachment *domain.Attachment) AttachmentView {
	return AttachmentView{
		ID:               attachment.ID,
		TicketID:         attachment.TicketID,
		ReplyID:          attachment.ReplyID,
		UploadedBy:       attachment.UploadedBy,
		OriginalFilename: attachment.OriginalFilename,
		ContentType:      attachment.ContentType,
		FileSize:         attachment.FileSize,
		CreatedAt:        attachment.CreatedAt,
	}
}

// TicketDetailView bundles a ticket with its conversation.
type TicketDetailView struct {
	Ticket      TicketView       `json:"ticket"`
	Replies     []ReplyView      `json:"replies"`
	Attachments []AttachmentView `json:"attachments"`
}

type DatasetRowView struct {
	ID        int64     `json:"id"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Category  string    `json:"category,omitempty"`
	Semantics string    `json:"semantics,omitempty"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

func NewDatasetRowView(row *domain.DatasetRow) DatasetRowView {
	return DatasetRowView{
		ID:        row.ID,
		Prompt:    row.Prompt,
		Response:  row.Response,
		Category:  row.Category,
		Semantics: row.Semantics,
		Position:  row.Position,
		CreatedAt: row.CreatedAt,
	}
}

type DatasetView struct {
	ID          int64             `json:"id"`
	OwnerID     int64             `json:"owner_id"`
	Name        string            `json:"name"`
	TargetModel string            `json:"target_model"`
	Status      string            `json:"status"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Rows        []DatasetRowView  `json:"rows,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func NewDatasetView(dataset *domain.Dataset) DatasetView {
	rows := make([]DatasetRowView, 0, len(dataset.Rows))
	for i := range dataset.Rows {
		rows = append(rows, NewDatasetRowView(&dataset.Rows[i]))
	}
	return DatasetView{
		ID:          dataset.ID,
		OwnerID:     dataset.OwnerID,
		Name:        dataset.Name,
		TargetModel: dataset.TargetModel,
		Status:      string(dataset.Status),
		Metadata:    dataset.Metadata,
		Rows:        rows,
		CreatedAt:   dataset.CreatedAt,
		UpdatedAt:   dataset.UpdatedAt,
	}
}

func NewDatasetViews(datasets []domain.Dataset) []DatasetView {
	views := make([]DatasetView, 0, len(datasets))
	for i := range datasets {
		views = append(views, NewDatasetView(&datasets[i]))
	}
	return views
}

// LoginView pairs the access token with the created session.
type LoginView struct {
	Token   string          `json:"token"`
	Session *domain.Session `json:"session"`
	User    UserView        `json:"user"`
}
