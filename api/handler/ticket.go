package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/deskcore/backend/api/transport"
	"github.com/deskcore/backend/domain"
	"github.com/deskcore/backend/pkg/httpcontext"
	"github.com/deskcore/backend/repository"
	ticketUC "github.com/deskcore/backend/usecase/ticket"
)

type TicketHandler struct {
	baseHandler
	uc *ticketUC.UseCase
}

func NewTicketHandler(uc *ticketUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TicketHandler {
	return &TicketHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Create ticket
// @Tags tickets
// @Router /api/v1/tickets [post]
func (h *TicketHandler) Create(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}

	var req transport.TicketCreateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	input := ticketUC.CreateInput{
		Title:       req.Title,
		Description: req.Description,
	}
	for _, m := range req.Milestones {
		input.Milestones = append(input.Milestones, ticketUC.MilestoneInput{
			Title:   m.Title,
			DueDate: parseDueDate(m.DueDate),
		})
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ticket, err := h.uc.Create(stdCtx, actorID, input)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, transport.NewTicketView(ticket))
}

// @Summary Get ticket with conversation
// @Tags tickets
// @Router /api/v1/tickets/{id} [get]
func (h *TicketHandler) Get(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}
	ticketID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	detail, err := h.uc.GetWithReplies(stdCtx, actorID, ticketID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	view := transport.TicketDetailView{
		Ticket:      transport.NewTicketView(detail.Ticket),
		Replies:     make([]transport.ReplyView, 0, len(detail.Replies)),
		Attachments: make([]transport.AttachmentView, 0, len(detail.Attachments)),
	}
	for i := range detail.Replies {
		view.Replies = append(view.Replies, transport.NewReplyView(&detail.Replies[i]))
	}
	for i := range detail.Attachments {
		view.Attachments = append(view.Attachments, transport.NewAttachmentView(&detail.Attachments[i]))
	}
	h.respondSuccess(ctx, http.StatusOK, view)
}

// @Summary List tickets
// @Tags tickets
// @Router /api/v1/tickets [get]
func (h *TicketHandler) List(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}

	filter := repository.TicketFilter{
		Status:     string(ctx.QueryArgs().Peek("status")),
		AssignedTo: parseInt64(string(ctx.QueryArgs().Peek("assigned_to"))),
		CreatedBy:  parseInt64(string(ctx.QueryArgs().Peek("created_by"))),
		Search:     string(ctx.QueryArgs().Peek("search")),
		Limit:      parseInt(string(ctx.QueryArgs().Peek("limit")), 50),
		Offset:     parseInt(string(ctx.QueryArgs().Peek("offset")), 0),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.List(stdCtx, actorID, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccessMeta(ctx, http.StatusOK, transport.NewTicketViews(result.Tickets), transport.ListMeta{
		Total:  result.Total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// @Summary Update ticket fields
// @Tags tickets
// @Router /api/v1/tickets/{id} [put]
func (h *TicketHandler) Update(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}
	ticketID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	var req transport.TicketUpdateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ticket, err := h.uc.Update(stdCtx, actorID, ticketUC.UpdateInput{
		TicketID:    ticketID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewTicketView(ticket))
}

// @Summary Transition ticket status
// @Tags tickets
// @Router /api/v1/tickets/{id}/status [put]
func (h *TicketHandler) Transition(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}
	ticketID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	var req transport.TicketTransitionRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}
	status, err := domain.ParseTicketStatus(req.Status)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ticket, err := h.uc.Transition(stdCtx, actorID, ticketID, status)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewTicketView(ticket))
}

// @Summary Assign ticket to an agent
// @Tags tickets
// @Router /api/v1/tickets/{id}/assign [put]
func (h *TicketHandler) Assign(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}
	ticketID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	var req transport.TicketAssignRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.AgentID <= 0 {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ticket, err := h.uc.Assign(stdCtx, actorID, ticketID, req.AgentID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewTicketView(ticket))
}

// @Summary Add a milestone
// @Tags tickets
// @Router /api/v1/tickets/{id}/milestones [post]
func (h *TicketHandler) AddMilestone(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}
	ticketID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	var req transport.MilestoneRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ticket, err := h.uc.AddMilestone(stdCtx, actorID, ticketID, ticketUC.MilestoneInput{
		Title:   req.Title,
		DueDate: parseDueDate(req.DueDate),
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, transport.NewTicketView(ticket))
}

// @Summary Complete a milestone by position
// @Tags tickets
// @Router /api/v1/tickets/{id}/milestones/{index}/complete [put]
func (h *TicketHandler) CompleteMilestone(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}
	ticketID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}
	raw, _ := ctx.UserValue("index").(string)
	index := parseInt(raw, -1)
	if index < 0 {
		h.respondInvalid(ctx, "invalid index")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ticket, err := h.uc.CompleteMilestone(stdCtx, actorID, ticketID, index)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewTicketView(ticket))
}

// @Summary Reply to a ticket
// @Tags tickets
// @Router /api/v1/tickets/{id}/replies [post]
func (h *TicketHandler) AddReply(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}
	ticketID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	var req transport.ReplyRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	reply, err := h.uc.AddReply(stdCtx, actorID, ticketID, req.Body)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, transport.NewReplyView(reply))
}

// @Summary Upload an attachment
// @Tags tickets
// @Router /api/v1/tickets/{id}/attachments [post]
func (h *TicketHandler) AddAttachment(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}
	ticketID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		h.respondInvalid(ctx, "missing file")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.respondInvalid(ctx, "unreadable file")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	input := ticketUC.AttachmentInput{
		TicketID:    ticketID,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}
	if replyID := parseInt64(string(ctx.FormValue("reply_id"))); replyID > 0 {
		input.ReplyID = &replyID
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	attachment, err := h.uc.AddAttachment(stdCtx, actorID, input)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, transport.NewAttachmentView(attachment))
}

// @Summary Download an attachment
// @Tags tickets
// @Router /api/v1/tickets/{id}/attachments/{attachment_id} [get]
func (h *TicketHandler) DownloadAttachment(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}
	ticketID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}
	attachmentID, ok := h.pathID(ctx, "attachment_id")
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	attachment, data, err := h.uc.OpenAttachment(stdCtx, actorID, ticketID, attachmentID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.Response.Header.SetContentType(attachment.ContentType)
	ctx.Response.Header.Set("Content-Disposition", `attachment; filename="`+attachment.OriginalFilename+`"`)
	ctx.SetStatusCode(http.StatusOK)
	ctx.SetBody(data)
}

// @Summary Delete ticket
// @Tags tickets
// @Router /api/v1/tickets/{id} [delete]
func (h *TicketHandler) Delete(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}
	ticketID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Delete(stdCtx, actorID, ticketID); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

func parseDueDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return &parsed
	}
	return nil
}
