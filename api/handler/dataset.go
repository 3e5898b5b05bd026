package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/deskcore/backend/api/transport"
	"github.com/deskcore/backend/domain"
	"github.com/deskcore/backend/pkg/httpcontext"
	"github.com/deskcore/backend/repository"
	datasetUC "github.com/deskcore/backend/usecase/dataset"
)

type DatasetHandler struct {
	baseHandler
	uc *datasetUC.UseCase
}

func NewDatasetHandler(uc *datasetUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *DatasetHandler {
	return &DatasetHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Create dataset
// @Tags datasets
// @Router /api/v1/datasets [post]
func (h *DatasetHandler) Create(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}

	var req transport.DatasetCreateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	input := datasetUC.CreateInput{
		Name:        req.Name,
		TargetModel: req.TargetModel,
		Metadata:    req.Metadata,
	}
	for _, row := range req.Rows {
		input.Rows = append(input.Rows, datasetUC.RowInput{
			Prompt:    row.Prompt,
			Response:  row.Response,
			Category:  row.Category,
			Semantics: row.Semantics,
		})
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	dataset, err := h.uc.Create(stdCtx, actorID, input)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, transport.NewDatasetView(dataset))
}

// @Summary Get dataset with rows
// @Tags datasets
// @Router /api/v1/datasets/{id} [get]
func (h *DatasetHandler) Get(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}
	datasetID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	dataset, err := h.uc.Get(stdCtx, actorID, datasetID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewDatasetView(dataset))
}

// @Summary List datasets
// @Tags datasets
// @Router /api/v1/datasets [get]
func (h *DatasetHandler) List(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}

	filter := repository.DatasetFilter{
		OwnerID:     parseInt64(string(ctx.QueryArgs().Peek("owner_id"))),
		Status:      string(ctx.QueryArgs().Peek("status")),
		TargetModel: string(ctx.QueryArgs().Peek("target_model")),
		Limit:       parseInt(string(ctx.QueryArgs().Peek("limit")), 50),
		Offset:      parseInt(string(ctx.QueryArgs().Peek("offset")), 0),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.List(stdCtx, actorID, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccessMeta(ctx, http.StatusOK, transport.NewDatasetViews(result.Datasets), transport.ListMeta{
		Total:  result.Total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// @Summary Update dataset fields
// @Tags datasets
// @Router /api/v1/datasets/{id} [put]
func (h *DatasetHandler) Update(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}
	datasetID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	var req transport.DatasetUpdateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	dataset, err := h.uc.Update(stdCtx, actorID, datasetUC.UpdateInput{
		DatasetID:   datasetID,
		Name:        req.Name,
		TargetModel: req.TargetModel,
		Metadata:    req.Metadata,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewDatasetView(dataset))
}

// @Summary Transition dataset status
// @Tags datasets
// @Router /api/v1/datasets/{id}/status [put]
func (h *DatasetHandler) Transition(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}
	datasetID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	var req transport.DatasetTransitionRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}
	status, err := domain.ParseDatasetStatus(req.Status)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	dataset, err := h.uc.Transition(stdCtx, actorID, datasetID, status)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewDatasetView(dataset))
}

// @Summary Append a training row
// @Tags datasets
// @Router /api/v1/datasets/{id}/rows [post]
func (h *DatasetHandler) AddRow(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}
	datasetID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	var req transport.DatasetRowRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	row, err := h.uc.AddRow(stdCtx, actorID, datasetID, datasetUC.RowInput{
		Prompt:    req.Prompt,
		Response:  req.Response,
		Category:  req.Category,
		Semantics: req.Semantics,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, transport.NewDatasetRowView(row))
}

// @Summary Update a training row
// @Tags datasets
// @Router /api/v1/datasets/{id}/rows/{row_id} [put]
func (h *DatasetHandler) UpdateRow(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}
	datasetID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}
	rowID, ok := h.pathID(ctx, "row_id")
	if !ok {
		return
	}

	var req transport.DatasetRowRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	row, err := h.uc.UpdateRow(stdCtx, actorID, datasetID, rowID, datasetUC.RowInput{
		Prompt:    req.Prompt,
		Response:  req.Response,
		Category:  req.Category,
		Semantics: req.Semantics,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewDatasetRowView(row))
}

// @Summary Remove a training row
// @Tags datasets
// @Router /api/v1/datasets/{id}/rows/{row_id} [delete]
func (h *DatasetHandler) RemoveRow(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}
	datasetID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}
	rowID, ok := h.pathID(ctx, "row_id")
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.RemoveRow(stdCtx, actorID, datasetID, rowID); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary Delete dataset
// @Tags datasets
// @Router /api/v1/datasets/{id} [delete]
func (h *DatasetHandler) Delete(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == 0 {
		return
	}
	datasetID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Delete(stdCtx, actorID, datasetID); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}
