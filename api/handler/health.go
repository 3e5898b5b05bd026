package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/deskcore/backend/api/transport"
	"github.com/deskcore/backend/internal/infrastructure/monitor"
	"github.com/deskcore/backend/pkg/httpcontext"
)

type HealthHandler struct {
	baseHandler
	monitor *monitor.Monitor
}

type healthReport struct {
	Status    string               `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
	LastCheck time.Time            `json:"last_check"`
	Services  map[string]serviceUp `json:"services"`
}

type serviceUp struct {
	Online bool `json:"online"`
	Count  *int `json:"attachments,omitempty"`
}

func NewHealthHandler(mon *monitor.Monitor, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
	}
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	count := status.AttachmentCount
	report := healthReport{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		LastCheck: status.LastCheck,
		Services: map[string]serviceUp{
			"postgresql": {Online: status.PostgreSQL},
			"redis":      {Online: status.Redis},
			"blob_store": {Online: status.BlobStore, Count: &count},
		},
	}

	// The blob store is optional for read traffic, so only the primary
	// stores gate availability.
	if !status.PostgreSQL || !status.Redis {
		report.Status = "degraded"
		h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewError("DEGRADED", "dependencies unhealthy", report))
		return
	}
	h.respondSuccess(ctx, http.StatusOK, report)
}
