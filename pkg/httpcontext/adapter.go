package httpcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	appLogger "github.com/deskcore/backend/pkg/logger"
)

type metaKey struct{}

// Meta is the request metadata carried through the context for logging.
type Meta struct {
	RequestID  string
	RemoteAddr string
	UserAgent  string
}

// FromContext returns the request metadata, or a zero Meta outside a request.
func FromContext(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	meta, _ := ctx.Value(metaKey{}).(Meta)
	return meta
}

// Adapter converts fasthttp.RequestCtx into a stdlib context with deadlines
// and request metadata.
type Adapter struct {
	timeout time.Duration
}

// NewAdapter constructs a new Adapter using the provided timeout.
func NewAdapter(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{timeout: timeout}
}

// Attach creates a context with the adapter's timeout, stamps the request id
// onto the response, and carries request metadata for downstream logging. An
// inbound X-Request-ID is reused so ids correlate across proxies.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	stdCtx, cancel := context.WithTimeout(context.Background(), a.timeout)

	meta := Meta{RequestID: requestID(ctx)}
	if remoteAddr := ctx.RemoteAddr(); remoteAddr != nil {
		meta.RemoteAddr = remoteAddr.String()
	}
	meta.UserAgent = string(ctx.Request.Header.UserAgent())

	stdCtx = appLogger.ContextWithRequestID(stdCtx, meta.RequestID)
	stdCtx = context.WithValue(stdCtx, metaKey{}, meta)
	ctx.Response.Header.Set("X-Request-ID", meta.RequestID)

	return stdCtx, cancel
}

func requestID(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return uuid.NewString()
	}
	if header := strings.TrimSpace(string(ctx.Request.Header.Peek("X-Request-ID"))); header != "" {
		return header
	}
	return uuid.NewString()
}
