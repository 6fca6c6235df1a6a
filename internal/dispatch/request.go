package dispatch

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"hookcast/internal/payload"
)

// Request describes one outbound HTTP operation, owned by its future.
type Request struct {
	ID     string
	Method string
	URL    string
	Body   *payload.Body
	Header http.Header

	ctx    context.Context
	cancel context.CancelFunc
	future *Future
}

// NewRequest builds a pending request and its accompanying future.
// Nothing happens until the request is handed to a Dispatcher.
func NewRequest(ctx context.Context, method, url string, body *payload.Body) *Request {
	if ctx == nil {
		ctx = context.Background()
	}
	rctx, cancel := context.WithCancel(ctx)
	r := &Request{
		ID:     uuid.NewString(),
		Method: method,
		URL:    url,
		Body:   body,
		Header: make(http.Header),
		ctx:    rctx,
		cancel: cancel,
	}
	r.future = newFuture(r)
	return r
}

// Future returns the completion handle for this request.
func (r *Request) Future() *Future { return r.future }

// abort cancels the request's context, interrupting an in-flight HTTP
// exchange or a rate-limit wait. Best-effort: the endpoint may already
// have received the request.
func (r *Request) abort() {
	if r.cancel != nil {
		r.cancel()
	}
}
