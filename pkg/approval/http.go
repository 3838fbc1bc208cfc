package approval

import (
	"context"
	"sync"
	"time"
)

// HTTPHandler is the non-interactive collaborator used when approvals are
// decided out-of-band by a POST /v1/approvals/:gate_id/decision request (wired by
// cmd/agentcored's router, which calls Gate.Resolve directly). Its
// RequestApproval never produces a decision itself; it only participates in
// the Gate's timeout race, so a request that nobody ever decides still
// times out cleanly. It additionally tracks every request currently
// in-flight so the router can expose a GET /v1/approvals listing — the Gate
// itself mints a fresh GateID per request and never hands it back to its
// caller, so without this listing an HTTP client would have no way to learn
// which id to decide on.
type HTTPHandler struct {
	mu      sync.Mutex
	pending map[string]Request
}

// NewHTTPHandler returns an HTTPHandler.
func NewHTTPHandler() *HTTPHandler { return &HTTPHandler{pending: make(map[string]Request)} }

// RequestApproval records req as pending and blocks until ctx is cancelled
// (by the Gate's own timeout), since the actual decision is delivered
// asynchronously via Gate.Resolve.
func (h *HTTPHandler) RequestApproval(ctx context.Context, req Request, _ time.Duration) (Response, error) {
	h.mu.Lock()
	h.pending[req.GateID] = req
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.pending, req.GateID)
		h.mu.Unlock()
	}()

	<-ctx.Done()
	return Response{}, ctx.Err()
}

// Pending returns a snapshot of every approval request currently awaiting a
// decision.
func (h *HTTPHandler) Pending() []Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Request, 0, len(h.pending))
	for _, r := range h.pending {
		out = append(out, r)
	}
	return out
}

// IsInteractive reports that no human is attached synchronously to this
// handler; the decision arrives from a separate HTTP request.
func (h *HTTPHandler) IsInteractive() bool { return false }

// Description identifies this handler for logging/diagnostics.
func (h *HTTPHandler) Description() string { return "http decision-endpoint approval handler" }
