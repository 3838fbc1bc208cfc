// Package approval implements a per-stage human-in-the-loop gate: generated
// content can be presented to a pluggable handler, blocking the requesting
// worker until a terminal decision or a timeout.
package approval

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tarsy-labs/agentcore/pkg/engineerr"
)

// State is a gate's position in the PENDING -> terminal state machine.
type State string

// The complete state machine.
const (
	StatePending   State = "PENDING"
	StateApproved  State = "APPROVED"
	StateRejected  State = "REJECTED"
	StateTimedOut  State = "TIMED_OUT"
	StateCancelled State = "CANCELLED"
)

// Request is the content a gate presents to a handler for review.
type Request struct {
	GateID      string
	WorkflowID  string
	TaskName    string
	Content     string
	Description string
}

// Response is a handler's terminal decision for one Request.
type Response struct {
	State   State
	Comment string
}

// Handler is the pluggable collaborator a Gate delegates decisions to:
// console, HTTP, or any other out-of-band decision channel behind the same
// two-method interface.
type Handler interface {
	RequestApproval(ctx context.Context, req Request, timeout time.Duration) (Response, error)
	IsInteractive() bool
	Description() string
}

// pending tracks one outstanding gate awaiting a terminal decision via
// Resolve, used by handlers (like the HTTP handler) that receive the
// decision asynchronously on a separate goroutine/request.
type pending struct {
	resultCh chan Response
}

// Gate manages outstanding approval requests and resolves them either
// through a synchronous Handler call or an asynchronous Resolve (the HTTP
// decision endpoint).
type Gate struct {
	handler Handler
	timeout time.Duration

	mu      sync.Mutex
	waiting map[string]*pending
}

// New constructs a Gate backed by the given Handler, using defaultTimeout
// when timeout is zero.
func New(handler Handler, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Gate{
		handler: handler,
		timeout: timeout,
		waiting: make(map[string]*pending),
	}
}

// RequestApproval blocks until the gate reaches a terminal state or timeout
// elapses. When the configured Handler resolves requests
// synchronously (e.g. a console prompt), this simply delegates. When the
// handler is asynchronous (e.g. an HTTP decision endpoint hit by a separate
// request), the gate registers itself so a later call to Resolve can
// deliver the decision.
func (g *Gate) RequestApproval(ctx context.Context, content, taskName, workflowID, description string) (Response, error) {
	req := Request{
		GateID:      uuid.NewString(),
		WorkflowID:  workflowID,
		TaskName:    taskName,
		Content:     content,
		Description: description,
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	p := &pending{resultCh: make(chan Response, 1)}
	g.mu.Lock()
	g.waiting[req.GateID] = p
	g.mu.Unlock()
	defer g.forget(req.GateID)

	type outcome struct {
		resp Response
		err  error
	}
	handlerDone := make(chan outcome, 1)
	go func() {
		resp, err := g.handler.RequestApproval(ctx, req, g.timeout)
		handlerDone <- outcome{resp, err}
	}()

	select {
	case o := <-handlerDone:
		if o.err != nil {
			return Response{}, o.err
		}
		return o.resp, nil
	case resp := <-p.resultCh:
		return resp, nil
	case <-ctx.Done():
		return Response{State: StateTimedOut}, engineerr.New(engineerr.CategoryTimeout, "approval request timed out").WithContext(req.GateID)
	}
}

// Resolve delivers an out-of-band decision (e.g. from cmd/agentcored's
// POST /v1/approvals/:gate_id/decision) to a still-pending gate. Returns false if
// no gate with that id is currently awaiting a decision.
func (g *Gate) Resolve(gateID string, resp Response) bool {
	g.mu.Lock()
	p, ok := g.waiting[gateID]
	g.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case p.resultCh <- resp:
		return true
	default:
		return false
	}
}

func (g *Gate) forget(gateID string) {
	g.mu.Lock()
	delete(g.waiting, gateID)
	g.mu.Unlock()
}

// defaultTimeout bounds a gate's wait when New is given a non-positive
// timeout (cmd/agentcored passes 5 minutes explicitly).
const defaultTimeout = 5 * time.Minute
