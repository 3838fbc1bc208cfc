package approval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// ConsoleHandler prompts a local operator on stdin/stdout — intended for
// local/dev runs where no HTTP surface is attached.
type ConsoleHandler struct {
	out io.Writer
	in  *bufio.Reader
}

// NewConsoleHandler builds a ConsoleHandler reading from in and writing
// prompts to out.
func NewConsoleHandler(in io.Reader, out io.Writer) *ConsoleHandler {
	return &ConsoleHandler{out: out, in: bufio.NewReader(in)}
}

// RequestApproval prints the request and blocks on a single line of input:
// "y"/"yes" approves, anything else rejects. ctx's deadline is not enforced
// at the socket level; a blocked read simply outlives the Gate's own select
// and the caller observes a TIMED_OUT response instead.
func (h *ConsoleHandler) RequestApproval(ctx context.Context, req Request, _ time.Duration) (Response, error) {
	fmt.Fprintf(h.out, "\n--- approval requested: %s / %s ---\n%s\n", req.WorkflowID, req.TaskName, req.Content)
	fmt.Fprint(h.out, "approve? [y/N]: ")

	lineCh := make(chan string, 1)
	go func() {
		line, _ := h.in.ReadString('\n')
		lineCh <- line
	}()

	select {
	case line := <-lineCh:
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer == "y" || answer == "yes" {
			return Response{State: StateApproved}, nil
		}
		return Response{State: StateRejected}, nil
	case <-ctx.Done():
		return Response{State: StateCancelled}, ctx.Err()
	}
}

// IsInteractive reports that this handler requires a human at a terminal.
func (h *ConsoleHandler) IsInteractive() bool { return true }

// Description identifies this handler for logging/diagnostics.
func (h *ConsoleHandler) Description() string { return "console approval handler" }
