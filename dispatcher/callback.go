package dispatcher

import (
	"context"
	"encoding/json"

	"github.com/effective-security/calagent/pkg/llms"
)

// Callback observes the orchestration turn.
// Tool events are raised from concurrent goroutines.
type Callback interface {
	OnModelCallStart(ctx context.Context, model llms.Model, messages []llms.Message)
	OnModelCallEnd(ctx context.Context, model llms.Model, resp llms.Response)
	OnModelCallError(ctx context.Context, model llms.Model, err error)

	// OnToolRejected is called for a call that was not sent to the transport.
	OnToolRejected(ctx context.Context, outcome *Outcome)
	OnToolStart(ctx context.Context, req *Request)
	OnToolEnd(ctx context.Context, req *Request, result json.RawMessage)
	OnToolError(ctx context.Context, req *Request, err error)
}
