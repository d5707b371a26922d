package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/calagent/mcp"
	"github.com/effective-security/calagent/pkg/llms"
	"github.com/effective-security/calagent/pkg/metricskey"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"golang.org/x/sync/errgroup"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/calagent", "dispatcher")

// ErrEmptyMessage is returned for a blank user message.
var ErrEmptyMessage = errors.New("message is required")

const (
	// DefaultToolTimeout limits a single tool call.
	DefaultToolTimeout = 30 * time.Second
	// DefaultConcurrency is the number of tool calls executed at once.
	DefaultConcurrency = 4
)

// Registry is the catalog of tools the model may call.
type Registry interface {
	Definitions() []llms.ToolDefinition
	IsSupported(name string) bool
	Validate(name string, args map[string]any) error
	// Describe lists the tools for the system prompt.
	Describe() string
}

// Config of the dispatcher.
type Config struct {
	// SystemPrompt is sent before the user message, followed by the tool list
	// and the current date. Empty means no system message.
	SystemPrompt string
	// ToolTimeout limits every tool call, defaults to DefaultToolTimeout.
	ToolTimeout time.Duration
	// Concurrency limits the tool calls executed at once, defaults to DefaultConcurrency.
	// Set to 1 to execute the calls sequentially.
	Concurrency int
	// Callback is optional.
	Callback Callback
	// Now defaults to time.Now.
	Now func() time.Time
}

// Dispatcher runs orchestration turns.
// It holds no per-turn state and is safe for concurrent use.
type Dispatcher struct {
	model     llms.Model
	registry  Registry
	transport mcp.Transport
	cfg       Config
}

// New returns a dispatcher.
func New(model llms.Model, registry Registry, transport mcp.Transport, cfg Config) (*Dispatcher, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if transport == nil {
		return nil, errors.New("tool transport is required")
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = DefaultToolTimeout
	}
	cfg.Concurrency = values.NumbersCoalesce(max(cfg.Concurrency, 0), DefaultConcurrency)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Dispatcher{
		model:     model,
		registry:  registry,
		transport: transport,
		cfg:       cfg,
	}, nil
}

// HandleUserMessage runs one orchestration turn for the message.
// A model failure is returned as is, every other failure is recorded
// in the outcome of the tool call that caused it.
func (d *Dispatcher) HandleUserMessage(ctx context.Context, message string) (*Result, error) {
	started := time.Now()
	res, err := d.handleUserMessage(ctx, message)
	if err != nil {
		metricskey.PerfTurn.MeasureSince(started, "failed")
		return nil, err
	}
	metricskey.PerfTurn.MeasureSince(started, "succeeded")
	metricskey.StatsTurnsSucceeded.IncrCounter(1, string(res.Kind))
	return res, nil
}

func (d *Dispatcher) handleUserMessage(ctx context.Context, message string) (*Result, error) {
	if strings.TrimSpace(message) == "" {
		metricskey.StatsTurnsFailed.IncrCounter(1, "empty_message")
		return nil, ErrEmptyMessage
	}

	resp, err := d.complete(ctx, d.conversation(message))
	if err != nil {
		metricskey.StatsTurnsFailed.IncrCounter(1, "model_error")
		return nil, err
	}

	res, err := d.Dispatch(ctx, resp)
	if err != nil {
		metricskey.StatsTurnsFailed.IncrCounter(1, "malformed_response")
		return nil, err
	}
	return res, nil
}

func (d *Dispatcher) complete(ctx context.Context, messages []llms.Message) (llms.Response, error) {
	provider := string(d.model.GetProviderType())
	modelName := d.model.GetName()

	if d.cfg.Callback != nil {
		d.cfg.Callback.OnModelCallStart(ctx, d.model, messages)
	}

	started := time.Now()
	resp, err := d.model.Complete(ctx, messages, d.registry.Definitions())
	metricskey.PerfModelCall.MeasureSince(started, provider, modelName)

	if err != nil {
		metricskey.StatsModelCallsFailed.IncrCounter(1, provider, modelName)
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "model_call_failed",
			"model", modelName,
			"err", err.Error(),
		)
		if d.cfg.Callback != nil {
			d.cfg.Callback.OnModelCallError(ctx, d.model, err)
		}
		return nil, err
	}
	metricskey.StatsModelCallsSucceeded.IncrCounter(1, provider, modelName)

	if d.cfg.Callback != nil {
		d.cfg.Callback.OnModelCallEnd(ctx, d.model, resp)
	}
	return resp, nil
}

// Dispatch builds the result of the model response,
// executing the requested tool calls.
func (d *Dispatcher) Dispatch(ctx context.Context, resp llms.Response) (*Result, error) {
	switch r := resp.(type) {
	case *llms.TextResponse:
		if r == nil {
			return nil, llms.MalformedResponseError(errors.New("model returned no response"))
		}
		return &Result{Kind: KindText, Content: r.Content}, nil
	case *llms.ToolCallsResponse:
		if r == nil {
			return nil, llms.MalformedResponseError(errors.New("model returned no response"))
		}
		if len(r.Calls) == 0 {
			return &Result{Kind: KindText, Content: r.Content}, nil
		}
		return &Result{
			Kind:          KindToolResults,
			AssistantText: r.Content,
			Outcomes:      d.executeToolCalls(ctx, r.Calls),
		}, nil
	case nil:
		return nil, llms.MalformedResponseError(errors.New("model returned no response"))
	default:
		return nil, llms.MalformedResponseError(errors.Newf("unsupported model response: %T", resp))
	}
}

// executeToolCalls returns exactly one outcome per call, in the order of calls.
func (d *Dispatcher) executeToolCalls(ctx context.Context, calls []llms.ToolCall) []*Outcome {
	outcomes := make([]*Outcome, len(calls))

	var g errgroup.Group
	g.SetLimit(d.cfg.Concurrency)

	for i, call := range calls {
		req := newRequest(i, call)

		logger.ContextKV(ctx, xlog.DEBUG,
			"status", "tool_call_found",
			"tool_call_id", req.ID,
			"tool_call_name", req.ToolName,
		)

		if rejected := d.validate(ctx, req); rejected != nil {
			outcomes[i] = rejected
			continue
		}

		g.Go(func() error {
			outcomes[i] = d.execute(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func newRequest(index int, call llms.ToolCall) *Request {
	return &Request{
		ID:           values.StringsCoalesce(call.ID, fmt.Sprintf("%s_%d", call.Name, index)),
		Type:         values.StringsCoalesce(call.Type, llms.ToolTypeFunction),
		ToolName:     call.Name,
		RawArguments: call.Arguments,
	}
}

// validate parses the arguments of the request,
// and returns a non-nil outcome if the call must not be executed.
func (d *Dispatcher) validate(ctx context.Context, req *Request) *Outcome {
	if req.Type != llms.ToolTypeFunction {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, req.ToolName)
		return d.reject(ctx, req, ErrorKindUnsupportedTool, "unsupported tool call type: "+req.Type)
	}
	if !d.registry.IsSupported(req.ToolName) {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, req.ToolName)
		return d.reject(ctx, req, ErrorKindUnsupportedTool, "tool not found: "+req.ToolName)
	}

	args, err := parseArguments(req.RawArguments)
	if err != nil {
		metricskey.StatsToolCallsInvalidArguments.IncrCounter(1, req.ToolName)
		return d.reject(ctx, req, ErrorKindInvalidArguments, err.Error())
	}
	req.Arguments = args

	if err := d.registry.Validate(req.ToolName, args); err != nil {
		metricskey.StatsToolCallsInvalidArguments.IncrCounter(1, req.ToolName)
		return d.reject(ctx, req, ErrorKindInvalidArguments, err.Error())
	}
	return nil
}

func (d *Dispatcher) reject(ctx context.Context, req *Request, kind ErrorKind, msg string) *Outcome {
	logger.ContextKV(ctx, xlog.WARNING,
		"status", "tool_call_rejected",
		"tool_call_id", req.ID,
		"tool_call_name", req.ToolName,
		"kind", kind,
		"reason", msg,
	)
	o := &Outcome{
		Request: req,
		Error: &OutcomeError{
			Kind:    kind,
			Message: msg,
		},
	}
	if d.cfg.Callback != nil {
		d.cfg.Callback.OnToolRejected(ctx, o)
	}
	return o
}

// parseArguments decodes the arguments string, which must be a JSON object.
// Empty arguments are an empty object.
func parseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, errors.Wrap(err, "arguments must be a JSON object")
	}
	if args == nil {
		return nil, errors.New("arguments must be a JSON object")
	}
	return args, nil
}

func (d *Dispatcher) execute(ctx context.Context, req *Request) *Outcome {
	if err := ctx.Err(); err != nil {
		return d.failed(ctx, req, mcp.TransportError(errors.Wrap(err, "tool call cancelled")))
	}

	if d.cfg.Callback != nil {
		d.cfg.Callback.OnToolStart(ctx, req)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.cfg.ToolTimeout)
	defer cancel()

	started := time.Now()
	res, err := d.transport.Invoke(callCtx, req.ToolName, req.Arguments)
	metricskey.PerfToolCall.MeasureSince(started, req.ToolName)

	if err != nil {
		return d.failed(ctx, req, err)
	}
	if len(res) == 0 {
		res = json.RawMessage("null")
	}
	metricskey.StatsToolCallsSucceeded.IncrCounter(1, req.ToolName)

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "tool_call_succeeded",
		"tool_call_id", req.ID,
		"tool_call_name", req.ToolName,
		"elapsed", time.Since(started).String(),
	)

	if d.cfg.Callback != nil {
		d.cfg.Callback.OnToolEnd(ctx, req, res)
	}
	return &Outcome{
		Request: req,
		Result:  res,
	}
}

func (d *Dispatcher) failed(ctx context.Context, req *Request, err error) *Outcome {
	kind := ErrorKindTransport
	if errors.Is(err, mcp.ErrProtocol) {
		kind = ErrorKindProtocol
	}
	metricskey.StatsToolCallsFailed.IncrCounter(1, req.ToolName, string(kind))

	logger.ContextKV(ctx, xlog.WARNING,
		"status", "tool_call_failed",
		"tool_call_id", req.ID,
		"tool_call_name", req.ToolName,
		"kind", kind,
		"err", err.Error(),
	)

	if d.cfg.Callback != nil {
		d.cfg.Callback.OnToolError(ctx, req, err)
	}
	return &Outcome{
		Request: req,
		Error: &OutcomeError{
			Kind:    kind,
			Message: err.Error(),
		},
	}
}
