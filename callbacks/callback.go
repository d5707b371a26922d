// Package callbacks provides observers of the orchestration turn.
package callbacks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/effective-security/calagent/dispatcher"
	"github.com/effective-security/calagent/pkg/llms"
	"github.com/effective-security/calagent/pkg/llmutils"
	"github.com/effective-security/xlog"
	"github.com/fatih/color"
)

// ensure that the callbacks implement the correct interfaces
var (
	_ dispatcher.Callback = (*Noop)(nil)
	_ dispatcher.Callback = (*Printer)(nil)
	_ dispatcher.Callback = (*PackageLogger)(nil)
	_ dispatcher.Callback = (*Fanout)(nil)
	_ dispatcher.Callback = (*Scratchpad)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault is the default mode for callback printing
	ModeDefault Mode = iota
	// ModeVerbose is the verbose mode for callback printing
	ModeVerbose
)

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []dispatcher.Callback
}

func NewFanout(callbacks ...dispatcher.Callback) *Fanout {
	return &Fanout{callbacks: callbacks}
}

// Add must not be called while a turn is running.
func (l *Fanout) Add(callback dispatcher.Callback) {
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) OnModelCallStart(ctx context.Context, model llms.Model, messages []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnModelCallStart(ctx, model, messages)
	}
}

func (l *Fanout) OnModelCallEnd(ctx context.Context, model llms.Model, resp llms.Response) {
	for _, callback := range l.callbacks {
		callback.OnModelCallEnd(ctx, model, resp)
	}
}

func (l *Fanout) OnModelCallError(ctx context.Context, model llms.Model, err error) {
	for _, callback := range l.callbacks {
		callback.OnModelCallError(ctx, model, err)
	}
}

func (l *Fanout) OnToolRejected(ctx context.Context, outcome *dispatcher.Outcome) {
	for _, callback := range l.callbacks {
		callback.OnToolRejected(ctx, outcome)
	}
}

func (l *Fanout) OnToolStart(ctx context.Context, req *dispatcher.Request) {
	for _, callback := range l.callbacks {
		callback.OnToolStart(ctx, req)
	}
}

func (l *Fanout) OnToolEnd(ctx context.Context, req *dispatcher.Request, result json.RawMessage) {
	for _, callback := range l.callbacks {
		callback.OnToolEnd(ctx, req, result)
	}
}

func (l *Fanout) OnToolError(ctx context.Context, req *dispatcher.Request, err error) {
	for _, callback := range l.callbacks {
		callback.OnToolError(ctx, req, err)
	}
}

// Noop does nothing.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (l *Noop) OnModelCallStart(ctx context.Context, model llms.Model, messages []llms.Message) {}
func (l *Noop) OnModelCallEnd(ctx context.Context, model llms.Model, resp llms.Response) {}
func (l *Noop) OnModelCallError(ctx context.Context, model llms.Model, err error) {}
func (l *Noop) OnToolRejected(ctx context.Context, outcome *dispatcher.Outcome) {}
func (l *Noop) OnToolStart(ctx context.Context, req *dispatcher.Request) {}
func (l *Noop) OnToolEnd(ctx context.Context, req *dispatcher.Request, result json.RawMessage) {}
func (l *Noop) OnToolError(ctx context.Context, req *dispatcher.Request, err error) {}

var (
	headerColor = color.New(color.FgCyan)
	errorColor  = color.New(color.FgRed)
	warnColor   = color.New(color.FgYellow)
)

// Printer is a callback handler that prints to the Writer.
type Printer struct {
	Out  io.Writer
	Mode Mode

	lock sync.Mutex
}

func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{Out: out, Mode: mode}
}

func (l *Printer) OnModelCallStart(ctx context.Context, model llms.Model, messages []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	headerColor.Fprintf(l.Out, "Model Call: %s model, %d messages\n", model.GetName(), len(messages))
	if l.Mode == ModeVerbose {
		for idx, msg := range messages {
			fmt.Fprintf(l.Out, "[%d] %s: %s\n", idx, msg.Role, llmutils.Truncate(msg.Content, 200))
		}
	}
}

func (l *Printer) OnModelCallEnd(ctx context.Context, model llms.Model, resp llms.Response) {
	l.lock.Lock()
	defer l.lock.Unlock()
	headerColor.Fprintf(l.Out, "Model Call End: %s model, %s\n", model.GetName(), DescribeResponse(resp))
	if l.Mode == ModeVerbose {
		if calls, ok := resp.(*llms.ToolCallsResponse); ok && calls != nil {
			for _, call := range calls.Calls {
				fmt.Fprintln(l.Out, call.String())
			}
		}
	}
}

func (l *Printer) OnModelCallError(ctx context.Context, model llms.Model, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	errorColor.Fprintf(l.Out, "Model Call Error: %s: %s\n", model.GetName(), err.Error())
}

func (l *Printer) OnToolRejected(ctx context.Context, outcome *dispatcher.Outcome) {
	l.lock.Lock()
	defer l.lock.Unlock()
	warnColor.Fprintf(l.Out, "Tool Rejected: %s (%s): %s: %s\n",
		outcome.Request.ToolName, outcome.Request.ID, outcome.Error.Kind, outcome.Error.Message)
}

func (l *Printer) OnToolStart(ctx context.Context, req *dispatcher.Request) {
	l.lock.Lock()
	defer l.lock.Unlock()
	headerColor.Fprintf(l.Out, "Tool Start: %s (%s)\n", req.ToolName, req.ID)
	fmt.Fprintf(l.Out, "Input: %s\n", req.RawArguments)
}

func (l *Printer) OnToolEnd(ctx context.Context, req *dispatcher.Request, result json.RawMessage) {
	l.lock.Lock()
	defer l.lock.Unlock()
	headerColor.Fprintf(l.Out, "Tool End: %s (%s)\n", req.ToolName, req.ID)
	if l.Mode == ModeVerbose {
		fmt.Fprintf(l.Out, "Output: %s\n", llmutils.JSONIndent(string(result)))
	}
}

func (l *Printer) OnToolError(ctx context.Context, req *dispatcher.Request, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	errorColor.Fprintf(l.Out, "Tool Error: %s (%s): %s\n", req.ToolName, req.ID, err.Error())
}

// DescribeResponse returns a short description of the model response.
func DescribeResponse(resp llms.Response) string {
	switch r := resp.(type) {
	case *llms.TextResponse:
		if r != nil {
			return fmt.Sprintf("text, %d chars", len(r.Content))
		}
	case *llms.ToolCallsResponse:
		if r != nil {
			return fmt.Sprintf("%d tool calls", len(r.Calls))
		}
	}
	return "no response"
}

// PackageLogger is a callback handler that prints to the logger.
type PackageLogger struct {
	logger *xlog.PackageLogger
}

func NewPackageLogger(logger *xlog.PackageLogger) *PackageLogger {
	return &PackageLogger{logger: logger}
}

func (l *PackageLogger) OnModelCallStart(ctx context.Context, model llms.Model, messages []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "model_call_start",
		"provider", model.GetProviderType(),
		"model", model.GetName(),
		"messages", len(messages),
	)
}

func (l *PackageLogger) OnModelCallEnd(ctx context.Context, model llms.Model, resp llms.Response) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "model_call_end",
		"model", model.GetName(),
		"response", DescribeResponse(resp),
	)
}

func (l *PackageLogger) OnModelCallError(ctx context.Context, model llms.Model, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "model_call_error",
		"model", model.GetName(),
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnToolRejected(ctx context.Context, outcome *dispatcher.Outcome) {
	l.logger.ContextKV(ctx, xlog.WARNING,
		"event", "tool_rejected",
		"tool", outcome.Request.ToolName,
		"tool_call_id", outcome.Request.ID,
		"kind", outcome.Error.Kind,
		"reason", outcome.Error.Message,
	)
}

func (l *PackageLogger) OnToolStart(ctx context.Context, req *dispatcher.Request) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"tool", req.ToolName,
		"tool_call_id", req.ID,
		"input", req.RawArguments,
	)
}

func (l *PackageLogger) OnToolEnd(ctx context.Context, req *dispatcher.Request, result json.RawMessage) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"tool", req.ToolName,
		"tool_call_id", req.ID,
		"output", string(result),
	)
}

func (l *PackageLogger) OnToolError(ctx context.Context, req *dispatcher.Request, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"tool", req.ToolName,
		"tool_call_id", req.ID,
		"err", err.Error(),
	)
}
