package callbacks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/effective-security/calagent/dispatcher"
	"github.com/effective-security/calagent/pkg/llms"
	"github.com/effective-security/calagent/pkg/llmutils"
)

var TimeNowFn = time.Now

// TurnStats are the counters of one orchestration turn.
type TurnStats struct {
	TurnID   string
	Duration time.Duration

	ModelCalls          uint32
	ModelCallsFailed    uint32
	TotalMessages       uint32
	ToolCallsRequested  uint32
	ToolCalls           uint32
	ToolCallsSucceeded  uint32
	ToolCallsFailed     uint32
	ToolCallsNotFound   uint32
	ToolCallsInvalid    uint32
	ToolResultBytes     uint64
	ModelResponseLength uint64
}

// Scratchpad records a trace and the stats of a turn.
// Events received outside of StartTurn and EndTurn are ignored.
type Scratchpad struct {
	mode Mode
	lock sync.Mutex
	turn *turn
}

func NewScratchpad(mode Mode) *Scratchpad {
	return &Scratchpad{
		mode: mode,
	}
}

// StartTurn starts recording, a previous unfinished turn is discarded.
func (l *Scratchpad) StartTurn(turnID string) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.turn = &turn{
		stats: TurnStats{
			TurnID: turnID,
		},
		started: time.Now(),
	}
	l.turn.print("*** Turn Started ***")
}

// EndTurn stops recording and returns the stats and the trace of the turn.
func (l *Scratchpad) EndTurn() (*TurnStats, []byte) {
	l.lock.Lock()
	t := l.turn
	l.turn = nil
	l.lock.Unlock()

	if t == nil {
		return nil, nil
	}

	stats := t.stats
	stats.Duration = time.Since(t.started)

	t.print(fmt.Sprintf("Model calls: %d, Failed: %d, Messages: %d, Response length: %d",
		stats.ModelCalls,
		stats.ModelCallsFailed,
		stats.TotalMessages,
		stats.ModelResponseLength,
	))
	t.print(fmt.Sprintf("Tool calls: %d, Executed: %d, Succeeded: %d, Failed: %d, Not Found: %d, Invalid: %d",
		stats.ToolCallsRequested,
		stats.ToolCalls,
		stats.ToolCallsSucceeded,
		stats.ToolCallsFailed,
		stats.ToolCallsNotFound,
		stats.ToolCallsInvalid,
	))
	t.print(fmt.Sprintf("*** Turn Ended. Duration: %s ***", stats.Duration))

	return &stats, t.w.Bytes()
}

func (l *Scratchpad) current() *turn {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.turn
}

func (l *Scratchpad) OnModelCallStart(ctx context.Context, model llms.Model, messages []llms.Message) {
	t := l.current()
	if t == nil {
		return
	}
	atomic.AddUint32(&t.stats.ModelCalls, 1)
	atomic.AddUint32(&t.stats.TotalMessages, uint32(len(messages)))

	t.print("*** Model Call ***", fmt.Sprintf("%s model, %d messages", model.GetName(), len(messages)))
	if l.mode == ModeVerbose {
		for idx, msg := range messages {
			t.print(fmt.Sprintf("[%d] %s:", idx, msg.Role), msg.Content)
		}
	}
}

func (l *Scratchpad) OnModelCallEnd(ctx context.Context, model llms.Model, resp llms.Response) {
	t := l.current()
	if t == nil {
		return
	}
	atomic.AddUint64(&t.stats.ModelResponseLength, uint64(len(resp.GetContent())))
	if calls, ok := resp.(*llms.ToolCallsResponse); ok {
		atomic.AddUint32(&t.stats.ToolCallsRequested, uint32(len(calls.Calls)))
		if l.mode == ModeVerbose {
			for _, call := range calls.Calls {
				t.print("  -", call.String())
			}
		}
	}
	t.print("*** Model Call End ***", fmt.Sprintf("%s model, %s", model.GetName(), DescribeResponse(resp)))
}

func (l *Scratchpad) OnModelCallError(ctx context.Context, model llms.Model, err error) {
	t := l.current()
	if t == nil {
		return
	}
	atomic.AddUint32(&t.stats.ModelCallsFailed, 1)
	t.print("*** Model Call Error ***", model.GetName(), err.Error())
}

func (l *Scratchpad) OnToolRejected(ctx context.Context, outcome *dispatcher.Outcome) {
	t := l.current()
	if t == nil {
		return
	}
	if outcome.Error.Kind == dispatcher.ErrorKindUnsupportedTool {
		atomic.AddUint32(&t.stats.ToolCallsNotFound, 1)
	} else {
		atomic.AddUint32(&t.stats.ToolCallsInvalid, 1)
	}
	t.print(outcome.Request.ToolName, "*** Tool Rejected ***", string(outcome.Error.Kind), outcome.Error.Message)
}

func (l *Scratchpad) OnToolStart(ctx context.Context, req *dispatcher.Request) {
	t := l.current()
	if t == nil {
		return
	}
	atomic.AddUint32(&t.stats.ToolCalls, 1)
	t.print(req.ToolName, "*** Tool Start ***", req.ID)
	t.print(req.ToolName, "Input:", req.RawArguments)
}

func (l *Scratchpad) OnToolEnd(ctx context.Context, req *dispatcher.Request, result json.RawMessage) {
	t := l.current()
	if t == nil {
		return
	}
	atomic.AddUint32(&t.stats.ToolCallsSucceeded, 1)
	atomic.AddUint64(&t.stats.ToolResultBytes, uint64(len(result)))
	if l.mode == ModeVerbose {
		t.print(req.ToolName, "Output:", llmutils.ToJSON(llmutils.DecodeRaw(result)))
	}
	t.print(req.ToolName, "*** Tool End ***", req.ID)
}

func (l *Scratchpad) OnToolError(ctx context.Context, req *dispatcher.Request, err error) {
	t := l.current()
	if t == nil {
		return
	}
	atomic.AddUint32(&t.stats.ToolCallsFailed, 1)
	t.print(req.ToolName, "*** Tool Error ***", req.ID, err.Error())
}

type turn struct {
	w       bytes.Buffer
	started time.Time
	lock    sync.Mutex
	stats   TurnStats
}

// print writes the entries to the turn's output.
// The entries are written in the following format:
// [timestamp turnID] entry entry\n
func (t *turn) print(entries ...string) {
	t.lock.Lock()
	defer t.lock.Unlock()

	now := TimeNowFn()
	ts := now.Format("2006-01-02 15:04:05")

	_, _ = t.w.WriteString(ts)
	_, _ = t.w.WriteString(" ")
	_, _ = t.w.WriteString(t.stats.TurnID)
	_, _ = t.w.WriteString(" ")

	for i, entry := range entries {
		if i > 0 {
			_, _ = t.w.WriteString(" ")
		}
		_, _ = t.w.WriteString(entry)
	}
	_, _ = t.w.WriteString("\n")
}
