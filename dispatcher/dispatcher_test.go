package dispatcher_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/effective-security/calagent/callbacks"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/calagent/dispatcher"
	"github.com/effective-security/calagent/mcp"
	"github.com/effective-security/calagent/mocks/mockllms"
	"github.com/effective-security/calagent/mocks/mockmcp"
	"github.com/effective-security/calagent/pkg/llms"
	"github.com/effective-security/calagent/pkg/llms/openai"
	"github.com/effective-security/calagent/pkg/llmutils"
	"github.com/effective-security/calagent/tools"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const standupArgs = `{"summary":"Standup","start":{"dateTime":"2025-01-02T10:00:00"},"end":{"dateTime":"2025-01-02T11:00:00"}}`

type recorder struct {
	lock   sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) sorted() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	res := append([]string(nil), r.events...)
	sort.Strings(res)
	return res
}

func (r *recorder) OnModelCallStart(_ context.Context, model llms.Model, messages []llms.Message) {
	r.add("model_start %s %d", model.GetName(), len(messages))
}

func (r *recorder) OnModelCallEnd(_ context.Context, model llms.Model, _ llms.Response) {
	r.add("model_end %s", model.GetName())
}

func (r *recorder) OnModelCallError(_ context.Context, model llms.Model, _ error) {
	r.add("model_error %s", model.GetName())
}

func (r *recorder) OnToolRejected(_ context.Context, o *dispatcher.Outcome) {
	r.add("tool_rejected %s %s", o.Request.ID, o.Error.Kind)
}

func (r *recorder) OnToolStart(_ context.Context, req *dispatcher.Request) {
	r.add("tool_start %s", req.ID)
}

func (r *recorder) OnToolEnd(_ context.Context, req *dispatcher.Request, _ json.RawMessage) {
	r.add("tool_end %s", req.ID)
}

func (r *recorder) OnToolError(_ context.Context, req *dispatcher.Request, _ error) {
	r.add("tool_error %s", req.ID)
}

type fixture struct {
	d         *dispatcher.Dispatcher
	model     *mockllms.MockModel
	transport *mockmcp.MockTransport
	events    *recorder
}

func newFixture(t *testing.T, cfg dispatcher.Config) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	model := mockllms.NewMockModel(ctrl)
	model.EXPECT().GetProviderType().Return(llms.ProviderGroq).AnyTimes()
	model.EXPECT().GetName().Return("llama-3.3-70b-versatile").AnyTimes()

	transport := mockmcp.NewMockTransport(ctrl)
	events := &recorder{}
	if cfg.Callback == nil {
		cfg.Callback = events
	}

	d, err := dispatcher.New(model, tools.Calendar(), transport, cfg)
	require.NoError(t, err)

	return &fixture{
		d:         d,
		model:     model,
		transport: transport,
		events:    events,
	}
}

func (f *fixture) expectModel(resp llms.Response, err error) {
	f.model.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return(resp, err).Times(1)
}

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := mockllms.NewMockModel(ctrl)
	transport := mockmcp.NewMockTransport(ctrl)

	_, err := dispatcher.New(nil, tools.Calendar(), transport, dispatcher.Config{})
	assert.EqualError(t, err, "model is required")
	_, err = dispatcher.New(model, nil, transport, dispatcher.Config{})
	assert.EqualError(t, err, "tool registry is required")
	_, err = dispatcher.New(model, tools.Calendar(), nil, dispatcher.Config{})
	assert.EqualError(t, err, "tool transport is required")
}

func TestHandleUserMessage_Text(t *testing.T) {
	f := newFixture(t, dispatcher.Config{})
	f.expectModel(&llms.TextResponse{Content: "I can only help with calendar tasks."}, nil)
	// no Invoke expected: the mock fails the test on any transport call

	res, err := f.d.HandleUserMessage(context.Background(), "What's the weather?")
	require.NoError(t, err)
	assert.Equal(t, &dispatcher.Result{
		Kind:    dispatcher.KindText,
		Content: "I can only help with calendar tasks.",
	}, res)
	assert.Equal(t, []string{
		"model_end llama-3.3-70b-versatile",
		"model_start llama-3.3-70b-versatile 1",
	}, f.events.sorted())
}

func TestHandleUserMessage_Standup(t *testing.T) {
	f := newFixture(t, dispatcher.Config{})

	f.model.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, messages []llms.Message, defs []llms.ToolDefinition) (llms.Response, error) {
			require.Len(t, messages, 1)
			assert.Equal(t, llms.UserMessage("Schedule a meeting tomorrow at 10am for 1 hour titled Standup"), messages[0])
			assert.Equal(t, tools.Calendar().Definitions(), defs)

			return &llms.ToolCallsResponse{
				Calls: []llms.ToolCall{
					{ID: "call_1", Type: "function", Name: tools.CreateEvent, Arguments: standupArgs},
				},
			}, nil
		}).Times(1)

	f.transport.EXPECT().Invoke(gomock.Any(), tools.CreateEvent, map[string]any{
		"summary": "Standup",
		"start":   map[string]any{"dateTime": "2025-01-02T10:00:00"},
		"end":     map[string]any{"dateTime": "2025-01-02T11:00:00"},
	}).Return(json.RawMessage(`{"id":"evt-1","status":"confirmed"}`), nil).Times(1)

	res, err := f.d.HandleUserMessage(context.Background(), "Schedule a meeting tomorrow at 10am for 1 hour titled Standup")
	require.NoError(t, err)
	assert.Equal(t, dispatcher.KindToolResults, res.Kind)
	assert.Empty(t, res.AssistantText)
	require.Len(t, res.Outcomes, 1)

	o := res.Outcomes[0]
	assert.True(t, o.Succeeded())
	assert.Nil(t, o.Error)
	assert.JSONEq(t, `{"id":"evt-1","status":"confirmed"}`, string(o.Result))
	assert.Equal(t, "call_1", o.Request.ID)
	assert.Equal(t, "function", o.Request.Type)
	assert.Equal(t, tools.CreateEvent, o.Request.ToolName)
	assert.Equal(t, standupArgs, o.Request.RawArguments)
	assert.Equal(t, 0, res.Failed())

	assert.Equal(t, []string{
		"model_end llama-3.3-70b-versatile",
		"model_start llama-3.3-70b-versatile 1",
		"tool_end call_1",
		"tool_start call_1",
	}, f.events.sorted())
}

func TestHandleUserMessage_SystemPrompt(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	f := newFixture(t, dispatcher.Config{
		SystemPrompt: dispatcher.DefaultSystemPrompt,
		Now:          func() time.Time { return now },
	})

	var got []llms.Message
	f.model.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, messages []llms.Message, _ []llms.ToolDefinition) (llms.Response, error) {
			got = messages
			return &llms.TextResponse{Content: "ok"}, nil
		}).Times(1)

	_, err := f.d.HandleUserMessage(context.Background(), "List my events for today")
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, llms.RoleSystem, got[0].Role)
	assert.True(t, strings.HasPrefix(got[0].Content, dispatcher.DefaultSystemPrompt))
	assert.True(t, strings.HasSuffix(got[0].Content, "Today is Wednesday, 2025-01-01."))
	assert.Contains(t, got[0].Content, "Available tools:\n"+tools.Calendar().Describe())
	assert.Contains(t, got[0].Content, `"Name": "list_events"`)
	assert.Equal(t, llms.UserMessage("List my events for today"), got[1])
}

func TestSystemPrompt(t *testing.T) {
	now := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "be brief\n\nToday is Sunday, 2025-03-02.", dispatcher.SystemPrompt("be brief", "", now))
	assert.Equal(t, "be brief\n\nAvailable tools:\n- note\n\nToday is Sunday, 2025-03-02.",
		dispatcher.SystemPrompt("be brief", "- note", now))
}

func TestHandleUserMessage_Empty(t *testing.T) {
	f := newFixture(t, dispatcher.Config{})

	for _, msg := range []string{"", "   ", "\n\t"} {
		res, err := f.d.HandleUserMessage(context.Background(), msg)
		assert.Nil(t, res)
		assert.True(t, errors.Is(err, dispatcher.ErrEmptyMessage))
	}
	assert.Empty(t, f.events.sorted())
}

func TestHandleUserMessage_ModelError(t *testing.T) {
	f := newFixture(t, dispatcher.Config{})
	modelErr := llms.TransportError(errors.New("dial tcp: connection refused"))
	f.expectModel(nil, modelErr)

	res, err := f.d.HandleUserMessage(context.Background(), "Delete my 3pm meeting")
	assert.Nil(t, res)
	assert.Equal(t, modelErr, err)
	assert.True(t, errors.Is(err, llms.ErrTransport))
	assert.Equal(t, []string{
		"model_error llama-3.3-70b-versatile",
		"model_start llama-3.3-70b-versatile 1",
	}, f.events.sorted())
}

func TestHandleUserMessage_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","choices":[]}`))
	}))
	defer srv.Close()

	model, err := openai.New(openai.WithToken("test-key"), openai.WithBaseURL(srv.URL), openai.WithModel("test-model"))
	require.NoError(t, err)

	transport := mcp.TransportFunc(func(context.Context, string, map[string]any) (json.RawMessage, error) {
		t.Fatal("transport must not be called")
		return nil, nil
	})
	d, err := dispatcher.New(model, tools.Calendar(), transport, dispatcher.Config{})
	require.NoError(t, err)

	res, err := d.HandleUserMessage(context.Background(), "What's on my calendar?")
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, llms.ErrMalformedResponse), "unexpected error: %v", err)
}

func TestHandleUserMessage_NilResponse(t *testing.T) {
	for _, resp := range []llms.Response{(*llms.TextResponse)(nil), (*llms.ToolCallsResponse)(nil)} {
		t.Run(fmt.Sprintf("%T", resp), func(t *testing.T) {
			var buf bytes.Buffer
			f := newFixture(t, dispatcher.Config{Callback: callbacks.NewPrinter(&buf, callbacks.ModeVerbose)})
			f.expectModel(resp, nil)

			res, err := f.d.HandleUserMessage(context.Background(), "What's on my calendar?")
			assert.Nil(t, res)
			require.Error(t, err)
			assert.True(t, errors.Is(err, llms.ErrMalformedResponse), "unexpected error: %v", err)
			assert.Contains(t, buf.String(), "no response")
		})
	}
}

func TestDispatch_Rejected(t *testing.T) {
	f := newFixture(t, dispatcher.Config{})
	// no Invoke expected: rejected calls never reach the transport

	res, err := f.d.Dispatch(context.Background(), &llms.ToolCallsResponse{
		Content: "Let me check.",
		Calls: []llms.ToolCall{
			{ID: "c0", Type: "function", Name: "send_email", Arguments: `{"to":"a@example.com"}`},
			{ID: "c1", Type: "code_interpreter", Name: tools.ListEvents},
			{ID: "c2", Type: "function", Name: tools.GetEvent, Arguments: `{"eventId":`},
			{ID: "c3", Type: "function", Name: tools.GetEvent, Arguments: `["evt-1"]`},
			{ID: "c4", Type: "function", Name: tools.GetEvent, Arguments: `null`},
			{ID: "c5", Type: "function", Name: tools.DeleteEvent, Arguments: `{"id":"evt-1"}`},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, dispatcher.KindToolResults, res.Kind)
	assert.Equal(t, "Let me check.", res.AssistantText)
	require.Len(t, res.Outcomes, 6)
	assert.Equal(t, 6, res.Failed())

	kinds := []dispatcher.ErrorKind{
		dispatcher.ErrorKindUnsupportedTool,
		dispatcher.ErrorKindUnsupportedTool,
		dispatcher.ErrorKindInvalidArguments,
		dispatcher.ErrorKindInvalidArguments,
		dispatcher.ErrorKindInvalidArguments,
		dispatcher.ErrorKindInvalidArguments,
	}
	for i, o := range res.Outcomes {
		assert.Equal(t, fmt.Sprintf("c%d", i), o.Request.ID)
		require.NotNil(t, o.Error, "outcome %d", i)
		assert.Equal(t, kinds[i], o.Error.Kind, "outcome %d", i)
		assert.Nil(t, o.Result)
	}
	assert.Equal(t, "tool not found: send_email", res.Outcomes[0].Error.Message)
	assert.Equal(t, "unsupported tool call type: code_interpreter", res.Outcomes[1].Error.Message)
	assert.Contains(t, res.Outcomes[2].Error.Message, "arguments must be a JSON object")
	assert.Nil(t, res.Outcomes[2].Request.Arguments)
	assert.Equal(t, "eventId is required", res.Outcomes[5].Error.Message)
	assert.Equal(t, map[string]any{"id": "evt-1"}, res.Outcomes[5].Request.Arguments)

	assert.Equal(t, []string{
		"tool_rejected c0 unsupported_tool",
		"tool_rejected c1 unsupported_tool",
		"tool_rejected c2 invalid_arguments",
		"tool_rejected c3 invalid_arguments",
		"tool_rejected c4 invalid_arguments",
		"tool_rejected c5 invalid_arguments",
	}, f.events.sorted())
}

func TestDispatch_Isolation(t *testing.T) {
	f := newFixture(t, dispatcher.Config{})

	f.transport.EXPECT().Invoke(gomock.Any(), tools.DeleteEvent, gomock.Any()).
		Return(nil, mcp.TransportError(errors.New("tool backend exited with code 1"))).Times(1)
	f.transport.EXPECT().Invoke(gomock.Any(), tools.GetEvent, gomock.Any()).
		Return(json.RawMessage(`{"id":"evt-2"}`), nil).Times(1)
	f.transport.EXPECT().Invoke(gomock.Any(), tools.UpdateEvent, gomock.Any()).
		Return(nil, mcp.ProtocolError(errors.New("reply has no result"))).Times(1)

	res, err := f.d.Dispatch(context.Background(), &llms.ToolCallsResponse{
		Calls: []llms.ToolCall{
			{ID: "a", Type: "function", Name: tools.DeleteEvent, Arguments: `{"eventId":"evt-1"}`},
			{ID: "b", Type: "function", Name: tools.GetEvent, Arguments: `{"eventId":"evt-2"}`},
			{ID: "c", Type: "function", Name: tools.UpdateEvent, Arguments: `{"eventId":"evt-3","summary":"Retro"}`},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 3)

	exp := []*dispatcher.Outcome{
		{
			Request: &dispatcher.Request{ID: "a", Type: "function", ToolName: tools.DeleteEvent, RawArguments: `{"eventId":"evt-1"}`, Arguments: map[string]any{"eventId": "evt-1"}},
			Error:   &dispatcher.OutcomeError{Kind: dispatcher.ErrorKindTransport, Message: "tool backend exited with code 1"},
		},
		{
			Request: &dispatcher.Request{ID: "b", Type: "function", ToolName: tools.GetEvent, RawArguments: `{"eventId":"evt-2"}`, Arguments: map[string]any{"eventId": "evt-2"}},
			Result:  json.RawMessage(`{"id":"evt-2"}`),
		},
		{
			Request: &dispatcher.Request{ID: "c", Type: "function", ToolName: tools.UpdateEvent, RawArguments: `{"eventId":"evt-3","summary":"Retro"}`, Arguments: map[string]any{"eventId": "evt-3", "summary": "Retro"}},
			Error:   &dispatcher.OutcomeError{Kind: dispatcher.ErrorKindProtocol, Message: "reply has no result"},
		},
	}
	if diff := cmp.Diff(exp, res.Outcomes); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, res.Failed())

	assert.Equal(t, []string{
		"tool_end b",
		"tool_error a",
		"tool_error c",
		"tool_start a",
		"tool_start b",
		"tool_start c",
	}, f.events.sorted())
}

func TestDispatch_OrderAndConcurrency(t *testing.T) {
	for _, limit := range []int{1, 2, 4, 8} {
		t.Run(fmt.Sprintf("limit_%d", limit), func(t *testing.T) {
			f := newFixture(t, dispatcher.Config{Concurrency: limit})

			const count = 8
			var inflight, peak atomic.Int32
			f.transport.EXPECT().Invoke(gomock.Any(), tools.GetEvent, gomock.Any()).DoAndReturn(
				func(_ context.Context, _ string, args map[string]any) (json.RawMessage, error) {
					n := inflight.Add(1)
					defer inflight.Add(-1)
					for {
						p := peak.Load()
						if n <= p || peak.CompareAndSwap(p, n) {
							break
						}
					}
					// later calls finish first
					var idx int
					_, _ = fmt.Sscanf(args["eventId"].(string), "evt-%d", &idx)
					time.Sleep(time.Duration(count-idx) * 5 * time.Millisecond)
					return json.RawMessage(fmt.Sprintf(`{"id":%q}`, args["eventId"])), nil
				}).Times(count)

			calls := make([]llms.ToolCall, count)
			for i := range calls {
				calls[i] = llms.ToolCall{
					ID:        gofakeit.UUID(),
					Name:      tools.GetEvent,
					Arguments: fmt.Sprintf(`{"eventId":"evt-%d"}`, i),
				}
			}

			res, err := f.d.Dispatch(context.Background(), &llms.ToolCallsResponse{Calls: calls})
			require.NoError(t, err)
			require.Len(t, res.Outcomes, count)
			for i, o := range res.Outcomes {
				assert.Equal(t, calls[i].ID, o.Request.ID)
				assert.Equal(t, "function", o.Request.Type)
				assert.JSONEq(t, fmt.Sprintf(`{"id":"evt-%d"}`, i), string(o.Result))
			}
			assert.LessOrEqual(t, peak.Load(), int32(limit))
			assert.GreaterOrEqual(t, peak.Load(), int32(1))
		})
	}
}

func TestDispatch_SynthesizedIDs(t *testing.T) {
	f := newFixture(t, dispatcher.Config{})
	f.transport.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).Times(1)

	res, err := f.d.Dispatch(context.Background(), &llms.ToolCallsResponse{
		Calls: []llms.ToolCall{
			{Name: "send_email"},
			{Name: tools.GetEvent, Arguments: `{"eventId":"evt-1"}`},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 2)
	assert.Equal(t, "send_email_0", res.Outcomes[0].Request.ID)
	assert.Equal(t, "get_event_1", res.Outcomes[1].Request.ID)
	// an empty result is reported as JSON null
	assert.Equal(t, json.RawMessage("null"), res.Outcomes[1].Result)
	assert.True(t, res.Outcomes[1].Succeeded())
}

func TestDispatch_ToolTimeout(t *testing.T) {
	f := newFixture(t, dispatcher.Config{ToolTimeout: 50 * time.Millisecond})

	f.transport.EXPECT().Invoke(gomock.Any(), tools.ListEvents, gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ map[string]any) (json.RawMessage, error) {
			<-ctx.Done()
			return nil, mcp.TransportError(ctx.Err())
		}).Times(1)
	f.transport.EXPECT().Invoke(gomock.Any(), tools.GetEvent, gomock.Any()).
		Return(json.RawMessage(`{"id":"evt-1"}`), nil).Times(1)

	res, err := f.d.Dispatch(context.Background(), &llms.ToolCallsResponse{
		Calls: []llms.ToolCall{
			{ID: "slow", Name: tools.ListEvents, Arguments: `{"timeMin":"2025-01-01T00:00:00Z","timeMax":"2025-02-01T00:00:00Z"}`},
			{ID: "fast", Name: tools.GetEvent, Arguments: `{"eventId":"evt-1"}`},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 2)
	require.NotNil(t, res.Outcomes[0].Error)
	assert.Equal(t, dispatcher.ErrorKindTransport, res.Outcomes[0].Error.Kind)
	assert.Equal(t, "context deadline exceeded", res.Outcomes[0].Error.Message)
	assert.True(t, res.Outcomes[1].Succeeded())
}

func TestDispatch_Cancelled(t *testing.T) {
	f := newFixture(t, dispatcher.Config{})
	// no Invoke expected: the turn is already cancelled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.d.Dispatch(ctx, &llms.ToolCallsResponse{
		Calls: []llms.ToolCall{
			{ID: "a", Name: tools.GetEvent, Arguments: `{"eventId":"evt-1"}`},
			{ID: "b", Name: tools.DeleteEvent, Arguments: `{"eventId":"evt-2"}`},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 2)
	for _, o := range res.Outcomes {
		require.NotNil(t, o.Error)
		assert.Equal(t, dispatcher.ErrorKindTransport, o.Error.Kind)
		assert.Equal(t, "tool call cancelled: context canceled", o.Error.Message)
	}
}

func TestDispatch_Responses(t *testing.T) {
	f := newFixture(t, dispatcher.Config{})

	res, err := f.d.Dispatch(context.Background(), &llms.ToolCallsResponse{Content: "Nothing to do."})
	require.NoError(t, err)
	assert.Equal(t, &dispatcher.Result{Kind: dispatcher.KindText, Content: "Nothing to do."}, res)

	for _, resp := range []llms.Response{
		nil,
		(*llms.TextResponse)(nil),
		(*llms.ToolCallsResponse)(nil),
	} {
		res, err = f.d.Dispatch(context.Background(), resp)
		require.Error(t, err, "%T", resp)
		assert.Nil(t, res)
		assert.True(t, errors.Is(err, llms.ErrMalformedResponse))
		assert.EqualError(t, err, "model returned no response")
	}
}

func TestResult_Encoding(t *testing.T) {
	res := &dispatcher.Result{
		Kind:          dispatcher.KindToolResults,
		AssistantText: "Done.",
		Outcomes: []*dispatcher.Outcome{
			{
				Request: &dispatcher.Request{ID: "a", Type: "function", ToolName: tools.GetEvent, RawArguments: `{"eventId":"evt-1"}`, Arguments: map[string]any{"eventId": "evt-1"}},
				Result:  json.RawMessage(`{"id":"evt-1","summary":"Standup"}`),
			},
			{
				Request: &dispatcher.Request{ID: "b", Type: "function", ToolName: "send_email"},
				Error:   &dispatcher.OutcomeError{Kind: dispatcher.ErrorKindUnsupportedTool, Message: "tool not found: send_email"},
			},
		},
	}

	assert.JSONEq(t, `{
		"kind": "tool_results",
		"assistantText": "Done.",
		"outcomes": [
			{
				"request": {"id":"a","type":"function","toolName":"get_event","rawArguments":"{\"eventId\":\"evt-1\"}","arguments":{"eventId":"evt-1"}},
				"result": {"id":"evt-1","summary":"Standup"}
			},
			{
				"request": {"id":"b","type":"function","toolName":"send_email"},
				"error": {"kind":"unsupported_tool","message":"tool not found: send_email"}
			}
		]
	}`, llmutils.ToJSON(res))

	yml := llmutils.ToYAML(res)
	assert.Contains(t, yml, "kind: tool_results\n")
	assert.Contains(t, yml, "summary: Standup")
	assert.Contains(t, yml, "kind: unsupported_tool")
	assert.NotContains(t, yml, "- 123")

	text := &dispatcher.Result{Kind: dispatcher.KindText, Content: "Hello"}
	assert.JSONEq(t, `{"kind":"text","content":"Hello"}`, llmutils.ToJSON(text))
	assert.Equal(t, "kind: text\ncontent: Hello\n", llmutils.ToYAML(text))
}
