package llms_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/calagent/pkg/llms"
	"github.com/stretchr/testify/assert"
)

func TestMessages(t *testing.T) {
	assert.Equal(t, llms.Message{Role: llms.RoleUser, Content: "hi"}, llms.UserMessage("hi"))
	assert.Equal(t, llms.Message{Role: llms.RoleSystem, Content: "be brief"}, llms.SystemMessage("be brief"))
	assert.Equal(t, llms.Message{Role: llms.RoleAssistant, Content: "ok"}, llms.AssistantMessage("ok"))
	assert.Equal(t, llms.Message{Role: llms.RoleTool, Content: "{}", ToolCallID: "call_1"}, llms.ToolMessage("call_1", "{}"))

	tc := llms.ToolCall{ID: "call_1", Type: "function", Name: "get_event", Arguments: `{"eventId":"e1"}`}
	assert.Equal(t, `ToolCall: call_1 (get_event), input: {"eventId":"e1"}`, tc.String())
}

func TestResponse(t *testing.T) {
	var resp llms.Response = &llms.TextResponse{Content: "hello"}
	assert.Equal(t, "hello", resp.GetContent())

	resp = &llms.ToolCallsResponse{Content: "on it", Calls: []llms.ToolCall{{Name: "list_events"}}}
	assert.Equal(t, "on it", resp.GetContent())

	switch r := resp.(type) {
	case *llms.ToolCallsResponse:
		assert.Len(t, r.Calls, 1)
	default:
		t.Fatalf("unexpected response %T", resp)
	}
}

func TestErrors(t *testing.T) {
	err := llms.TransportError(errors.New("connection refused"))
	assert.True(t, errors.Is(err, llms.ErrTransport))
	assert.False(t, errors.Is(err, llms.ErrMalformedResponse))
	assert.EqualError(t, err, "connection refused")

	err = llms.MalformedResponseError(errors.Wrap(errors.New("no choices"), "decode response"))
	assert.True(t, errors.Is(err, llms.ErrMalformedResponse))
	assert.EqualError(t, err, "decode response: no choices")

	assert.NoError(t, llms.TransportError(nil))
}
