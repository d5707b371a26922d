package llms

import (
	"fmt"
)

// Role is the author of a chat message.
type Role string

const (
	// RoleSystem is a message with instructions for the model.
	RoleSystem Role = "system"
	// RoleUser is a message sent by a human.
	RoleUser Role = "user"
	// RoleAssistant is a message sent by the model.
	RoleAssistant Role = "assistant"
	// RoleTool is a message with the output of a tool.
	RoleTool Role = "tool"
)

// Message is one turn of a conversation.
// The conversation is an ordered slice, the order is the chat turn order.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
	// ToolCallID is set for RoleTool messages.
	ToolCallID string `json:"tool_call_id,omitempty" yaml:"tool_call_id,omitempty"`
}

// UserMessage returns a message from the user.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// SystemMessage returns a system instruction message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// AssistantMessage returns a message from the model.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage returns the output of the tool call with the given ID.
func ToolMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// ToolCall is a call to a tool as requested by the model.
type ToolCall struct {
	// ID is the unique identifier of the tool call.
	ID string `json:"id" yaml:"id"`
	// Type is the type of the tool call, typically "function".
	Type string `json:"type" yaml:"type"`
	// Name is the name of the function to call.
	Name string `json:"name" yaml:"name"`
	// Arguments are the function arguments in the model's serialized form, a JSON string.
	Arguments string `json:"arguments" yaml:"arguments"`
}

func (tc ToolCall) String() string {
	return fmt.Sprintf("ToolCall: %s (%s), input: %s", tc.ID, tc.Name, tc.Arguments)
}
