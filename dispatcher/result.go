package dispatcher

import (
	"encoding/json"

	"github.com/effective-security/calagent/pkg/llmutils"
)

// Kind is the kind of the orchestration result.
type Kind string

const (
	// KindText is a plain text reply of the model.
	KindText Kind = "text"
	// KindToolResults is a reply with the outcomes of the requested tool calls.
	KindToolResults Kind = "tool_results"
)

// ErrorKind classifies the failure of a tool call.
type ErrorKind string

const (
	// ErrorKindUnsupportedTool is a call of a tool absent from the registry,
	// or of a call type other than function.
	ErrorKindUnsupportedTool ErrorKind = "unsupported_tool"
	// ErrorKindInvalidArguments is a call with arguments that are not a JSON object
	// or do not match the tool parameters.
	ErrorKindInvalidArguments ErrorKind = "invalid_arguments"
	// ErrorKindTransport is a call that got no response from the tool backend.
	ErrorKindTransport ErrorKind = "transport_error"
	// ErrorKindProtocol is a call answered without a result.
	ErrorKindProtocol ErrorKind = "protocol_error"
)

// Request is a tool call requested by the model.
type Request struct {
	ID       string `json:"id" yaml:"id"`
	Type     string `json:"type" yaml:"type"`
	ToolName string `json:"toolName" yaml:"toolName"`
	// RawArguments is the arguments string as produced by the model.
	RawArguments string `json:"rawArguments,omitempty" yaml:"rawArguments,omitempty"`
	// Arguments is nil when RawArguments is not a JSON object.
	Arguments map[string]any `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}

// OutcomeError is the failure of a tool call.
type OutcomeError struct {
	Kind    ErrorKind `json:"kind" yaml:"kind"`
	Message string    `json:"message" yaml:"message"`
}

// Outcome is the result of exactly one tool call.
// Either Result or Error is set.
type Outcome struct {
	Request *Request        `json:"request" yaml:"request"`
	Result  json.RawMessage `json:"result,omitempty" yaml:"result,omitempty"`
	Error   *OutcomeError   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Succeeded returns true if the tool returned a result.
func (o *Outcome) Succeeded() bool {
	return o.Error == nil
}

type yamlOutcome struct {
	Request *Request      `yaml:"request"`
	Result  any           `yaml:"result,omitempty"`
	Error   *OutcomeError `yaml:"error,omitempty"`
}

// MarshalYAML renders the JSON result as a YAML value.
func (o *Outcome) MarshalYAML() (any, error) {
	return &yamlOutcome{
		Request: o.Request,
		Result:  llmutils.DecodeRaw(o.Result),
		Error:   o.Error,
	}, nil
}

// Result is the result of an orchestration turn.
type Result struct {
	Kind Kind `json:"kind" yaml:"kind"`
	// Content is the model reply for KindText.
	Content string `json:"content,omitempty" yaml:"content,omitempty"`
	// AssistantText is the text that came with the tool calls, if any.
	AssistantText string `json:"assistantText,omitempty" yaml:"assistantText,omitempty"`
	// Outcomes are in the order of the calls in the model response.
	Outcomes []*Outcome `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
}

// Failed returns the number of outcomes with an error.
func (r *Result) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			n++
		}
	}
	return n
}
