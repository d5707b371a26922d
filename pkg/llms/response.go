package llms

// Response is the normalized model reply,
// one of *TextResponse or *ToolCallsResponse.
type Response interface {
	// GetContent returns the text content of the response, possibly empty.
	GetContent() string
	isResponse()
}

// TextResponse is a plain text answer.
type TextResponse struct {
	Content string `json:"content"`
}

// GetContent returns the answer text.
func (r *TextResponse) GetContent() string { return r.Content }

func (*TextResponse) isResponse() {}

// ToolCallsResponse is a request to invoke one or more tools.
type ToolCallsResponse struct {
	// Content is the optional assistant text sent along with the calls.
	Content string `json:"content,omitempty"`
	// Calls in the order the model listed them.
	Calls []ToolCall `json:"calls"`
}

// GetContent returns the assistant text sent along with the calls.
func (r *ToolCallsResponse) GetContent() string { return r.Content }

func (*ToolCallsResponse) isResponse() {}

var (
	_ Response = (*TextResponse)(nil)
	_ Response = (*ToolCallsResponse)(nil)
)
