package llms

import (
	"context"

	"github.com/invopop/jsonschema"
)

// ProviderType is the type of provider.
type ProviderType string

const (
	// ProviderOpenAI is the OpenAI chat completions API.
	ProviderOpenAI ProviderType = "OPENAI"
	// ProviderGroq is the Groq OpenAI-compatible API.
	ProviderGroq ProviderType = "GROQ"
)

// ToolChoiceAuto lets the model decide between text and tool calls.
const ToolChoiceAuto = "auto"

// ToolTypeFunction is the only tool call type the dispatcher executes.
const ToolTypeFunction = "function"

//go:generate mockgen -source=llms.go -destination=../../mocks/mockllms/llms_mock.gen.go -package mockllms

// Model is the interface chat model clients implement.
type Model interface {
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// GetName returns the model name used for requests.
	GetName() string
	// Complete sends the conversation and the tool catalog to the model
	// and returns the normalized response.
	// A single attempt is made, the caller decides whether to retry.
	Complete(ctx context.Context, messages []Message, tools []ToolDefinition) (Response, error)
}

// ToolDefinition is a tool the model may request.
type ToolDefinition struct {
	// Name is unique across the registry.
	Name string `json:"name" yaml:"name"`
	// Description is used by the model to decide when to call the tool.
	Description string `json:"description" yaml:"description"`
	// Parameters is the JSON schema of the tool arguments.
	Parameters *jsonschema.Schema `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}
