package openai

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/calagent/pkg/llms"
	"github.com/effective-security/calagent/pkg/llms/openai/internal/openaiclient"
	"github.com/effective-security/x/values"
	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
)

// ErrEmptyResponse is returned when the API returns no choices.
var ErrEmptyResponse = openaiclient.ErrEmptyResponse

// LLM is a chat model speaking the OpenAI chat completions protocol.
type LLM struct {
	client   *openaiclient.Client
	provider llms.ProviderType

	temperature *float64
	maxTokens   int
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	o, c := newClient(opts...)
	if o.token == "" {
		return nil, errors.New("missing the API token, set it with WithToken or the OPENAI_API_KEY environment variable")
	}
	return &LLM{
		client:      c,
		provider:    o.provider,
		temperature: o.temperature,
		maxTokens:   o.maxTokens,
	}, nil
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return o.provider
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.client.Model
}

// Complete implements the Model interface.
// The tool choice is always automatic: the model decides between text and tool calls.
func (o *LLM) Complete(ctx context.Context, messages []llms.Message, tools []llms.ToolDefinition) (llms.Response, error) {
	req := &openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(o.client.Model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}
	if o.temperature != nil {
		req.Temperature = openai.Float(*o.temperature)
	}
	if o.maxTokens > 0 {
		req.MaxTokens = openai.Int(int64(o.maxTokens))
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, toMessage(m))
	}
	for _, t := range tools {
		params, err := toFunctionParameters(t.Parameters)
		if err != nil {
			return nil, errors.Wrapf(err, "tool %q", t.Name)
		}
		fn := shared.FunctionDefinitionParam{
			Name:       t.Name,
			Parameters: params,
		}
		if t.Description != "" {
			fn.Description = openai.String(t.Description)
		}
		req.Tools = append(req.Tools, openai.ChatCompletionFunctionTool(fn))
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(llms.ToolChoiceAuto),
		}
	}

	result, err := o.client.CreateChat(ctx, req)
	if err != nil {
		return nil, classifyError(err)
	}
	return toResponse(result)
}

func toMessage(m llms.Message) openai.ChatCompletionMessageParamUnion {
	switch m.Role {
	case llms.RoleSystem:
		return openai.SystemMessage(m.Content)
	case llms.RoleAssistant:
		return openai.AssistantMessage(m.Content)
	case llms.RoleTool:
		return openai.ToolMessage(m.Content, m.ToolCallID)
	default:
		return openai.UserMessage(m.Content)
	}
}

// toFunctionParameters converts the tool schema to the generic map sent on the wire.
func toFunctionParameters(s *jsonschema.Schema) (shared.FunctionParameters, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "marshal parameters")
	}
	var params shared.FunctionParameters
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, errors.Wrap(err, "unmarshal parameters")
	}
	return params, nil
}

func classifyError(err error) error {
	var decodeErr *openaiclient.DecodeError
	switch {
	case errors.Is(err, openaiclient.ErrEmptyResponse):
		return llms.MalformedResponseError(errors.Wrap(err, "model returned no choices"))
	case errors.As(err, &decodeErr):
		return llms.MalformedResponseError(err)
	default:
		return llms.TransportError(errors.WithMessage(err, "model request failed"))
	}
}

// toResponse normalizes the first choice into a tagged response.
func toResponse(result *openai.ChatCompletion) (llms.Response, error) {
	choice := result.Choices[0]
	if !choice.JSON.Message.Valid() {
		return nil, llms.MalformedResponseError(errors.New("model response choice has no message"))
	}
	msg := choice.Message

	// Content is null when the model only requested tools
	content := msg.Content
	if len(msg.ToolCalls) == 0 {
		return &llms.TextResponse{Content: content}, nil
	}

	calls := make([]llms.ToolCall, 0, len(msg.ToolCalls))
	for i, tc := range msg.ToolCalls {
		typ := values.StringsCoalesce(tc.Type, llms.ToolTypeFunction)
		call := llms.ToolCall{
			ID:   tc.ID,
			Type: typ,
		}
		if tc.JSON.Function.Valid() {
			call.Name = tc.Function.Name
			call.Arguments = tc.Function.Arguments
		} else if typ == llms.ToolTypeFunction {
			return nil, llms.MalformedResponseError(errors.Newf("tool call %d has no function", i))
		}
		calls = append(calls, call)
	}
	return &llms.ToolCallsResponse{
		Content: content,
		Calls:   calls,
	}, nil
}
