// Package llms defines the provider independent types used to talk to a chat model:
// conversation messages, tool definitions advertised to the model, and the
// normalized model response.
//
// A Model returns either a TextResponse or a ToolCallsResponse, decoded once at
// the client boundary, so callers never probe optional fields of a raw payload.
//
// Provider implementations live in subpackages, for example `openai`.
package llms
