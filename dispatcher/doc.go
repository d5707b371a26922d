// Package dispatcher implements the tool-call orchestration turn.
//
// A turn sends the user message with the tool catalog to the model. A text reply
// is returned as is. When the model requests tool calls, each call is validated
// against the registry, the valid ones are executed concurrently through the tool
// transport, and the outcomes are returned in the order the model requested them.
//
// Only a model failure aborts the turn: unsupported tools, invalid arguments and
// transport failures are recorded as the outcome of the call that caused them.
package dispatcher
