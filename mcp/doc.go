// Package mcp defines the transport used to execute tool calls against the
// out-of-process tool backend.
//
// Every call is an independent exchange: one JSON-RPC request carrying the tool
// name and arguments, one JSON-RPC response carrying the result.
// Implementations live under mcp/transport.
package mcp
