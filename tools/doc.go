// Package tools holds the catalog of tools advertised to the model.
//
// Each tool is described by a typed argument struct: the JSON schema sent to the
// model is reflected from it, and the arguments of a tool call are decoded into it
// and validated before the call is executed.
package tools
