// Package protocol encodes tool call requests and decodes tool backend replies
// using JSON-RPC 2.0 envelopes.
package protocol

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/calagent/mcp"
	"github.com/google/uuid"
	"github.com/sourcegraph/jsonrpc2"
)

// MethodCallTool is the method of a tool call request.
const MethodCallTool = "callTool"

// CallToolParams are the params of a tool call request.
type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// NewCallToolRequest returns a request with a new string id.
// Nil arguments are sent as an empty object.
func NewCallToolRequest(toolName string, arguments map[string]any) (*jsonrpc2.Request, error) {
	if arguments == nil {
		arguments = map[string]any{}
	}
	req := &jsonrpc2.Request{
		Method: MethodCallTool,
		ID: jsonrpc2.ID{
			Str:      uuid.NewString(),
			IsString: true,
		},
	}
	if err := req.SetParams(&CallToolParams{Name: toolName, Arguments: arguments}); err != nil {
		return nil, errors.Wrap(err, "encode params")
	}
	return req, nil
}

// EncodeRequest returns the request as one line of JSON.
func EncodeRequest(req *jsonrpc2.Request) ([]byte, error) {
	js, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}
	return append(js, '\n'), nil
}

// DecodeResponse parses the reply, which must be exactly one JSON object.
// Any other reply is a transport error.
func DecodeResponse(data []byte) (*jsonrpc2.Response, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, mcp.TransportError(errors.New("empty reply"))
	}
	if data[0] != '{' {
		return nil, mcp.TransportError(errors.New("reply is not a JSON object"))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, mcp.TransportError(errors.Wrap(err, "invalid JSON reply"))
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, mcp.TransportError(errors.New("reply has data after the JSON object"))
	}

	var resp jsonrpc2.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, mcp.TransportError(errors.Wrap(err, "invalid JSON-RPC reply"))
	}
	return &resp, nil
}

// Result returns the result of the response.
// A response without a result member is a protocol error,
// the error member is reported when present.
// A null result is returned as JSON null.
func Result(resp *jsonrpc2.Response) (json.RawMessage, error) {
	if resp.Result == nil {
		if resp.Error != nil {
			return nil, mcp.ProtocolError(errors.Newf("tool backend error %d: %s", resp.Error.Code, resp.Error.Message))
		}
		return nil, mcp.ProtocolError(errors.New("reply has no result"))
	}
	return json.RawMessage(*resp.Result), nil
}

// ParseReply decodes the reply and returns its result.
func ParseReply(data []byte) (json.RawMessage, error) {
	resp, err := DecodeResponse(data)
	if err != nil {
		return nil, err
	}
	return Result(resp)
}
