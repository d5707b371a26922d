// Package httptransport executes tool calls by posting the JSON-RPC request
// to a tool backend served over HTTP.
package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/calagent/mcp"
	"github.com/effective-security/calagent/mcp/protocol"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/calagent/mcp/transport", "httptransport")

// maxReplySize limits the size of a reply body.
const maxReplySize = 8 << 20

// Doer performs HTTP requests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config of the transport.
type Config struct {
	// URL of the tool backend endpoint.
	URL string
	// Headers are added to every request.
	Headers map[string]string
	// Timeout limits every call, zero means no limit other than the context.
	Timeout time.Duration
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient Doer
}

// Transport posts tool calls to the tool backend.
type Transport struct {
	cfg Config
}

var _ mcp.Transport = (*Transport)(nil)

// New returns a HTTP transport.
func New(cfg Config) (*Transport, error) {
	if cfg.URL == "" {
		return nil, errors.New("tool backend URL is required")
	}
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		return nil, errors.Newf("invalid tool backend URL: %s", cfg.URL)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &Transport{cfg: cfg}, nil
}

// Invoke implements mcp.Transport.
func (t *Transport) Invoke(ctx context.Context, toolName string, arguments map[string]any) (json.RawMessage, error) {
	rpcReq, err := protocol.NewCallToolRequest(toolName, arguments)
	if err != nil {
		return nil, mcp.TransportError(err)
	}
	payload, err := protocol.EncodeRequest(rpcReq)
	if err != nil {
		return nil, mcp.TransportError(err)
	}

	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, mcp.TransportError(errors.Wrap(err, "create request"))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range t.cfg.Headers {
		req.Header.Set(k, v)
	}

	started := time.Now()
	resp, err := t.cfg.HTTPClient.Do(req)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "request_failed",
			"tool", toolName,
			"err", err.Error(),
		)
		return nil, mcp.TransportError(errors.Wrap(err, "send request"))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return nil, mcp.TransportError(errors.Wrap(err, "read reply"))
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"tool", toolName,
		"id", rpcReq.ID.Str,
		"status_code", resp.StatusCode,
		"elapsed", time.Since(started).String(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			return nil, mcp.TransportError(errors.Newf("tool backend returned status %d", resp.StatusCode))
		}
		return nil, mcp.TransportError(errors.Newf("tool backend returned status %d: %s", resp.StatusCode, msg))
	}

	return protocol.ParseReply(body)
}
