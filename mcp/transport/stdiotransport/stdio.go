// Package stdiotransport executes tool calls by spawning the tool backend
// process for every call: the request is written to its stdin and the reply
// is read from its stdout.
package stdiotransport

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/calagent/mcp"
	"github.com/effective-security/calagent/mcp/protocol"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/calagent/mcp/transport", "stdiotransport")

const (
	// DefaultWaitDelay is the time given to the backend to release its output
	// after it was killed on cancellation.
	DefaultWaitDelay = 2 * time.Second
	// DefaultMaxOutputSize limits stdout and stderr of the backend, each.
	DefaultMaxOutputSize = 8 << 20
)

// Config of the transport.
type Config struct {
	// Command is the backend executable followed by its arguments.
	Command []string
	// WorkDir is the working directory of the backend process.
	WorkDir string
	// Env is added to the environment of the current process.
	Env []string
	// Timeout limits every call, zero means no limit other than the context.
	Timeout time.Duration
	// WaitDelay overrides DefaultWaitDelay.
	WaitDelay time.Duration
	// MaxOutputSize overrides DefaultMaxOutputSize.
	MaxOutputSize int
}

// Transport spawns the tool backend process per call.
type Transport struct {
	cfg Config
}

var _ mcp.Transport = (*Transport)(nil)

// New returns a stdio transport.
func New(cfg Config) (*Transport, error) {
	if len(cfg.Command) == 0 || cfg.Command[0] == "" {
		return nil, errors.New("tool backend command is required")
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = DefaultWaitDelay
	}
	if cfg.MaxOutputSize <= 0 {
		cfg.MaxOutputSize = DefaultMaxOutputSize
	}
	return &Transport{cfg: cfg}, nil
}

// Invoke implements mcp.Transport.
// The process is always waited on before return, and killed when the context
// is done or the call times out.
func (t *Transport) Invoke(ctx context.Context, toolName string, arguments map[string]any) (json.RawMessage, error) {
	req, err := protocol.NewCallToolRequest(toolName, arguments)
	if err != nil {
		return nil, mcp.TransportError(err)
	}
	payload, err := protocol.EncodeRequest(req)
	if err != nil {
		return nil, mcp.TransportError(err)
	}

	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, t.cfg.Command[0], t.cfg.Command[1:]...)
	cmd.Dir = t.cfg.WorkDir
	if len(t.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), t.cfg.Env...)
	}
	cmd.WaitDelay = t.cfg.WaitDelay

	stdout := &cappedBuffer{limit: t.cfg.MaxOutputSize}
	stderr := &cappedBuffer{limit: t.cfg.MaxOutputSize}
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	started := time.Now()
	err = cmd.Run()

	logger.ContextKV(ctx, xlog.DEBUG,
		"tool", toolName,
		"id", req.ID.Str,
		"elapsed", time.Since(started).String(),
		"stdout", stdout.Len(),
		"stderr", stderr.Len(),
	)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, mcp.TransportError(errors.Wrapf(ctxErr, "tool backend %s", toolName))
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "spawn_failed",
			"command", t.cfg.Command[0],
			"err", err.Error(),
		)
		return nil, mcp.TransportError(errors.Wrap(err, "start tool backend"))
	}

	if stdout.overflow || stderr.overflow {
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "output_too_large",
			"tool", toolName,
			"limit", t.cfg.MaxOutputSize,
		)
		return nil, mcp.TransportError(errors.Newf("tool backend output exceeds %d bytes", t.cfg.MaxOutputSize))
	}

	if diag := strings.TrimSpace(stderr.String()); diag != "" {
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "backend_stderr",
			"tool", toolName,
			"stderr", diag,
		)
		return nil, mcp.TransportError(errors.Newf("tool backend error: %s", diag))
	}

	if exitErr != nil {
		return nil, mcp.TransportError(errors.Newf("tool backend exited with code %d", exitErr.ExitCode()))
	}

	return protocol.ParseReply(stdout.Bytes())
}

// cappedBuffer keeps up to limit bytes and discards the rest,
// so the backend is never blocked on a full pipe.
type cappedBuffer struct {
	bytes.Buffer
	limit    int
	overflow bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if room := b.limit - b.Len(); n > room {
		b.overflow = true
		p = p[:max(room, 0)]
	}
	_, _ = b.Buffer.Write(p)
	return n, nil
}
