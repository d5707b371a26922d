package openaiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
)

// ErrEmptyResponse is returned when the API returns no choices.
var ErrEmptyResponse = errors.New("empty response")

// StatusError is returned for a non-success HTTP status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API returned unexpected status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("API returned unexpected status code: %d: %s", e.StatusCode, e.Message)
}

// DecodeError is returned when the response body can not be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode response: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// CreateChat sends the chat request.
// Network and status failures are returned as is or as *StatusError,
// an undecodable body as *DecodeError, and no choices as ErrEmptyResponse.
func (c *Client) CreateChat(ctx context.Context, r *openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	if r.Model == "" {
		r.Model = shared.ChatModel(c.Model)
	}

	bodyBytes, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, "marshal payload")
	}

	u := c.buildURL("/chat/completions")
	logger.ContextKV(ctx, xlog.DEBUG,
		"url", u,
		"model", r.Model,
		"messages", len(r.Messages),
		"tools", len(r.Tools),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		serr := &StatusError{StatusCode: resp.StatusCode}
		var errResp errorMessage
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			serr.Message = errResp.Error.Message
		}
		return nil, serr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	// the SDK decoder accepts truncated documents
	if !json.Valid(body) {
		return nil, &DecodeError{Err: errors.New("invalid JSON")}
	}
	var res openai.ChatCompletion
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if !res.JSON.Choices.Valid() || len(res.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	return &res, nil
}
