package factory

import (
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/calagent/dispatcher"
	"github.com/effective-security/calagent/mcp"
	"github.com/effective-security/calagent/mcp/transport/httptransport"
	"github.com/effective-security/calagent/mcp/transport/stdiotransport"
	"github.com/effective-security/calagent/pkg/llms"
	"github.com/effective-security/calagent/pkg/llms/openai"
	"github.com/effective-security/calagent/tools"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/calagent/pkg", "factory")

// NewModel is a wrapper for CreateModel to allow for overriding the default implementation.
var NewModel = CreateModel

// Load returns the dispatcher configured by the file.
func Load(location string, callback dispatcher.Callback) (*dispatcher.Dispatcher, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg, callback)
}

// New creates the dispatcher with the calendar tools.
func New(cfg *Config, callback dispatcher.Callback) (*dispatcher.Dispatcher, error) {
	model, err := NewModel(cfg)
	if err != nil {
		return nil, err
	}
	transport, err := NewTransport(cfg)
	if err != nil {
		return nil, err
	}

	logger.KV(xlog.INFO,
		"status", "created",
		"provider", model.GetProviderType(),
		"model", model.GetName(),
		"tool_backend", values.StringsCoalesce(cfg.ToolBackend.URL, strings.Join(cfg.ToolBackend.Command, " ")),
	)

	return dispatcher.New(model, tools.Calendar(), transport, dispatcher.Config{
		SystemPrompt: values.StringsCoalesce(cfg.Dispatcher.SystemPrompt, dispatcher.DefaultSystemPrompt),
		ToolTimeout:  cfg.ToolTimeout(),
		Concurrency:  cfg.Dispatcher.Concurrency,
		Callback:     callback,
	})
}

// CreateModel returns the OpenAI compatible model client.
func CreateModel(cfg *Config) (llms.Model, error) {
	m := cfg.Model
	opts := []openai.Option{
		openai.WithToken(m.APIKey),
		openai.WithModel(cfg.ModelName()),
		openai.WithProvider(llms.ProviderType(m.Provider)),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.ModelTimeout()}),
	}
	switch {
	case m.Endpoint != "":
		opts = append(opts, openai.WithBaseURL(m.Endpoint))
	case m.Provider == string(llms.ProviderGroq):
		opts = append(opts, openai.WithBaseURL(openai.GroqBaseURL))
	}
	if m.Organization != "" {
		opts = append(opts, openai.WithOrganization(m.Organization))
	}
	if m.Temperature != nil {
		opts = append(opts, openai.WithTemperature(*m.Temperature))
	}
	if m.MaxTokens > 0 {
		opts = append(opts, openai.WithMaxTokens(m.MaxTokens))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create model")
	}
	return model, nil
}

// NewTransport returns the HTTP transport if the URL is configured,
// otherwise the stdio transport.
func NewTransport(cfg *Config) (mcp.Transport, error) {
	tb := cfg.ToolBackend
	if tb.URL != "" {
		t, err := httptransport.New(httptransport.Config{
			URL:     tb.URL,
			Headers: tb.Headers,
		})
		if err != nil {
			return nil, err
		}
		return t, nil
	}

	t, err := stdiotransport.New(stdiotransport.Config{
		Command: tb.Command,
		WorkDir: tb.WorkDir,
		Env:     tb.Env,
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}
