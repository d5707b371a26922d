package factory

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/calagent/pkg/llms"
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
	"github.com/go-playground/validator/v10"
)

// Environment variables used when the value is not set in the config file.
const (
	EnvGroqAPIKey     = "GROQ_API_KEY"           //nolint:gosec
	EnvOpenAIAPIKey   = "OPENAI_API_KEY"         //nolint:gosec
	EnvModelEndpoint  = "CALAGENT_MODEL_ENDPOINT"
	EnvModel          = "CALAGENT_MODEL"
	EnvToolCommand    = "CALAGENT_TOOL_COMMAND"
	EnvToolWorkDir    = "CALAGENT_TOOL_WORKDIR"
	EnvToolBackendURL = "CALAGENT_TOOL_URL"
)

const (
	// DefaultGroqModel is used with the Groq endpoint.
	DefaultGroqModel = "llama-3.3-70b-versatile"
	// DefaultOpenAIModel is used with the OpenAI endpoint.
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultModelTimeout limits a model request.
	DefaultModelTimeout = 60 * time.Second
)

// Config of the agent.
type Config struct {
	Model       ModelConfig       `json:"model" yaml:"model"`
	ToolBackend ToolBackendConfig `json:"tool_backend" yaml:"tool_backend"`
	Dispatcher  DispatcherConfig  `json:"dispatcher" yaml:"dispatcher"`
}

// ModelConfig specifies the chat model endpoint.
type ModelConfig struct {
	// Provider is OPENAI or GROQ.
	// If not set, GROQ is used when the key comes from GROQ_API_KEY.
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty" validate:"omitempty,oneof=OPENAI GROQ"`
	APIKey   string `json:"api_key,omitempty" yaml:"api_key,omitempty" validate:"required"`
	// Endpoint is the base URL of the OpenAI compatible API,
	// defaults to the provider's endpoint.
	Endpoint     string   `json:"endpoint,omitempty" yaml:"endpoint,omitempty" validate:"omitempty,url"`
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	Organization string   `json:"organization,omitempty" yaml:"organization,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" validate:"omitempty,min=0,max=2"`
	MaxTokens    int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" validate:"min=0"`
	// Timeout of a model request, as time.Duration string.
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ToolBackendConfig specifies how tools are invoked.
// Command starts a process per tool call, URL posts the call to a HTTP backend.
type ToolBackendConfig struct {
	// Command is the backend executable followed by its arguments.
	// The CALAGENT_TOOL_COMMAND value is split on white space.
	Command []string          `json:"command,omitempty" yaml:"command,omitempty" validate:"required_without=URL"`
	WorkDir string            `json:"work_dir,omitempty" yaml:"work_dir,omitempty"`
	Env     []string          `json:"env,omitempty" yaml:"env,omitempty"`
	URL     string            `json:"url,omitempty" yaml:"url,omitempty" validate:"omitempty,url"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	// Timeout of a tool call, as time.Duration string.
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DispatcherConfig specifies the orchestration turn.
type DispatcherConfig struct {
	// SystemPrompt defaults to dispatcher.DefaultSystemPrompt.
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	Concurrency  int    `json:"concurrency,omitempty" yaml:"concurrency,omitempty" validate:"min=0,max=64"`
}

// LoadConfig from file, the file is optional.
// Values not set in the file are read from the environment.
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file != "" {
		err := configloader.UnmarshalAndExpand(file, cfg)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to load config: %s", file)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	m := &c.Model
	if m.APIKey == "" && m.Provider == "" && os.Getenv(EnvGroqAPIKey) != "" {
		m.Provider = string(llms.ProviderGroq)
	}
	if m.Provider == string(llms.ProviderGroq) {
		m.APIKey = values.StringsCoalesce(m.APIKey, os.Getenv(EnvGroqAPIKey))
	}
	m.APIKey = values.StringsCoalesce(m.APIKey, os.Getenv(EnvOpenAIAPIKey))
	m.Provider = values.StringsCoalesce(m.Provider, string(llms.ProviderOpenAI))
	m.Endpoint = values.StringsCoalesce(m.Endpoint, os.Getenv(EnvModelEndpoint))
	m.Name = values.StringsCoalesce(m.Name, os.Getenv(EnvModel))

	tb := &c.ToolBackend
	if tb.URL == "" {
		if len(tb.Command) == 0 {
			if cmd := strings.Fields(os.Getenv(EnvToolCommand)); len(cmd) > 0 {
				tb.Command = cmd
			}
		}
		tb.URL = values.StringsCoalesce(tb.URL, os.Getenv(EnvToolBackendURL))
	}
	tb.WorkDir = values.StringsCoalesce(tb.WorkDir, os.Getenv(EnvToolWorkDir))
}

// Validate returns an error if the config is not valid.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return errors.WithMessage(err, "invalid config")
	}
	if _, err := parseDuration(c.Model.Timeout); err != nil {
		return errors.WithMessage(err, "invalid model timeout")
	}
	if _, err := parseDuration(c.ToolBackend.Timeout); err != nil {
		return errors.WithMessage(err, "invalid tool backend timeout")
	}
	if tb := c.ToolBackend; tb.URL == "" && (len(tb.Command) == 0 || strings.TrimSpace(tb.Command[0]) == "") {
		return errors.New("invalid config: tool backend command is required")
	}
	return nil
}

// ModelName returns the configured model name or the provider's default.
func (c *Config) ModelName() string {
	if c.Model.Provider == string(llms.ProviderGroq) {
		return values.StringsCoalesce(c.Model.Name, DefaultGroqModel)
	}
	return values.StringsCoalesce(c.Model.Name, DefaultOpenAIModel)
}

// ModelTimeout returns the model request timeout.
func (c *Config) ModelTimeout() time.Duration {
	d, _ := parseDuration(c.Model.Timeout)
	if d <= 0 {
		return DefaultModelTimeout
	}
	return d
}

// ToolTimeout returns the tool call timeout, zero for the dispatcher's default.
func (c *Config) ToolTimeout() time.Duration {
	d, _ := parseDuration(c.ToolBackend.Timeout)
	return d
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	if d < 0 {
		return 0, errors.Newf("negative duration: %s", s)
	}
	return d, nil
}
