package tools

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/calagent/pkg/llms"
	"github.com/effective-security/calagent/pkg/llmutils"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrUnsupportedTool is returned for a tool that is not in the registry.
	ErrUnsupportedTool = errors.New("unsupported tool")
	// ErrInvalidArguments is returned when the arguments do not match the tool parameters.
	ErrInvalidArguments = errors.New("invalid arguments")
)

// Registry is an ordered catalog of tools.
// It is read-only after construction and safe for concurrent use.
type Registry struct {
	tools    []*Tool
	byName   map[string]*Tool
	validate *validator.Validate
}

// NewRegistry returns a registry with the tools in the given order.
func NewRegistry(list ...*Tool) (*Registry, error) {
	r := &Registry{
		byName:   make(map[string]*Tool, len(list)),
		validate: newValidator(),
	}
	for _, t := range list {
		if err := r.register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(t *Tool) error {
	if t == nil {
		return errors.New("nil tool")
	}
	if _, ok := r.byName[t.Name()]; ok {
		return errors.Newf("duplicate tool: %s", t.Name())
	}
	r.tools = append(r.tools, t)
	r.byName[t.Name()] = t
	return nil
}

// Definitions returns the definitions advertised to the model, in registration order.
func (r *Registry) Definitions() []llms.ToolDefinition {
	defs := make([]llms.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	return defs
}

// IsSupported returns true if the tool is in the registry.
func (r *Registry) IsSupported(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Validate decodes the arguments into the argument type of the tool
// and checks its constraints.
func (r *Registry) Validate(name string, args map[string]any) error {
	t, ok := r.byName[name]
	if !ok {
		return errors.Mark(errors.Newf("%s: not found", name), ErrUnsupportedTool)
	}

	js, err := json.Marshal(args)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "encode arguments"), ErrInvalidArguments)
	}
	v := t.NewArgs()
	if err := json.Unmarshal(js, v); err != nil {
		return errors.Mark(errors.Wrap(err, "decode arguments"), ErrInvalidArguments)
	}
	if err := r.validate.Struct(v); err != nil {
		return errors.Mark(validationError(err), ErrInvalidArguments)
	}
	return nil
}

type toolDescription struct {
	Name        string `json:"Name" yaml:"Name"`
	Description string `json:"Description" yaml:"Description"`
}

type toolsDescription struct {
	Tools []toolDescription `json:"Tools" yaml:"Tools"`
}

// Describe returns the names and descriptions of the tools, to be used in the prompt.
func (r *Registry) Describe() string {
	var d toolsDescription
	for _, t := range r.tools {
		d.Tools = append(d.Tools, toolDescription{
			Name:        t.Name(),
			Description: t.Description(),
		})
	}
	return llmutils.BackticksJSON(llmutils.ToJSONIndent(d))
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// drop the name of the argument struct
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		msgs = append(msgs, field+" "+describeTag(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "failed on " + fe.Tag()
	}
}
