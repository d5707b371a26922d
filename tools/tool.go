package tools

import (
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/calagent/pkg/llms"
	"github.com/effective-security/calagent/pkg/schema"
	"github.com/invopop/jsonschema"
)

// Tool is a tool the model may call.
type Tool struct {
	name        string
	description string
	argsType    reflect.Type
	parameters  *jsonschema.Schema
}

// New returns a tool with parameters reflected from the Args type.
func New[Args any](name, description string) (*Tool, error) {
	if name == "" {
		return nil, errors.New("tool name is required")
	}
	t := reflect.TypeFor[Args]()
	sc, err := schema.New(t)
	if err != nil {
		return nil, errors.WithMessagef(err, "tool %s", name)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return &Tool{
		name:        name,
		description: description,
		argsType:    t,
		parameters:  sc.Parameters,
	}, nil
}

// MustNew is like New but panics on error.
func MustNew[Args any](name, description string) *Tool {
	t, err := New[Args](name, description)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the name of the Tool.
func (t *Tool) Name() string {
	return t.name
}

// Description returns the description of the tool, to be used in the prompt.
func (t *Tool) Description() string {
	return t.description
}

// Parameters returns the parameters definition of the function.
func (t *Tool) Parameters() *jsonschema.Schema {
	return t.parameters
}

// Definition returns the definition advertised to the model.
func (t *Tool) Definition() llms.ToolDefinition {
	return llms.ToolDefinition{
		Name:        t.name,
		Description: t.description,
		Parameters:  t.parameters,
	}
}

// NewArgs returns a pointer to a new value of the argument type.
func (t *Tool) NewArgs() any {
	return reflect.New(t.argsType).Interface()
}
