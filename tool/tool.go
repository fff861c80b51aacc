// Package tool turns plain Go functions into tool definitions that a model
// provider can advertise to the model. Parameter schemas are derived from the
// function signature through reflection.
package tool

import (
	"fmt"
	"reflect"

	"github.com/fogfish/opts"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ridewell/waybill/pkg/reflectx"
	"github.com/ridewell/waybill/pkg/stdx"
	"github.com/ridewell/waybill/types"
)

// Definition describes a callable tool: its advertised name and description,
// the mapping of positional parameters to wire names, and the Go function
// that implements it.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]string
	Function    any
}

var functionReflector = jsonschema.Reflector{
	AllowAdditionalProperties: true,
	DoNotReference:            true,
}

// ToNameAndSchema returns the tool's wire name and the JSON schema of its
// parameter object.
func (td Definition) ToNameAndSchema() (string, *jsonschema.Schema) {
	name := td.Name
	if name == "" {
		name = reflectx.FunctionName(td.Function)
	}

	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: orderedmap.New[string, *jsonschema.Schema](),
	}

	typ := reflect.TypeOf(td.Function)
	if typ == nil || typ.Kind() != reflect.Func {
		return name, schema
	}

	var required []string
	argIdx := 0
	for i := 0; i < typ.NumIn(); i++ {
		paramType := typ.In(i)
		// ContextVars parameters are injected by the executor, not the model.
		if paramType == reflect.TypeFor[types.ContextVars]() {
			continue
		}

		// Positional names count model-supplied arguments only, matching how
		// the executor lines arguments up at call time.
		paramName := fmt.Sprintf("param%d", argIdx)
		argIdx++
		if td.Parameters != nil {
			if p, ok := td.Parameters[paramName]; ok {
				paramName = p
			}
		}

		propSchema := functionReflector.ReflectFromType(paramType)
		propSchema.Version = ""
		schema.Properties.Set(paramName, propSchema)
		required = append(required, paramName)
	}
	if len(required) > 0 {
		schema.Required = required
	}

	return name, schema
}

// Option configures a Definition.
type Option = opts.Option[Definition]

// Must is New with panics instead of errors, for package-level tool vars.
func Must(f any, options ...Option) Definition {
	return stdx.Must1(New(f, options...))
}

// New creates a Definition for the provided function. The function's own
// name is used when no Name option is given.
func New(f any, options ...Option) (Definition, error) {
	if !reflectx.IsFunction(f) {
		return Definition{}, fmt.Errorf("provided value is not a function")
	}

	var def Definition
	if err := opts.Apply(&def, options); err != nil {
		return Definition{}, err
	}
	if def.Name == "" {
		def.Name = reflectx.FunctionName(f)
	}

	def.Function = f
	return def, nil
}

// Name sets the tool's advertised name.
var Name = opts.ForName[Definition, string]("Name")

// Description sets the tool's advertised description.
var Description = opts.ForName[Definition, string]("Description")

// Parameters names the function's positional parameters in declaration
// order. These names become the properties of the tool's parameter schema.
func Parameters(parameters ...string) Option {
	return opts.Type[Definition](func(o *Definition) error {
		o.Parameters = make(map[string]string, len(parameters))
		for i, p := range parameters {
			o.Parameters[fmt.Sprintf("param%d", i)] = p
		}
		return nil
	})
}
