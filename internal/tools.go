package internal

import (
	"encoding/json"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
)

// Tool is a function the model may ask the caller to run.
//
// It lives in the internal package so callers can only obtain one through
// llmadapter.NewTool, which ties the argument type to the function signature.
type Tool struct {
	Name        string
	Description string
	Parameters  jsonschema.Schema

	// input is a zero value of the argument type, kept for reflection.
	input    any
	function FunctionBody
}

func NewTool[A any](name, description string, fn FunctionBody) Tool {
	return Tool{
		Name:        name,
		Description: description,
		Parameters:  GenerateSchema[A](),
		input:       *new(A),
		function:    fn,
	}
}

// FunctionBody wraps a type-erased `func(A) (string, error)`.
type FunctionBody struct {
	Inner any
}

// Call decodes the provider-supplied JSON arguments into the tool argument type
// and invokes the function.
//
// The signature is checked before the call, since FunctionBody can be built by
// hand inside this module.
func (t Tool) Call(paramsJson []byte) (string, error) {
	argType := reflect.TypeOf(t.input)
	params := reflect.New(argType).Interface()

	if err := json.Unmarshal(paramsJson, params); err != nil {
		return "", errors.Wrapf(err, "could not decode arguments for tool '%s'", t.Name)
	}

	fn := reflect.ValueOf(t.function.Inner)

	if fn.Kind() != reflect.Func {
		return "", errors.Newf("tool '%s' is not a function", t.Name)
	}
	if fn.Type().NumIn() != 1 {
		return "", errors.Newf("tool '%s' should take one argument, not %d", t.Name, fn.Type().NumIn())
	}
	if fn.Type().In(0) != argType {
		return "", errors.Newf("tool '%s' should take an argument of type %s, not %s", t.Name, argType.Name(), fn.Type().In(0).Name())
	}
	if fn.Type().NumOut() != 2 || fn.Type().Out(0).Kind() != reflect.String || !fn.Type().Out(1).Implements(reflect.TypeFor[error]()) {
		return "", errors.Newf("tool '%s' should return (string, error)", t.Name)
	}

	rets := fn.Call([]reflect.Value{reflect.ValueOf(params).Elem()})

	if !rets[1].IsNil() {
		return "", rets[1].Interface().(error)
	}

	return rets[0].String(), nil
}
