package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Func derives a Definition from a typed handler. The parameter schema is
// reflected from T's fields and jsonschema struct tags, so the provider sees
// exactly the shape the handler unmarshals.
func Func[T any](name, description string, fn func(ctx context.Context, args T) (string, error)) (*Definition, error) {
	params, err := reflectSchema[T](name)
	if err != nil {
		return nil, err
	}

	handler := func(ctx context.Context, raw json.RawMessage) (string, error) {
		var args T
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", fmt.Errorf("failed to parse %s tool input: %v", name, err)
		}
		return fn(ctx, args)
	}

	return New(name, description, params, handler)
}

// Schema derives an invoke-less Definition for T. Used as the forced
// extraction tool when a caller declares a response model.
func Schema[T any](name, description string) (*Definition, error) {
	params, err := reflectSchema[T](name)
	if err != nil {
		return nil, err
	}
	return New(name, description, params, nil)
}

func reflectSchema[T any](name string) (json.RawMessage, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	if schema == nil || schema.Type != "object" {
		return nil, &SchemaDerivationError{
			Tool:   name,
			Reason: fmt.Sprintf("parameter type %T does not describe an object schema", v),
		}
	}

	params, err := json.Marshal(schema)
	if err != nil {
		return nil, &SchemaDerivationError{Tool: name, Reason: "failed to encode schema", Cause: err}
	}
	return params, nil
}
