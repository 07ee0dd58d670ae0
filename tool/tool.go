// Package tool provides the provider-neutral description of a callable
// function: a name, a JSON Schema for its parameters, and an invocation
// handler. Definitions are derived once per call site and reused.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	jsonschemav6 "github.com/santhosh-tekuri/jsonschema/v6"
)

// Handler executes a tool with raw, already-validated JSON arguments and
// returns its textual result. Errors returned by handlers propagate to the
// caller unmodified; the framework never catches user tool errors.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// Definition describes one callable tool. Name must be unique within a
// single call's tool list and must match the identifier the provider echoes
// back in tool-call responses.
type Definition struct {
	Name        string
	Description string

	// Parameters is the JSON Schema document describing the tool's
	// arguments.
	Parameters json.RawMessage

	handler Handler

	compileOnce sync.Once
	compiled    *jsonschemav6.Schema
	compileErr  error
}

// New constructs a Definition from a hand-written JSON Schema document.
// The handler may be nil for schema-only definitions (response models).
func New(name, description string, parameters json.RawMessage, handler Handler) (*Definition, error) {
	if name == "" {
		return nil, &SchemaDerivationError{Reason: "tool name must not be empty"}
	}
	if len(parameters) == 0 {
		return nil, &SchemaDerivationError{Tool: name, Reason: "parameter schema must not be empty"}
	}
	var probe any
	if err := json.Unmarshal(parameters, &probe); err != nil {
		return nil, &SchemaDerivationError{Tool: name, Reason: "parameter schema is not valid JSON", Cause: err}
	}
	return &Definition{
		Name:        name,
		Description: description,
		Parameters:  parameters,
		handler:     handler,
	}, nil
}

// schema compiles the parameter schema once and caches the result.
func (d *Definition) schema() (*jsonschemav6.Schema, error) {
	d.compileOnce.Do(func() {
		compiler := jsonschemav6.NewCompiler()

		var schemaDoc any
		if err := json.Unmarshal(d.Parameters, &schemaDoc); err != nil {
			d.compileErr = fmt.Errorf("invalid JSON schema for tool %q: %w", d.Name, err)
			return
		}
		if err := compiler.AddResource("tool-schema.json", schemaDoc); err != nil {
			d.compileErr = fmt.Errorf("invalid JSON schema for tool %q: %w", d.Name, err)
			return
		}
		schema, err := compiler.Compile("tool-schema.json")
		if err != nil {
			d.compileErr = fmt.Errorf("failed to compile JSON schema for tool %q: %w", d.Name, err)
			return
		}
		d.compiled = schema
	})
	return d.compiled, d.compileErr
}

// ValidateAndBind parses raw JSON arguments and validates them against the
// parameter schema. A parse failure or schema mismatch is a ToolArgumentError;
// it is always surfaced to the caller because invoking a tool with wrong
// arguments is unsafe.
func (d *Definition) ValidateAndBind(raw string) (json.RawMessage, error) {
	if raw == "" {
		raw = "{}"
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, &ToolArgumentError{Tool: d.Name, RawArguments: raw, Cause: err}
	}

	schema, err := d.schema()
	if err != nil {
		return nil, &ToolArgumentError{Tool: d.Name, RawArguments: raw, Cause: err}
	}
	if err := schema.Validate(value); err != nil {
		return nil, &ToolArgumentError{Tool: d.Name, RawArguments: raw, Cause: err}
	}

	return json.RawMessage(raw), nil
}

// ValidateValue validates an already-decoded value against the parameter
// schema. Used by the extraction stage for strict terminal validation.
func (d *Definition) ValidateValue(value any) error {
	schema, err := d.schema()
	if err != nil {
		return err
	}
	return schema.Validate(value)
}

// Invocable reports whether the definition carries an invocation handler.
func (d *Definition) Invocable() bool {
	return d.handler != nil
}

// ResolvedCall pairs a Definition with concrete, schema-validated arguments
// extracted from a provider's tool-call payload.
type ResolvedCall struct {
	Definition *Definition

	// ID is the provider-assigned call identifier, echoed back in the
	// matching tool-result message.
	ID string

	// Arguments is the validated JSON argument document.
	Arguments json.RawMessage
}

// Resolve validates raw provider arguments against the definition and binds
// them into an invocable call.
func Resolve(d *Definition, id, rawArguments string) (*ResolvedCall, error) {
	bound, err := d.ValidateAndBind(rawArguments)
	if err != nil {
		return nil, err
	}
	return &ResolvedCall{Definition: d, ID: id, Arguments: bound}, nil
}

// Invoke calls the underlying handler with the bound arguments. Handler
// errors propagate unmodified.
func (rc *ResolvedCall) Invoke(ctx context.Context) (string, error) {
	if rc.Definition == nil || rc.Definition.handler == nil {
		return "", fmt.Errorf("tool %q has no invocation handler", rc.Name())
	}
	return rc.Definition.handler(ctx, rc.Arguments)
}

// Name returns the tool name, or "" for a zero call.
func (rc *ResolvedCall) Name() string {
	if rc.Definition == nil {
		return ""
	}
	return rc.Definition.Name
}
