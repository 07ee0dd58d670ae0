package tool

import "fmt"

// SchemaDerivationError reports that a tool or response model's shape could
// not be turned into a JSON Schema.
type SchemaDerivationError struct {
	Tool   string
	Reason string
	Cause  error
}

func (e *SchemaDerivationError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("schema derivation failed: %s", e.Reason)
	}
	return fmt.Sprintf("schema derivation failed for %q: %s", e.Tool, e.Reason)
}

func (e *SchemaDerivationError) Unwrap() error { return e.Cause }

// ToolArgumentError reports that a provider's tool-call payload failed to
// parse as JSON or did not validate against the tool's parameter schema.
// RawArguments retains the offending payload so the caller can decide
// whether to re-prompt or abort.
type ToolArgumentError struct {
	Tool         string
	RawArguments string
	Cause        error
}

func (e *ToolArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %q: %v", e.Tool, e.Cause)
}

func (e *ToolArgumentError) Unwrap() error { return e.Cause }
