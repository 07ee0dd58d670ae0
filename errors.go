package unicall

import "fmt"

// ConfigurationError reports an invalid combination of call options. It is
// raised at bind or setup time, before any network I/O.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid call configuration: %s", e.Reason)
}

// UnknownToolError reports that a provider named a tool call the active tool
// list does not recognize. It surfaces lazily, at first access of the
// resolved tool calls, never at response construction.
type UnknownToolError struct {
	Tool      string
	Available []string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("provider requested unknown tool %q (available: %v)", e.Tool, e.Available)
}

// SchemaValidationError reports that extraction's constructed schema instance
// failed validation. It wraps the underlying failure and retains the raw
// output (and, when available, the originating response) for inspection.
type SchemaValidationError struct {
	RawOutput string
	Response  any
	Cause     error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("response did not validate against the declared schema: %v", e.Cause)
}

func (e *SchemaValidationError) Unwrap() error { return e.Cause }
