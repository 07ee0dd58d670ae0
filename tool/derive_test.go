package tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type forecastArgs struct {
	City string `json:"city"`
	Days int    `json:"days,omitempty"`
}

func TestFuncReflectsSchema(t *testing.T) {
	def, err := Func("forecast", "Forecast the weather",
		func(ctx context.Context, args forecastArgs) (string, error) {
			return args.City, nil
		})
	if err != nil {
		t.Fatalf("Func() failed: %v", err)
	}

	var schema struct {
		Type                 string                     `json:"type"`
		Properties           map[string]json.RawMessage `json:"properties"`
		Required             []string                   `json:"required"`
		AdditionalProperties bool                       `json:"additionalProperties"`
	}
	if err := json.Unmarshal(def.Parameters, &schema); err != nil {
		t.Fatalf("parameters are not valid JSON: %v", err)
	}
	if schema.Type != "object" {
		t.Errorf("schema type = %q, want object", schema.Type)
	}
	if _, ok := schema.Properties["city"]; !ok {
		t.Error("schema missing city property")
	}
	if _, ok := schema.Properties["days"]; !ok {
		t.Error("schema missing days property")
	}
	if schema.AdditionalProperties {
		t.Error("schema should forbid additional properties")
	}
	found := false
	for _, field := range schema.Required {
		if field == "city" {
			found = true
		}
	}
	if !found {
		t.Error("city should be required")
	}
}

func TestFuncBindsTypedHandler(t *testing.T) {
	def, err := Func("forecast", "",
		func(ctx context.Context, args forecastArgs) (string, error) {
			return strings.ToUpper(args.City), nil
		})
	if err != nil {
		t.Fatalf("Func() failed: %v", err)
	}

	rc, err := Resolve(def, "call_1", `{"city":"lima"}`)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	result, err := rc.Invoke(context.Background())
	if err != nil {
		t.Fatalf("Invoke() failed: %v", err)
	}
	if result != "LIMA" {
		t.Errorf("Invoke() = %q, want LIMA", result)
	}
}

func TestSchemaRejectsNonObjectTypes(t *testing.T) {
	_, err := Schema[string]("scalar", "")
	var derivErr *SchemaDerivationError
	if !errors.As(err, &derivErr) {
		t.Fatalf("expected SchemaDerivationError, got %v", err)
	}
	if derivErr.Tool != "scalar" {
		t.Errorf("error names tool %q, want scalar", derivErr.Tool)
	}
}

func TestFuncSchemaValidatesArguments(t *testing.T) {
	def, err := Func("forecast", "",
		func(ctx context.Context, args forecastArgs) (string, error) {
			return args.City, nil
		})
	if err != nil {
		t.Fatalf("Func() failed: %v", err)
	}

	_, err = Resolve(def, "call_1", `{"city":"lima","country":"PE"}`)
	var argErr *ToolArgumentError
	if !errors.As(err, &argErr) {
		t.Errorf("expected ToolArgumentError for unknown field, got %v", err)
	}
}
