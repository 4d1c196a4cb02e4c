// Package schema generates JSON Schemas from Go shape types and validates
// response bodies against them.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Result contains the result of validating a single document.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validator validates JSON data against a compiled schema.
type Validator struct {
	source map[string]any
	schema *jsonschema.Schema
}

// reflector builds inline schemas. Only fields tagged jsonschema:"required"
// are required, and unknown properties are allowed so that servers can add
// fields without breaking checks.
var reflector = &invopop.Reflector{
	Anonymous:                  true,
	AllowAdditionalProperties:  true,
	DoNotReference:             true,
	RequiredFromJSONSchemaTags: true,
}

// For returns a validator for the JSON shape of T.
func For[T any]() (*Validator, error) {
	var zero T
	return FromValue(zero)
}

// FromValue returns a validator for the JSON shape of v's type.
func FromValue(v any) (*Validator, error) {
	s := reflector.Reflect(v)
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}
	return FromJSON(data)
}

// MustFor is like For but panics on error. It is meant for package-level
// validators built from static types.
func MustFor[T any]() *Validator {
	v, err := For[T]()
	if err != nil {
		panic(fmt.Sprintf("schema: %v", err))
	}
	return v
}

// FromJSON compiles a raw JSON Schema document.
func FromJSON(data []byte) (*Validator, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing JSON Schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	// doc must be a decoded JSON value, not an io.Reader
	if err := compiler.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return &Validator{source: doc, schema: compiled}, nil
}

// Validate validates a JSON document against the schema.
func (v *Validator) Validate(data []byte) *Result {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return &Result{Errors: []string{fmt.Sprintf("invalid JSON: %s", err.Error())}}
	}
	return v.ValidateValue(value)
}

// ValidateValue validates an already-decoded JSON value.
func (v *Validator) ValidateValue(value any) *Result {
	if v == nil || v.schema == nil {
		return &Result{Errors: []string{"schema not compiled"}}
	}
	if err := v.schema.Validate(value); err != nil {
		return &Result{Errors: extractValidationErrors(err)}
	}
	return &Result{Valid: true}
}

// Schema returns the schema document the validator was compiled from.
func (v *Validator) Schema() map[string]any {
	return v.source
}

// Err returns nil for a valid result, or an error listing every violation.
func (r *Result) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(r.Errors, "; "))
}

// extractValidationErrors extracts human-readable error messages from a validation error.
func extractValidationErrors(err error) []string {
	var validationErr *jsonschema.ValidationError
	if errors.As(err, &validationErr) {
		return extractDetailedErrors(validationErr)
	}
	return []string{err.Error()}
}

// printer is a default English printer for localized error messages.
var printer = message.NewPrinter(language.English)

// extractDetailedErrors flattens a ValidationError tree into one message per
// distinct (path, message) pair, sorted by path.
func extractDetailedErrors(err *jsonschema.ValidationError) []string {
	errorsByPath := make(map[string][]string)
	collectErrors(err, errorsByPath)

	paths := make([]string, 0, len(errorsByPath))
	for path := range errorsByPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var result []string
	for _, path := range paths {
		seen := make(map[string]bool)
		for _, msg := range errorsByPath[path] {
			if seen[msg] {
				continue
			}
			seen[msg] = true
			if path != "" {
				result = append(result, fmt.Sprintf("%s: %s", path, msg))
			} else {
				result = append(result, msg)
			}
		}
	}
	return result
}

// collectErrors recursively collects leaf errors (those without causes).
func collectErrors(err *jsonschema.ValidationError, errorsByPath map[string][]string) {
	instancePath := ""
	if len(err.InstanceLocation) > 0 {
		instancePath = "/" + strings.Join(err.InstanceLocation, "/")
	}

	if err.ErrorKind != nil && len(err.Causes) == 0 {
		msg := err.ErrorKind.LocalizedString(printer)
		// $ref wrappers carry no information of their own
		if !strings.HasPrefix(msg, "$ref ") && !strings.HasPrefix(msg, "doesn't validate with") {
			errorsByPath[instancePath] = append(errorsByPath[instancePath], msg)
		}
	}

	for _, cause := range err.Causes {
		collectErrors(cause, errorsByPath)
	}
}
