// Package query provides jq filtering of HealthyDuck API responses.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

// Query is a compiled jq expression. It is safe for concurrent use.
type Query struct {
	expression string
	code       *gojq.Code
}

// Result contains the values a query produced.
type Result struct {
	Values   []any    `json:"values"`           // Extracted values
	Errors   []string `json:"errors,omitempty"` // Runtime errors (e.g., type mismatch)
	RawCount int      `json:"raw_count"`        // Count before deduplication
}

// Options controls how results are collected.
type Options struct {
	Deduplicate bool // Drop values equal to an earlier one
	MaxResults  int  // Stop after this many values (0 = unlimited)
}

// Compile parses and compiles a jq expression.
func Compile(expression string) (*Query, error) {
	parsed, err := gojq.Parse(expression)
	if err != nil {
		var parseErr *gojq.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("invalid jq expression at position %d: %w", parseErr.Offset, err)
		}
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}
	return &Query{expression: expression, code: code}, nil
}

// String returns the source expression.
func (q *Query) String() string {
	return q.expression
}

// Run executes the query against a JSON document.
func (q *Query) Run(data []byte, opts Options) (*Result, error) {
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("invalid JSON data: %w", err)
	}
	return q.run(input, opts), nil
}

// RunValue executes the query against v encoded as JSON, so a typed
// response is queried in its wire shape.
func (q *Query) RunValue(v any, opts Options) (*Result, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding query input: %w", err)
	}
	return q.Run(data, opts)
}

func (q *Query) run(input any, opts Options) *Result {
	result := &Result{
		Values: make([]any, 0),
	}

	seen := make(map[string]bool)
	iter := q.code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}

		if err, isErr := v.(error); isErr {
			result.Errors = append(result.Errors, formatJQError(err))
			continue
		}

		// Skip nil values
		if v == nil {
			continue
		}

		result.RawCount++

		if opts.Deduplicate {
			key := valueKey(v)
			if seen[key] {
				continue
			}
			seen[key] = true
		}

		result.Values = append(result.Values, v)

		if opts.MaxResults > 0 && len(result.Values) >= opts.MaxResults {
			break
		}
	}
	return result
}

// Eval compiles expression and runs it against data in one step.
func Eval(data []byte, expression string, opts Options) (*Result, error) {
	q, err := Compile(expression)
	if err != nil {
		return nil, err
	}
	return q.Run(data, opts)
}

// formatJQError decorates jq runtime errors with a hint for common mistakes.
// gojq reports these as untyped errors, so the hints match on message text.
func formatJQError(err error) string {
	var haltErr *gojq.HaltError
	if errors.As(err, &haltErr) {
		if haltErr.Value() == nil {
			return "query halted"
		}
		return fmt.Sprintf("query halted with: %v", haltErr.Value())
	}

	errStr := err.Error()

	var hint string
	switch {
	case strings.Contains(errStr, "cannot iterate over: null"):
		hint = " (the path may not exist in this response)"
	case strings.Contains(errStr, "cannot index") && strings.Contains(errStr, "with"):
		hint = " (field not found or wrong type)"
	case strings.Contains(errStr, "object") && strings.Contains(errStr, "cannot be iterated"):
		hint = " (expected array but got object, try removing '[]')"
	case strings.Contains(errStr, "array") && strings.Contains(errStr, "cannot be indexed"):
		hint = " (expected object but got array, try adding '[]')"
	}

	return errStr + hint
}

// valueKey creates a string key for deduplication.
func valueKey(v any) string {
	switch val := v.(type) {
	case string:
		return "s:" + val
	case float64:
		return fmt.Sprintf("n:%v", val)
	case int:
		return fmt.Sprintf("n:%v", val)
	case bool:
		return fmt.Sprintf("b:%v", val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("?:%v", val)
		}
		return "j:" + string(b)
	}
}
