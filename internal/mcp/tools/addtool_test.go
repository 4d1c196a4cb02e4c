package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

type rawInner struct {
	Schema json.RawMessage `json:"schema,omitempty"`
}

func TestCheckOutputSchema(t *testing.T) {
	tests := []struct {
		name   string
		check  func()
		panics bool
	}{
		{"nil slice without omitzero", func() {
			CheckOutputSchema[struct {
				Items []string `json:"items"`
			}]("bad_slice")
		}, true},
		{"omitzero slice", func() {
			CheckOutputSchema[struct {
				Items []string `json:"items,omitzero"`
			}]("omitzero")
		}, false},
		{"omitempty slice", func() {
			CheckOutputSchema[struct {
				Items []string `json:"items,omitempty"`
			}]("omitempty")
		}, false},
		{"pointer to slice", func() {
			CheckOutputSchema[struct {
				Items *[]string `json:"items"`
			}]("pointer")
		}, false},
		{"untyped any", func() { CheckOutputSchema[any]("any") }, false},
		{"raw message", func() {
			CheckOutputSchema[struct {
				Data json.RawMessage `json:"data,omitempty"`
			}]("raw")
		}, true},
		{"raw message slice", func() {
			CheckOutputSchema[struct {
				Items []json.RawMessage `json:"items,omitzero"`
			}]("raw_slice")
		}, true},
		{"nested raw message", func() {
			CheckOutputSchema[struct {
				Nested rawInner `json:"nested"`
			}]("raw_nested")
		}, true},
		{"tool outputs", func() {
			CheckOutputSchema[ListDataSourcesOutput](NameListDataSources)
			CheckOutputSchema[ActivitySummaryOutput](NameActivitySummary)
			CheckOutputSchema[ActivityPatternsOutput](NameActivityPatterns)
			CheckOutputSchema[QueryAggregateOutput](NameQueryAggregate)
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.panics {
				assert.Panics(t, tt.check)
			} else {
				assert.NotPanics(t, tt.check)
			}
		})
	}
}
