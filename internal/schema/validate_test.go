package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createdSource struct {
	DataStreamID   string `json:"dataStreamId" jsonschema:"required,minLength=1"`
	DataStreamName string `json:"dataStreamName,omitempty"`
}

type sessionList struct {
	Session []struct {
		ID           string `json:"id" jsonschema:"required"`
		ActivityType int    `json:"activityType"`
	} `json:"session" jsonschema:"required"`
}

func TestFor_requiredFields(t *testing.T) {
	v, err := For[createdSource]()
	require.NoError(t, err)

	assert.True(t, v.Validate([]byte(`{"dataStreamId": "steps:1"}`)).Valid)
	assert.True(t, v.Validate([]byte(`{"dataStreamId": "steps:1", "extra": 1}`)).Valid, "unknown properties allowed")

	result := v.Validate([]byte(`{"dataStreamName": "Steps"}`))
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "missing property")
	assert.Contains(t, result.Errors[0], "dataStreamId")

	result = v.Validate([]byte(`{"dataStreamId": ""}`))
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "/dataStreamId: minLength")

	assert.Equal(t, "object", v.Schema()["type"])
}

func TestFor_nestedPaths(t *testing.T) {
	v := MustFor[sessionList]()

	assert.True(t, v.Validate([]byte(`{"session": []}`)).Valid)
	assert.True(t, v.Validate([]byte(`{"session": [{"id": "a", "activityType": 8}]}`)).Valid)

	result := v.Validate([]byte(`{"session": [{"id": "a"}, {"activityType": "eight"}]}`))
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "/session/1")
	assert.Contains(t, result.Errors[1], "/session/1/activityType: got string, want integer")

	result = v.Validate([]byte(`{"session": {}}`))
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "/session: got object, want array")
}

func TestValidate_invalidJSON(t *testing.T) {
	v := MustFor[createdSource]()
	result := v.Validate([]byte(`{not json`))
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "invalid JSON")
	assert.ErrorContains(t, result.Err(), "schema validation failed: invalid JSON")
}

func TestFromJSON(t *testing.T) {
	v, err := FromJSON([]byte(`{"type": "object", "properties": {"error": {"type": "string"}}, "required": ["error"]}`))
	require.NoError(t, err)

	result := v.Validate([]byte(`{"error": "Not found"}`))
	assert.True(t, result.Valid)
	assert.NoError(t, result.Err())

	assert.False(t, v.ValidateValue(map[string]any{"message": "x"}).Valid)

	_, err = FromJSON([]byte(`{"type": 12}`))
	assert.Error(t, err)

	_, err = FromJSON([]byte(`not a schema`))
	assert.Error(t, err)
}

func TestValidateValue_nilValidator(t *testing.T) {
	var v *Validator
	result := v.ValidateValue(map[string]any{})
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"schema not compiled"}, result.Errors)
}
