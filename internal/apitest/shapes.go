package apitest

import "github.com/ultimatequack/healthyduck-go/internal/schema"

// Response shapes the checks expect. Only the fields a check relies on are
// described; servers may return more.

type createdDataSourceShape struct {
	DataStreamID   string `json:"dataStreamId" jsonschema:"required,minLength=1"`
	DataStreamName string `json:"dataStreamName,omitempty"`
	Type           string `json:"type,omitempty" jsonschema:"enum=raw,enum=derived"`
}

type dataSourceListShape struct {
	DataSource []struct {
		DataStreamID string `json:"dataStreamId" jsonschema:"required"`
	} `json:"dataSource" jsonschema:"required"`
}

type createdSessionShape struct {
	ID           string `json:"id" jsonschema:"required,minLength=1"`
	ActivityType int    `json:"activityType,omitempty"`
}

type sessionListShape struct {
	Session []struct {
		ID string `json:"id" jsonschema:"required"`
	} `json:"session" jsonschema:"required"`
}

var (
	createdDataSourceSchema = schema.MustFor[createdDataSourceShape]()
	dataSourceListSchema    = schema.MustFor[dataSourceListShape]()
	createdSessionSchema    = schema.MustFor[createdSessionShape]()
	sessionListSchema       = schema.MustFor[sessionListShape]()
)
