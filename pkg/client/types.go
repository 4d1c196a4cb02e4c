package client

import (
	"errors"
	"fmt"
	"time"
)

// Data source types.
const (
	DataSourceRaw     = "raw"
	DataSourceDerived = "derived"
)

// Data type names recorded by the builders.
const (
	StepCountDelta   = "com.ultimatequack.step_count.delta"
	CaloriesExpended = "com.ultimatequack.calories.expended"
	HeartRateBPM     = "com.ultimatequack.heart_rate.bpm"
	DistanceDelta    = "com.ultimatequack.distance.delta"
)

// Field formats for DataTypeField.Format.
const (
	FormatInteger    = "integer"
	FormatFloatPoint = "floatPoint"
	FormatString     = "string"
	FormatMap        = "map"
)

// Common activity type codes.
const (
	ActivityUnknown = 0
	ActivityBiking  = 1
	ActivityOnFoot  = 2
	ActivityStill   = 3
	ActivityWalking = 7
	ActivityRunning = 8
	ActivityHIIT    = 79
)

// ErrInvalidTimeRange is returned by Validate when an end time precedes its start time.
var ErrInvalidTimeRange = errors.New("end time before start time")

// Application identifies the app that owns a data source or session.
type Application struct {
	PackageName string `json:"packageName"`
	Version     string `json:"version,omitempty"`
	Name        string `json:"name,omitempty"`
	DetailsURL  string `json:"detailsUrl,omitempty"`
}

// Device describes the hardware behind a raw data source.
type Device struct {
	UID          string `json:"uid"`
	Type         string `json:"type"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Version      string `json:"version"`
}

// DataTypeField describes one field of a data type.
type DataTypeField struct {
	Name     string `json:"name"`
	Format   string `json:"format"`
	Optional bool   `json:"optional,omitempty"`
}

// DataType is a namespaced measurement type and its fields.
type DataType struct {
	Name   string
	Fields []DataTypeField
}

// DataSource is a named, typed channel of data points.
// DataStreamID is unique per user and is the key for all dataset operations.
type DataSource struct {
	DataStreamID   string
	DataStreamName string
	Type           string
	Application    Application
	DataTypes      []DataType
	Device         *Device
}

// ValueKind identifies the populated variant of a Value.
type ValueKind int

const (
	KindNone ValueKind = iota
	KindInt
	KindFloat
	KindString
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "none"
	}
}

// Value is a data point field value holding exactly one of an integer, a
// floating-point number, a string or a boolean. Build one with IntValue,
// FloatValue, StringValue or BoolValue.
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	s    string
	b    bool
}

// IntValue returns an integer Value.
func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }

// FloatValue returns a floating-point Value.
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }

// StringValue returns a string Value.
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

// BoolValue returns a boolean Value.
func BoolValue(v bool) Value { return Value{kind: KindBool, b: v} }

// Kind reports which variant is populated.
func (v Value) Kind() ValueKind { return v.kind }

func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

func (v Value) Float() (float64, bool) { return v.f, v.kind == KindFloat }

// Str returns the string variant. It is not named String so that Value
// does not implement fmt.Stringer with a partial result.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Numeric returns the value as float64 for the int and float variants.
func (v Value) Numeric() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// GoString renders the value for debugging and test failure output.
func (v Value) GoString() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("IntValue(%d)", v.i)
	case KindFloat:
		return fmt.Sprintf("FloatValue(%g)", v.f)
	case KindString:
		return fmt.Sprintf("StringValue(%q)", v.s)
	case KindBool:
		return fmt.Sprintf("BoolValue(%t)", v.b)
	}
	return "Value{}"
}

// DataPoint is a timestamped measurement. Times are Unix nanoseconds.
type DataPoint struct {
	StartTimeNanos     int64
	EndTimeNanos       int64
	DataTypeName       string
	Values             []Value
	OriginDataSourceID string
	ModifiedTimeMillis int64
}

// Start returns the start time.
func (p DataPoint) Start() time.Time { return time.Unix(0, p.StartTimeNanos) }

// End returns the end time.
func (p DataPoint) End() time.Time { return time.Unix(0, p.EndTimeNanos) }

// Validate checks that the point does not end before it starts.
// Client methods do not call it.
func (p DataPoint) Validate() error {
	if p.EndTimeNanos < p.StartTimeNanos {
		return fmt.Errorf("data point %s: %w", p.DataTypeName, ErrInvalidTimeRange)
	}
	return nil
}

// Session is a recorded activity interval. Times are Unix milliseconds.
type Session struct {
	ID                 string
	Name               string
	Description        string
	StartTimeMillis    int64
	EndTimeMillis      int64
	ActivityType       int
	Application        Application
	ActiveTimeMillis   int64
	ModifiedTimeMillis int64
}

// Start returns the start time.
func (s Session) Start() time.Time { return time.UnixMilli(s.StartTimeMillis) }

// End returns the end time.
func (s Session) End() time.Time { return time.UnixMilli(s.EndTimeMillis) }

// Duration returns the wall-clock length of the session.
func (s Session) Duration() time.Duration {
	return time.Duration(s.EndTimeMillis-s.StartTimeMillis) * time.Millisecond
}

// Validate checks that the session does not end before it starts.
// Client methods do not call it.
func (s Session) Validate() error {
	if s.EndTimeMillis < s.StartTimeMillis {
		return fmt.Errorf("session %q: %w", s.Name, ErrInvalidTimeRange)
	}
	return nil
}

// Dataset is a time-bounded set of points from one data source.
type Dataset struct {
	DataSourceID      string
	MinStartTimeNanos int64
	MaxEndTimeNanos   int64
	Points            []DataPoint
	NextPageToken     string
}

// Bucket is one aggregation window. Times are Unix milliseconds.
type Bucket struct {
	StartTimeMillis int64
	EndTimeMillis   int64
	Datasets        []Dataset
}

// Start returns the bucket start time.
func (b Bucket) Start() time.Time { return time.UnixMilli(b.StartTimeMillis) }

// AggregateResponse is the result of an aggregate call.
type AggregateResponse struct {
	Buckets []Bucket
}

// Profile is a user's profile and record counts.
type Profile struct {
	UserID      string            `json:"userId"`
	Email       string            `json:"email"`
	DisplayName string            `json:"displayName,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	Statistics  ProfileStatistics `json:"statistics"`
}

// ProfileStatistics counts the records a user owns.
type ProfileStatistics struct {
	DataSourcesCount int `json:"dataSourcesCount"`
	DataPointsCount  int `json:"dataPointsCount"`
	SessionsCount    int `json:"sessionsCount"`
}
