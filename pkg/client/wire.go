package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// The server family this client talks to is not consistent about number
// encoding: nanosecond timestamps arrive as strings, millisecond timestamps
// as strings or numbers. Decoding therefore goes through json.RawMessage.

var (
	errEmptyValue = errors.New("value has no populated variant")
	errMapValue   = errors.New("unsupported mapVal value")
)

// parseInt64 decodes a JSON number or numeric string. null and "" decode to 0.
func parseInt64(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
		if text == "" {
			return 0, nil
		}
	} else {
		text = string(raw)
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s as integer: %w", raw, err)
	}
	return int64(math.Round(f)), nil
}

// MarshalJSON encodes the populated variant as a one-key object.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return json.Marshal(struct {
			IntVal int64 `json:"intVal"`
		}{v.i})
	case KindFloat:
		return json.Marshal(struct {
			FpVal float64 `json:"fpVal"`
		}{v.f})
	case KindString:
		return json.Marshal(struct {
			StringVal string `json:"stringVal"`
		}{v.s})
	case KindBool:
		return json.Marshal(struct {
			BoolVal bool `json:"boolVal"`
		}{v.b})
	}
	return nil, errEmptyValue
}

type valueWire struct {
	IntVal    json.RawMessage `json:"intVal"`
	FpVal     *float64        `json:"fpVal"`
	StringVal *string         `json:"stringVal"`
	BoolVal   *bool           `json:"boolVal"`
	MapVal    json.RawMessage `json:"mapVal"`
}

// UnmarshalJSON accepts an object with exactly one of intVal, fpVal,
// stringVal or boolVal. null members count as absent.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w valueWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	hasInt := len(w.IntVal) > 0 && !bytes.Equal(w.IntVal, []byte("null"))

	n := 0
	for _, set := range []bool{hasInt, w.FpVal != nil, w.StringVal != nil, w.BoolVal != nil} {
		if set {
			n++
		}
	}
	switch {
	case n > 1:
		return fmt.Errorf("value has %d populated variants: %s", n, data)
	case n == 0 && len(w.MapVal) > 0 && !bytes.Equal(w.MapVal, []byte("null")):
		return fmt.Errorf("%w: %s", errMapValue, data)
	case n == 0:
		return errEmptyValue
	}

	switch {
	case hasInt:
		i, err := parseInt64(w.IntVal)
		if err != nil {
			return fmt.Errorf("intVal: %w", err)
		}
		*v = IntValue(i)
	case w.FpVal != nil:
		*v = FloatValue(*w.FpVal)
	case w.StringVal != nil:
		*v = StringValue(*w.StringVal)
	default:
		*v = BoolValue(*w.BoolVal)
	}
	return nil
}

type dataTypeWire struct {
	Name  string          `json:"name"`
	Field []DataTypeField `json:"field"`
}

func (t DataType) MarshalJSON() ([]byte, error) {
	fields := t.Fields
	if fields == nil {
		fields = []DataTypeField{}
	}
	return json.Marshal(dataTypeWire{Name: t.Name, Field: fields})
}

func (t *DataType) UnmarshalJSON(data []byte) error {
	var w dataTypeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = DataType{Name: w.Name, Fields: w.Field}
	return nil
}

type dataSourceWire struct {
	DataStreamID   string          `json:"dataStreamId"`
	DataStreamName string          `json:"dataStreamName"`
	Type           string          `json:"type"`
	Application    *Application    `json:"application,omitempty"`
	DataType       json.RawMessage `json:"dataType,omitempty"`
	Device         *Device         `json:"device,omitempty"`
}

// MarshalJSON writes dataType as a single object when the source has exactly
// one data type, which is the shape the server validates, and as an array otherwise.
func (ds DataSource) MarshalJSON() ([]byte, error) {
	w := dataSourceWire{
		DataStreamID:   ds.DataStreamID,
		DataStreamName: ds.DataStreamName,
		Type:           ds.Type,
		Device:         ds.Device,
	}
	if ds.Application != (Application{}) {
		app := ds.Application
		w.Application = &app
	}
	var err error
	switch len(ds.DataTypes) {
	case 0:
	case 1:
		w.DataType, err = json.Marshal(ds.DataTypes[0])
	default:
		w.DataType, err = json.Marshal(ds.DataTypes)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func (ds *DataSource) UnmarshalJSON(data []byte) error {
	var w dataSourceWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := DataSource{
		DataStreamID:   w.DataStreamID,
		DataStreamName: w.DataStreamName,
		Type:           w.Type,
		Device:         w.Device,
	}
	if w.Application != nil {
		out.Application = *w.Application
	}
	raw := bytes.TrimSpace(w.DataType)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '[':
		if err := json.Unmarshal(raw, &out.DataTypes); err != nil {
			return fmt.Errorf("dataType: %w", err)
		}
	default:
		var dt DataType
		if err := json.Unmarshal(raw, &dt); err != nil {
			return fmt.Errorf("dataType: %w", err)
		}
		out.DataTypes = []DataType{dt}
	}
	*ds = out
	return nil
}

type dataPointOut struct {
	StartTimeNanos     string  `json:"startTimeNanos"`
	EndTimeNanos       string  `json:"endTimeNanos"`
	DataTypeName       string  `json:"dataTypeName"`
	Value              []Value `json:"value"`
	OriginDataSourceID string  `json:"originDataSourceId,omitempty"`
	ModifiedTimeMillis string  `json:"modifiedTimeMillis,omitempty"`
}

type dataPointIn struct {
	StartTimeNanos     json.RawMessage   `json:"startTimeNanos"`
	EndTimeNanos       json.RawMessage   `json:"endTimeNanos"`
	DataTypeName       string            `json:"dataTypeName"`
	Value              []json.RawMessage `json:"value"`
	OriginDataSourceID *string           `json:"originDataSourceId"`
	ModifiedTimeMillis json.RawMessage   `json:"modifiedTimeMillis"`
}

// MarshalJSON writes nanosecond timestamps as decimal strings; they do not
// survive a round trip through float64.
func (p DataPoint) MarshalJSON() ([]byte, error) {
	values := p.Values
	if values == nil {
		values = []Value{}
	}
	out := dataPointOut{
		StartTimeNanos:     strconv.FormatInt(p.StartTimeNanos, 10),
		EndTimeNanos:       strconv.FormatInt(p.EndTimeNanos, 10),
		DataTypeName:       p.DataTypeName,
		Value:              values,
		OriginDataSourceID: p.OriginDataSourceID,
	}
	if p.ModifiedTimeMillis != 0 {
		out.ModifiedTimeMillis = strconv.FormatInt(p.ModifiedTimeMillis, 10)
	}
	return json.Marshal(out)
}

func (p *DataPoint) UnmarshalJSON(data []byte) error {
	var w dataPointIn
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := DataPoint{DataTypeName: w.DataTypeName}
	for i, raw := range w.Value {
		var v Value
		err := json.Unmarshal(raw, &v)
		switch {
		case errors.Is(err, errMapValue):
			// Map values have no Value variant; the point keeps its other values.
			continue
		case err != nil:
			return fmt.Errorf("value[%d]: %w", i, err)
		}
		out.Values = append(out.Values, v)
	}
	var err error
	if out.StartTimeNanos, err = parseInt64(w.StartTimeNanos); err != nil {
		return fmt.Errorf("startTimeNanos: %w", err)
	}
	if out.EndTimeNanos, err = parseInt64(w.EndTimeNanos); err != nil {
		return fmt.Errorf("endTimeNanos: %w", err)
	}
	if out.ModifiedTimeMillis, err = parseInt64(w.ModifiedTimeMillis); err != nil {
		return fmt.Errorf("modifiedTimeMillis: %w", err)
	}
	if w.OriginDataSourceID != nil {
		out.OriginDataSourceID = *w.OriginDataSourceID
	}
	*p = out
	return nil
}

type sessionOut struct {
	ID                 string       `json:"id,omitempty"`
	Name               string       `json:"name"`
	Description        string       `json:"description,omitempty"`
	StartTimeMillis    int64        `json:"startTimeMillis"`
	EndTimeMillis      int64        `json:"endTimeMillis"`
	ActivityType       int          `json:"activityType"`
	Application        *Application `json:"application,omitempty"`
	ActiveTimeMillis   int64        `json:"activeTimeMillis,omitempty"`
	ModifiedTimeMillis int64        `json:"modifiedTimeMillis,omitempty"`
}

type sessionIn struct {
	ID                 string          `json:"id"`
	Name               *string         `json:"name"`
	Description        *string         `json:"description"`
	StartTimeMillis    json.RawMessage `json:"startTimeMillis"`
	EndTimeMillis      json.RawMessage `json:"endTimeMillis"`
	ActivityType       json.RawMessage `json:"activityType"`
	Application        *Application    `json:"application"`
	ActiveTimeMillis   json.RawMessage `json:"activeTimeMillis"`
	ModifiedTimeMillis json.RawMessage `json:"modifiedTimeMillis"`
}

func (s Session) MarshalJSON() ([]byte, error) {
	out := sessionOut{
		ID:                 s.ID,
		Name:               s.Name,
		Description:        s.Description,
		StartTimeMillis:    s.StartTimeMillis,
		EndTimeMillis:      s.EndTimeMillis,
		ActivityType:       s.ActivityType,
		ActiveTimeMillis:   s.ActiveTimeMillis,
		ModifiedTimeMillis: s.ModifiedTimeMillis,
	}
	if s.Application != (Application{}) {
		app := s.Application
		out.Application = &app
	}
	return json.Marshal(out)
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var w sessionIn
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Session{ID: w.ID}
	if w.Name != nil {
		out.Name = *w.Name
	}
	if w.Description != nil {
		out.Description = *w.Description
	}
	if w.Application != nil {
		out.Application = *w.Application
	}
	fields := []struct {
		name string
		raw  json.RawMessage
		dst  *int64
	}{
		{"startTimeMillis", w.StartTimeMillis, &out.StartTimeMillis},
		{"endTimeMillis", w.EndTimeMillis, &out.EndTimeMillis},
		{"activeTimeMillis", w.ActiveTimeMillis, &out.ActiveTimeMillis},
		{"modifiedTimeMillis", w.ModifiedTimeMillis, &out.ModifiedTimeMillis},
	}
	for _, f := range fields {
		n, err := parseInt64(f.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = n
	}
	activity, err := parseInt64(w.ActivityType)
	if err != nil {
		return fmt.Errorf("activityType: %w", err)
	}
	out.ActivityType = int(activity)
	*s = out
	return nil
}

type datasetWire struct {
	DataSourceID   string          `json:"dataSourceId"`
	MinStartTimeNs json.RawMessage `json:"minStartTimeNs"`
	MaxEndTimeNs   json.RawMessage `json:"maxEndTimeNs"`
	Point          []DataPoint     `json:"point"`
	DataPoints     []DataPoint     `json:"dataPoints"`
	NextPageToken  string          `json:"nextPageToken"`
}

func (d *Dataset) UnmarshalJSON(data []byte) error {
	var w datasetWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Dataset{
		DataSourceID:  w.DataSourceID,
		Points:        w.Point,
		NextPageToken: w.NextPageToken,
	}
	// Servers that echo both keys carry the same points under each.
	if len(out.Points) == 0 {
		out.Points = w.DataPoints
	}
	var err error
	if out.MinStartTimeNanos, err = parseInt64(w.MinStartTimeNs); err != nil {
		return fmt.Errorf("minStartTimeNs: %w", err)
	}
	if out.MaxEndTimeNanos, err = parseInt64(w.MaxEndTimeNs); err != nil {
		return fmt.Errorf("maxEndTimeNs: %w", err)
	}
	*d = out
	return nil
}

type bucketWire struct {
	StartTimeMillis json.RawMessage `json:"startTimeMillis"`
	EndTimeMillis   json.RawMessage `json:"endTimeMillis"`
	StartTimeNanos  json.RawMessage `json:"startTimeNanos"`
	EndTimeNanos    json.RawMessage `json:"endTimeNanos"`
	Dataset         json.RawMessage `json:"dataset"`
}

// UnmarshalJSON accepts millisecond or nanosecond bucket bounds and a dataset
// list or an object of datasets keyed by name. Keyed datasets are ordered by key.
func (b *Bucket) UnmarshalJSON(data []byte) error {
	var w bucketWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var out Bucket
	var err error
	if out.StartTimeMillis, err = bucketBound(w.StartTimeMillis, w.StartTimeNanos); err != nil {
		return fmt.Errorf("bucket start: %w", err)
	}
	if out.EndTimeMillis, err = bucketBound(w.EndTimeMillis, w.EndTimeNanos); err != nil {
		return fmt.Errorf("bucket end: %w", err)
	}

	raw := bytes.TrimSpace(w.Dataset)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '{':
		var keyed map[string]Dataset
		if err := json.Unmarshal(raw, &keyed); err != nil {
			return fmt.Errorf("dataset: %w", err)
		}
		keys := make([]string, 0, len(keyed))
		for k := range keyed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			ds := keyed[k]
			if ds.DataSourceID == "" {
				ds.DataSourceID = k
			}
			out.Datasets = append(out.Datasets, ds)
		}
	default:
		if err := json.Unmarshal(raw, &out.Datasets); err != nil {
			return fmt.Errorf("dataset: %w", err)
		}
	}
	*b = out
	return nil
}

func bucketBound(millis, nanos json.RawMessage) (int64, error) {
	if len(bytes.TrimSpace(millis)) > 0 && !bytes.Equal(bytes.TrimSpace(millis), []byte("null")) {
		return parseInt64(millis)
	}
	n, err := parseInt64(nanos)
	if err != nil {
		return 0, err
	}
	return n / 1_000_000, nil
}

func (r *AggregateResponse) UnmarshalJSON(data []byte) error {
	var w struct {
		Bucket []Bucket `json:"bucket"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Buckets = w.Bucket
	return nil
}

func (d Dataset) MarshalJSON() ([]byte, error) {
	points := d.Points
	if points == nil {
		points = []DataPoint{}
	}
	return json.Marshal(struct {
		DataSourceID   string      `json:"dataSourceId"`
		MinStartTimeNs string      `json:"minStartTimeNs"`
		MaxEndTimeNs   string      `json:"maxEndTimeNs"`
		Point          []DataPoint `json:"point"`
		NextPageToken  string      `json:"nextPageToken,omitempty"`
	}{
		DataSourceID:   d.DataSourceID,
		MinStartTimeNs: strconv.FormatInt(d.MinStartTimeNanos, 10),
		MaxEndTimeNs:   strconv.FormatInt(d.MaxEndTimeNanos, 10),
		Point:          points,
		NextPageToken:  d.NextPageToken,
	})
}

func (b Bucket) MarshalJSON() ([]byte, error) {
	datasets := b.Datasets
	if datasets == nil {
		datasets = []Dataset{}
	}
	return json.Marshal(struct {
		StartTimeMillis int64     `json:"startTimeMillis"`
		EndTimeMillis   int64     `json:"endTimeMillis"`
		Dataset         []Dataset `json:"dataset"`
	}{b.StartTimeMillis, b.EndTimeMillis, datasets})
}

func (r AggregateResponse) MarshalJSON() ([]byte, error) {
	buckets := r.Buckets
	if buckets == nil {
		buckets = []Bucket{}
	}
	return json.Marshal(struct {
		Bucket []Bucket `json:"bucket"`
	}{buckets})
}
