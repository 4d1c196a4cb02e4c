package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Bucket granularities for AggregateRequest.BucketType.
const (
	BucketHour  = "hour"
	BucketDay   = "day"
	BucketWeek  = "week"
	BucketMonth = "month"
)

// AggregateRequest asks for data of the given types over [StartTime, EndTime),
// bucketed by BucketType. An empty BucketType means BucketDay.
type AggregateRequest struct {
	StartTime  time.Time
	EndTime    time.Time
	DataTypes  []string
	BucketType string
}

// BucketDuration returns the fixed window length for a bucket type.
// Months are 30 days; unknown types fall back to one day.
func BucketDuration(bucketType string) time.Duration {
	switch strings.ToLower(bucketType) {
	case BucketHour:
		return time.Hour
	case BucketWeek:
		return 7 * 24 * time.Hour
	case BucketMonth:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

type aggregateBy struct {
	DataTypeName string `json:"dataTypeName"`
}

type bucketByTime struct {
	DurationMillis int64 `json:"durationMillis"`
}

// aggregatePayload carries the nanosecond form and the millisecond
// aggregateBy/bucketByTime form of the same request.
type aggregatePayload struct {
	StartTimeNanos  int64         `json:"startTimeNanos"`
	EndTimeNanos    int64         `json:"endTimeNanos"`
	DataTypes       []string      `json:"dataTypes"`
	BucketType      string        `json:"bucketType"`
	StartTimeMillis int64         `json:"startTimeMillis"`
	EndTimeMillis   int64         `json:"endTimeMillis"`
	AggregateBy     []aggregateBy `json:"aggregateBy"`
	BucketByTime    bucketByTime  `json:"bucketByTime"`
}

// Aggregate returns bucketed aggregation results for a user.
func (c *Client) Aggregate(ctx context.Context, userID string, req AggregateRequest) (*AggregateResponse, error) {
	bucketType := req.BucketType
	if bucketType == "" {
		bucketType = BucketDay
	}
	dataTypes := req.DataTypes
	if dataTypes == nil {
		dataTypes = []string{}
	}
	payload := aggregatePayload{
		StartTimeNanos:  req.StartTime.UnixNano(),
		EndTimeNanos:    req.EndTime.UnixNano(),
		DataTypes:       dataTypes,
		BucketType:      bucketType,
		StartTimeMillis: req.StartTime.UnixMilli(),
		EndTimeMillis:   req.EndTime.UnixMilli(),
		AggregateBy:     make([]aggregateBy, len(dataTypes)),
		BucketByTime:    bucketByTime{DurationMillis: BucketDuration(bucketType).Milliseconds()},
	}
	for i, name := range dataTypes {
		payload.AggregateBy[i] = aggregateBy{DataTypeName: name}
	}

	var resp AggregateResponse
	if err := c.do(ctx, http.MethodPost, "aggregate", userPath(userID, "dataset", "aggregate"), nil, payload, &resp); err != nil {
		return nil, fmt.Errorf("aggregating %s: %w", strings.Join(dataTypes, ","), err)
	}
	if resp.Buckets == nil {
		resp.Buckets = []Bucket{}
	}
	return &resp, nil
}

// DailyTotal is one UTC calendar day of a daily aggregation. Date is
// YYYY-MM-DD; Count is the number of values summed into Value.
type DailyTotal struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// DailyAggregation holds per-day totals, oldest first, including days with
// no data.
type DailyAggregation struct {
	Aggregates []DailyTotal `json:"aggregates"`
	DataType   string       `json:"dataType"`
	Period     string       `json:"period"`
}

// GetDailyAggregation sums values of dataType per day over the last days
// days, ending now. A non-positive days or empty dataType leaves the choice
// to the server, which defaults to 7 days of step counts.
func (c *Client) GetDailyAggregation(ctx context.Context, userID string, days int, dataType string) (*DailyAggregation, error) {
	query := make(url.Values)
	if days > 0 {
		query.Set("days", strconv.Itoa(days))
	}
	if dataType != "" {
		query.Set("dataType", dataType)
	}

	var agg DailyAggregation
	if err := c.do(ctx, http.MethodGet, "aggregate_daily", userPath(userID, "dataset", "aggregate", "daily"), query, nil, &agg); err != nil {
		return nil, fmt.Errorf("getting daily aggregation: %w", err)
	}
	if agg.Aggregates == nil {
		agg.Aggregates = []DailyTotal{}
	}
	return &agg, nil
}
