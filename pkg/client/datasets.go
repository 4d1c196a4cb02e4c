package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// DatasetIDForRange returns the dataset id covering [start, end]:
// "<startNanos>-<endNanos>".
func DatasetIDForRange(start, end time.Time) string {
	return strconv.FormatInt(start.UnixNano(), 10) + "-" + strconv.FormatInt(end.UnixNano(), 10)
}

// DatasetIDForDate returns a calendar-date dataset id, "YYYYMMDD", in t's location.
func DatasetIDForDate(t time.Time) string {
	return t.Format("20060102")
}

// DatasetIDForDay returns the range dataset id spanning the calendar day of t
// in t's location, from midnight to the last nanosecond of the day.
func DatasetIDForDay(t time.Time) string {
	start := startOfDay(t)
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return DatasetIDForRange(start, end)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

type insertPayload struct {
	DataSourceID   string      `json:"dataSourceId"`
	MinStartTimeNs string      `json:"minStartTimeNs"`
	MaxEndTimeNs   string      `json:"maxEndTimeNs"`
	DataPoints     []DataPoint `json:"dataPoints"`
	// point carries the same points under the dataset field name some
	// server versions read.
	Point []DataPoint `json:"point"`
}

// InsertDataPoints adds points to the dataset datasetID of a data source.
func (c *Client) InsertDataPoints(ctx context.Context, userID, dataSourceID, datasetID string, points []DataPoint) error {
	if points == nil {
		points = []DataPoint{}
	}
	payload := insertPayload{
		DataSourceID: dataSourceID,
		DataPoints:   points,
		Point:        points,
	}
	if len(points) > 0 {
		lo, hi := points[0].StartTimeNanos, points[0].EndTimeNanos
		for _, p := range points[1:] {
			lo = min(lo, p.StartTimeNanos)
			hi = max(hi, p.EndTimeNanos)
		}
		payload.MinStartTimeNs = strconv.FormatInt(lo, 10)
		payload.MaxEndTimeNs = strconv.FormatInt(hi, 10)
	}

	path := userPath(userID, "dataSources", dataSourceID, "datasets", datasetID)
	if err := c.do(ctx, http.MethodPatch, "dataset", path, nil, payload, nil); err != nil {
		return fmt.Errorf("inserting %d data points into %s/%s: %w", len(points), dataSourceID, datasetID, err)
	}
	return nil
}

// GetDataset retrieves the dataset datasetID of a data source.
func (c *Client) GetDataset(ctx context.Context, userID, dataSourceID, datasetID string) (*Dataset, error) {
	path := userPath(userID, "dataSources", dataSourceID, "datasets", datasetID)
	var ds Dataset
	if err := c.do(ctx, http.MethodGet, "dataset", path, nil, nil, &ds); err != nil {
		return nil, fmt.Errorf("getting dataset %s/%s: %w", dataSourceID, datasetID, err)
	}
	if ds.Points == nil {
		ds.Points = []DataPoint{}
	}
	return &ds, nil
}

// GetDataPoints retrieves the points of a dataset.
func (c *Client) GetDataPoints(ctx context.Context, userID, dataSourceID, datasetID string) ([]DataPoint, error) {
	ds, err := c.GetDataset(ctx, userID, dataSourceID, datasetID)
	if err != nil {
		return nil, err
	}
	return ds.Points, nil
}
