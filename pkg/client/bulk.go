package client

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// StepEntry is one step count observed at Time.
type StepEntry struct {
	Time  time.Time
	Steps int64
}

// BulkResult reports what BulkInsertSteps wrote.
type BulkResult struct {
	DataSourceID string
	// DatasetIDs lists one dataset per calendar day, in insertion order.
	DatasetIDs []string
	Points     int
}

// civilDate is a calendar day independent of its *time.Location.
type civilDate struct {
	year  int
	month time.Month
	day   int
}

// GroupStepsByDay groups entries by calendar day in each entry's location and
// converts them to step points. Days are returned in ascending order; entries
// keep their input order within a day. Each day is keyed by the midnight of
// its first entry, so entries of one date with distinct but equivalent
// locations share a group.
func GroupStepsByDay(entries []StepEntry) ([]time.Time, map[time.Time][]DataPoint) {
	groups := make(map[time.Time][]DataPoint)
	keys := make(map[civilDate]time.Time)
	var days []time.Time
	for _, e := range entries {
		y, m, d := e.Time.Date()
		day, ok := keys[civilDate{y, m, d}]
		if !ok {
			day = startOfDay(e.Time)
			keys[civilDate{y, m, d}] = day
			days = append(days, day)
		}
		groups[day] = append(groups[day], CreateStepsDataPoint(e.Steps, e.Time, e.Time))
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, groups
}

// BulkInsertSteps creates a derived step data source and inserts entries into
// it with one InsertDataPoints call per calendar day. It stops at the first
// failed insert; days already written stay written and the partial result is
// returned with the error.
func (c *Client) BulkInsertSteps(ctx context.Context, userID string, entries []StepEntry) (*BulkResult, error) {
	streamID := "steps_source_" + uuid.NewString()
	if _, err := c.CreateDataSource(ctx, userID, StepsDataSource(streamID, "Bulk Steps Data Source")); err != nil {
		return nil, fmt.Errorf("bulk inserting steps: %w", err)
	}

	result := &BulkResult{DataSourceID: streamID}
	days, groups := GroupStepsByDay(entries)
	for _, day := range days {
		points := groups[day]
		datasetID := DatasetIDForDay(day)
		if err := c.InsertDataPoints(ctx, userID, streamID, datasetID, points); err != nil {
			return result, fmt.Errorf("bulk inserting steps for %s: %w", day.Format(time.DateOnly), err)
		}
		result.DatasetIDs = append(result.DatasetIDs, datasetID)
		result.Points += len(points)
		slog.Debug("inserted daily steps",
			slog.String("data_source", streamID),
			slog.String("day", day.Format(time.DateOnly)),
			slog.Int("points", len(points)),
		)
	}
	return result, nil
}
