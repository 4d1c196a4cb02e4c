package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

// Source is the part of the HealthyDuck client the fetch helpers need.
// *client.Client implements it.
type Source interface {
	Aggregate(ctx context.Context, userID string, req client.AggregateRequest) (*client.AggregateResponse, error)
	ListSessions(ctx context.Context, userID string, r *client.SessionRange) ([]client.Session, error)
}

// FetchDailySteps aggregates step deltas over [start, end) into day buckets.
func FetchDailySteps(ctx context.Context, src Source, userID string, start, end time.Time, loc *time.Location) ([]DailyStepCount, error) {
	resp, err := src.Aggregate(ctx, userID, client.AggregateRequest{
		StartTime:  start,
		EndTime:    end,
		DataTypes:  []string{client.StepCountDelta},
		BucketType: client.BucketDay,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching daily steps: %w", err)
	}
	return DailySteps(resp, client.StepCountDelta, loc), nil
}

// FetchActivitySummary fetches daily steps and the sessions in [start, end]
// and summarizes them.
func FetchActivitySummary(ctx context.Context, src Source, userID string, start, end time.Time, loc *time.Location) (*ActivitySummary, error) {
	days, err := FetchDailySteps(ctx, src, userID, start, end, loc)
	if err != nil {
		return nil, err
	}
	sessions, err := FetchSessions(ctx, src, userID, start, end)
	if err != nil {
		return nil, err
	}
	summary := Summarize(days, sessions)
	return &summary, nil
}

// FetchSessions lists the sessions in [start, end].
func FetchSessions(ctx context.Context, src Source, userID string, start, end time.Time) ([]client.Session, error) {
	sessions, err := src.ListSessions(ctx, userID, &client.SessionRange{Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("fetching sessions: %w", err)
	}
	return sessions, nil
}
