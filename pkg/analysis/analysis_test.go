package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultimatequack/healthyduck-go/internal/testsupport"
	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

func bucket(day time.Time, values ...client.Value) client.Bucket {
	points := make([]client.DataPoint, 0, len(values))
	for _, v := range values {
		points = append(points, client.DataPoint{
			StartTimeNanos: day.UnixNano(),
			EndTimeNanos:   day.Add(24 * time.Hour).UnixNano(),
			DataTypeName:   client.StepCountDelta,
			Values:         []client.Value{v},
		})
	}
	return client.Bucket{
		StartTimeMillis: day.UnixMilli(),
		EndTimeMillis:   day.Add(24 * time.Hour).UnixMilli(),
		Datasets:        []client.Dataset{{Points: points}},
	}
}

func TestDailySteps(t *testing.T) {
	day1 := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	day3 := day2.AddDate(0, 0, 1)
	resp := &client.AggregateResponse{Buckets: []client.Bucket{
		bucket(day1, client.IntValue(1000)),
		bucket(day2, client.FloatValue(1999.6), client.IntValue(1)),
		bucket(day3),
	}}
	resp.Buckets[2].Datasets[0].Points = append(resp.Buckets[2].Datasets[0].Points, client.DataPoint{
		DataTypeName: client.HeartRateBPM,
		Values:       []client.Value{client.FloatValue(70)},
	})

	rows := DailySteps(resp, client.StepCountDelta, time.UTC)
	require.Len(t, rows, 3)
	assert.Equal(t, DailyStepCount{Date: day1, Steps: 1000}, rows[0])
	assert.Equal(t, int64(2001), rows[1].Steps)
	assert.Zero(t, rows[2].Steps, "other data types are ignored")

	assert.Empty(t, DailySteps(nil, "", time.UTC))
	assert.NotNil(t, DailySteps(&client.AggregateResponse{}, "", nil))
}

func TestSummarize(t *testing.T) {
	day1 := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	resp := &client.AggregateResponse{Buckets: []client.Bucket{
		bucket(day1, client.IntValue(1000)),
		bucket(day1.AddDate(0, 0, 1), client.IntValue(2000)),
	}}

	summary := Summarize(DailySteps(resp, client.StepCountDelta, time.UTC), nil)
	assert.Equal(t, int64(3000), summary.TotalSteps)
	assert.Equal(t, 1500.0, summary.AvgDailySteps)
	assert.Equal(t, int64(2000), summary.MaxDailySteps)
	assert.Equal(t, 2, summary.ActiveDays)
	assert.Zero(t, summary.TotalSessions)
	assert.Empty(t, summary.ActivityTypes)
}

func TestSummarize_sessionsAndInactiveDays(t *testing.T) {
	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	days := []DailyStepCount{
		{Date: day, Steps: 0},
		{Date: day.Add(time.Hour), Steps: 300},
		{Date: day.Add(2 * time.Hour), Steps: 500},
		{Date: day.AddDate(0, 0, 1), Steps: 100},
	}
	sessions := []client.Session{
		{StartTimeMillis: 0, EndTimeMillis: 45 * 60 * 1000, ActivityType: client.ActivityRunning},
		{StartTimeMillis: 0, EndTimeMillis: 15 * 60 * 1000, ActivityType: client.ActivityBiking},
		{StartTimeMillis: 0, EndTimeMillis: 30 * 60 * 1000, ActivityType: client.ActivityRunning},
	}

	summary := Summarize(days, sessions)
	assert.Equal(t, int64(900), summary.TotalSteps)
	assert.Equal(t, 225.0, summary.AvgDailySteps)
	assert.Equal(t, 2, summary.ActiveDays, "hourly rows on one date count once")
	assert.Equal(t, 3, summary.TotalSessions)
	assert.Equal(t, 90.0, summary.TotalWorkoutMinutes)
	assert.Equal(t, []int{client.ActivityBiking, client.ActivityRunning}, summary.ActivityTypes)
}

func TestSummarize_empty(t *testing.T) {
	summary := Summarize(nil, nil)
	assert.Zero(t, summary.AvgDailySteps)
	assert.Zero(t, summary.MaxDailySteps)
	assert.Zero(t, summary.ActiveDays)
}

func TestWeeklyTrends(t *testing.T) {
	// 2024-12-30 is Monday of ISO week 1 of 2025.
	monday := time.Date(2024, time.December, 30, 0, 0, 0, 0, time.UTC)
	days := []DailyStepCount{
		{Date: monday.AddDate(0, 0, 7), Steps: 5000},
		{Date: monday, Steps: 1000},
		{Date: monday.AddDate(0, 0, 1), Steps: 2000},
		{Date: monday.AddDate(0, 0, 2), Steps: 4000},
		{Date: monday.AddDate(0, 0, -1), Steps: 800},
	}

	trends := WeeklyTrends(days)
	require.Len(t, trends, 3)

	assert.Equal(t, WeeklyTrend{Year: 2024, Week: 52, Sum: 800, Mean: 800, Std: 0, Count: 1}, trends[0])

	assert.Equal(t, 2025, trends[1].Year)
	assert.Equal(t, 1, trends[1].Week)
	assert.Equal(t, int64(7000), trends[1].Sum)
	assert.Equal(t, 2333.33, trends[1].Mean)
	assert.Equal(t, 1527.53, trends[1].Std)
	assert.Equal(t, 3, trends[1].Count)

	assert.Equal(t, 2, trends[2].Week)
	assert.Empty(t, WeeklyTrends(nil))
}

func TestDetectActivityPatterns(t *testing.T) {
	at := func(day, hour int) int64 {
		return time.Date(2025, time.March, day, hour, 15, 0, 0, time.UTC).UnixMilli()
	}
	session := func(day, hour, minutes, activity int) client.Session {
		start := at(day, hour)
		return client.Session{StartTimeMillis: start, EndTimeMillis: start + int64(minutes)*60_000, ActivityType: activity}
	}
	// March 10 2025 is a Monday.
	sessions := []client.Session{
		session(10, 7, 30, client.ActivityRunning),
		session(11, 7, 30, client.ActivityRunning),
		session(12, 18, 60, client.ActivityBiking),
		session(13, 18, 60, client.ActivityHIIT),
		session(17, 7, 20, client.ActivityWalking),
		session(17, 12, 40, 1001),
		session(18, 20, 40, 1002),
		session(19, 6, 40, 1003),
	}

	p := DetectActivityPatterns(sessions, time.UTC)
	assert.Equal(t, []HourCount{{Hour: 7, Count: 3}, {Hour: 18, Count: 2}, {Hour: 6, Count: 1}}, p.PreferredHours)
	assert.Equal(t, []DayCount{
		{Day: "Monday", Count: 3},
		{Day: "Tuesday", Count: 2},
		{Day: "Wednesday", Count: 2},
		{Day: "Thursday", Count: 1},
	}, p.PreferredDays)
	assert.Equal(t, 40.0, p.AvgSessionMinutes)
	require.Len(t, p.CommonActivities, TopActivities)
	assert.Equal(t, ActivityCount{ActivityType: client.ActivityRunning, Count: 2}, p.CommonActivities[0])
	assert.Equal(t, ActivityCount{ActivityType: client.ActivityBiking, Count: 1}, p.CommonActivities[1])
	assert.Equal(t, 8, p.SessionsConsidered)
}

func TestDetectActivityPatterns_location(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	start := time.Date(2025, time.March, 9, 23, 0, 0, 0, time.UTC)
	s := client.Session{StartTimeMillis: start.UnixMilli(), EndTimeMillis: start.Add(time.Hour).UnixMilli()}

	p := DetectActivityPatterns([]client.Session{s}, tokyo)
	assert.Equal(t, 8, p.PreferredHours[0].Hour)
	assert.Equal(t, "Monday", p.PreferredDays[0].Day)
}

func TestDetectActivityPatterns_empty(t *testing.T) {
	p := DetectActivityPatterns(nil, nil)
	assert.NotNil(t, p.PreferredHours)
	assert.Empty(t, p.PreferredDays)
	assert.Zero(t, p.AvgSessionMinutes)
}

func TestSessionRows(t *testing.T) {
	start := time.Date(2025, time.April, 1, 6, 0, 0, 0, time.UTC)
	rows := SessionRows([]client.Session{{
		ID:              "s1",
		Name:            "Morning Run",
		StartTimeMillis: start.UnixMilli(),
		EndTimeMillis:   start.Add(90 * time.Second).UnixMilli(),
		ActivityType:    client.ActivityRunning,
	}}, time.UTC)

	require.Len(t, rows, 1)
	assert.Equal(t, SessionRow{
		SessionID:       "s1",
		Name:            "Morning Run",
		StartTime:       start,
		EndTime:         start.Add(90 * time.Second),
		DurationMinutes: 1.5,
		ActivityType:    client.ActivityRunning,
	}, rows[0])
}

type failingSource struct{ err error }

func (f failingSource) Aggregate(context.Context, string, client.AggregateRequest) (*client.AggregateResponse, error) {
	return nil, f.err
}

func (f failingSource) ListSessions(context.Context, string, *client.SessionRange) ([]client.Session, error) {
	return nil, f.err
}

func TestFetchErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := FetchActivitySummary(context.Background(), failingSource{boom}, "me", time.Now(), time.Now(), nil)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fetching daily steps")
}

func TestFetchActivitySummary(t *testing.T) {
	const token = "analysis-token"
	srv := testsupport.NewFitServer(t, token)
	c := client.New(client.WithBaseURL(srv.URL), client.WithAccessToken(token))
	ctx := context.Background()

	day1 := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	_, err := c.CreateDataSource(ctx, "u1", client.StepsDataSource("steps:1", "Steps"))
	require.NoError(t, err)
	require.NoError(t, c.InsertDataPoints(ctx, "u1", "steps:1", client.DatasetIDForDay(day1), []client.DataPoint{
		client.CreateStepsDataPoint(1000, day1.Add(8*time.Hour), day1.Add(9*time.Hour)),
	}))
	require.NoError(t, c.InsertDataPoints(ctx, "u1", "steps:1", client.DatasetIDForDay(day2), []client.DataPoint{
		client.CreateStepsDataPoint(2000, day2.Add(8*time.Hour), day2.Add(9*time.Hour)),
	}))
	_, err = c.CreateSession(ctx, "u1", client.Session{
		ID:              "run-1",
		Name:            "Run",
		StartTimeMillis: day1.Add(7 * time.Hour).UnixMilli(),
		EndTimeMillis:   day1.Add(7*time.Hour + 30*time.Minute).UnixMilli(),
		ActivityType:    client.ActivityRunning,
	})
	require.NoError(t, err)

	summary, err := FetchActivitySummary(ctx, c, "u1", day1, day1.AddDate(0, 0, 2), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), summary.TotalSteps)
	assert.Equal(t, 1500.0, summary.AvgDailySteps)
	assert.Equal(t, int64(2000), summary.MaxDailySteps)
	assert.Equal(t, 2, summary.ActiveDays)
	assert.Equal(t, 1, summary.TotalSessions)
	assert.Equal(t, 30.0, summary.TotalWorkoutMinutes)
	assert.Equal(t, []int{client.ActivityRunning}, summary.ActivityTypes)
}
