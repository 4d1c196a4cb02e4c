package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultimatequack/healthyduck-go/internal/cache"
	"github.com/ultimatequack/healthyduck-go/internal/config"
	"github.com/ultimatequack/healthyduck-go/internal/testsupport"
	"github.com/ultimatequack/healthyduck-go/pkg/analysis"
	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

const (
	testToken = "tools-token"
	testUser  = "duck"
)

// fixedNow is a Wednesday; the default 7-day window is [Feb 27, Mar 6).
var fixedNow = time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)

func at(day, hour, minute int) time.Time {
	return time.Date(2025, 3, day, hour, minute, 0, 0, time.UTC)
}

func newTestDeps(t *testing.T) (*Deps, *testsupport.FitServer) {
	t.Helper()
	srv := testsupport.NewFitServer(t, testToken)
	dsCache, err := cache.NewDataSourceCache(16)
	require.NoError(t, err)
	return &Deps{
		Client:   client.New(client.WithBaseURL(srv.URL), client.WithAccessToken(testToken)),
		Cache:    dsCache,
		Config:   &config.Config{UserID: testUser, QueryMaxResults: 200},
		Location: time.UTC,
		now:      func() time.Time { return fixedNow },
	}, srv
}

// seed records 1500 steps on March 4, 2000 on March 5, a 30 minute run on
// Monday March 3 and a one hour ride on Tuesday March 4.
func seed(t *testing.T, d *Deps) {
	t.Helper()
	ctx := context.Background()
	c := d.Client

	_, err := c.CreateDataSource(ctx, testUser, client.StepsDataSource("steps:1", "Steps"))
	require.NoError(t, err)
	points := []client.DataPoint{
		client.CreateStepsDataPoint(1000, at(4, 8, 0), at(4, 9, 0)),
		client.CreateStepsDataPoint(500, at(4, 18, 0), at(4, 18, 30)),
		client.CreateStepsDataPoint(2000, at(5, 7, 0), at(5, 8, 0)),
	}
	require.NoError(t, c.InsertDataPoints(ctx, testUser, "steps:1", client.DatasetIDForRange(at(4, 0, 0), at(6, 0, 0)), points))

	sessions := []client.Session{
		{ID: "run", Name: "Morning Run", StartTimeMillis: at(3, 7, 0).UnixMilli(), EndTimeMillis: at(3, 7, 30).UnixMilli(), ActivityType: client.ActivityRunning},
		{ID: "ride", Name: "Evening Ride", StartTimeMillis: at(4, 18, 0).UnixMilli(), EndTimeMillis: at(4, 19, 0).UnixMilli(), ActivityType: client.ActivityBiking},
	}
	for _, s := range sessions {
		_, err := c.CreateSession(ctx, testUser, s)
		require.NoError(t, err)
	}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var coded *CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, code, coded.Code)
}

func TestToolListDataSources(t *testing.T) {
	d, _ := newTestDeps(t)
	seed(t, d)

	_, out, err := ToolListDataSources(d)(context.Background(), nil, ListDataSourcesInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Count)
	require.Len(t, out.DataSources, 1)
	assert.Equal(t, DataSourceInfo{
		DataStreamID:   "steps:1",
		DataStreamName: "Steps",
		Type:           client.DataSourceDerived,
		Application:    client.DefaultApplication().PackageName,
		DataTypes:      []string{client.StepCountDelta},
	}, out.DataSources[0])
	assert.Equal(t, 1, d.Cache.Len())

	_, out, err = ToolListDataSources(d)(context.Background(), nil, ListDataSourcesInput{UserID: "nobody"})
	require.NoError(t, err)
	assert.Zero(t, out.Count)
	assert.NotNil(t, out.DataSources)
}

func TestToolGetDataSource(t *testing.T) {
	d, srv := newTestDeps(t)
	seed(t, d)
	ctx := context.Background()
	handler := ToolGetDataSource(d)

	for range 2 {
		_, out, err := handler(ctx, nil, GetDataSourceInput{DataSourceID: "steps:1"})
		require.NoError(t, err)
		assert.Equal(t, "steps:1", out.DataSource.DataStreamID)
	}
	assert.Len(t, srv.RequestsMatching(http.MethodGet, "/dataSources/steps:1"), 1, "second call served from cache")

	_, _, err := handler(ctx, nil, GetDataSourceInput{DataSourceID: "missing"})
	requireCode(t, err, ErrCodeNotFound)

	_, _, err = handler(ctx, nil, GetDataSourceInput{})
	requireCode(t, err, ErrCodeInvalidInput)
}

func TestToolListSessions(t *testing.T) {
	d, srv := newTestDeps(t)
	seed(t, d)

	_, out, err := ToolListSessions(d)(context.Background(), nil, ListSessionsInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	require.Len(t, out.Sessions, 2)
	assert.Equal(t, SessionInfo{
		SessionID:       "ride",
		Name:            "Evening Ride",
		StartTime:       "2025-03-04T18:00:00Z",
		EndTime:         "2025-03-04T19:00:00Z",
		DurationMinutes: 60,
		ActivityType:    client.ActivityBiking,
	}, out.Sessions[0])

	reqs := srv.RequestsMatching(http.MethodGet, "/sessions")
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Query, fmt.Sprintf("startTime=%d", time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC).UnixNano()))

	_, _, err = ToolListSessions(d)(context.Background(), nil, ListSessionsInput{Days: -1})
	requireCode(t, err, ErrCodeInvalidInput)
	_, _, err = ToolListSessions(d)(context.Background(), nil, ListSessionsInput{Days: maxDays + 1})
	requireCode(t, err, ErrCodeInvalidInput)
}

func TestToolGetProfile(t *testing.T) {
	d, _ := newTestDeps(t)
	seed(t, d)

	_, out, err := ToolGetProfile(d)(context.Background(), nil, ProfileInput{})
	require.NoError(t, err)
	assert.Equal(t, testUser, out.UserID)
	assert.Equal(t, 1, out.DataSourcesCount)
	assert.Equal(t, 2, out.SessionsCount)
}

func TestToolDailySteps(t *testing.T) {
	d, _ := newTestDeps(t)
	seed(t, d)

	_, out, err := ToolDailySteps(d)(context.Background(), nil, StepsInput{})
	require.NoError(t, err)
	assert.Equal(t, []DayInfo{{Date: "2025-03-04", Steps: 1500}, {Date: "2025-03-05", Steps: 2000}}, out.Days)
	assert.Equal(t, int64(3500), out.TotalSteps)
}

func TestToolActivitySummary(t *testing.T) {
	d, _ := newTestDeps(t)
	seed(t, d)

	_, out, err := ToolActivitySummary(d)(context.Background(), nil, StepsInput{})
	require.NoError(t, err)
	assert.Equal(t, "2025-02-04", out.StartDate)
	assert.Equal(t, "2025-03-05", out.EndDate)
	assert.Equal(t, analysis.ActivitySummary{
		TotalSteps:          3500,
		AvgDailySteps:       1750,
		MaxDailySteps:       2000,
		ActiveDays:          2,
		TotalSessions:       2,
		TotalWorkoutMinutes: 90,
		ActivityTypes:       []int{client.ActivityBiking, client.ActivityRunning},
	}, out.Summary)
}

func TestToolWeeklyTrends(t *testing.T) {
	d, _ := newTestDeps(t)
	seed(t, d)

	_, out, err := ToolWeeklyTrends(d)(context.Background(), nil, StepsInput{Days: 14})
	require.NoError(t, err)
	assert.Equal(t, []analysis.WeeklyTrend{{Year: 2025, Week: 10, Sum: 3500, Mean: 1750, Std: 353.55, Count: 2}}, out.Weeks)
}

func TestToolActivityPatterns(t *testing.T) {
	d, _ := newTestDeps(t)
	seed(t, d)

	_, out, err := ToolActivityPatterns(d)(context.Background(), nil, StepsInput{})
	require.NoError(t, err)
	p := out.Patterns
	assert.Equal(t, 2, p.SessionsConsidered)
	assert.Equal(t, 45.0, p.AvgSessionMinutes)
	assert.Equal(t, []analysis.HourCount{{Hour: 7, Count: 1}, {Hour: 18, Count: 1}}, p.PreferredHours)
	assert.Equal(t, []analysis.DayCount{{Day: "Monday", Count: 1}, {Day: "Tuesday", Count: 1}}, p.PreferredDays)
	assert.Equal(t, []analysis.ActivityCount{{ActivityType: client.ActivityBiking, Count: 1}, {ActivityType: client.ActivityRunning, Count: 1}}, p.CommonActivities)
}

func TestToolQueryAggregate(t *testing.T) {
	d, srv := newTestDeps(t)
	seed(t, d)
	ctx := context.Background()
	handler := ToolQueryAggregate(d)

	_, out, err := handler(ctx, nil, QueryAggregateInput{Expression: "[.bucket[].dataset[].point[].value[0].fpVal] | add"})
	require.NoError(t, err)
	assert.Equal(t, []any{float64(3500)}, out.Values)
	assert.Equal(t, 2, out.BucketCount)
	assert.False(t, out.Truncated)

	_, out, err = handler(ctx, nil, QueryAggregateInput{Expression: ".bucket[].startTimeMillis", MaxResults: 1})
	require.NoError(t, err)
	assert.Equal(t, []any{float64(at(4, 0, 0).UnixMilli())}, out.Values)
	assert.True(t, out.Truncated)

	calls := len(srv.RequestsMatching(http.MethodPost, "/dataset/aggregate"))
	_, _, err = handler(ctx, nil, QueryAggregateInput{Expression: ".bucket["})
	requireCode(t, err, ErrCodeInvalidInput)
	_, _, err = handler(ctx, nil, QueryAggregateInput{})
	requireCode(t, err, ErrCodeInvalidInput)
	_, _, err = handler(ctx, nil, QueryAggregateInput{Expression: ".", BucketType: "fortnight"})
	requireCode(t, err, ErrCodeInvalidInput)
	assert.Len(t, srv.RequestsMatching(http.MethodPost, "/dataset/aggregate"), calls, "invalid input sends no request")
}

func TestToolErrorsAreCoded(t *testing.T) {
	d, srv := newTestDeps(t)
	srv.FailRequests(http.MethodGet, "/dataSources", 0, 1)

	_, _, err := ToolListDataSources(d)(context.Background(), nil, ListDataSourcesInput{})
	requireCode(t, err, ErrCodeHealthyDuckError)
	assert.Contains(t, err.Error(), "Internal server error")
}

func TestWrapAPIError(t *testing.T) {
	assert.NoError(t, WrapAPIError(nil))

	notFound := fmt.Errorf("getting data source: %w", &client.APIError{StatusCode: http.StatusNotFound, Message: "Data source not found"})
	requireCode(t, WrapAPIError(notFound), ErrCodeNotFound)

	serverErr := &client.APIError{StatusCode: http.StatusInternalServerError, Message: "boom"}
	requireCode(t, WrapAPIError(serverErr), ErrCodeHealthyDuckError)

	timeout := &client.APIError{Message: "executing request", Err: context.DeadlineExceeded}
	requireCode(t, WrapAPIError(timeout), ErrCodeTimeout)

	wrapped := WrapAPIError(errors.New("something else"))
	requireCode(t, wrapped, ErrCodeHealthyDuckError)
	assert.Equal(t, "HEALTHYDUCK_ERROR: something else: something else", wrapped.Error())
}

func TestRegister(t *testing.T) {
	d, _ := newTestDeps(t)
	srv := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "test", Version: "0.0.0"}, nil)
	assert.NotPanics(t, func() { Register(srv, d) })
}

func TestDepsDefaults(t *testing.T) {
	d := &Deps{}
	assert.Equal(t, config.DefaultUserID, d.user(""))
	assert.Equal(t, "x", d.user("x"))
	assert.Equal(t, time.Local, d.loc())

	d = &Deps{Config: &config.Config{UserID: "cfg"}, Location: time.UTC, now: func() time.Time { return fixedNow }}
	assert.Equal(t, "cfg", d.user(""))
	start, end := d.window(1)
	assert.Equal(t, at(5, 0, 0), start)
	assert.Equal(t, at(6, 0, 0), end)
}
