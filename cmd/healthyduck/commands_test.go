package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ultimatequack/healthyduck-go/internal/config"
	"github.com/ultimatequack/healthyduck-go/internal/testsupport"
	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

const testToken = "cli-token"

func newTestApp(t *testing.T) (*app, *bytes.Buffer, *testsupport.FitServer) {
	t.Helper()
	fit := testsupport.NewFitServer(t, testToken)
	c := client.New(client.WithBaseURL(fit.URL), client.WithAccessToken(testToken))

	out := &bytes.Buffer{}
	a, err := newApp(c, &config.Config{UserID: "duck", Timezone: "UTC", QueryMaxResults: 100}, out)
	require.NoError(t, err)
	a.errOut = &bytes.Buffer{}
	a.now = func() time.Time { return time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC) }
	return a, out, fit
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "steps.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseStepsCSV(t *testing.T) {
	entries, err := parseStepsCSV(strings.NewReader("date,steps\n2025-03-04,1000\n2025-03-04 18:30:00,500\n2025-03-05T07:00:00Z,2000\n"), time.UTC)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, client.StepEntry{Time: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), Steps: 1000}, entries[0])
	assert.Equal(t, time.Date(2025, 3, 4, 18, 30, 0, 0, time.UTC), entries[1].Time)
	assert.Equal(t, int64(2000), entries[2].Steps)
}

func TestParseStepsCSV_errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bad steps", "2025-03-04,100\n2025-03-05,many\n", `line 2: invalid steps "many"`},
		{"negative steps", "2025-03-04,-5\n", "line 1: negative steps -5"},
		{"bad time", "yesterday,100\n", `line 1: invalid time "yesterday"`},
		{"wrong column count", "2025-03-04,100,extra\n", "wrong number of fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseStepsCSV(strings.NewReader(tt.input), time.UTC)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRun_usage(t *testing.T) {
	a, _, _ := newTestApp(t)

	assert.ErrorIs(t, a.run(context.Background(), nil), errUsage)
	assert.ErrorIs(t, a.run(context.Background(), []string{"dance"}), errUsage)
}

func TestRun_sourcesWithJQ(t *testing.T) {
	a, out, _ := newTestApp(t)
	ctx := context.Background()
	for _, id := range []string{"steps:a", "steps:b"} {
		_, err := a.client.CreateDataSource(ctx, "duck", client.StepsDataSource(id, "Steps"))
		require.NoError(t, err)
	}

	require.NoError(t, a.run(ctx, []string{"sources", "-jq", ".[].dataStreamId"}))
	assert.ElementsMatch(t, []string{`"steps:a"`, `"steps:b"`}, strings.Fields(out.String()))
}

func TestRun_importThenAnalyze(t *testing.T) {
	a, out, fit := newTestApp(t)
	ctx := context.Background()
	path := writeCSV(t, "time,steps\n2025-03-04 08:00:00,1000\n2025-03-05 09:00:00,2000\n")

	require.NoError(t, a.run(ctx, []string{"import", "-file", path}))
	assert.Contains(t, out.String(), "inserted 2 points into 2 datasets of steps_source_")
	assert.Len(t, fit.RequestsMatching("PATCH", "/datasets/"), 2)

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"summary", "-days", "2"}))
	summary := out.String()
	assert.Contains(t, summary, "Period:              2025-03-04 to 2025-03-05")
	assert.Contains(t, summary, "Total steps:         3,000")
	assert.Contains(t, summary, "Average daily steps: 1,500.0")
	assert.Contains(t, summary, "Active days:         2")

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"trends", "-days", "2", "-jq", ".[0].sum"}))
	assert.Equal(t, "3000\n", out.String())

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"aggregate", "-days", "2", "-jq", ".bucket | length"}))
	assert.Equal(t, "2\n", out.String())
}

func TestRun_importPartialFailure(t *testing.T) {
	a, out, fit := newTestApp(t)
	fit.FailRequests(http.MethodPatch, "/datasets/", 1, 1)
	path := writeCSV(t, "time,steps\n2025-03-04 08:00:00,1000\n2025-03-04 10:00:00,500\n2025-03-05 09:00:00,2000\n")

	err := a.run(context.Background(), []string{"import", "-file", path})
	assert.ErrorContains(t, err, "bulk inserting steps for 2025-03-05")

	day := client.DatasetIDForDay(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, out.String(), "committed 2 points into 1 datasets of steps_source_")
	assert.Contains(t, out.String(), "before failing: "+day+"\n")
}

func TestRun_importErrors(t *testing.T) {
	a, _, _ := newTestApp(t)
	ctx := context.Background()

	assert.EqualError(t, a.run(ctx, []string{"import"}), "import: -file is required")
	assert.ErrorContains(t, a.run(ctx, []string{"import", "-file", writeCSV(t, "time,steps\n")}), "no rows")
}

func TestRun_invalidFlags(t *testing.T) {
	a, _, _ := newTestApp(t)
	ctx := context.Background()

	assert.ErrorContains(t, a.run(ctx, []string{"aggregate", "-bucket", "minute"}), `unknown bucket type "minute"`)
	assert.ErrorContains(t, a.run(ctx, []string{"patterns", "-days", "0"}), "days must be positive")
}

func TestRun_sessionsAndPatterns(t *testing.T) {
	a, out, _ := newTestApp(t)
	ctx := context.Background()
	_, err := a.client.CreateSession(ctx, "duck", client.Session{
		ID:              "run",
		Name:            "Morning Run",
		StartTimeMillis: time.Date(2025, 3, 3, 7, 0, 0, 0, time.UTC).UnixMilli(),
		EndTimeMillis:   time.Date(2025, 3, 3, 7, 30, 0, 0, time.UTC).UnixMilli(),
		ActivityType:    client.ActivityRunning,
	})
	require.NoError(t, err)

	require.NoError(t, a.run(ctx, []string{"sessions", "-jq", ".[0].duration_minutes"}))
	assert.Equal(t, "30\n", out.String())

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"patterns", "-jq", ".preferred_workout_days[0].day"}))
	assert.Equal(t, "\"Monday\"\n", out.String())
}

func TestRun_export(t *testing.T) {
	a, out, _ := newTestApp(t)
	path := filepath.Join(t.TempDir(), "out.xlsx")

	require.NoError(t, a.run(context.Background(), []string{"export", "-out", path}))
	assert.Equal(t, "wrote "+path+"\n", out.String())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Daily Steps", "Sessions"}, f.GetSheetList())
}
