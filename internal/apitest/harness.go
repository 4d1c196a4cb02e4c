// Package apitest is an integration test harness that exercises a live
// HealthyDuck server through its REST surface and checks status codes and
// response shapes.
package apitest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ultimatequack/healthyduck-go/internal/config"
	"github.com/ultimatequack/healthyduck-go/internal/schema"
	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

// Check names, in execution order.
const (
	CheckCreateDataSource   = "create_data_source"
	CheckListDataSources    = "list_data_sources"
	CheckAddDataPoints      = "add_data_points"
	CheckCreateSession      = "create_session"
	CheckGetSession         = "get_session"
	CheckListSessions       = "list_sessions"
	CheckInvalidPath        = "invalid_path"
	CheckSequentialTiming   = "sequential_timing"
	CheckConcurrentCreation = "concurrent_creation"
)

// Config holds harness settings.
type Config struct {
	UserID             string
	SequentialRequests int           // GETs timed by the sequential check
	MaxAvgLatency      time.Duration // upper bound for their mean latency
	ConcurrentWorkers  int
	SourcesPerWorker   int
	RunID              string // namespaces created ids; random when empty
}

// ConfigFrom derives harness settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		UserID:             cfg.UserID,
		SequentialRequests: cfg.SequentialRequests,
		MaxAvgLatency:      cfg.MaxAvgLatency,
		ConcurrentWorkers:  cfg.ConcurrentWorkers,
		SourcesPerWorker:   cfg.SourcesPerWorker,
	}
}

// Status is the outcome of one check.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration"`
	Detail   string        `json:"detail,omitempty"`
}

// Report collects the results of a run in execution order.
type Report struct {
	RunID   string        `json:"run_id"`
	Results []CheckResult `json:"results"`
}

// Passed reports whether no check failed. Skipped checks do not count as failures.
func (r *Report) Passed() bool {
	return r.Count(StatusFail) == 0
}

// Count returns the number of checks with the given status.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Result returns the result of the named check.
func (r *Report) Result(name string) (CheckResult, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return CheckResult{}, false
}

// errSkip marks a check whose prerequisite did not pass.
var errSkip = errors.New("skipped")

type harness struct {
	client *client.Client
	cfg    Config

	dataSourceID string
	sessionID    string
}

// Run executes every check in order against the server c talks to.
// A failed check does not stop the run; checks that need an id created by an
// earlier check are skipped when that check failed.
func Run(ctx context.Context, c *client.Client, cfg Config) *Report {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.UserID == "" {
		cfg.UserID = config.DefaultUserID
	}

	h := &harness{client: c, cfg: cfg}
	checks := []struct {
		name string
		fn   func(context.Context) (string, error)
	}{
		{CheckCreateDataSource, h.createDataSource},
		{CheckListDataSources, h.listDataSources},
		{CheckAddDataPoints, h.addDataPoints},
		{CheckCreateSession, h.createSession},
		{CheckGetSession, h.getSession},
		{CheckListSessions, h.listSessions},
		{CheckInvalidPath, h.invalidPath},
		{CheckSequentialTiming, h.sequentialTiming},
		{CheckConcurrentCreation, h.concurrentCreation},
	}

	report := &Report{RunID: cfg.RunID}
	for _, check := range checks {
		start := time.Now()
		detail, err := check.fn(ctx)
		res := CheckResult{Name: check.name, Status: StatusPass, Duration: time.Since(start), Detail: detail}
		switch {
		case errors.Is(err, errSkip):
			res.Status = StatusSkip
			res.Detail = err.Error()
		case err != nil:
			res.Status = StatusFail
			res.Detail = err.Error()
		}

		slog.Info("api check finished",
			slog.String("check", res.Name),
			slog.String("status", string(res.Status)),
			slog.Int64("duration_ms", res.Duration.Milliseconds()),
			slog.String("detail", res.Detail),
		)
		report.Results = append(report.Results, res)
	}
	return report
}

// expect checks the status code and, when v is non-nil, the body shape.
func expect(resp *client.Response, v *schema.Validator, statuses ...int) error {
	ok := false
	for _, s := range statuses {
		if resp.StatusCode == s {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("expected status %v, got %d: %s", statuses, resp.StatusCode, truncate(resp.Body, 200))
	}
	if v != nil {
		if err := v.Validate(resp.Body).Err(); err != nil {
			return err
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func (h *harness) path(segments ...string) string {
	return client.UserPath(h.cfg.UserID, segments...)
}

func (h *harness) stepSource(streamID, name string) client.DataSource {
	return client.DataSource{
		DataStreamID:   streamID,
		DataStreamName: name,
		Type:           client.DataSourceRaw,
		Application:    client.DefaultApplication(),
		DataTypes:      []client.DataType{{Name: client.StepCountDelta}},
	}
}

func (h *harness) createDataSource(ctx context.Context) (string, error) {
	streamID := "apitest:step-counter:" + h.cfg.RunID
	resp, err := h.client.Raw(ctx, http.MethodPost, h.path("dataSources"), h.stepSource(streamID, "API Test Step Counter"))
	if err != nil {
		return "", err
	}
	if err := expect(resp, createdDataSourceSchema, http.StatusOK, http.StatusCreated); err != nil {
		return "", err
	}

	var created client.DataSource
	if err := created.UnmarshalJSON(resp.Body); err != nil {
		return "", fmt.Errorf("decoding data source: %w", err)
	}
	if created.DataStreamID != streamID {
		return "", fmt.Errorf("expected dataStreamId %q, got %q", streamID, created.DataStreamID)
	}
	h.dataSourceID = created.DataStreamID
	return "created " + streamID, nil
}

func (h *harness) listDataSources(ctx context.Context) (string, error) {
	resp, err := h.client.Raw(ctx, http.MethodGet, h.path("dataSources"), nil)
	if err != nil {
		return "", err
	}
	if err := expect(resp, dataSourceListSchema, http.StatusOK); err != nil {
		return "", err
	}
	return "", nil
}

func (h *harness) addDataPoints(ctx context.Context) (string, error) {
	if h.dataSourceID == "" {
		return "", fmt.Errorf("no data source from %s: %w", CheckCreateDataSource, errSkip)
	}

	end := time.Now()
	start := end.Add(-time.Hour)
	body := map[string]any{
		"point": []client.DataPoint{client.CreateStepsDataPoint(2500, start, end)},
	}
	resp, err := h.client.Raw(ctx, http.MethodPatch,
		h.path("dataSources", h.dataSourceID, "datasets", client.DatasetIDForRange(start, end)), body)
	if err != nil {
		return "", err
	}
	if err := expect(resp, nil, http.StatusOK); err != nil {
		return "", err
	}
	return "inserted 1 point", nil
}

func (h *harness) createSession(ctx context.Context) (string, error) {
	end := time.Now()
	start := end.Add(-time.Hour)
	session := client.Session{
		ID:               "apitest-session-" + h.cfg.RunID,
		Name:             "API Test Workout",
		Description:      "Session created by the API test harness",
		StartTimeMillis:  start.UnixMilli(),
		EndTimeMillis:    end.UnixMilli(),
		ActivityType:     client.ActivityRunning,
		Application:      client.DefaultApplication(),
		ActiveTimeMillis: end.Sub(start).Milliseconds(),
	}

	resp, err := h.client.Raw(ctx, http.MethodPost, h.path("sessions"), session)
	if err != nil {
		return "", err
	}
	if err := expect(resp, createdSessionSchema, http.StatusOK, http.StatusCreated); err != nil {
		return "", err
	}

	var created client.Session
	if err := created.UnmarshalJSON(resp.Body); err != nil {
		return "", fmt.Errorf("decoding session: %w", err)
	}
	h.sessionID = created.ID
	return "created " + created.ID, nil
}

func (h *harness) getSession(ctx context.Context) (string, error) {
	if h.sessionID == "" {
		return "", fmt.Errorf("no session from %s: %w", CheckCreateSession, errSkip)
	}

	resp, err := h.client.Raw(ctx, http.MethodGet, h.path("sessions", h.sessionID), nil)
	if err != nil {
		return "", err
	}
	if err := expect(resp, createdSessionSchema, http.StatusOK); err != nil {
		return "", err
	}

	var got client.Session
	if err := got.UnmarshalJSON(resp.Body); err != nil {
		return "", fmt.Errorf("decoding session: %w", err)
	}
	if got.ID != h.sessionID {
		return "", fmt.Errorf("expected session id %q, got %q", h.sessionID, got.ID)
	}
	return "", nil
}

func (h *harness) listSessions(ctx context.Context) (string, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -7)
	path := h.path("sessions") +
		"?startTime=" + strconv.FormatInt(start.UnixNano(), 10) +
		"&endTime=" + strconv.FormatInt(end.UnixNano(), 10)

	resp, err := h.client.Raw(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	if err := expect(resp, sessionListSchema, http.StatusOK); err != nil {
		return "", err
	}
	return "", nil
}

func (h *harness) invalidPath(ctx context.Context) (string, error) {
	resp, err := h.client.Raw(ctx, http.MethodGet, h.path("invalid"), nil)
	if err != nil {
		return "", err
	}
	// error bodies vary between servers; only the status is checked
	if err := expect(resp, nil, http.StatusNotFound); err != nil {
		return "", err
	}
	return "", nil
}

func (h *harness) sequentialTiming(ctx context.Context) (string, error) {
	n := max(h.cfg.SequentialRequests, 1)
	var total time.Duration
	for i := range n {
		start := time.Now()
		resp, err := h.client.Raw(ctx, http.MethodGet, h.path("dataSources"), nil)
		if err != nil {
			return "", fmt.Errorf("request %d: %w", i+1, err)
		}
		total += time.Since(start)
		if err := expect(resp, nil, http.StatusOK); err != nil {
			return "", fmt.Errorf("request %d: %w", i+1, err)
		}
	}

	avg := total / time.Duration(n)
	detail := fmt.Sprintf("average response time %s over %d requests", avg.Round(time.Millisecond), n)
	if h.cfg.MaxAvgLatency > 0 && avg >= h.cfg.MaxAvgLatency {
		return "", fmt.Errorf("%s, want below %s", detail, h.cfg.MaxAvgLatency)
	}
	return detail, nil
}

func (h *harness) concurrentCreation(ctx context.Context) (string, error) {
	workers := max(h.cfg.ConcurrentWorkers, 1)
	perWorker := max(h.cfg.SourcesPerWorker, 1)
	total := workers * perWorker

	var (
		failed   atomic.Int64
		mu       sync.Mutex
		firstErr error
	)
	record := func(err error) {
		failed.Add(1)
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)
	for w := range workers {
		g.Go(func() error {
			for j := range perWorker {
				streamID := fmt.Sprintf("apitest:concurrent:%s:%d:%d", h.cfg.RunID, w, j)
				ds := h.stepSource(streamID, fmt.Sprintf("API Test Concurrent %d/%d", w, j))
				resp, err := h.client.Raw(ctx, http.MethodPost, h.path("dataSources"), ds)
				if err != nil {
					record(fmt.Errorf("worker %d, request %d: %w", w, j, err))
					continue
				}
				if err := expect(resp, createdDataSourceSchema, http.StatusCreated); err != nil {
					record(fmt.Errorf("worker %d, request %d: %w", w, j, err))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	if n := failed.Load(); n > 0 {
		return "", fmt.Errorf("%d of %d creations failed, first: %w", n, total, firstErr)
	}
	return fmt.Sprintf("created %d data sources with %d workers", total, workers), nil
}
