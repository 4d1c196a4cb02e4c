// Package testsupport provides an in-memory HealthyDuck API server for tests.
package testsupport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// Request is one request the fake server received.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

type storedPoint struct {
	start, end int64
	dataType   string
	value      []map[string]any
	origin     string
}

// FitServer is a fake HealthyDuck API. It keeps records in memory and answers
// with the same JSON shapes as the real server: timestamps as strings,
// "dataSource", "session" and "point" envelopes, {"error": ...} bodies.
type FitServer struct {
	*httptest.Server

	Token string

	mu       sync.Mutex
	requests []Request
	sources  map[string]map[string]any // user/streamID -> data source JSON
	order    []string
	points   map[string][]storedPoint // user/streamID -> points
	sessions map[string][]map[string]any
	names    map[string]string // user -> display name
	failures []*failure
}

type failure struct {
	method, fragment string
	skip, remaining  int
}

// NewFitServer starts a fake server that accepts only the given bearer token.
// The server is closed when the test ends.
func NewFitServer(t testing.TB, token string) *FitServer {
	t.Helper()
	s := &FitServer{
		Token:    token,
		sources:  make(map[string]map[string]any),
		points:   make(map[string][]storedPoint),
		sessions: make(map[string][]map[string]any),
		names:    make(map[string]string),
	}

	mux := http.NewServeMux()
	const base = "/api/fitness/v1/users/{userId}"
	mux.HandleFunc("POST "+base+"/dataSources", s.createDataSource)
	mux.HandleFunc("GET "+base+"/dataSources", s.listDataSources)
	mux.HandleFunc("GET "+base+"/dataSources/{dataSourceId}", s.getDataSource)
	mux.HandleFunc("DELETE "+base+"/dataSources/{dataSourceId}", s.deleteDataSource)
	mux.HandleFunc("PATCH "+base+"/dataSources/{dataSourceId}/datasets/{datasetId}", s.patchDataset)
	mux.HandleFunc("GET "+base+"/dataSources/{dataSourceId}/datasets/{datasetId}", s.getDataset)
	mux.HandleFunc("POST "+base+"/sessions", s.createSession)
	mux.HandleFunc("GET "+base+"/sessions", s.listSessions)
	mux.HandleFunc("GET "+base+"/sessions/{sessionId}", s.getSession)
	mux.HandleFunc("PUT "+base+"/sessions/{sessionId}", s.updateSession)
	mux.HandleFunc("DELETE "+base+"/sessions/{sessionId}", s.deleteSession)
	mux.HandleFunc("POST "+base+"/dataset/aggregate", s.aggregate)
	mux.HandleFunc("GET "+base+"/dataset/aggregate/daily", s.aggregateDaily)
	mux.HandleFunc("GET "+base+"/profile", s.profile)
	mux.HandleFunc("PUT "+base+"/profile", s.updateProfile)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	s.Server = httptest.NewServer(s.record(mux))
	t.Cleanup(s.Close)
	return s
}

// FailRequests makes requests with the given method whose path contains
// fragment fail with 500: the first skip matches pass through, the next n fail.
func (s *FitServer) FailRequests(method, fragment string, skip, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, &failure{method: method, fragment: fragment, skip: skip, remaining: n})
}

// Requests returns a copy of the requests received so far.
func (s *FitServer) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsMatching returns received requests with the given method whose path contains fragment.
func (s *FitServer) RequestsMatching(method, fragment string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method && strings.Contains(r.Path, fragment) {
			out = append(out, r)
		}
	}
	return out
}

func (s *FitServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = readAll(r)
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})
		for _, f := range s.failures {
			if f.method != r.Method || !strings.Contains(r.URL.Path, f.fragment) {
				continue
			}
			if f.skip > 0 {
				f.skip--
				continue
			}
			if f.remaining > 0 {
				f.remaining--
				s.mu.Unlock()
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
		}
		s.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		r.Body = newBody(body)
		next.ServeHTTP(w, r)
	})
}

func key(userID, id string) string { return userID + "/" + id }

func (s *FitServer) createDataSource(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	streamID, _ := body["dataStreamId"].(string)
	name, _ := body["dataStreamName"].(string)
	typ, _ := body["type"].(string)
	if streamID == "" || name == "" || typ == "" || dataTypeName(body["dataType"]) == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	k := key(r.PathValue("userId"), streamID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sources[k]; exists {
		writeError(w, http.StatusConflict, "Data source already exists")
		return
	}
	s.sources[k] = body
	s.order = append(s.order, k)
	writeJSON(w, http.StatusCreated, body)
}

func dataTypeName(v any) string {
	switch dt := v.(type) {
	case map[string]any:
		name, _ := dt["name"].(string)
		return name
	case []any:
		if len(dt) > 0 {
			return dataTypeName(dt[0])
		}
	}
	return ""
}

func (s *FitServer) listDataSources(w http.ResponseWriter, r *http.Request) {
	prefix := r.PathValue("userId") + "/"
	s.mu.Lock()
	list := make([]map[string]any, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		if strings.HasPrefix(s.order[i], prefix) {
			list = append(list, s.sources[s.order[i]])
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"dataSource": list})
}

func (s *FitServer) getDataSource(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ds, ok := s.sources[key(r.PathValue("userId"), r.PathValue("dataSourceId"))]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Data source not found")
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *FitServer) deleteDataSource(w http.ResponseWriter, r *http.Request) {
	k := key(r.PathValue("userId"), r.PathValue("dataSourceId"))
	s.mu.Lock()
	delete(s.sources, k)
	delete(s.points, k)
	for i, o := range s.order {
		if o == k {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "Data source deleted successfully"})
}

func parseDatasetID(id string) (int64, int64, bool) {
	startStr, endStr, ok := strings.Cut(id, "-")
	if !ok {
		return 0, 0, false
	}
	start, err1 := strconv.ParseInt(startStr, 10, 64)
	end, err2 := strconv.ParseInt(endStr, 10, 64)
	if err1 != nil || err2 != nil || start == 0 || end == 0 {
		return 0, 0, false
	}
	return start, end, true
}

func (s *FitServer) patchDataset(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := parseDatasetID(r.PathValue("datasetId")); !ok {
		writeError(w, http.StatusBadRequest, "Invalid dataset ID format")
		return
	}
	var body struct {
		Point      []map[string]any `json:"point"`
		DataPoints []map[string]any `json:"dataPoints"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	raw := body.Point
	if len(raw) == 0 {
		raw = body.DataPoints
	}

	k := key(r.PathValue("userId"), r.PathValue("dataSourceId"))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[k]; !ok {
		writeError(w, http.StatusNotFound, "Data source not found")
		return
	}
	for _, p := range raw {
		sp := storedPoint{
			start:    toInt64(p["startTimeNanos"]),
			end:      toInt64(p["endTimeNanos"]),
			dataType: fmt.Sprint(p["dataTypeName"]),
		}
		if origin, ok := p["originDataSourceId"].(string); ok {
			sp.origin = origin
		}
		if vals, ok := p["value"].([]any); ok {
			for _, v := range vals {
				if m, ok := v.(map[string]any); ok {
					sp.value = append(sp.value, m)
				}
			}
		}
		s.points[k] = append(s.points[k], sp)
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Data points updated successfully"})
}

func (s *FitServer) getDataset(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseDatasetID(r.PathValue("datasetId"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid dataset ID format")
		return
	}
	streamID := r.PathValue("dataSourceId")
	k := key(r.PathValue("userId"), streamID)
	s.mu.Lock()
	_, exists := s.sources[k]
	var selected []storedPoint
	for _, p := range s.points[k] {
		if p.start >= start && p.end <= end {
			selected = append(selected, p)
		}
	}
	s.mu.Unlock()
	if !exists {
		writeError(w, http.StatusNotFound, "Data source not found")
		return
	}
	sort.SliceStable(selected, func(i, j int) bool { return selected[i].start < selected[j].start })

	out := make([]map[string]any, 0, len(selected))
	for _, p := range selected {
		m := map[string]any{
			"startTimeNanos":     strconv.FormatInt(p.start, 10),
			"endTimeNanos":       strconv.FormatInt(p.end, 10),
			"dataTypeName":       p.dataType,
			"modifiedTimeMillis": strconv.FormatInt(time.Now().UnixMilli(), 10),
			"value":              pointValues(p.value),
		}
		if p.origin != "" {
			m["originDataSourceId"] = p.origin
		} else {
			m["originDataSourceId"] = nil
		}
		out = append(out, m)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dataSourceId":   streamID,
		"minStartTimeNs": strconv.FormatInt(start, 10),
		"maxEndTimeNs":   strconv.FormatInt(end, 10),
		"point":          out,
	})
}

func pointValues(vals []map[string]any) []map[string]any {
	if vals == nil {
		return []map[string]any{}
	}
	return vals
}

func (s *FitServer) createSession(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	id, _ := body["id"].(string)
	if id == "" || body["startTimeMillis"] == nil || body["endTimeMillis"] == nil || body["activityType"] == nil {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	session := map[string]any{
		"id":                 id,
		"name":               body["name"],
		"description":        body["description"],
		"startTimeMillis":    strconv.FormatInt(toInt64(body["startTimeMillis"]), 10),
		"endTimeMillis":      strconv.FormatInt(toInt64(body["endTimeMillis"]), 10),
		"modifiedTimeMillis": strconv.FormatInt(time.Now().UnixMilli(), 10),
		"activityType":       body["activityType"],
	}
	if app, ok := body["application"].(map[string]any); ok {
		session["application"] = map[string]any{"packageName": app["packageName"]}
	}
	if active := toInt64(body["activeTimeMillis"]); active != 0 {
		session["activeTimeMillis"] = strconv.FormatInt(active, 10)
	}

	userID := r.PathValue("userId")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions[userID] {
		if existing["id"] == id {
			writeError(w, http.StatusConflict, "Session already exists")
			return
		}
	}
	s.sessions[userID] = append(s.sessions[userID], session)
	writeJSON(w, http.StatusCreated, session)
}

func (s *FitServer) listSessions(w http.ResponseWriter, r *http.Request) {
	var startMillis, endMillis int64
	if v := r.URL.Query().Get("startTime"); v != "" {
		n, _ := strconv.ParseInt(v, 10, 64)
		startMillis = n / int64(time.Millisecond)
	}
	if v := r.URL.Query().Get("endTime"); v != "" {
		n, _ := strconv.ParseInt(v, 10, 64)
		endMillis = n / int64(time.Millisecond)
	}

	s.mu.Lock()
	list := make([]map[string]any, 0)
	for _, sess := range s.sessions[r.PathValue("userId")] {
		start := toInt64(sess["startTimeMillis"])
		end := toInt64(sess["endTimeMillis"])
		if startMillis != 0 && start < startMillis {
			continue
		}
		if endMillis != 0 && end > endMillis {
			continue
		}
		list = append(list, sess)
	}
	s.mu.Unlock()
	sort.SliceStable(list, func(i, j int) bool {
		return toInt64(list[i]["startTimeMillis"]) > toInt64(list[j]["startTimeMillis"])
	})
	writeJSON(w, http.StatusOK, map[string]any{"session": list})
}

func (s *FitServer) getSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions[r.PathValue("userId")] {
		if sess["id"] == r.PathValue("sessionId") {
			writeJSON(w, http.StatusOK, sess)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Session not found")
}

// updateSession overwrites the fields present in the body. Unknown ids fail
// with 500 like the real server.
func (s *FitServer) updateSession(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions[r.PathValue("userId")] {
		if sess["id"] != r.PathValue("sessionId") {
			continue
		}
		for _, field := range []string{"name", "description", "activityType"} {
			if v, ok := body[field]; ok {
				sess[field] = v
			}
		}
		for _, field := range []string{"startTimeMillis", "endTimeMillis"} {
			if v, ok := body[field]; ok {
				sess[field] = strconv.FormatInt(toInt64(v), 10)
			}
		}
		if active := toInt64(body["activeTimeMillis"]); active != 0 {
			sess["activeTimeMillis"] = strconv.FormatInt(active, 10)
		} else {
			delete(sess, "activeTimeMillis")
		}
		if app, ok := body["application"].(map[string]any); ok {
			sess["application"] = map[string]any{"packageName": app["packageName"]}
		}
		sess["modifiedTimeMillis"] = strconv.FormatInt(time.Now().UnixMilli(), 10)
		writeJSON(w, http.StatusOK, sess)
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to update session")
}

func (s *FitServer) deleteSession(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	s.mu.Lock()
	kept := s.sessions[userID][:0]
	for _, sess := range s.sessions[userID] {
		if sess["id"] != r.PathValue("sessionId") {
			kept = append(kept, sess)
		}
	}
	s.sessions[userID] = kept
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "Session deleted successfully"})
}

// aggregate sums numeric values of the requested types into fixed buckets
// anchored at the Unix epoch, like the real server.
func (s *FitServer) aggregate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StartTimeMillis int64 `json:"startTimeMillis"`
		EndTimeMillis   int64 `json:"endTimeMillis"`
		AggregateBy     []struct {
			DataTypeName string `json:"dataTypeName"`
		} `json:"aggregateBy"`
		BucketByTime struct {
			DurationMillis int64 `json:"durationMillis"`
		} `json:"bucketByTime"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	duration := body.BucketByTime.DurationMillis
	if duration <= 0 {
		duration = (24 * time.Hour).Milliseconds()
	}

	prefix := r.PathValue("userId") + "/"
	grouped := make(map[int64][]storedPoint)
	s.mu.Lock()
	for k, pts := range s.points {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		for _, p := range pts {
			if p.start < body.StartTimeMillis*1_000_000 || p.end > body.EndTimeMillis*1_000_000 {
				continue
			}
			bucket := (p.start / 1_000_000) / duration * duration
			grouped[bucket] = append(grouped[bucket], p)
		}
	}
	s.mu.Unlock()

	starts := make([]int64, 0, len(grouped))
	for b := range grouped {
		starts = append(starts, b)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	buckets := make([]map[string]any, 0, len(starts))
	for _, b := range starts {
		points := make([]map[string]any, 0, len(body.AggregateBy))
		for _, agg := range body.AggregateBy {
			var sum float64
			for _, p := range grouped[b] {
				if p.dataType != agg.DataTypeName {
					continue
				}
				for _, v := range p.value {
					if fp, ok := v["fpVal"].(float64); ok {
						sum += fp
					} else if iv, ok := v["intVal"].(float64); ok {
						sum += iv
					}
				}
			}
			points = append(points, map[string]any{
				"dataTypeName":   agg.DataTypeName,
				"startTimeNanos": b * 1_000_000,
				"endTimeNanos":   (b + duration) * 1_000_000,
				"value":          []map[string]any{{"fpVal": sum}},
			})
		}
		buckets = append(buckets, map[string]any{
			"startTimeMillis": b,
			"endTimeMillis":   b + duration,
			"dataset":         []map[string]any{{"point": points}},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"bucket": buckets})
}

// aggregateDaily sums values of one data type per UTC day over the last
// "days" days (default 7), oldest first, including empty days.
func (s *FitServer) aggregateDaily(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	dataType := r.URL.Query().Get("dataType")
	if dataType == "" {
		dataType = "com.ultimatequack.step_count.delta"
	}

	now := time.Now().UTC()
	startNanos := now.Add(-time.Duration(days) * 24 * time.Hour).UnixNano()
	endNanos := now.UnixNano()

	type daily struct {
		Date  string  `json:"date"`
		Value float64 `json:"value"`
		Count int     `json:"count"`
	}
	totals := make(map[string]*daily, days)
	aggregates := make([]*daily, days)
	for i := 0; i < days; i++ {
		d := &daily{Date: now.AddDate(0, 0, -i).Format(time.DateOnly)}
		totals[d.Date] = d
		aggregates[days-1-i] = d
	}

	prefix := r.PathValue("userId") + "/"
	s.mu.Lock()
	for k, pts := range s.points {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		for _, p := range pts {
			if p.dataType != dataType || p.start < startNanos || p.end > endNanos {
				continue
			}
			d, ok := totals[time.Unix(0, p.start).UTC().Format(time.DateOnly)]
			if !ok {
				continue
			}
			for _, v := range p.value {
				if fp, ok := v["fpVal"].(float64); ok {
					d.Value += fp
				} else if iv, ok := v["intVal"].(float64); ok {
					d.Value += iv
				}
				d.Count++
			}
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"aggregates": aggregates,
		"dataType":   dataType,
		"period":     fmt.Sprintf("%d days", days),
	})
}

func (s *FitServer) profile(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	s.mu.Lock()
	var sources, points int
	for k, pts := range s.points {
		if strings.HasPrefix(k, userID+"/") {
			points += len(pts)
		}
	}
	for _, k := range s.order {
		if strings.HasPrefix(k, userID+"/") {
			sources++
		}
	}
	sessions := len(s.sessions[userID])
	name, ok := s.names[userID]
	s.mu.Unlock()
	if !ok {
		name = "Test Duck"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":      userID,
		"email":       userID + "@example.com",
		"displayName": name,
		"createdAt":   "2025-01-01T00:00:00Z",
		"updatedAt":   "2025-01-02T00:00:00Z",
		"statistics": map[string]any{
			"dataSourcesCount": sources,
			"dataPointsCount":  points,
			"sessionsCount":    sessions,
		},
	})
}

func (s *FitServer) updateProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	userID := r.PathValue("userId")
	s.mu.Lock()
	s.names[userID] = body.DisplayName
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":      userID,
		"email":       userID + "@example.com",
		"displayName": body.DisplayName,
		"createdAt":   "2025-01-01T00:00:00Z",
		"updatedAt":   time.Now().UTC().Format(time.RFC3339),
	})
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	case json.Number:
		i, _ := n.Int64()
		return i
	}
	return 0
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readAll(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

func newBody(b []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(b))
}
