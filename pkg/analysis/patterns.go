package analysis

import (
	"cmp"
	"slices"
	"time"

	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

// Histogram sizes reported by DetectActivityPatterns.
const (
	TopHours      = 3
	TopActivities = 5
)

// HourCount is the number of sessions started in one hour of the day.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// DayCount is the number of sessions started on one weekday.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// ActivityCount is the number of sessions of one activity type.
type ActivityCount struct {
	ActivityType int `json:"activity_type"`
	Count        int `json:"count"`
}

// ActivityPatterns describes when and how a user works out.
type ActivityPatterns struct {
	PreferredHours     []HourCount     `json:"preferred_workout_hours,omitzero"`
	PreferredDays      []DayCount      `json:"preferred_workout_days,omitzero"`
	AvgSessionMinutes  float64         `json:"avg_session_duration"`
	CommonActivities   []ActivityCount `json:"most_common_activities,omitzero"`
	SessionsConsidered int             `json:"sessions_considered"`
}

type tally[K cmp.Ordered] struct {
	key K
	n   int
}

// rank orders counts by descending count, then ascending key, keeping at
// most limit entries (all when limit <= 0).
func rank[K cmp.Ordered](counts map[K]int, limit int) []tally[K] {
	out := make([]tally[K], 0, len(counts))
	for k, n := range counts {
		out = append(out, tally[K]{k, n})
	}
	slices.SortFunc(out, func(a, b tally[K]) int {
		if a.n != b.n {
			return b.n - a.n
		}
		return cmp.Compare(a.key, b.key)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// DetectActivityPatterns histograms sessions by start hour and weekday in
// loc, and by activity type. Ties are broken by hour, weekday order
// (Sunday first) and activity code. An empty session list yields empty
// histograms and a zero average.
func DetectActivityPatterns(sessions []client.Session, loc *time.Location) ActivityPatterns {
	loc = location(loc)
	patterns := ActivityPatterns{
		PreferredHours:     []HourCount{},
		PreferredDays:      []DayCount{},
		CommonActivities:   []ActivityCount{},
		SessionsConsidered: len(sessions),
	}
	if len(sessions) == 0 {
		return patterns
	}

	hours := make(map[int]int)
	days := make(map[time.Weekday]int)
	activities := make(map[int]int)
	var minutes float64
	for _, s := range sessions {
		start := s.Start().In(loc)
		hours[start.Hour()]++
		days[start.Weekday()]++
		activities[s.ActivityType]++
		minutes += durationMinutes(s)
	}

	for _, t := range rank(hours, TopHours) {
		patterns.PreferredHours = append(patterns.PreferredHours, HourCount{Hour: t.key, Count: t.n})
	}
	for _, t := range rank(days, 0) {
		patterns.PreferredDays = append(patterns.PreferredDays, DayCount{Day: t.key.String(), Count: t.n})
	}
	for _, t := range rank(activities, TopActivities) {
		patterns.CommonActivities = append(patterns.CommonActivities, ActivityCount{ActivityType: t.key, Count: t.n})
	}
	patterns.AvgSessionMinutes = minutes / float64(len(sessions))
	return patterns
}

// SessionRow is a session flattened for tabular export.
type SessionRow struct {
	SessionID       string    `json:"session_id"`
	Name            string    `json:"name"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes float64   `json:"duration_minutes"`
	ActivityType    int       `json:"activity_type"`
}

// SessionRows flattens sessions with times in loc, keeping their order.
func SessionRows(sessions []client.Session, loc *time.Location) []SessionRow {
	loc = location(loc)
	rows := make([]SessionRow, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, SessionRow{
			SessionID:       s.ID,
			Name:            s.Name,
			StartTime:       s.Start().In(loc),
			EndTime:         s.End().In(loc),
			DurationMinutes: durationMinutes(s),
			ActivityType:    s.ActivityType,
		})
	}
	return rows
}
