// Package analysis reduces HealthyDuck responses into tabular summaries:
// daily step series, activity summaries, weekly trends and workout patterns.
//
// Every function except the Fetch helpers is pure and works on data the
// caller already fetched.
package analysis

import (
	"math"
	"slices"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

// DailyStepCount is the step total of one aggregation bucket.
type DailyStepCount struct {
	Date  time.Time `json:"date"`
	Steps int64     `json:"steps"`
}

// ActivitySummary rolls up a step series and a session list.
type ActivitySummary struct {
	TotalSteps          int64   `json:"total_steps"`
	AvgDailySteps       float64 `json:"avg_daily_steps"`
	MaxDailySteps       int64   `json:"max_daily_steps"`
	ActiveDays          int     `json:"active_days"`
	TotalSessions       int     `json:"total_sessions"`
	TotalWorkoutMinutes float64 `json:"total_workout_time_minutes"`
	ActivityTypes       []int   `json:"activity_types,omitzero"`
}

// location returns loc, or time.Local when loc is nil.
func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

// DailySteps turns an aggregate response into one row per bucket, dated at
// the bucket start in loc. Each point whose type is dataTypeName (any type
// when dataTypeName is empty) contributes its first value: an integer as is,
// a float rounded to the nearest step. Buckets without points yield 0.
func DailySteps(resp *client.AggregateResponse, dataTypeName string, loc *time.Location) []DailyStepCount {
	loc = location(loc)
	if resp == nil {
		return []DailyStepCount{}
	}
	rows := make([]DailyStepCount, 0, len(resp.Buckets))
	for _, b := range resp.Buckets {
		var steps int64
		for _, ds := range b.Datasets {
			for _, p := range ds.Points {
				if dataTypeName != "" && p.DataTypeName != "" && p.DataTypeName != dataTypeName {
					continue
				}
				steps += pointSteps(p)
			}
		}
		rows = append(rows, DailyStepCount{Date: b.Start().In(loc), Steps: steps})
	}
	return rows
}

func pointSteps(p client.DataPoint) int64 {
	if len(p.Values) == 0 {
		return 0
	}
	if n, ok := p.Values[0].Int(); ok {
		return n
	}
	if f, ok := p.Values[0].Float(); ok {
		return int64(math.Round(f))
	}
	return 0
}

// Summarize computes step totals over days and workout totals over sessions.
// ActiveDays counts distinct calendar dates with a positive step count.
// ActivityTypes lists the distinct activity codes in ascending order.
func Summarize(days []DailyStepCount, sessions []client.Session) ActivitySummary {
	summary := ActivitySummary{
		TotalSessions: len(sessions),
		ActivityTypes: []int{},
	}

	active := roaring.New()
	for _, d := range days {
		summary.TotalSteps += d.Steps
		if d.Steps > summary.MaxDailySteps {
			summary.MaxDailySteps = d.Steps
		}
		if d.Steps > 0 {
			active.Add(dayNumber(d.Date))
		}
	}
	if len(days) > 0 {
		summary.AvgDailySteps = float64(summary.TotalSteps) / float64(len(days))
	}
	summary.ActiveDays = int(active.GetCardinality())

	seen := make(map[int]bool)
	for _, s := range sessions {
		summary.TotalWorkoutMinutes += durationMinutes(s)
		if !seen[s.ActivityType] {
			seen[s.ActivityType] = true
			summary.ActivityTypes = append(summary.ActivityTypes, s.ActivityType)
		}
	}
	slices.Sort(summary.ActivityTypes)
	return summary
}

// dayNumber returns the civil date of t, in t's location, as days since 1970-01-01.
func dayNumber(t time.Time) uint32 {
	y, m, d := t.Date()
	return uint32(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func durationMinutes(s client.Session) float64 {
	return float64(s.EndTimeMillis-s.StartTimeMillis) / float64(time.Minute/time.Millisecond)
}

// WeeklyTrend is the step statistics of one ISO week.
type WeeklyTrend struct {
	Year  int     `json:"year"`
	Week  int     `json:"week"`
	Sum   int64   `json:"sum"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Count int     `json:"count"`
}

// WeeklyTrends groups days by ISO year and week and reports sum, mean,
// sample standard deviation and count, rounded to two decimals. Std is 0 for
// weeks with a single day. Weeks are returned in chronological order.
func WeeklyTrends(days []DailyStepCount) []WeeklyTrend {
	type weekKey struct{ year, week int }
	groups := make(map[weekKey][]int64)
	var keys []weekKey
	for _, d := range days {
		y, w := d.Date.ISOWeek()
		k := weekKey{y, w}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], d.Steps)
	}
	slices.SortFunc(keys, func(a, b weekKey) int {
		if a.year != b.year {
			return a.year - b.year
		}
		return a.week - b.week
	})

	trends := make([]WeeklyTrend, 0, len(keys))
	for _, k := range keys {
		steps := groups[k]
		var sum int64
		for _, s := range steps {
			sum += s
		}
		mean := float64(sum) / float64(len(steps))
		var std float64
		if len(steps) > 1 {
			var sq float64
			for _, s := range steps {
				diff := float64(s) - mean
				sq += diff * diff
			}
			std = math.Sqrt(sq / float64(len(steps)-1))
		}
		trends = append(trends, WeeklyTrend{
			Year:  k.year,
			Week:  k.week,
			Sum:   sum,
			Mean:  round2(mean),
			Std:   round2(std),
			Count: len(steps),
		})
	}
	return trends
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
