// Package tools contains MCP tool implementations for HealthyDuck.
package tools

import (
	"fmt"
	"time"

	"github.com/ultimatequack/healthyduck-go/pkg/analysis"
	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

// MIME type constant.
const MimeJSON = "application/json"

// Date layouts used in tool output.
const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = time.RFC3339
)

// Range limits for the days/weeks inputs.
const (
	defaultDays = 7
	maxDays     = 366
)

// DataSourceInfo is a summary of a data source.
type DataSourceInfo struct {
	DataStreamID   string   `json:"data_stream_id"`
	DataStreamName string   `json:"data_stream_name"`
	Type           string   `json:"type"`
	Application    string   `json:"application,omitempty"`
	DataTypes      []string `json:"data_types,omitzero"`
}

// SessionInfo is a summary of a session.
type SessionInfo struct {
	SessionID       string  `json:"session_id"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	DurationMinutes float64 `json:"duration_minutes"`
	ActivityType    int     `json:"activity_type"`
}

// DayInfo is one day of step counts.
type DayInfo struct {
	Date  string `json:"date"`
	Steps int64  `json:"steps"`
}

func toDataSourceInfo(ds *client.DataSource) DataSourceInfo {
	info := DataSourceInfo{
		DataStreamID:   ds.DataStreamID,
		DataStreamName: ds.DataStreamName,
		Type:           ds.Type,
		Application:    ds.Application.PackageName,
		DataTypes:      make([]string, 0, len(ds.DataTypes)),
	}
	for _, dt := range ds.DataTypes {
		info.DataTypes = append(info.DataTypes, dt.Name)
	}
	return info
}

func toSessionInfos(sessions []client.Session, loc *time.Location) []SessionInfo {
	rows := analysis.SessionRows(sessions, loc)
	out := make([]SessionInfo, len(rows))
	for i, row := range rows {
		out[i] = SessionInfo{
			SessionID:       row.SessionID,
			Name:            row.Name,
			Description:     sessions[i].Description,
			StartTime:       row.StartTime.Format(dateTimeLayout),
			EndTime:         row.EndTime.Format(dateTimeLayout),
			DurationMinutes: row.DurationMinutes,
			ActivityType:    row.ActivityType,
		}
	}
	return out
}

func toDayInfos(days []analysis.DailyStepCount) []DayInfo {
	out := make([]DayInfo, len(days))
	for i, d := range days {
		out[i] = DayInfo{Date: d.Date.Format(dateLayout), Steps: d.Steps}
	}
	return out
}

// clampDays applies the default to a zero value and rejects out-of-range input.
func clampDays(days, def int) (int, error) {
	if days == 0 {
		return def, nil
	}
	if days < 0 || days > maxDays {
		return 0, ErrInvalidInput(fmt.Sprintf("days must be between 1 and %d", maxDays))
	}
	return days, nil
}
