// Package export writes HealthyDuck step series and sessions to an Excel
// workbook with a "Daily Steps" sheet and a "Sessions" sheet.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ultimatequack/healthyduck-go/pkg/analysis"
)

// Sheet names.
const (
	StepsSheet    = "Daily Steps"
	SessionsSheet = "Sessions"
)

var (
	stepsHeader    = []any{"date", "steps"}
	sessionsHeader = []any{"session_id", "name", "start_time", "end_time", "duration_minutes", "activity_type"}
)

const (
	dateFormat     = "yyyy-mm-dd"
	dateTimeFormat = "yyyy-mm-dd hh:mm:ss"
)

// WriteWorkbook writes days and rows as an .xlsx document to w.
func WriteWorkbook(w io.Writer, days []analysis.DailyStepCount, rows []analysis.SessionRow) error {
	f, err := build(days, rows)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// SaveWorkbook writes days and rows to an .xlsx file at path.
func SaveWorkbook(path string, days []analysis.DailyStepCount, rows []analysis.SessionRow) error {
	f, err := build(days, rows)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return nil
}

// ExportUserData fetches a user's daily steps and sessions in [start, end]
// and saves them to path. Times are written in loc.
func ExportUserData(ctx context.Context, src analysis.Source, userID string, start, end time.Time, path string, loc *time.Location) error {
	days, err := analysis.FetchDailySteps(ctx, src, userID, start, end, loc)
	if err != nil {
		return fmt.Errorf("exporting user data: %w", err)
	}
	sessions, err := analysis.FetchSessions(ctx, src, userID, start, end)
	if err != nil {
		return fmt.Errorf("exporting user data: %w", err)
	}
	if err := SaveWorkbook(path, days, analysis.SessionRows(sessions, loc)); err != nil {
		return err
	}
	slog.Info("exported user data",
		slog.String("path", path),
		slog.Int("days", len(days)),
		slog.Int("sessions", len(sessions)),
	)
	return nil
}

func build(days []analysis.DailyStepCount, rows []analysis.SessionRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := fill(f, days, rows); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("building workbook: %w", err)
	}
	return f, nil
}

func fill(f *excelize.File, days []analysis.DailyStepCount, rows []analysis.SessionRow) error {
	// NewFile starts with a single "Sheet1".
	if err := f.SetSheetName("Sheet1", StepsSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(SessionsSheet); err != nil {
		return err
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	date, err := numFmtStyle(f, dateFormat)
	if err != nil {
		return err
	}
	dateTime, err := numFmtStyle(f, dateTimeFormat)
	if err != nil {
		return err
	}

	// Daily Steps
	if err := writeRow(f, StepsSheet, 1, stepsHeader); err != nil {
		return err
	}
	for i, d := range days {
		if err := writeRow(f, StepsSheet, i+2, []any{d.Date, d.Steps}); err != nil {
			return err
		}
	}
	if err := styleSheet(f, StepsSheet, "B", header); err != nil {
		return err
	}
	if len(days) > 0 {
		if err := f.SetCellStyle(StepsSheet, "A2", fmt.Sprintf("A%d", len(days)+1), date); err != nil {
			return err
		}
	}

	// Sessions
	if err := writeRow(f, SessionsSheet, 1, sessionsHeader); err != nil {
		return err
	}
	for i, r := range rows {
		row := []any{r.SessionID, r.Name, r.StartTime, r.EndTime, r.DurationMinutes, r.ActivityType}
		if err := writeRow(f, SessionsSheet, i+2, row); err != nil {
			return err
		}
	}
	if err := styleSheet(f, SessionsSheet, "F", header); err != nil {
		return err
	}
	if len(rows) > 0 {
		if err := f.SetCellStyle(SessionsSheet, "C2", fmt.Sprintf("D%d", len(rows)+1), dateTime); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	return nil
}

func numFmtStyle(f *excelize.File, format string) (int, error) {
	return f.NewStyle(&excelize.Style{CustomNumFmt: &format})
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// styleSheet bolds the header row, freezes it and widens columns A..lastCol.
func styleSheet(f *excelize.File, sheet, lastCol string, header int) error {
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", header); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 20); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
