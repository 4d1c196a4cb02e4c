package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

var csvTimeLayouts = []string{
	time.RFC3339,
	time.DateTime,
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// parseStepsCSV reads rows of "time,steps". A first row whose steps column
// is not an integer is treated as a header. Times without a zone are read
// in loc.
func parseStepsCSV(r io.Reader, loc *time.Location) ([]client.StepEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	var entries []client.StepEntry
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}

		steps, err := strconv.ParseInt(strings.TrimSpace(rec[1]), 10, 64)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: invalid steps %q", line, rec[1])
		}
		if steps < 0 {
			return nil, fmt.Errorf("line %d: negative steps %d", line, steps)
		}
		t, err := parseCSVTime(strings.TrimSpace(rec[0]), loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, client.StepEntry{Time: t, Steps: steps})
	}
}

func parseCSVTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range csvTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}
