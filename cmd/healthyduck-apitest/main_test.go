package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ultimatequack/healthyduck-go/internal/apitest"
)

func TestPrintReport(t *testing.T) {
	report := &apitest.Report{
		RunID: "r1",
		Results: []apitest.CheckResult{
			{Name: apitest.CheckCreateDataSource, Status: apitest.StatusFail, Duration: 12 * time.Millisecond, Detail: "expected status [201], got 500"},
			{Name: apitest.CheckAddDataPoints, Status: apitest.StatusSkip},
			{Name: apitest.CheckInvalidPath, Status: apitest.StatusPass, Duration: 3 * time.Millisecond},
		},
	}

	var buf bytes.Buffer
	printReport(&buf, report)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	assert.Len(t, lines, 5)
	assert.Equal(t, "run r1", lines[0])
	assert.Contains(t, lines[1], "fail")
	assert.Contains(t, lines[1], "12ms  expected status [201], got 500")
	assert.Contains(t, lines[2], "skip")
	assert.Equal(t, "1 passed, 1 failed, 1 skipped", lines[4])
}
