package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ultimatequack/healthyduck-go/internal/config"
	"github.com/ultimatequack/healthyduck-go/internal/query"
	"github.com/ultimatequack/healthyduck-go/pkg/analysis"
	"github.com/ultimatequack/healthyduck-go/pkg/client"
	"github.com/ultimatequack/healthyduck-go/pkg/export"
)

const (
	defaultListDays     = 7
	defaultAnalysisDays = 30
	defaultExportPath   = "healthyduck_export.xlsx"
)

var errUsage = errors.New("usage: healthyduck <sources|sessions|aggregate|summary|trends|patterns|export|import> [flags]")

type app struct {
	client *client.Client
	cfg    *config.Config
	loc    *time.Location
	out    io.Writer
	errOut io.Writer
	now    func() time.Time
	print  *message.Printer
}

func newApp(c *client.Client, cfg *config.Config, out io.Writer) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &app{
		client: c,
		cfg:    cfg,
		loc:    loc,
		out:    out,
		errOut: os.Stderr,
		now:    time.Now,
		print:  message.NewPrinter(language.English),
	}, nil
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	commands := map[string]func(context.Context, []string) error{
		"sources":   a.cmdSources,
		"sessions":  a.cmdSessions,
		"aggregate": a.cmdAggregate,
		"summary":   a.cmdSummary,
		"trends":    a.cmdTrends,
		"patterns":  a.cmdPatterns,
		"export":    a.cmdExport,
		"import":    a.cmdImport,
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
	return cmd(ctx, args[1:])
}

// commonFlags are shared by every command.
type commonFlags struct {
	user string
	days int
	jq   string
}

func (a *app) flagSet(name string, days int) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	cf := &commonFlags{}
	fs.StringVar(&cf.user, "user", "", "user id (default: configured user)")
	fs.IntVar(&cf.days, "days", days, "number of days up to and including today")
	fs.StringVar(&cf.jq, "jq", "", "jq expression applied to the JSON output")
	return fs, cf
}

func (a *app) userID(cf *commonFlags) string {
	if cf.user != "" {
		return cf.user
	}
	if a.cfg.UserID != "" {
		return a.cfg.UserID
	}
	return config.DefaultUserID
}

// window returns [start, end) covering the last days days, ending at the
// start of tomorrow in the configured location.
func (a *app) window(days int) (time.Time, time.Time, error) {
	if days < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("days must be positive, got %d", days)
	}
	now := a.now().In(a.loc)
	end := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, a.loc)
	return end.AddDate(0, 0, -days), end, nil
}

// emit writes v as indented JSON, or the results of expr applied to it.
func (a *app) emit(v any, expr string) error {
	if expr == "" {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	res, err := query.Eval(data, expr, query.Options{MaxResults: a.cfg.QueryMaxResults})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(a.out)
	for _, val := range res.Values {
		if err := enc.Encode(val); err != nil {
			return err
		}
	}
	for _, msg := range res.Errors {
		fmt.Fprintln(a.errOut, "jq:", msg)
	}
	return nil
}

func (a *app) cmdSources(ctx context.Context, args []string) error {
	fs, cf := a.flagSet("sources", defaultListDays)
	if err := fs.Parse(args); err != nil {
		return err
	}
	sources, err := a.client.ListDataSources(ctx, a.userID(cf))
	if err != nil {
		return err
	}
	return a.emit(sources, cf.jq)
}

func (a *app) cmdSessions(ctx context.Context, args []string) error {
	fs, cf := a.flagSet("sessions", defaultListDays)
	if err := fs.Parse(args); err != nil {
		return err
	}
	start, end, err := a.window(cf.days)
	if err != nil {
		return err
	}
	sessions, err := analysis.FetchSessions(ctx, a.client, a.userID(cf), start, end)
	if err != nil {
		return err
	}
	return a.emit(analysis.SessionRows(sessions, a.loc), cf.jq)
}

func (a *app) cmdAggregate(ctx context.Context, args []string) error {
	fs, cf := a.flagSet("aggregate", defaultListDays)
	bucket := fs.String("bucket", client.BucketDay, "bucket type: hour, day, week or month")
	types := fs.String("types", client.StepCountDelta, "comma-separated data type names")
	if err := fs.Parse(args); err != nil {
		return err
	}
	switch *bucket {
	case client.BucketHour, client.BucketDay, client.BucketWeek, client.BucketMonth:
	default:
		return fmt.Errorf("unknown bucket type %q", *bucket)
	}
	start, end, err := a.window(cf.days)
	if err != nil {
		return err
	}

	var dataTypes []string
	for _, t := range strings.Split(*types, ",") {
		if t = strings.TrimSpace(t); t != "" {
			dataTypes = append(dataTypes, t)
		}
	}
	resp, err := a.client.Aggregate(ctx, a.userID(cf), client.AggregateRequest{
		StartTime:  start,
		EndTime:    end,
		DataTypes:  dataTypes,
		BucketType: *bucket,
	})
	if err != nil {
		return err
	}
	return a.emit(resp, cf.jq)
}

func (a *app) cmdSummary(ctx context.Context, args []string) error {
	fs, cf := a.flagSet("summary", defaultAnalysisDays)
	asJSON := fs.Bool("json", false, "print the summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	start, end, err := a.window(cf.days)
	if err != nil {
		return err
	}
	summary, err := analysis.FetchActivitySummary(ctx, a.client, a.userID(cf), start, end, a.loc)
	if err != nil {
		return err
	}
	if *asJSON || cf.jq != "" {
		return a.emit(summary, cf.jq)
	}

	p := a.print
	p.Fprintf(a.out, "Period:              %s to %s\n", start.Format(time.DateOnly), end.AddDate(0, 0, -1).Format(time.DateOnly))
	p.Fprintf(a.out, "Total steps:         %d\n", summary.TotalSteps)
	p.Fprintf(a.out, "Average daily steps: %.1f\n", summary.AvgDailySteps)
	p.Fprintf(a.out, "Best day:            %d\n", summary.MaxDailySteps)
	p.Fprintf(a.out, "Active days:         %d\n", summary.ActiveDays)
	p.Fprintf(a.out, "Sessions:            %d\n", summary.TotalSessions)
	p.Fprintf(a.out, "Workout minutes:     %.1f\n", summary.TotalWorkoutMinutes)
	return nil
}

func (a *app) cmdTrends(ctx context.Context, args []string) error {
	fs, cf := a.flagSet("trends", defaultAnalysisDays)
	if err := fs.Parse(args); err != nil {
		return err
	}
	start, end, err := a.window(cf.days)
	if err != nil {
		return err
	}
	days, err := analysis.FetchDailySteps(ctx, a.client, a.userID(cf), start, end, a.loc)
	if err != nil {
		return err
	}
	return a.emit(analysis.WeeklyTrends(days), cf.jq)
}

func (a *app) cmdPatterns(ctx context.Context, args []string) error {
	fs, cf := a.flagSet("patterns", defaultAnalysisDays)
	if err := fs.Parse(args); err != nil {
		return err
	}
	start, end, err := a.window(cf.days)
	if err != nil {
		return err
	}
	sessions, err := analysis.FetchSessions(ctx, a.client, a.userID(cf), start, end)
	if err != nil {
		return err
	}
	return a.emit(analysis.DetectActivityPatterns(sessions, a.loc), cf.jq)
}

func (a *app) cmdExport(ctx context.Context, args []string) error {
	fs, cf := a.flagSet("export", defaultAnalysisDays)
	path := fs.String("out", defaultExportPath, "output .xlsx path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	start, end, err := a.window(cf.days)
	if err != nil {
		return err
	}
	if err := export.ExportUserData(ctx, a.client, a.userID(cf), start, end, *path, a.loc); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "wrote", *path)
	return nil
}

func (a *app) cmdImport(ctx context.Context, args []string) error {
	fs, cf := a.flagSet("import", defaultListDays)
	file := fs.String("file", "", "CSV file of date,steps rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("import: -file is required")
	}

	f, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	defer f.Close()

	entries, err := parseStepsCSV(f, a.loc)
	if err != nil {
		return fmt.Errorf("import %s: %w", *file, err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("import %s: no rows", *file)
	}

	result, err := a.client.BulkInsertSteps(ctx, a.userID(cf), entries)
	if err != nil {
		if result != nil && len(result.DatasetIDs) > 0 {
			a.print.Fprintf(a.out, "committed %d points into %d datasets of %s before failing: %s\n",
				result.Points, len(result.DatasetIDs), result.DataSourceID, strings.Join(result.DatasetIDs, ", "))
		}
		return err
	}
	a.print.Fprintf(a.out, "inserted %d points into %d datasets of %s\n", result.Points, len(result.DatasetIDs), result.DataSourceID)
	return nil
}
