package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/liamcoop/shiftrules/ingest"
	"github.com/liamcoop/shiftrules/internal/logger"
	"github.com/liamcoop/shiftrules/render"
	"github.com/liamcoop/shiftrules/rules"
	"github.com/liamcoop/shiftrules/scopes"
)

// errFindings is returned when the batch produced warnings, errors or fatal
// outcomes. main turns it into exit status 2.
var errFindings = errors.New("validation reported findings")

const dayLayout = "2006-01-02"

type validateOptions struct {
	events      string
	sheet       string
	profiles    string
	rules       string
	from        string
	to          string
	location    int
	department  int
	timezone    string
	lang        string
	format      string
	concurrency int
	restMarker  string
}

func newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a shift file",
		Long: `Validate every employee's shifts in a reference period.

The events file is read as XLSX when its extension is .xlsx, otherwise as
comma-separated text with the columns
  title, description, start, end, employeeId, locationId, departmentId, status

Without --from/--to the period spans the days of the first and last shift.

Examples:
  # Text report in Italian
  shiftcheck validate --events turni.csv --profiles dipendenti.yaml --lang it

  # JSON report for one week, with custom rules
  shiftcheck validate --events week.xlsx --profiles staff.yaml \
    --from 2023-01-02 --to 2023-01-08 --rules rules.yaml --format json

Exit status is 0 when every check passed, 2 when the report contains
findings and 1 on any other error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.events, "events", "e", "", "Shift file (.csv or .xlsx)")
	f.StringVar(&opts.sheet, "sheet", "", "XLSX sheet name (default first sheet)")
	f.StringVarP(&opts.profiles, "profiles", "p", "", "Employee profiles file (YAML or JSON)")
	f.StringVar(&opts.rules, "rules", "", "Custom expression rules file (YAML)")
	f.StringVar(&opts.from, "from", "", "Period start day, YYYY-MM-DD")
	f.StringVar(&opts.to, "to", "", "Period end day, YYYY-MM-DD (inclusive)")
	f.IntVar(&opts.location, "location", 0, "Location id of the batch (selects custom rules)")
	f.IntVar(&opts.department, "department", 0, "Department id of the batch (selects custom rules)")
	f.StringVar(&opts.timezone, "tz", "", "Time zone of the shift timestamps (default local)")
	f.StringVar(&opts.lang, "lang", "en", "Report language: en, it")
	f.StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	f.IntVar(&opts.concurrency, "concurrency", 0, "Employees validated in parallel (0=auto)")
	f.StringVar(&opts.restMarker, "rest-marker", rules.DefaultRestMarker, "Status text marking rest days")

	_ = cmd.MarkFlagRequired("events")
	_ = cmd.MarkFlagRequired("profiles")

	return cmd
}

// jsonReport is the --format json document
type jsonReport struct {
	Period   rules.ReferencePeriod `json:"period"`
	Language string                `json:"language"`
	Outcomes []render.OutcomeView  `json:"outcomes"`
	Summary  render.Summary        `json:"summary"`
}

func runValidate(ctx context.Context, out io.Writer, opts *validateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	switch opts.format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown format %q (text, json)", opts.format)
	}

	loc := time.Local
	if opts.timezone != "" {
		var err error
		if loc, err = time.LoadLocation(opts.timezone); err != nil {
			return fmt.Errorf("invalid time zone: %w", err)
		}
	}

	events, err := loadEvents(opts.events, opts.sheet, loc)
	if err != nil {
		return err
	}

	profileList, err := loadProfiles(opts.profiles)
	if err != nil {
		return err
	}

	period, err := buildPeriod(opts, events, loc)
	if err != nil {
		return err
	}

	validatorOpts := []rules.Option{rules.WithRestMarker(opts.restMarker)}
	if opts.concurrency > 0 {
		validatorOpts = append(validatorOpts, rules.WithConcurrency(opts.concurrency))
	}
	if opts.rules != "" {
		manager, err := loadRules(ctx, opts.rules, scopes.Scope{LocationID: opts.location, DepartmentID: opts.department})
		if err != nil {
			return err
		}
		validatorOpts = append(validatorOpts, rules.WithRuleSource(manager))
	}

	start := time.Now()
	outcomes, err := rules.NewBatchValidator(validatorOpts...).ValidateAll(ctx, period, events, ingest.ProfileMap(profileList))
	if err != nil {
		return err
	}
	summary := render.Summarize(outcomes)
	logger.RecordBatch(time.Since(start), summary.Levels())
	logger.Debug("validation finished",
		"events", len(events),
		"employees", summary.Employees,
		"elapsed", time.Since(start).String(),
	)

	printer := render.NewPrinter(opts.lang)
	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(jsonReport{
			Period:   period,
			Language: printer.Language(),
			Outcomes: printer.Views(outcomes),
			Summary:  summary,
		})
	} else {
		err = render.Text(out, outcomes, printer)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if summary.Failed() {
		return errFindings
	}
	return nil
}

func loadEvents(path, sheet string, loc *time.Location) ([]rules.EventRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open events: %w", err)
	}
	defer f.Close()

	var events []rules.EventRecord
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		events, err = ingest.ReadEventsXLSX(f, sheet, ingest.WithLocation(loc))
	} else {
		events, err = ingest.ReadEvents(f, ingest.WithLocation(loc))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}

func loadProfiles(path string) ([]rules.EmployeeProfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open profiles: %w", err)
	}
	defer f.Close()

	list, err := ingest.ReadProfiles(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

// ruleFile is the --rules document. Rules are active unless they say otherwise.
type ruleFile struct {
	Rules []struct {
		rules.ExpressionDefinition `yaml:",inline"`
		Active                     *bool `yaml:"active"`
	} `yaml:"rules"`
}

func loadRules(ctx context.Context, path string, scope scopes.Scope) (*scopes.Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}

	var doc ruleFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: invalid rules document: %w", path, err)
	}

	defs := make([]scopes.Definition, 0, len(doc.Rules))
	for _, r := range doc.Rules {
		active := r.Active == nil || *r.Active
		defs = append(defs, scopes.Definition{ExpressionDefinition: r.ExpressionDefinition, Active: active})
	}

	manager := scopes.NewManager(nil)
	if err := manager.SetRules(ctx, scope, defs); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return manager, nil
}

// buildPeriod uses --from/--to when given and otherwise the calendar days
// covered by the shifts
func buildPeriod(opts *validateOptions, events []rules.EventRecord, loc *time.Location) (rules.ReferencePeriod, error) {
	period := rules.ReferencePeriod{LocationID: opts.location, DepartmentID: opts.department}

	var first, last time.Time
	for i, evt := range events {
		if i == 0 || evt.Start.Before(first) {
			first = evt.Start
		}
		if i == 0 || evt.End.After(last) {
			last = evt.End
		}
	}

	if opts.from != "" {
		day, err := time.ParseInLocation(dayLayout, opts.from, loc)
		if err != nil {
			return period, fmt.Errorf("invalid --from: %w", err)
		}
		first = day
	}
	if opts.to != "" {
		day, err := time.ParseInLocation(dayLayout, opts.to, loc)
		if err != nil {
			return period, fmt.Errorf("invalid --to: %w", err)
		}
		last = day
	}

	if first.IsZero() || last.IsZero() {
		return period, fmt.Errorf("no shifts found and no --from/--to given")
	}

	y, m, d := first.Date()
	period.Start = time.Date(y, m, d, 0, 0, 0, 0, first.Location())
	y, m, d = last.Date()
	period.End = time.Date(y, m, d, 23, 59, 59, 0, last.Location())

	if period.End.Before(period.Start) {
		return period, fmt.Errorf("period ends (%s) before it starts (%s)", period.End.Format(dayLayout), period.Start.Format(dayLayout))
	}
	return period, nil
}
