// Package render turns validation outcomes into localized text and JSON views.
// Rules emit codes and structured details only; all wording lives here.
package render

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/liamcoop/shiftrules/rules"
)

const timeLayout = "2006-01-02 15:04"

// Printer renders outcome messages in one language
type Printer struct {
	tag language.Tag
	p   *message.Printer
}

// NewPrinter returns a printer for lang ("en", "it", "it-IT", ...).
// Unsupported or empty languages fall back to English.
func NewPrinter(lang string) *Printer {
	tag := English
	if lang != "" {
		if parsed, err := language.Parse(lang); err == nil {
			if _, idx, conf := matcher.Match(parsed); conf != language.No {
				tag = supported[idx]
			}
		}
	}
	return &Printer{
		tag: tag,
		p:   message.NewPrinter(tag, message.Catalog(defaultCatalog)),
	}
}

// Language returns the base language code in use
func (p *Printer) Language() string {
	base, _ := p.tag.Base()
	return base.String()
}

func (p *Printer) sprintf(key string, args ...any) string {
	return p.p.Sprintf(message.Key(key, key), args...)
}

func id(n int) string {
	return strconv.Itoa(n)
}

func stamp(t time.Time) string {
	return t.Format(timeLayout)
}

// Message describes an outcome in the printer's language
func (p *Printer) Message(o rules.Outcome) string {
	d := o.Details
	key := string(o.Code)

	switch o.Code {
	case rules.CodeRulePassed:
		return p.sprintf(key, o.Rule)
	case rules.CodeProfileMissing:
		return p.sprintf(key, id(o.EmployeeID))
	case rules.CodeIntervalInverted, rules.CodeIntervalOutsidePeriod,
		rules.CodeDuplicateShift:
		return p.sprintf(key, stamp(d.Start), stamp(d.End))
	case rules.CodeLocationOverlap:
		return p.sprintf(key, stamp(d.Start), stamp(d.End), id(d.LocationID), id(d.DepartmentID))
	case rules.CodeOverlappingShift:
		return p.sprintf(key, stamp(d.Start), stamp(d.End), id(d.OtherEventID), stamp(d.OtherStart), stamp(d.OtherEnd))
	case rules.CodeDailyHoursExceeded, rules.CodeDailyHoursBelowMinimum:
		return p.sprintf(key, d.Day, d.Hours, d.Limit)
	case rules.CodeInsufficientShiftGap:
		return p.sprintf(key, d.Hours, d.Day, d.OtherDay, d.Limit)
	case rules.CodeInsufficientWeeklyRest:
		return p.sprintf(key, d.Limit, d.Day, d.OtherDay, d.Hours)
	case rules.CodeExpressionViolated:
		return p.sprintf(key, o.Rule)
	case rules.CodeExpressionFailed:
		return p.sprintf(key, o.Rule, d.Reason)
	default:
		return p.sprintf(keyUnknownCode, key)
	}
}

// SeverityLabel returns the localized name of a severity
func (p *Printer) SeverityLabel(s rules.Severity) string {
	return p.sprintf(severityKeyBase + s.String())
}

// OutcomeView is the JSON shape of an outcome with its rendered message
type OutcomeView struct {
	rules.Outcome
	Message string `json:"message"`
}

// Views renders every outcome, preserving order
func (p *Printer) Views(outcomes []rules.Outcome) []OutcomeView {
	views := make([]OutcomeView, len(outcomes))
	for i, o := range outcomes {
		views[i] = OutcomeView{Outcome: o, Message: p.Message(o)}
	}
	return views
}

// Summary counts outcomes by severity
type Summary struct {
	Total     int `json:"total"`
	Employees int `json:"employees"`
	OK        int `json:"ok"`
	Warning   int `json:"warning"`
	Error     int `json:"error"`
	Fatal     int `json:"fatal"`
}

// Summarize counts outcomes by severity and distinct employee
func Summarize(outcomes []rules.Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	seen := make(map[int]bool)
	for _, o := range outcomes {
		if !seen[o.EmployeeID] {
			seen[o.EmployeeID] = true
			s.Employees++
		}
		switch o.Severity {
		case rules.SeverityOK:
			s.OK++
		case rules.SeverityWarning:
			s.Warning++
		case rules.SeverityError:
			s.Error++
		case rules.SeverityFatal:
			s.Fatal++
		}
	}
	return s
}

// Levels returns the non-OK counts keyed by severity name
func (s Summary) Levels() map[string]int {
	return map[string]int{
		rules.SeverityWarning.String(): s.Warning,
		rules.SeverityError.String():   s.Error,
		rules.SeverityFatal.String():   s.Fatal,
	}
}

// Failed reports whether any outcome is above OK
func (s Summary) Failed() bool {
	return s.Warning+s.Error+s.Fatal > 0
}

// styles renders severity badges; colors are dropped when w is not a terminal
type styles struct {
	header lipgloss.Style
	badge  map[rules.Severity]lipgloss.Style
	muted  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	badge := func(color string) lipgloss.Style {
		return r.NewStyle().Bold(true).Foreground(lipgloss.Color(color)).Width(10)
	}
	return styles{
		header: r.NewStyle().Bold(true).Underline(true),
		badge: map[rules.Severity]lipgloss.Style{
			rules.SeverityOK:      badge("42"),
			rules.SeverityWarning: badge("214"),
			rules.SeverityError:   badge("196"),
			rules.SeverityFatal:   badge("201"),
		},
		muted: r.NewStyle().Faint(true),
	}
}

// Text writes outcomes grouped under one header per employee, followed by a
// summary line. Outcomes keep their order.
func Text(w io.Writer, outcomes []rules.Outcome, p *Printer) error {
	st := newStyles(w)

	current := 0
	started := false
	for _, o := range outcomes {
		if !started || o.EmployeeID != current {
			if started {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			current, started = o.EmployeeID, true
			if _, err := fmt.Fprintln(w, st.header.Render(p.sprintf(keyEmployee, id(o.EmployeeID)))); err != nil {
				return err
			}
		}

		event := ""
		if o.EventID != 0 {
			event = st.muted.Render("#"+id(o.EventID)) + " "
		}
		if _, err := fmt.Fprintf(w, "  %s %s%s\n", st.badge[o.Severity].Render(p.SeverityLabel(o.Severity)), event, p.Message(o)); err != nil {
			return err
		}
	}

	if started {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	s := Summarize(outcomes)
	_, err := fmt.Fprintln(w, p.sprintf(keySummary, s.Total, s.Employees, s.OK, s.Warning, s.Error, s.Fatal))
	return err
}
