// Package ingest reads shift events and employee profiles from files.
//
// Event rows carry eight columns in a fixed order:
//
//	title, description, start, end, employeeId, locationId, departmentId, status
//
// Text columns may be wrapped in single quotes and the literal null stands for
// an empty value. Timestamps use the layout "2006-01-02 15:04:05". Event ids
// are assigned sequentially from 1 in file order.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/liamcoop/shiftrules/rules"
)

// TimestampLayout is the layout of start and end columns
const TimestampLayout = "2006-01-02 15:04:05"

const eventColumns = 8

// Column positions
const (
	colTitle = iota
	colDescription
	colStart
	colEnd
	colEmployee
	colLocation
	colDepartment
	colStatus
)

var columnNames = [eventColumns]string{
	"title", "description", "start", "end", "employeeId", "locationId", "departmentId", "status",
}

// ParseError reports the input line and column a record failed on
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Option configures event reading
type Option func(*options)

type options struct {
	location *time.Location
}

// WithLocation sets the time zone timestamps are interpreted in.
// The default is time.Local.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

func newOptions(opts []Option) options {
	o := options{location: time.Local}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ReadEvents parses comma-separated event rows. Blank lines and lines starting
// with # are skipped, as is a leading header row whose first column is
// "title". The first malformed row stops reading with a *ParseError.
func ReadEvents(r io.Reader, opts ...Option) ([]rules.EventRecord, error) {
	o := newOptions(opts)

	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	var events []rules.EventRecord
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return nil, &ParseError{Line: csvErr.Line, Err: csvErr.Err}
			}
			return nil, fmt.Errorf("failed to read events: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if first {
			first = false
			if isHeader(record) {
				continue
			}
		}

		evt, perr := parseRecord(record, len(events)+1, o.location)
		if perr != nil {
			perr.Line = line
			return nil, perr
		}
		events = append(events, evt)
	}

	return events, nil
}

func isHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(cleanText(record[0]), columnNames[colTitle])
}

// cleanText strips surrounding whitespace and single quotes and maps null to ""
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = s[1 : len(s)-1]
	}
	if strings.EqualFold(s, "null") {
		return ""
	}
	return s
}

// parseRecord converts one row; the caller fills in the line number
func parseRecord(record []string, id int, loc *time.Location) (rules.EventRecord, *ParseError) {
	if len(record) != eventColumns {
		return rules.EventRecord{}, &ParseError{
			Err: fmt.Errorf("expected %d columns, got %d", eventColumns, len(record)),
		}
	}

	evt := rules.EventRecord{
		ID:          id,
		Title:       cleanText(record[colTitle]),
		Description: cleanText(record[colDescription]),
		Status:      cleanText(record[colStatus]),
	}

	var err error
	if evt.Start, err = parseTimestamp(record[colStart], loc); err != nil {
		return evt, &ParseError{Column: columnNames[colStart], Err: err}
	}
	if evt.End, err = parseTimestamp(record[colEnd], loc); err != nil {
		return evt, &ParseError{Column: columnNames[colEnd], Err: err}
	}

	ints := []struct {
		col int
		dst *int
	}{
		{colEmployee, &evt.EmployeeID},
		{colLocation, &evt.LocationID},
		{colDepartment, &evt.DepartmentID},
	}
	for _, f := range ints {
		n, err := strconv.Atoi(cleanText(record[f.col]))
		if err != nil {
			return evt, &ParseError{Column: columnNames[f.col], Err: fmt.Errorf("not an integer: %q", record[f.col])}
		}
		*f.dst = n
	}

	return evt, nil
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = cleanText(s)
	t, err := time.ParseInLocation(TimestampLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q (want %s)", s, TimestampLayout)
	}
	return t, nil
}
