package rules

import (
	"encoding/json"
	"testing"
)

func TestSeverityOrdering(t *testing.T) {
	if !(SeverityOK < SeverityWarning && SeverityWarning < SeverityError && SeverityError < SeverityFatal) {
		t.Error("severities must be ordered OK < Warning < Error < Fatal")
	}
}

func TestSeverityText(t *testing.T) {
	tests := []struct {
		input   string
		want    Severity
		wantErr bool
	}{
		{"OK", SeverityOK, false},
		{"warning", SeverityWarning, false},
		{"WARN", SeverityWarning, false},
		{" Error ", SeverityError, false},
		{"fatal", SeverityFatal, false},
		{"ko", SeverityFatal, false},
		{"panic", SeverityOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSeverity(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSeverity(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSeverity(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSeverityJSON(t *testing.T) {
	data, err := json.Marshal(Outcome{EmployeeID: 1, Severity: SeverityFatal, Code: CodeProfileMissing})
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if decoded["severity"] != "FATAL" {
		t.Errorf("severity = %v, want FATAL", decoded["severity"])
	}
	if decoded["eventId"] != 0.0 {
		t.Errorf("eventId = %v, want 0", decoded["eventId"])
	}

	if _, err := json.Marshal(Severity(42)); err == nil {
		t.Error("marshaling an unknown severity should fail")
	}
	if s := Severity(42).String(); s != "Severity(42)" {
		t.Errorf("String() = %q", s)
	}
}

func TestIsRest(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"riposo", true},
		{"  RIPOSO ", true},
		{"Riposo", true},
		{"riposo settimanale", false},
		{"bozza", false},
		{"", false},
	}

	for _, tt := range tests {
		evt := EventRecord{Status: tt.status}
		if got := evt.IsRest(DefaultRestMarker); got != tt.want {
			t.Errorf("IsRest(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestEmployeeContextOwnsEvents(t *testing.T) {
	events := []EventRecord{shift(1, 1, ts(2, 8, 0), ts(2, 14, 0))}
	ctx := newContext(fullProfile(1), events...)

	ctx.Events[0].Exclude()

	if events[0].Excluded() {
		t.Error("excluding a context event modified the caller's record")
	}
	if len(ctx.Eligible()) != 0 {
		t.Error("excluded event is still eligible")
	}
}

func TestWorkingSkipsRestAndSorts(t *testing.T) {
	ctx := newContext(fullProfile(1),
		shift(1, 1, ts(4, 8, 0), ts(4, 14, 0)),
		rest(2, 1, 3),
		shift(3, 1, ts(2, 8, 0), ts(2, 14, 0)),
	)

	working := ctx.Working()
	if len(working) != 2 {
		t.Fatalf("Working() returned %d events, want 2", len(working))
	}
	if working[0].ID != 3 || working[1].ID != 1 {
		t.Errorf("Working() order = [%d %d], want [3 1]", working[0].ID, working[1].ID)
	}

	ctx.RestMarker = "bozza"
	if n := len(ctx.Working()); n != 1 {
		t.Errorf("Working() with marker bozza returned %d events, want 1", n)
	}
}

func TestEmployeeProfileClone(t *testing.T) {
	p := fullProfile(1)
	clone := p.Clone()

	*clone.MaxDailyHours = 8
	*clone.MinWeeklyRestHours = 36

	if *p.MaxDailyHours != 13 || *p.MinWeeklyRestHours != 24 {
		t.Errorf("original changed through the clone: %v, %v", *p.MaxDailyHours, *p.MinWeeklyRestHours)
	}
	if clone.MaxWeeklyHours != nil {
		t.Error("unset threshold became set in the clone")
	}
}
