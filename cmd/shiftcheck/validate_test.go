package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventsCSV = `title,description,start,end,employeeId,locationId,departmentId,status
'Gastronomia 08:00-14:00',null,'2023-01-02 08:00:00','2023-01-02 14:00:00',1,1,1,'bozza'
'Gastronomia 08:00-14:00',null,'2023-01-03 08:00:00','2023-01-03 14:00:00',1,1,1,'bozza'
'Riposo',null,'2023-01-04 00:00:00','2023-01-04 23:59:59',1,1,1,'riposo'
`

const profilesYAML = `
- employeeId: 1
  maxDailyHours: 13
  minGapBetweenShiftsHours: 11
  minWeeklyRestHours: 16
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCleanBatch(t *testing.T) {
	dir := t.TempDir()
	events := writeFile(t, dir, "events.csv", eventsCSV)
	profiles := writeFile(t, dir, "profiles.yaml", profilesYAML)

	out, err := run(t, "validate", "--events", events, "--profiles", profiles, "--tz", "UTC")
	require.NoError(t, err, out)

	assert.Contains(t, out, "Employee 1")
	assert.Contains(t, out, "5 outcomes for 1 employees: 5 ok, 0 warnings, 0 errors, 0 fatal")
}

func TestValidateFindingsJSON(t *testing.T) {
	dir := t.TempDir()
	events := writeFile(t, dir, "events.csv", eventsCSV+
		"'Cassa',null,'2023-01-02 06:00:00','2023-01-02 21:00:00',2,1,1,null\n")
	profiles := writeFile(t, dir, "profiles.yaml", profilesYAML)

	out, err := run(t, "validate",
		"--events", events, "--profiles", profiles,
		"--from", "2023-01-02", "--to", "2023-01-08",
		"--tz", "UTC", "--format", "json", "--lang", "it",
	)
	require.True(t, errors.Is(err, errFindings), "err = %v", err)

	var report struct {
		Language string `json:"language"`
		Outcomes []struct {
			EmployeeID int    `json:"employeeId"`
			Severity   string `json:"severity"`
			Code       string `json:"code"`
			Message    string `json:"message"`
		} `json:"outcomes"`
		Summary struct {
			Total int `json:"total"`
			Fatal int `json:"fatal"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)

	assert.Equal(t, "it", report.Language)
	assert.Equal(t, 6, report.Summary.Total)
	assert.Equal(t, 1, report.Summary.Fatal)

	last := report.Outcomes[len(report.Outcomes)-1]
	assert.Equal(t, 2, last.EmployeeID)
	assert.Equal(t, "profile_missing", last.Code)
	assert.Contains(t, last.Message, "anagrafica")
}

func TestValidateCustomRules(t *testing.T) {
	dir := t.TempDir()
	events := writeFile(t, dir, "events.csv", eventsCSV)
	profiles := writeFile(t, dir, "profiles.yaml", `
- employeeId: 1
  maxWeeklyHours: 10
`)
	rulesFile := writeFile(t, dir, "rules.yaml", `
rules:
  - name: weekly_hours
    scope: employee
    severity: ERROR
    expression: "!has(profile.maxWeeklyHours) || period.totalHours <= profile.maxWeeklyHours"
  - name: disabled_rule
    expression: "false"
    severity: WARNING
    active: false
`)

	out, err := run(t, "validate", "--events", events, "--profiles", profiles, "--rules", rulesFile, "--tz", "UTC")
	require.True(t, errors.Is(err, errFindings), "err = %v", err)

	assert.Contains(t, out, "rule weekly_hours not satisfied")
	assert.NotContains(t, out, "disabled_rule")
}

func TestValidateErrors(t *testing.T) {
	dir := t.TempDir()
	events := writeFile(t, dir, "events.csv", eventsCSV)
	profiles := writeFile(t, dir, "profiles.yaml", profilesYAML)
	badEvents := writeFile(t, dir, "bad.csv", "A,,yesterday,2023-01-02 09:00:00,1,1,1,\n")
	badRules := writeFile(t, dir, "rules.yaml", "rules:\n  - name: 1bad\n    expression: \"true\"\n    severity: ERROR\n")

	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"missing events flag", []string{"validate", "--profiles", profiles}, "events"},
		{"missing file", []string{"validate", "--events", filepath.Join(dir, "nope.csv"), "--profiles", profiles}, "failed to open events"},
		{"bad event row", []string{"validate", "--events", badEvents, "--profiles", profiles}, "line 1"},
		{"bad format", []string{"validate", "--events", events, "--profiles", profiles, "--format", "xml"}, "unknown format"},
		{"bad period", []string{"validate", "--events", events, "--profiles", profiles, "--from", "2023-01-09", "--to", "2023-01-02"}, "before it starts"},
		{"bad rules", []string{"validate", "--events", events, "--profiles", profiles, "--rules", badRules}, "invalid rule"},
		{"bad time zone", []string{"validate", "--events", events, "--profiles", profiles, "--tz", "Mars/Olympus"}, "time zone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.False(t, errors.Is(err, errFindings))
			assert.True(t, strings.Contains(err.Error(), tt.wantMsg), "err = %v, want %q", err, tt.wantMsg)
		})
	}
}
