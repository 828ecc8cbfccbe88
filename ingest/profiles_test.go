package ingest

import (
	"strings"
	"testing"
)

func TestReadProfilesYAMLList(t *testing.T) {
	input := `
- employeeId: 1
  name: emp1
  maxWeeklyHours: 40
  minDailyHours: 3
  maxDailyHours: 13
  minGapBetweenShiftsHours: 11
  minWeeklyRestHours: 24
- employeeId: 2
  maxDailyHours: 5
`
	got, err := ReadProfiles(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadProfiles() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadProfiles() returned %d profiles, want 2", len(got))
	}
	if got[0].MaxDailyHours == nil || *got[0].MaxDailyHours != 13 {
		t.Errorf("emp1 MaxDailyHours = %v, want 13", got[0].MaxDailyHours)
	}
	if got[1].MinDailyHours != nil {
		t.Errorf("emp2 MinDailyHours = %v, want nil", *got[1].MinDailyHours)
	}
}

func TestReadProfilesJSONMapping(t *testing.T) {
	input := `{"profiles": [{"employeeId": 7, "minWeeklyRestHours": 0}]}`

	got, err := ReadProfiles(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadProfiles() failed: %v", err)
	}
	if len(got) != 1 || got[0].EmployeeID != 7 {
		t.Fatalf("ReadProfiles() = %+v", got)
	}
	// An explicit zero is a real bound, not an absent one
	if got[0].MinWeeklyRestHours == nil || *got[0].MinWeeklyRestHours != 0 {
		t.Errorf("MinWeeklyRestHours = %v, want explicit 0", got[0].MinWeeklyRestHours)
	}

	m := ProfileMap(got)
	if _, ok := m[7]; !ok {
		t.Error("ProfileMap() missing employee 7")
	}
}

func TestReadProfilesEmpty(t *testing.T) {
	got, err := ReadProfiles(strings.NewReader("  \n"))
	if err != nil {
		t.Fatalf("ReadProfiles() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ReadProfiles() returned %d profiles, want 0", len(got))
	}
}

func TestReadProfilesErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"scalar document", "hello", "expected a list"},
		{"missing id", "- name: nobody\n", "employeeId must be positive"},
		{"duplicate id", "- employeeId: 1\n- employeeId: 1\n", "duplicate"},
		{"wrong type", "- employeeId: 1\n  maxDailyHours: lots\n", "invalid profiles document"},
		{"malformed", "[", "invalid profiles document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadProfiles(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("ReadProfiles() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}
