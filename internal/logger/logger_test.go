package logger

import (
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"", LevelInfo, false},
		{"trace", LevelTrace, false},
		{"Debug", LevelDebug, false},
		{" WARN ", LevelWarning, false},
		{"warning", LevelWarning, false},
		{"ERROR", LevelError, false},
		{"fatal", LevelFatal, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSetLevelNameKeepsLevelOnError(t *testing.T) {
	previous := GetLevel()
	defer SetLevel(previous)

	if err := SetLevelName("debug"); err != nil {
		t.Fatalf("SetLevelName(debug) error = %v", err)
	}
	if GetLevel() != LevelDebug {
		t.Errorf("level = %v, want DEBUG", GetLevel())
	}

	if err := SetLevelName("loud"); err == nil {
		t.Error("SetLevelName(loud) should fail")
	}
	if GetLevel() != LevelDebug {
		t.Errorf("level changed to %v after a bad name", GetLevel())
	}
}

func TestRecordBatch(t *testing.T) {
	before := Counters()

	RecordBatch(10*time.Millisecond, map[string]int{"OK": 7, "WARNING": 2, "ERROR": 1})
	RecordBatch(SlowBatchThreshold+time.Second, map[string]int{"FATAL": 3})

	after := Counters()
	deltas := map[string]int64{
		"batchesValidated": 2,
		"slowBatches":      1,
		"outcomesWarning":  2,
		"outcomesError":    1,
		"outcomesFatal":    3,
	}
	for name, want := range deltas {
		if got := after[name] - before[name]; got != want {
			t.Errorf("%s grew by %d, want %d", name, got, want)
		}
	}
	// The slow batch warning is counted even when sampled out
	if after["warnings"]-before["warnings"] != 1 {
		t.Errorf("warnings grew by %d, want 1", after["warnings"]-before["warnings"])
	}
}

func TestHTTPCounters(t *testing.T) {
	before := Counters()

	ErrorHttp5xx()
	WarnHttp4xx()
	WarnHttp4xx()

	after := Counters()
	if after["http5xx"]-before["http5xx"] != 1 || after["errors"]-before["errors"] != 1 {
		t.Errorf("5xx counters = %d/%d", after["http5xx"]-before["http5xx"], after["errors"]-before["errors"])
	}
	if after["http4xx"]-before["http4xx"] != 2 || after["warnings"]-before["warnings"] != 2 {
		t.Errorf("4xx counters = %d/%d", after["http4xx"]-before["http4xx"], after["warnings"]-before["warnings"])
	}
}

func TestShutdownWithoutExporter(t *testing.T) {
	if err := Shutdown(t.Context()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
