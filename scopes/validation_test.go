package scopes

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/liamcoop/shiftrules/rules"
)

func def(name, expr string) Definition {
	return Definition{
		ExpressionDefinition: rules.ExpressionDefinition{
			Name:       name,
			Expression: expr,
			Severity:   rules.SeverityError,
		},
		Active: true,
	}
}

func TestValidateDefinitions_Valid(t *testing.T) {
	defs := []Definition{
		def("weekly_cap", `period.totalHours <= 40.0`),
		def("no-night.shifts", `shift.start.getHours() >= 6`),
	}
	defs[1].Scope = rules.ExpressionPerEvent
	defs[1].Severity = rules.SeverityWarning
	defs[1].Priority = MinCustomPriority

	if err := ValidateDefinitions(defs); err != nil {
		t.Fatalf("Expected valid rule set, got: %v", err)
	}
}

func TestValidateDefinitions_Empty(t *testing.T) {
	err := ValidateDefinitions(nil)
	if err == nil {
		t.Fatal("Expected error for empty rule set, got nil")
	}
	if !strings.Contains(err.Error(), "empty") {
		t.Errorf("Expected error message about empty rule set, got: %v", err)
	}
}

func TestValidateDefinitions_TooMany(t *testing.T) {
	defs := make([]Definition, 0, MaxRulesPerScope+1)
	for i := 0; i <= MaxRulesPerScope; i++ {
		defs = append(defs, def(fmt.Sprintf("rule_%d", i), `true`))
	}

	err := ValidateDefinitions(defs)
	if err == nil {
		t.Fatal("Expected error for too many rules, got nil")
	}
	if !strings.Contains(err.Error(), "50") {
		t.Errorf("Expected error message about max 50 rules, got: %v", err)
	}
}

func TestValidateDefinitions_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *Definition)
		wantMsg string
	}{
		{"empty name", func(d *Definition) { d.Name = "" }, "empty"},
		{"leading digit", func(d *Definition) { d.Name = "1rule" }, "pattern"},
		{"space in name", func(d *Definition) { d.Name = "my rule" }, "pattern"},
		{"name too long", func(d *Definition) { d.Name = strings.Repeat("a", 101) }, "100"},
		{"built-in name", func(d *Definition) { d.Name = "daily-hours" }, "built-in"},
		{"blank expression", func(d *Definition) { d.Expression = "   " }, "empty expression"},
		{"unknown scope", func(d *Definition) { d.Scope = "week" }, "unknown scope"},
		{"ok severity", func(d *Definition) { d.Severity = rules.SeverityOK }, "severity"},
		{"fatal severity", func(d *Definition) { d.Severity = rules.SeverityFatal }, "severity"},
		{"reserved priority", func(d *Definition) { d.Priority = 3 }, "priority"},
		{"negative priority", func(d *Definition) { d.Priority = -1 }, "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := def("valid_name", `true`)
			tt.mutate(&d)

			err := ValidateDefinitions([]Definition{d})
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !errors.Is(err, ErrInvalidDefinition) {
				t.Errorf("Expected error to wrap ErrInvalidDefinition, got: %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantMsg, err)
			}
		})
	}
}

func TestValidateDefinitions_DuplicateName(t *testing.T) {
	err := ValidateDefinitions([]Definition{def("dup", `true`), def("dup", `false`)})
	if err == nil {
		t.Fatal("Expected error for duplicate names, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("Expected duplicate error, got: %v", err)
	}
}

func TestValidateDefinitions_NameBoundary(t *testing.T) {
	if err := ValidateDefinitions([]Definition{def(strings.Repeat("a", 100), `true`)}); err != nil {
		t.Errorf("100-character name should be valid, got: %v", err)
	}
}

func TestValidateScope(t *testing.T) {
	if err := ValidateScope(Scope{}); err != nil {
		t.Errorf("wildcard scope should be valid, got: %v", err)
	}
	if err := ValidateScope(Scope{LocationID: -1}); !errors.Is(err, ErrInvalidDefinition) {
		t.Errorf("negative location should be invalid, got: %v", err)
	}
}
