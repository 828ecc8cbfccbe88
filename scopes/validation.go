package scopes

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/liamcoop/shiftrules/rules"
)

// MaxRulesPerScope bounds the number of custom rules attached to one scope
const MaxRulesPerScope = 50

// MinCustomPriority is the lowest priority a custom rule may declare.
// Priorities 1..5 belong to the built-in checks.
const MinCustomPriority = 6

const maxNameLength = 100

var validRuleName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.-]*$`)

// ValidateScope rejects negative location or department ids
func ValidateScope(scope Scope) error {
	if scope.LocationID < 0 || scope.DepartmentID < 0 {
		return fmt.Errorf("%w: scope ids must be >= 0, got %s", ErrInvalidDefinition, scope)
	}
	return nil
}

// ValidateDefinitions checks a rule set for one scope. Every returned error
// wraps ErrInvalidDefinition.
func ValidateDefinitions(defs []Definition) error {
	if len(defs) == 0 {
		return fmt.Errorf("%w: rule set cannot be empty, must contain at least one rule", ErrInvalidDefinition)
	}

	if len(defs) > MaxRulesPerScope {
		return fmt.Errorf("%w: rule set contains %d rules, maximum allowed is %d", ErrInvalidDefinition, len(defs), MaxRulesPerScope)
	}

	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if err := validateName(def.Name); err != nil {
			return fmt.Errorf("%w: invalid rule name %q: %v", ErrInvalidDefinition, def.Name, err)
		}

		if seen[def.Name] {
			return fmt.Errorf("%w: duplicate rule name %q", ErrInvalidDefinition, def.Name)
		}
		seen[def.Name] = true

		if strings.TrimSpace(def.Expression) == "" {
			return fmt.Errorf("%w: rule %q has an empty expression", ErrInvalidDefinition, def.Name)
		}

		switch def.Scope {
		case "", rules.ExpressionPerEvent, rules.ExpressionPerEmployee:
		default:
			return fmt.Errorf("%w: rule %q has unknown scope %q (must be event or employee)", ErrInvalidDefinition, def.Name, def.Scope)
		}

		switch def.Severity {
		case rules.SeverityWarning, rules.SeverityError:
		default:
			return fmt.Errorf("%w: rule %q has severity %s (must be WARNING or ERROR)", ErrInvalidDefinition, def.Name, def.Severity)
		}

		// 0 takes rules.DefaultExpressionPriority
		if def.Priority != 0 && def.Priority < MinCustomPriority {
			return fmt.Errorf("%w: rule %q has priority %d, custom rules must use %d or above", ErrInvalidDefinition, def.Name, def.Priority, MinCustomPriority)
		}
	}

	return nil
}

// validateName checks length, format and collisions with the built-in checks
func validateName(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name length %d exceeds maximum of %d characters", len(name), maxNameLength)
	}

	if !validRuleName.MatchString(name) {
		return fmt.Errorf("must match pattern %s", validRuleName.String())
	}

	if isBuiltinName(name) {
		return fmt.Errorf("name %q is used by a built-in check", name)
	}

	return nil
}

func isBuiltinName(name string) bool {
	for _, build := range rules.StandardRules() {
		if build().Name() == name {
			return true
		}
	}
	return false
}
