// Package scopes manages custom expression rules attached to a location,
// a department, or both. A batch picks up the rules of every scope its
// reference period falls in.
package scopes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/liamcoop/shiftrules/internal/logger"
	"github.com/liamcoop/shiftrules/rules"
)

var (
	// ErrScopeNotFound is returned when a scope has no rule set
	ErrScopeNotFound = errors.New("scope not found")

	// ErrInvalidDefinition is wrapped by every validation and compile failure
	ErrInvalidDefinition = errors.New("invalid rule definition")
)

// Scope addresses a rule set. A zero id matches any location or department.
type Scope struct {
	LocationID   int `json:"locationId" yaml:"locationId"`
	DepartmentID int `json:"departmentId" yaml:"departmentId"`
}

func (s Scope) String() string {
	return fmt.Sprintf("%d/%d", s.LocationID, s.DepartmentID)
}

// Definition is a stored expression rule. Inactive definitions are kept but
// never run.
type Definition struct {
	rules.ExpressionDefinition `yaml:",inline"`
	Active                     bool `json:"active" yaml:"active"`
}

// RuleSet is the definitions attached to one scope
type RuleSet struct {
	Scope Scope        `json:"scope"`
	Rules []Definition `json:"rules"`
}

type scopeRules struct {
	defs     []Definition
	compiled []*rules.CompiledExpression
}

// Manager holds the compiled rule sets of all scopes. With a nil database it
// keeps rule sets in memory only.
type Manager struct {
	scopes map[Scope]*scopeRules
	db     *sql.DB
	mu     sync.RWMutex
}

// NewManager creates a new manager instance
func NewManager(db *sql.DB) *Manager {
	return &Manager{
		scopes: make(map[Scope]*scopeRules),
		db:     db,
	}
}

// compile validates and compiles a rule set without touching manager state
func compile(scope Scope, defs []Definition) (*scopeRules, error) {
	if err := ValidateScope(scope); err != nil {
		return nil, err
	}
	if err := ValidateDefinitions(defs); err != nil {
		return nil, err
	}

	sr := &scopeRules{defs: make([]Definition, 0, len(defs))}
	for _, def := range defs {
		c, err := rules.CompileExpression(def.ExpressionDefinition)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
		}
		// Store the normalized form so reads show the effective defaults
		sr.defs = append(sr.defs, Definition{ExpressionDefinition: c.Definition(), Active: def.Active})
		if def.Active {
			sr.compiled = append(sr.compiled, c)
		}
	}
	return sr, nil
}

// LoadAll replaces the in-memory rule sets with the contents of the
// scope_rules table
func (m *Manager) LoadAll(ctx context.Context) error {
	if m.db == nil {
		return nil
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT location_id, department_id, name, expression, rule_scope, severity, exclude, priority, active
		FROM scope_rules
		ORDER BY location_id, department_id, priority, name
	`)
	if err != nil {
		return fmt.Errorf("failed to fetch scope rules: %w", err)
	}
	defer rows.Close()

	grouped := make(map[Scope][]Definition)
	var order []Scope
	for rows.Next() {
		var (
			scope    Scope
			def      Definition
			ruleKind string
			severity string
		)
		if err := rows.Scan(&scope.LocationID, &scope.DepartmentID, &def.Name, &def.Expression,
			&ruleKind, &severity, &def.Exclude, &def.Priority, &def.Active); err != nil {
			return fmt.Errorf("failed to scan scope rule row: %w", err)
		}
		def.Scope = rules.ExpressionScope(ruleKind)
		if def.Severity, err = rules.ParseSeverity(severity); err != nil {
			return fmt.Errorf("scope %s rule %s: %w", scope, def.Name, err)
		}

		if _, ok := grouped[scope]; !ok {
			order = append(order, scope)
		}
		grouped[scope] = append(grouped[scope], def)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating scope rule rows: %w", err)
	}

	loaded := make(map[Scope]*scopeRules, len(grouped))
	for _, scope := range order {
		sr, err := compile(scope, grouped[scope])
		if err != nil {
			return fmt.Errorf("failed to initialize scope %s: %w", scope, err)
		}
		loaded[scope] = sr
	}

	m.mu.Lock()
	m.scopes = loaded
	m.mu.Unlock()

	logger.Info("scope rules loaded", "scopes", len(loaded))
	return nil
}

// SetRules validates, compiles and persists a scope's rule set, then swaps it
// in. Batches already running keep the rule set they started with.
func (m *Manager) SetRules(ctx context.Context, scope Scope, defs []Definition) error {
	sr, err := compile(scope, defs)
	if err != nil {
		return err
	}

	if m.db != nil {
		if err := m.persist(ctx, scope, sr.defs); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.scopes[scope] = sr
	m.mu.Unlock()

	logger.Info("scope rules updated", "scope", scope.String(), "rules", len(sr.defs), "active", len(sr.compiled))
	return nil
}

func (m *Manager) persist(ctx context.Context, scope Scope, defs []Definition) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM scope_rules
		WHERE location_id = $1 AND department_id = $2
	`, scope.LocationID, scope.DepartmentID); err != nil {
		return fmt.Errorf("failed to clear scope rules: %w", err)
	}

	for _, def := range defs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scope_rules (location_id, department_id, name, expression, rule_scope, severity, exclude, priority, active, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		`, scope.LocationID, scope.DepartmentID, def.Name, def.Expression, string(def.Scope),
			def.Severity.String(), def.Exclude, def.Priority, def.Active); err != nil {
			return fmt.Errorf("failed to insert scope rule %s: %w", def.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scope rules: %w", err)
	}
	return nil
}

// Get returns a copy of one scope's definitions
func (m *Manager) Get(scope Scope) ([]Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sr, exists := m.scopes[scope]
	if !exists {
		return nil, fmt.Errorf("scope %s: %w", scope, ErrScopeNotFound)
	}
	return append([]Definition(nil), sr.defs...), nil
}

// List returns every rule set ordered by location then department
func (m *Manager) List() []RuleSet {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sets := make([]RuleSet, 0, len(m.scopes))
	for scope, sr := range m.scopes {
		sets = append(sets, RuleSet{Scope: scope, Rules: append([]Definition(nil), sr.defs...)})
	}
	sort.Slice(sets, func(i, j int) bool {
		if sets[i].Scope.LocationID != sets[j].Scope.LocationID {
			return sets[i].Scope.LocationID < sets[j].Scope.LocationID
		}
		return sets[i].Scope.DepartmentID < sets[j].Scope.DepartmentID
	})
	return sets
}

// Delete removes a scope's rule set from memory and the database
func (m *Manager) Delete(ctx context.Context, scope Scope) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.scopes[scope]; !exists {
		return fmt.Errorf("scope %s: %w", scope, ErrScopeNotFound)
	}

	if m.db != nil {
		if _, err := m.db.ExecContext(ctx, `
			DELETE FROM scope_rules
			WHERE location_id = $1 AND department_id = $2
		`, scope.LocationID, scope.DepartmentID); err != nil {
			return fmt.Errorf("failed to delete scope rules: %w", err)
		}
	}

	delete(m.scopes, scope)
	return nil
}

// matchingScopes lists the scopes applying to a period, broadest first
func matchingScopes(period rules.ReferencePeriod) []Scope {
	loc, dep := period.LocationID, period.DepartmentID
	candidates := []Scope{{0, 0}, {loc, 0}, {0, dep}, {loc, dep}}

	seen := make(map[Scope]bool, len(candidates))
	matched := make([]Scope, 0, len(candidates))
	for _, s := range candidates {
		if !seen[s] {
			seen[s] = true
			matched = append(matched, s)
		}
	}
	return matched
}

// RulesFor returns the factories of every active rule whose scope matches the
// period, in matching order (0,0), (loc,0), (0,dep), (loc,dep)
func (m *Manager) RulesFor(period rules.ReferencePeriod) []rules.RuleFactory {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var factories []rules.RuleFactory
	for _, scope := range matchingScopes(period) {
		sr, ok := m.scopes[scope]
		if !ok {
			continue
		}
		for _, c := range sr.compiled {
			factories = append(factories, c.Factory())
		}
	}
	return factories
}

var _ rules.RuleSource = (*Manager)(nil)
