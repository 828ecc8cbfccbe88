package profiles

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/liamcoop/shiftrules/rules"
)

const profileColumns = `employee_id, name, max_weekly_hours, min_daily_hours, max_daily_hours,
		min_gap_between_shifts_hours, min_weekly_rest_hours`

// PostgresProfileStore implements ProfileStore backed by PostgreSQL.
// A NULL threshold column maps to a nil (unconstrained) profile field.
type PostgresProfileStore struct {
	db *sql.DB
}

// NewPostgresProfileStore creates a new PostgreSQL-backed ProfileStore
func NewPostgresProfileStore(db *sql.DB) *PostgresProfileStore {
	return &PostgresProfileStore{db: db}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*rules.EmployeeProfile, error) {
	var (
		p                                  rules.EmployeeProfile
		name                               sql.NullString
		maxWeekly, minDaily, maxDaily, gap sql.NullFloat64
		rest                               sql.NullFloat64
	)
	if err := row.Scan(&p.EmployeeID, &name, &maxWeekly, &minDaily, &maxDaily, &gap, &rest); err != nil {
		return nil, err
	}
	p.Name = name.String
	p.MaxWeeklyHours = nullableHours(maxWeekly)
	p.MinDailyHours = nullableHours(minDaily)
	p.MaxDailyHours = nullableHours(maxDaily)
	p.MinGapBetweenShiftsHours = nullableHours(gap)
	p.MinWeeklyRestHours = nullableHours(rest)
	return &p, nil
}

func nullableHours(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return rules.Hours(v.Float64)
}

func hoursArg(h *float64) sql.NullFloat64 {
	if h == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *h, Valid: true}
}

// Get retrieves a profile by employee ID
func (s *PostgresProfileStore) Get(ctx context.Context, employeeID int) (*rules.EmployeeProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM employee_profiles
		WHERE employee_id = $1
	`, employeeID)

	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("employee %d: %w", employeeID, ErrProfileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return p, nil
}

// GetMany retrieves the profiles of several employees in one query
func (s *PostgresProfileStore) GetMany(ctx context.Context, employeeIDs []int) (map[int]rules.EmployeeProfile, error) {
	found := make(map[int]rules.EmployeeProfile, len(employeeIDs))
	if len(employeeIDs) == 0 {
		return found, nil
	}

	ids := make([]int64, len(employeeIDs))
	for i, id := range employeeIDs {
		ids[i] = int64(id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM employee_profiles
		WHERE employee_id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		found[p.EmployeeID] = *p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	return found, nil
}

// Put inserts or replaces a profile
func (s *PostgresProfileStore) Put(ctx context.Context, profile *rules.EmployeeProfile) error {
	if profile == nil {
		return fmt.Errorf("profile is nil")
	}
	if profile.EmployeeID <= 0 {
		return fmt.Errorf("invalid employee ID %d", profile.EmployeeID)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employee_profiles (`+profileColumns+`, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (employee_id) DO UPDATE SET
			name = EXCLUDED.name,
			max_weekly_hours = EXCLUDED.max_weekly_hours,
			min_daily_hours = EXCLUDED.min_daily_hours,
			max_daily_hours = EXCLUDED.max_daily_hours,
			min_gap_between_shifts_hours = EXCLUDED.min_gap_between_shifts_hours,
			min_weekly_rest_hours = EXCLUDED.min_weekly_rest_hours,
			updated_at = NOW()
	`, profile.EmployeeID, profile.Name,
		hoursArg(profile.MaxWeeklyHours),
		hoursArg(profile.MinDailyHours),
		hoursArg(profile.MaxDailyHours),
		hoursArg(profile.MinGapBetweenShiftsHours),
		hoursArg(profile.MinWeeklyRestHours))

	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	return nil
}

// Delete removes a profile from the database
func (s *PostgresProfileStore) Delete(ctx context.Context, employeeID int) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM employee_profiles
		WHERE employee_id = $1
	`, employeeID)

	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("employee %d: %w", employeeID, ErrProfileNotFound)
	}

	return nil
}

// List returns every profile ordered by employee ID
func (s *PostgresProfileStore) List(ctx context.Context) ([]*rules.EmployeeProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM employee_profiles
		ORDER BY employee_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var list []*rules.EmployeeProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		list = append(list, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	return list, nil
}
