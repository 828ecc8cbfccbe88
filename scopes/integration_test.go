//go:build integration

package scopes

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/liamcoop/shiftrules/rules"
)

// setupTestDB creates a PostgreSQL testcontainer and runs migrations
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	connStr := fmt.Sprintf("postgres://postgres:password@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	migrationSQL, err := os.ReadFile("../migrations/000001_initial_schema.up.sql")
	if err != nil {
		t.Fatalf("Failed to read migration file: %v", err)
	}

	if _, err := db.Exec(string(migrationSQL)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		db.Close()
		postgres.Terminate(ctx)
	}

	return db, cleanup
}

func TestManager_PersistAndReload(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	writer := NewManager(db)

	weekly := def("weekly_cap", `!has(profile.maxWeeklyHours) || period.totalHours <= profile.maxWeeklyHours`)
	weekly.Scope = rules.ExpressionPerEmployee
	if err := writer.SetRules(ctx, Scope{LocationID: 1}, []Definition{weekly}); err != nil {
		t.Fatalf("SetRules failed: %v", err)
	}

	// A second replica sees the rule set after loading
	reader := NewManager(db)
	if err := reader.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	stored, err := reader.Get(Scope{LocationID: 1})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(stored) != 1 || stored[0].Scope != rules.ExpressionPerEmployee {
		t.Fatalf("Unexpected reloaded rule set: %+v", stored)
	}

	// Replacing the set drops the old rows
	if err := writer.SetRules(ctx, Scope{LocationID: 1}, []Definition{def("other", `true`)}); err != nil {
		t.Fatalf("SetRules failed: %v", err)
	}
	if err := reader.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	stored, _ = reader.Get(Scope{LocationID: 1})
	if len(stored) != 1 || stored[0].Name != "other" {
		t.Errorf("Expected only 'other' after replace, got %+v", stored)
	}

	if err := writer.Delete(ctx, Scope{LocationID: 1}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := reader.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(reader.List()) != 0 {
		t.Errorf("Expected no scopes after delete, got %d", len(reader.List()))
	}
}
