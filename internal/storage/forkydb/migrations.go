package forkydb

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is a single idempotent schema step, the same Migration{Name,
// Func} shape as the teacher's internal/storage/dolt/migrations.go.
type migration struct {
	Name string
	Func func(context.Context, *sql.DB) error
}

var migrationsList = []migration{
	{"001_initial_schema", migrateInitialSchema},
}

func migrateInitialSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// runMigrations applies every not-yet-applied migration in order. The
// initial schema migration is idempotent and is not recorded; every later
// migration is recorded in schema_migrations so repeated calls skip it.
func runMigrations(ctx context.Context, db *sql.DB) error {
	// migrateInitialSchema creates schema_migrations itself, so it always
	// runs; every later migration checks the tracking table first.
	if err := migrateInitialSchema(ctx, db); err != nil {
		return fmt.Errorf("migration %q: %w", migrationsList[0].Name, err)
	}
	for _, m := range migrationsList[1:] {
		applied, err := isMigrationApplied(ctx, db, m.Name)
		if err != nil {
			return fmt.Errorf("checking migration %q: %w", m.Name, err)
		}
		if applied {
			continue
		}
		if err := m.Func(ctx, db); err != nil {
			return fmt.Errorf("migration %q: %w", m.Name, err)
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES (?)`, m.Name); err != nil {
			return fmt.Errorf("recording migration %q: %w", m.Name, err)
		}
	}
	return nil
}

func isMigrationApplied(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListMigrations returns the names of every registered migration, exported
// for the `forky doctor` command to report schema state.
func ListMigrations() []string {
	names := make([]string, len(migrationsList))
	for i, m := range migrationsList {
		names[i] = m.Name
	}
	return names
}
