// Package migrate applies versioned SQL migrations and idempotent seed
// files from an embedded filesystem.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"
)

const (
	migrationsTable = "schema_migrations"
	seedsTable      = "schema_seeds"
)

// Manager executes SQL migrations and seeds against PostgreSQL. Files come
// from an fs.FS, normally an embed.FS compiled into the binary.
type Manager struct {
	db    *sql.DB
	files fs.FS
}

// NewManager constructs a Manager reading SQL files from files.
func NewManager(db *sql.DB, files fs.FS) *Manager {
	return &Manager{db: db, files: files}
}

// Up applies all pending *.up.sql files in lexical order.
func (m *Manager) Up(ctx context.Context) error {
	if err := m.ensureTables(ctx); err != nil {
		return err
	}
	applied, err := m.applied(ctx, migrationsTable)
	if err != nil {
		return err
	}
	names, err := m.glob("*.up.sql")
	if err != nil {
		return err
	}
	for _, name := range names {
		if applied[name] {
			continue
		}
		if err := m.execFile(ctx, name); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if err := m.record(ctx, migrationsTable, name); err != nil {
			return err
		}
	}
	return nil
}

// Down rolls back the most recently applied migration using its *.down.sql
// counterpart.
func (m *Manager) Down(ctx context.Context) error {
	if err := m.ensureTables(ctx); err != nil {
		return err
	}
	history, err := m.history(ctx)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return errors.New("no migrations applied")
	}
	last := history[len(history)-1]
	down := strings.TrimSuffix(last, ".up.sql") + ".down.sql"
	if _, err := fs.Stat(m.files, down); err != nil {
		return fmt.Errorf("missing down migration for %s", last)
	}
	if err := m.execFile(ctx, down); err != nil {
		return fmt.Errorf("rollback migration %s: %w", last, err)
	}
	_, err = m.db.ExecContext(ctx,
		fmt.Sprintf(`delete from %s where name = $1`, migrationsTable), last)
	return err
}

// Status lists applied migrations in order.
func (m *Manager) Status(ctx context.Context) ([]string, error) {
	if err := m.ensureTables(ctx); err != nil {
		return nil, err
	}
	return m.history(ctx)
}

// Seed applies *.seed.sql files once each. Seeds load reference data such
// as services and consent requirements.
func (m *Manager) Seed(ctx context.Context) error {
	if err := m.ensureTables(ctx); err != nil {
		return err
	}
	applied, err := m.applied(ctx, seedsTable)
	if err != nil {
		return err
	}
	names, err := m.glob("*.seed.sql")
	if err != nil {
		return err
	}
	for _, name := range names {
		if applied[name] {
			continue
		}
		if err := m.execFile(ctx, name); err != nil {
			return fmt.Errorf("apply seed %s: %w", name, err)
		}
		if err := m.record(ctx, seedsTable, name); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) ensureTables(ctx context.Context) error {
	for _, table := range []string{migrationsTable, seedsTable} {
		ddl := fmt.Sprintf(`
			create table if not exists %s (
				name text primary key,
				applied_at timestamptz not null default now()
			);`, table)
		if _, err := m.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) glob(pattern string) ([]string, error) {
	names, err := fs.Glob(m.files, pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// execFile runs every statement of one SQL file inside a transaction.
func (m *Manager) execFile(ctx context.Context, name string) error {
	raw, err := fs.ReadFile(m.files, name)
	if err != nil {
		return err
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(raw)) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (m *Manager) record(ctx context.Context, table, name string) error {
	_, err := m.db.ExecContext(ctx,
		fmt.Sprintf(`insert into %s(name, applied_at) values ($1, $2)`, table),
		name, time.Now().UTC())
	return err
}

func (m *Manager) applied(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf(`select name from %s`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		result[name] = true
	}
	return result, rows.Err()
}

func (m *Manager) history(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx,
		fmt.Sprintf(`select name from %s order by applied_at asc`, migrationsTable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		res = append(res, name)
	}
	return res, rows.Err()
}

// splitStatements naively splits SQL on semicolons outside string literals.
func splitStatements(sql string) []string {
	var stmts []string
	var current strings.Builder
	var inString bool
	for _, r := range sql {
		switch r {
		case '\'':
			current.WriteRune(r)
			inString = !inString
		case ';':
			current.WriteRune(r)
			if !inString {
				stmts = append(stmts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		stmts = append(stmts, current.String())
	}
	return stmts
}
