package db

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type migration struct {
	version int
	name    string
	up      string
	down    string
}

// RunMigrations applies all pending migrations to the database at dbPath.
func RunMigrations(ctx context.Context, dbPath string) error {
	d, err := Connect(ctx, dbPath)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Migrate(ctx)
}

// RollbackMigrations rolls back all migrations of the database at dbPath.
func RollbackMigrations(ctx context.Context, dbPath string) error {
	d, err := Connect(ctx, dbPath)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Rollback(ctx)
}

// Migrate applies pending migrations.
func (d *DB) Migrate(ctx context.Context) error {
	current, migrations, err := d.prepareMigrations(ctx)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if m.up == "" {
			return fmt.Errorf("no up migration for version %d", m.version)
		}
		if err := d.step(ctx, m.version, m.up, false); err != nil {
			return fmt.Errorf("run up migration %d: %w", m.version, err)
		}
		slog.Debug("applied migration", "version", m.version, "name", m.name)
	}
	return nil
}

// Rollback reverts every applied migration, newest first.
func (d *DB) Rollback(ctx context.Context) error {
	current, migrations, err := d.prepareMigrations(ctx)
	if err != nil {
		return err
	}
	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		if m.version > current {
			continue
		}
		if m.down == "" {
			return fmt.Errorf("no down migration for version %d", m.version)
		}
		if err := d.step(ctx, m.version, m.down, true); err != nil {
			return fmt.Errorf("run down migration %d: %w", m.version, err)
		}
		slog.Debug("rolled back migration", "version", m.version, "name", m.name)
	}
	return nil
}

// step runs one migration, leaving the version marked dirty if it fails.
func (d *DB) step(ctx context.Context, version int, script string, down bool) error {
	if _, err := d.db.ExecContext(ctx, `INSERT OR REPLACE INTO schema_migrations (version, dirty) VALUES (?, 1)`, version); err != nil {
		return fmt.Errorf("mark dirty: %w", err)
	}
	if _, err := d.db.ExecContext(ctx, script); err != nil {
		return err
	}
	if down {
		_, err := d.db.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = ?`, version)
		return err
	}
	_, err := d.db.ExecContext(ctx, `UPDATE schema_migrations SET dirty = 0 WHERE version = ?`, version)
	return err
}

func (d *DB) prepareMigrations(ctx context.Context) (int, []*migration, error) {
	_, err := d.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			dirty INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return 0, nil, fmt.Errorf("create migrations table: %w", err)
	}

	var current, dirty int
	err = d.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0), COALESCE(MAX(dirty), 0) FROM schema_migrations`).Scan(&current, &dirty)
	if err != nil {
		return 0, nil, fmt.Errorf("get current version: %w", err)
	}
	if dirty != 0 {
		return 0, nil, fmt.Errorf("database is in dirty state at version %d, manual intervention required", current)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return 0, nil, err
	}
	return current, migrations, nil
}

// loadMigrations reads NNNN_name.up.sql / NNNN_name.down.sql pairs sorted by version.
func loadMigrations() ([]*migration, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	byVersion := make(map[int]*migration)
	for _, entry := range entries {
		name := entry.Name()
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}

		m := byVersion[version]
		if m == nil {
			m = &migration{version: version}
			byVersion[version] = m
		}
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			m.up = string(content)
			m.name = strings.TrimSuffix(name, ".up.sql")
		case strings.HasSuffix(name, ".down.sql"):
			m.down = string(content)
		}
	}

	migrations := make([]*migration, 0, len(byVersion))
	for _, m := range byVersion {
		migrations = append(migrations, m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].version < migrations[j].version })
	return migrations, nil
}
