package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Rule is the stored diffcfg configuration of one monitored host. Params is
// kept as written, so payloads saved by older versions are migrated when they
// are loaded.
type Rule struct {
	Host      string        `json:"host"`
	Params    JSONMap       `json:"-"`
	Macros    JSONStringMap `json:"macros,omitempty"`
	CreatedAt NullTime      `json:"created_at"`
	UpdatedAt NullTime      `json:"updated_at"`
}

// SaveRule inserts or replaces the rule for r.Host.
func (d *DB) SaveRule(ctx context.Context, r *Rule) error {
	if r.Host == "" {
		return fmt.Errorf("save rule: host is required")
	}
	if r.Params == nil {
		return fmt.Errorf("save rule %s: parameters are required", r.Host)
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO rules (host, params, macros)
		VALUES (?, ?, ?)
		ON CONFLICT (host) DO UPDATE SET
			params = excluded.params,
			macros = excluded.macros,
			updated_at = datetime('now')
	`, r.Host, r.Params, r.Macros)
	if err != nil {
		return fmt.Errorf("save rule %s: %w", r.Host, err)
	}
	return nil
}

// GetRule returns the rule for host, or ErrNotFound.
func (d *DB) GetRule(ctx context.Context, host string) (*Rule, error) {
	var r Rule
	err := d.db.QueryRowContext(ctx, `
		SELECT host, params, macros, created_at, updated_at
		FROM rules WHERE host = ?
	`, host).Scan(&r.Host, &r.Params, &r.Macros, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %s: %w", host, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get rule %s: %w", host, err)
	}
	return &r, nil
}

// ListRules returns all rules ordered by host.
func (d *DB) ListRules(ctx context.Context) ([]*Rule, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT host, params, macros, created_at, updated_at
		FROM rules ORDER BY host
	`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []*Rule
	for rows.Next() {
		var r Rule
		if err := rows.Scan(&r.Host, &r.Params, &r.Macros, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, &r)
	}
	return rules, rows.Err()
}

// DeleteRule removes the rule for host.
func (d *DB) DeleteRule(ctx context.Context, host string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM rules WHERE host = ?`, host)
	if err != nil {
		return fmt.Errorf("delete rule %s: %w", host, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rule %s: %w", host, ErrNotFound)
	}
	return nil
}
