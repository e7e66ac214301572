package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// StoredPassword is a credential referenced from rules by id. Listing never
// returns the secret itself.
type StoredPassword struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	CreatedAt NullTime `json:"created_at"`
}

// AddPassword stores value and returns its new id.
func (d *DB) AddPassword(ctx context.Context, title, value string) (string, error) {
	if value == "" {
		return "", fmt.Errorf("add password: value is required")
	}
	id := uuid.NewString()
	_, err := d.db.ExecContext(ctx, `INSERT INTO passwords (id, title, secret) VALUES (?, ?, ?)`, id, title, value)
	if err != nil {
		return "", fmt.Errorf("add password: %w", err)
	}
	return id, nil
}

// ListPasswords returns all stored passwords without their values.
func (d *DB) ListPasswords(ctx context.Context) ([]*StoredPassword, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, title, created_at FROM passwords ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("list passwords: %w", err)
	}
	defer rows.Close()

	var passwords []*StoredPassword
	for rows.Next() {
		var p StoredPassword
		if err := rows.Scan(&p.ID, &p.Title, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan password: %w", err)
		}
		passwords = append(passwords, &p)
	}
	return passwords, rows.Err()
}

// DeletePassword removes the password with id.
func (d *DB) DeletePassword(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM passwords WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete password %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("password %s: %w", id, ErrNotFound)
	}
	return nil
}

// ResolvePassword returns the stored value for id. It satisfies
// secret.Resolver.
func (d *DB) ResolvePassword(ctx context.Context, id string) (string, error) {
	var value string
	err := d.db.QueryRowContext(ctx, `SELECT secret FROM passwords WHERE id = ?`, id).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("password %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolve password %s: %w", id, err)
	}
	return value, nil
}
