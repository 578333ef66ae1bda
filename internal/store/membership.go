package store

import (
	"context"
	"fmt"

	"github.com/vadimfor/showdeck/internal/show"
)

// AddMembership puts id into collection c. Adding an id that is already a
// member is a no-op. The show must already be stored.
func (db *DB) AddMembership(ctx context.Context, c show.Collection, id string) error {
	table, err := c.Table()
	if err != nil {
		return err
	}
	if err := db.ensureSchema(ctx); err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (id) VALUES (?) ON CONFLICT(id) DO NOTHING`, table)
	if _, err := db.conn.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to add %s to %s: %w", id, table, err)
	}
	return nil
}

// EnsureMembership stores sh if it is not stored yet, then adds it to c.
// An existing row is left as is. Both steps commit together.
func (db *DB) EnsureMembership(ctx context.Context, c show.Collection, sh *show.Show) error {
	table, err := c.Table()
	if err != nil {
		return err
	}
	if err := db.ensureSchema(ctx); err != nil {
		return err
	}
	if err := sh.Validate(); err != nil {
		return fmt.Errorf("invalid show: %w", err)
	}

	args, err := showArgs(sh)
	if err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertShow := `INSERT INTO records (` + showColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, insertShow, args...); err != nil {
		return fmt.Errorf("failed to store show %s: %w", sh.ID, err)
	}

	insertMember := fmt.Sprintf(`INSERT INTO %s (id) VALUES (?) ON CONFLICT(id) DO NOTHING`, table)
	if _, err := tx.ExecContext(ctx, insertMember, sh.ID); err != nil {
		return fmt.Errorf("failed to add %s to %s: %w", sh.ID, table, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit membership: %w", err)
	}
	return nil
}

// RemoveMembership takes id out of collection c. Removing a non-member is a no-op.
func (db *DB) RemoveMembership(ctx context.Context, c show.Collection, id string) error {
	table, err := c.Table()
	if err != nil {
		return err
	}
	if err := db.ensureSchema(ctx); err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table)
	if _, err := db.conn.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to remove %s from %s: %w", id, table, err)
	}
	return nil
}

// HasMembership reports whether id is in collection c.
func (db *DB) HasMembership(ctx context.Context, c show.Collection, id string) (bool, error) {
	table, err := c.Table()
	if err != nil {
		return false, err
	}
	if err := db.ensureSchema(ctx); err != nil {
		return false, err
	}

	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = ?)`, table)
	if err := db.conn.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check %s membership: %w", table, err)
	}
	return exists, nil
}

// MembershipIDs lists the ids in collection c in chart rank order.
func (db *DB) MembershipIDs(ctx context.Context, c show.Collection) ([]string, error) {
	table, err := c.Table()
	if err != nil {
		return nil, err
	}
	if err := db.ensureSchema(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT m.id FROM %s m
		JOIN records r ON r.id = m.id
		ORDER BY r.rank IS NULL, r.rank ASC, m.id ASC`, table)

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s id: %w", table, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MembershipCount returns how many shows are in collection c.
func (db *DB) MembershipCount(ctx context.Context, c show.Collection) (int, error) {
	table, err := c.Table()
	if err != nil {
		return 0, err
	}
	if err := db.ensureSchema(ctx); err != nil {
		return 0, err
	}

	var n int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}
