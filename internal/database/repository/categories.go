package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CategoryRepo handles categories.
type CategoryRepo struct {
	db DBTX
}

func NewCategoryRepo(db DBTX) *CategoryRepo {
	return &CategoryRepo{db: db}
}

const categoryColumns = `id, name, type, sort_order`

// Upsert inserts the category or updates its sort order, returning its id.
func (r *CategoryRepo) Upsert(ctx context.Context, c Category) (int64, error) {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO categories(name, type, sort_order)
	VALUES (?, ?, ?)
	ON CONFLICT(name, type) DO UPDATE SET
	 sort_order=excluded.sort_order;
	`, c.Name, c.Type, c.SortOrder)
	if err != nil {
		return 0, fmt.Errorf("upsert category %q: %w", c.Name, err)
	}
	var id int64
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ? AND type = ?`, c.Name, c.Type).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup category %q: %w", c.Name, err)
	}
	return id, nil
}

func (r *CategoryRepo) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY type, sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CategoryByID returns the category only when it belongs to typ.
func (r *CategoryRepo) CategoryByID(ctx context.Context, id int64, typ string) (*Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ? AND type = ?`, id, typ)
	return scanOptionalCategory(row)
}

// CategoryByName matches the name exactly.
func (r *CategoryRepo) CategoryByName(ctx context.Context, name, typ string) (*Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE name = ? AND type = ? LIMIT 1`, name, typ)
	return scanOptionalCategory(row)
}

// CategoryByNameLike returns the alphabetically first category whose name
// contains name, ignoring case.
func (r *CategoryRepo) CategoryByNameLike(ctx context.Context, name, typ string) (*Category, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT `+categoryColumns+` FROM categories
	WHERE type = ? AND instr(LOWER(name), LOWER(?)) > 0
	ORDER BY name ASC LIMIT 1
	`, typ, name)
	return scanOptionalCategory(row)
}

func scanOptionalCategory(row scanner) (*Category, error) {
	var c Category
	if err := row.Scan(&c.ID, &c.Name, &c.Type, &c.SortOrder); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
