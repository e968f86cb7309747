package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AccountRepo handles accounts.
type AccountRepo struct {
	db DBTX
}

func NewAccountRepo(db DBTX) *AccountRepo {
	return &AccountRepo{db: db}
}

const accountColumns = `id, name, institution, account_type, balance, created_at, updated_at`

// Create inserts a new account and returns its id.
func (r *AccountRepo) Create(ctx context.Context, a Account) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO accounts(name, institution, account_type, balance, created_at, updated_at)
	VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, a.Name, a.Institution, a.AccountType, a.BalanceCents)
	if err != nil {
		return 0, fmt.Errorf("insert account %q: %w", a.Name, err)
	}
	return res.LastInsertId()
}

// EnsureByName returns the account with the given name, creating it when absent.
func (r *AccountRepo) EnsureByName(ctx context.Context, name, institution, accountType string) (Account, error) {
	existing, err := r.AccountByName(ctx, name)
	if err != nil {
		return Account{}, err
	}
	if existing != nil {
		return *existing, nil
	}
	id, err := r.Create(ctx, Account{Name: name, Institution: institution, AccountType: accountType})
	if err != nil {
		return Account{}, err
	}
	created, err := r.AccountByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if created == nil {
		return Account{}, fmt.Errorf("account %d vanished after insert", id)
	}
	return *created, nil
}

func (r *AccountRepo) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AccountByID returns nil when no account has the id.
func (r *AccountRepo) AccountByID(ctx context.Context, id int64) (*Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanOptionalAccount(row)
}

// AccountByName matches the name exactly, ignoring case.
func (r *AccountRepo) AccountByName(ctx context.Context, name string) (*Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE LOWER(name) = LOWER(?) ORDER BY id LIMIT 1`, name)
	return scanOptionalAccount(row)
}

func scanOptionalAccount(row scanner) (*Account, error) {
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func scanAccount(row scanner) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Name, &a.Institution, &a.AccountType, &a.BalanceCents, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}
