package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can run
// inside a caller's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TransactionFilters defines list filters.
type TransactionFilters struct {
	AccountID   int64
	Type        string
	ImportRunID string // prefix match
	Search      string
}

// TransactionRepo handles transactions.
type TransactionRepo struct {
	db DBTX
}

func NewTransactionRepo(db DBTX) *TransactionRepo { return &TransactionRepo{db: db} }

const transactionColumns = `id, account_id, type, amount, date, description, category_id, conversion_rate, ai_assisted, import_run_id, created_at`

// Insert stores t and returns the new row id.
func (r *TransactionRepo) Insert(ctx context.Context, t Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO transactions(
	 account_id, type, amount, date, description, category_id,
	 conversion_rate, ai_assisted, import_run_id, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
	`,
		t.AccountID, t.Type, t.AmountCents, t.Date, t.Description, t.CategoryID,
		t.ConversionRate, t.AIAssisted, t.ImportRunID)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return res.LastInsertId()
}

func (r *TransactionRepo) Get(ctx context.Context, id int64) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepo) List(ctx context.Context, f TransactionFilters) ([]Transaction, error) {
	var where []string
	var args []interface{}

	if f.AccountID != 0 {
		where = append(where, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.ImportRunID != "" {
		where = append(where, "import_run_id LIKE ?")
		args = append(args, f.ImportRunID+"%")
	}
	if f.Search != "" {
		where = append(where, "description LIKE ?")
		args = append(args, "%"+f.Search+"%")
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, created_at DESC, id DESC"
	return r.query(ctx, query, args...)
}

// FindCandidates returns transactions matching q, most recent date first,
// then most recently created.
func (r *TransactionRepo) FindCandidates(ctx context.Context, q CandidateQuery) ([]Transaction, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	return r.query(ctx, `
	SELECT `+transactionColumns+` FROM transactions
	WHERE account_id = ? AND type = ?
	  AND date >= ? AND date <= ?
	  AND amount >= ? AND amount <= ?
	ORDER BY date DESC, created_at DESC, id DESC
	LIMIT ?
	`, q.AccountID, q.Type, q.FromDate, q.ToDate, q.MinCents, q.MaxCents, limit)
}

// AdjustBalance adds deltaCents to the account balance.
func (r *TransactionRepo) AdjustBalance(ctx context.Context, accountID, deltaCents int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET balance = balance + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, deltaCents, accountID)
	if err != nil {
		return fmt.Errorf("adjust balance of account %d: %w", accountID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("adjust balance: account %d not found", accountID)
	}
	return nil
}

func (r *TransactionRepo) query(ctx context.Context, query string, args ...any) ([]Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// scanTransaction handles nullable fields for both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (Transaction, error) {
	var t Transaction
	var category sql.NullInt64
	var runID sql.NullString
	if err := row.Scan(&t.ID, &t.AccountID, &t.Type, &t.AmountCents, &t.Date, &t.Description,
		&category, &t.ConversionRate, &t.AIAssisted, &runID, &t.CreatedAt); err != nil {
		return Transaction{}, err
	}
	if category.Valid {
		t.CategoryID = &category.Int64
	}
	if runID.Valid {
		t.ImportRunID = &runID.String
	}
	return t, nil
}
