package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jask/ledgerimport/internal/database"
	"github.com/jask/ledgerimport/internal/database/repository"
)

// LedgerWriter creates transactions in the sqlite ledger. Each creation
// inserts the row and moves the account balance in one SQL transaction.
type LedgerWriter struct {
	DB *sql.DB
}

func (w *LedgerWriter) Create(ctx context.Context, t NewTransaction) (repository.Transaction, error) {
	if !t.Amount.IsPositive() {
		return repository.Transaction{}, fmt.Errorf("amount must be positive, got %s", t.Amount)
	}
	if t.Type != TypeExpense && t.Type != TypeIncome {
		return repository.Transaction{}, fmt.Errorf("unsupported transaction type %q", t.Type)
	}
	cents := t.Amount.Mul(hundred).Round(0).IntPart()
	rate := t.ConversionRate
	if rate == 0 {
		rate = 1.0
	}

	var created repository.Transaction
	err := database.WithTx(ctx, w.DB, func(tx *sql.Tx) error {
		txRepo := repository.NewTransactionRepo(tx)
		row := repository.Transaction{
			AccountID:      t.AccountID,
			Type:           string(t.Type),
			AmountCents:    cents,
			Date:           t.Date,
			Description:    t.Description,
			CategoryID:     t.CategoryID,
			ConversionRate: rate,
			AIAssisted:     t.AIAssisted,
		}
		if t.ImportRunID != "" {
			runID := t.ImportRunID
			row.ImportRunID = &runID
		}
		id, err := txRepo.Insert(ctx, row)
		if err != nil {
			return err
		}
		delta := cents
		if t.Type == TypeExpense {
			delta = -cents
		}
		if err := txRepo.AdjustBalance(ctx, t.AccountID, delta); err != nil {
			return err
		}
		got, err := txRepo.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("reload transaction %d: %w", id, err)
		}
		if got == nil {
			return fmt.Errorf("transaction %d missing after insert", id)
		}
		created = *got
		return nil
	})
	if err != nil {
		return repository.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return created, nil
}
