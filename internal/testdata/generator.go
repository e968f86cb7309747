package testdata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jask/ledgerimport/internal/database"
	"github.com/jask/ledgerimport/internal/database/repository"
)

// SampleAccountName is the account Seed populates.
const SampleAccountName = "Sample Checking"

// Sample holds the ids Seed created so callers can reference them.
type Sample struct {
	Account      repository.Account
	Groceries    repository.Category
	Subscription repository.Category
	Salary       repository.Category
	Transactions []repository.Transaction
}

type sampleTx struct {
	daysAgo     int
	typ         string
	cents       int64
	description string
	category    string
}

var sampleTransactions = []sampleTx{
	{daysAgo: 1, typ: repository.TypeExpense, cents: 5000, description: "Coffee", category: "Groceries"},
	{daysAgo: 2, typ: repository.TypeExpense, cents: 8734, description: "WOOLWORTHS 123 SYDNEY", category: "Groceries"},
	{daysAgo: 3, typ: repository.TypeExpense, cents: 1599, description: "SPOTIFY P0123", category: "Subscriptions"},
	{daysAgo: 5, typ: repository.TypeExpense, cents: 2340, description: "UBER EATS* SUSHI", category: "Groceries"},
	{daysAgo: 9, typ: repository.TypeIncome, cents: 250000, description: "SALARY ACME", category: "Salary"},
	{daysAgo: 12, typ: repository.TypeExpense, cents: 4210, description: "ALDI STORES", category: "Groceries"},
}

// Seed creates the default categories, a sample account and a handful of
// transactions dated relative to now. Balances follow the transactions.
func Seed(ctx context.Context, db *sql.DB, now time.Time) (Sample, error) {
	if err := database.SeedDefaults(ctx, db); err != nil {
		return Sample{}, err
	}

	accounts := repository.NewAccountRepo(db)
	categories := repository.NewCategoryRepo(db)

	acct, err := accounts.EnsureByName(ctx, SampleAccountName, "Sample Bank", "checking")
	if err != nil {
		return Sample{}, fmt.Errorf("seed account: %w", err)
	}
	sample := Sample{Account: acct}

	cats := map[string]*repository.Category{}
	for name, typ := range map[string]string{
		"Groceries":     repository.TypeExpense,
		"Subscriptions": repository.TypeExpense,
		"Salary":        repository.TypeIncome,
	} {
		c, err := categories.CategoryByName(ctx, name, typ)
		if err != nil {
			return Sample{}, fmt.Errorf("seed category %s: %w", name, err)
		}
		if c == nil {
			return Sample{}, fmt.Errorf("seed category %s: not found", name)
		}
		cats[name] = c
	}
	sample.Groceries = *cats["Groceries"]
	sample.Subscription = *cats["Subscriptions"]
	sample.Salary = *cats["Salary"]

	err = database.WithTx(ctx, db, func(tx *sql.Tx) error {
		txRepo := repository.NewTransactionRepo(tx)
		for _, s := range sampleTransactions {
			catID := cats[s.category].ID
			id, err := txRepo.Insert(ctx, repository.Transaction{
				AccountID:      acct.ID,
				Type:           s.typ,
				AmountCents:    s.cents,
				Date:           now.AddDate(0, 0, -s.daysAgo).Format("2006-01-02"),
				Description:    s.description,
				CategoryID:     &catID,
				ConversionRate: 1.0,
			})
			if err != nil {
				return err
			}
			delta := s.cents
			if s.typ == repository.TypeExpense {
				delta = -delta
			}
			if err := txRepo.AdjustBalance(ctx, acct.ID, delta); err != nil {
				return err
			}
			t, err := txRepo.Get(ctx, id)
			if err != nil {
				return err
			}
			sample.Transactions = append(sample.Transactions, *t)
		}
		return nil
	})
	if err != nil {
		return Sample{}, fmt.Errorf("seed transactions: %w", err)
	}
	return sample, nil
}
