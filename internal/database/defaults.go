package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jask/ledgerimport/internal/database/repository"
)

// DefaultAccountName is created on an empty ledger.
const DefaultAccountName = "Main"

var defaultCategories = []repository.Category{
	{Name: "Groceries", Type: repository.TypeExpense},
	{Name: "Restaurants", Type: repository.TypeExpense},
	{Name: "Transport", Type: repository.TypeExpense},
	{Name: "Shopping", Type: repository.TypeExpense},
	{Name: "Utilities", Type: repository.TypeExpense},
	{Name: "Subscriptions", Type: repository.TypeExpense},
	{Name: "Health", Type: repository.TypeExpense},
	{Name: "Entertainment", Type: repository.TypeExpense},
	{Name: "Other expenses", Type: repository.TypeExpense},
	{Name: "Salary", Type: repository.TypeIncome},
	{Name: "Refunds", Type: repository.TypeIncome},
	{Name: "Other income", Type: repository.TypeIncome},
}

// SeedDefaults ensures a baseline account and typed categories exist for new
// databases. It is idempotent and safe to run on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB) error {
	catRepo := repository.NewCategoryRepo(db)
	existing, err := catRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("seed defaults: list categories: %w", err)
	}
	if len(existing) == 0 {
		for idx, c := range defaultCategories {
			c.SortOrder = idx
			if _, err := catRepo.Upsert(ctx, c); err != nil {
				return fmt.Errorf("seed defaults: %w", err)
			}
		}
	}

	acctRepo := repository.NewAccountRepo(db)
	accounts, err := acctRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("seed defaults: list accounts: %w", err)
	}
	if len(accounts) == 0 {
		if _, err := acctRepo.EnsureByName(ctx, DefaultAccountName, "", "checking"); err != nil {
			return fmt.Errorf("seed defaults: %w", err)
		}
	}
	return nil
}
