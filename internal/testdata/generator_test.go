package testdata

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/ledgerimport/internal/database"
	"github.com/jask/ledgerimport/internal/database/repository"
)

func TestSeed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "sample.db")
	migrations, err := filepath.Abs("../database/migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	sample, err := Seed(ctx, db, now)
	require.NoError(t, err)
	require.Equal(t, SampleAccountName, sample.Account.Name)
	require.Len(t, sample.Transactions, len(sampleTransactions))
	require.Equal(t, "2024-03-09", sample.Transactions[0].Date)
	require.Equal(t, "Coffee", sample.Transactions[0].Description)
	require.Equal(t, sample.Groceries.ID, *sample.Transactions[0].CategoryID)
	require.Equal(t, repository.TypeIncome, sample.Salary.Type)

	var want int64
	for _, s := range sampleTransactions {
		if s.typ == repository.TypeExpense {
			want -= s.cents
		} else {
			want += s.cents
		}
	}
	acct, err := repository.NewAccountRepo(db).AccountByID(ctx, sample.Account.ID)
	require.NoError(t, err)
	require.Equal(t, want, acct.BalanceCents)

	rows, err := repository.NewTransactionRepo(db).List(ctx, repository.TransactionFilters{AccountID: sample.Account.ID})
	require.NoError(t, err)
	require.Len(t, rows, len(sampleTransactions))
}
