package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/golang-migrate/migrate/v4"
	sqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "repo.db")+"?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	migrations, err := filepath.Abs("../migrations")
	require.NoError(t, err)
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	require.NoError(t, err)
	m, err := migrate.NewWithDatabaseInstance("file://"+migrations, "sqlite3", driver)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	return db
}

func TestAccountRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewAccountRepo(openDB(t))

	a, err := repo.EnsureByName(ctx, "Checking", "Bank", "checking")
	require.NoError(t, err)
	again, err := repo.EnsureByName(ctx, "checking", "", "")
	require.NoError(t, err)
	require.Equal(t, a.ID, again.ID)

	got, err := repo.AccountByName(ctx, "CHECKING")
	require.NoError(t, err)
	require.Equal(t, "Bank", got.Institution)

	missing, err := repo.AccountByID(ctx, 404)
	require.NoError(t, err)
	require.Nil(t, missing)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestCategoryRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewCategoryRepo(openDB(t))

	groceries, err := repo.Upsert(ctx, Category{Name: "Groceries", Type: TypeExpense})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, Category{Name: "Gross income", Type: TypeIncome})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, Category{Name: "Bakery groceries", Type: TypeExpense})
	require.NoError(t, err)
	dup, err := repo.Upsert(ctx, Category{Name: "Groceries", Type: TypeExpense, SortOrder: 4})
	require.NoError(t, err)
	require.Equal(t, groceries, dup)

	c, err := repo.CategoryByID(ctx, groceries, TypeExpense)
	require.NoError(t, err)
	require.Equal(t, "Groceries", c.Name)
	c, err = repo.CategoryByID(ctx, groceries, TypeIncome)
	require.NoError(t, err)
	require.Nil(t, c)

	c, err = repo.CategoryByName(ctx, "groceries", TypeExpense)
	require.NoError(t, err)
	require.Nil(t, c)

	c, err = repo.CategoryByNameLike(ctx, "GROCER", TypeExpense)
	require.NoError(t, err)
	require.Equal(t, "Bakery groceries", c.Name)

	c, err = repo.CategoryByNameLike(ctx, "gro", TypeIncome)
	require.NoError(t, err)
	require.Equal(t, "Gross income", c.Name)
}

func TestFindCandidates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openDB(t)
	accounts := NewAccountRepo(db)
	txs := NewTransactionRepo(db)

	main, err := accounts.EnsureByName(ctx, "Main", "", "checking")
	require.NoError(t, err)
	other, err := accounts.EnsureByName(ctx, "Other", "", "checking")
	require.NoError(t, err)

	insert := func(accountID int64, typ string, cents int64, date string) int64 {
		id, err := txs.Insert(ctx, Transaction{AccountID: accountID, Type: typ, AmountCents: cents, Date: date, Description: "x", ConversionRate: 1})
		require.NoError(t, err)
		return id
	}
	older := insert(main.ID, TypeExpense, 5000, "2024-01-04")
	sameDayFirst := insert(main.ID, TypeExpense, 5000, "2024-01-05")
	sameDaySecond := insert(main.ID, TypeExpense, 4900, "2024-01-05")
	insert(main.ID, TypeIncome, 5000, "2024-01-05")
	insert(other.ID, TypeExpense, 5000, "2024-01-05")
	insert(main.ID, TypeExpense, 9000, "2024-01-05")
	insert(main.ID, TypeExpense, 5000, "2024-02-20")

	q := CandidateQuery{
		AccountID: main.ID,
		Type:      TypeExpense,
		FromDate:  "2023-12-29",
		ToDate:    "2024-01-12",
		MinCents:  4850,
		MaxCents:  5150,
	}
	got, err := txs.FindCandidates(ctx, q)
	require.NoError(t, err)
	ids := make([]int64, len(got))
	for i, c := range got {
		ids[i] = c.ID
	}
	require.Equal(t, []int64{sameDaySecond, sameDayFirst, older}, ids)

	q.Limit = 1
	got, err = txs.FindCandidates(ctx, q)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestAdjustBalance(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openDB(t)
	accounts := NewAccountRepo(db)
	txs := NewTransactionRepo(db)

	a, err := accounts.EnsureByName(ctx, "Main", "", "checking")
	require.NoError(t, err)
	require.NoError(t, txs.AdjustBalance(ctx, a.ID, 1250))
	require.NoError(t, txs.AdjustBalance(ctx, a.ID, -250))
	got, err := accounts.AccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1000), got.BalanceCents)

	require.ErrorContains(t, txs.AdjustBalance(ctx, 404, 1), "not found")
}

func TestTransactionNullableColumns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openDB(t)
	a, err := NewAccountRepo(db).EnsureByName(ctx, "Main", "", "checking")
	require.NoError(t, err)
	txs := NewTransactionRepo(db)

	id, err := txs.Insert(ctx, Transaction{AccountID: a.ID, Type: TypeExpense, AmountCents: 1, Date: "2024-01-01", ConversionRate: 1})
	require.NoError(t, err)
	got, err := txs.Get(ctx, id)
	require.NoError(t, err)
	require.Nil(t, got.CategoryID)
	require.Nil(t, got.ImportRunID)
	require.False(t, got.CreatedAt.IsZero())

	missing, err := txs.Get(ctx, 404)
	require.NoError(t, err)
	require.Nil(t, missing)
}
