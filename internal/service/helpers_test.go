package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/ledgerimport/internal/database"
	"github.com/jask/ledgerimport/internal/database/repository"
)

// memLedger is an in-memory ledger implementing every collaborator the
// importer needs.
type memLedger struct {
	accounts   []repository.Account
	categories []repository.Category
	txs        []repository.Transaction

	createErr  error
	panicOn    string
	findErr    error
	clock      time.Time
	createCall int
}

func newMemLedger() *memLedger {
	return &memLedger{
		accounts: []repository.Account{
			{ID: 1, Name: "Main"},
			{ID: 2, Name: "Savings"},
		},
		categories: []repository.Category{
			{ID: 10, Name: "Groceries", Type: repository.TypeExpense},
			{ID: 11, Name: "Subscriptions", Type: repository.TypeExpense},
			{ID: 12, Name: "Other expenses", Type: repository.TypeExpense},
			{ID: 20, Name: "Salary", Type: repository.TypeIncome},
			{ID: 21, Name: "Other income", Type: repository.TypeIncome},
		},
		clock: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memLedger) AccountByID(_ context.Context, id int64) (*repository.Account, error) {
	for _, a := range m.accounts {
		if a.ID == id {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}

func (m *memLedger) AccountByName(_ context.Context, name string) (*repository.Account, error) {
	for _, a := range m.accounts {
		if strings.EqualFold(a.Name, name) {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}

func (m *memLedger) CategoryByID(_ context.Context, id int64, typ string) (*repository.Category, error) {
	for _, c := range m.categories {
		if c.ID == id && c.Type == typ {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memLedger) CategoryByName(_ context.Context, name, typ string) (*repository.Category, error) {
	for _, c := range m.categories {
		if c.Name == name && c.Type == typ {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memLedger) CategoryByNameLike(_ context.Context, name, typ string) (*repository.Category, error) {
	var matches []repository.Category
	for _, c := range m.categories {
		if c.Type == typ && strings.Contains(strings.ToLower(c.Name), strings.ToLower(name)) {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	return &matches[0], nil
}

func (m *memLedger) FindCandidates(_ context.Context, q repository.CandidateQuery) ([]repository.Transaction, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []repository.Transaction
	for _, t := range m.txs {
		if t.AccountID != q.AccountID || t.Type != q.Type {
			continue
		}
		if t.Date < q.FromDate || t.Date > q.ToDate || t.AmountCents < q.MinCents || t.AmountCents > q.MaxCents {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memLedger) Create(_ context.Context, t NewTransaction) (repository.Transaction, error) {
	m.createCall++
	if m.panicOn != "" && strings.Contains(t.Description, m.panicOn) {
		panic("boom")
	}
	if m.createErr != nil {
		return repository.Transaction{}, m.createErr
	}
	row := repository.Transaction{
		AccountID:      t.AccountID,
		Type:           string(t.Type),
		AmountCents:    t.Amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Date:           t.Date,
		Description:    t.Description,
		CategoryID:     t.CategoryID,
		ConversionRate: t.ConversionRate,
		AIAssisted:     t.AIAssisted,
	}
	if t.ImportRunID != "" {
		id := t.ImportRunID
		row.ImportRunID = &id
	}
	m.add(row)
	return m.txs[len(m.txs)-1], nil
}

// add stores t with the next id and a strictly increasing creation time.
func (m *memLedger) add(t repository.Transaction) repository.Transaction {
	t.ID = int64(len(m.txs) + 1)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = m.clock.Add(time.Duration(t.ID) * time.Second)
	}
	m.txs = append(m.txs, t)
	return t
}

func (m *memLedger) importer() *Importer {
	return &Importer{
		Normalizer: &Normalizer{
			Accounts:    m,
			Categories:  m,
			Now:         func() time.Time { return m.clock },
			StrictDates: true,
		},
		Matcher: &Matcher{Source: m, WindowDays: DefaultWindowDays},
		Writer:  m,
	}
}

var mainDefaults = Defaults{
	AccountName:         "Main",
	ExpenseCategoryName: "Other expenses",
	IncomeCategoryName:  "Other income",
}

func catID(id int64) *int64 { return &id }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var errWriter = errors.New("ledger unavailable")

// openTestDB returns a migrated sqlite database with default categories and
// the Main account.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../database/migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.SeedDefaults(ctx, db))
	return db
}
