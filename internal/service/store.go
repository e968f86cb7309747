package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jask/ledgerimport/internal/database/repository"
)

// RepoStore exposes the sqlite repositories through the importer's lookup
// interfaces.
type RepoStore struct {
	Accounts     *repository.AccountRepo
	Categories   *repository.CategoryRepo
	Transactions *repository.TransactionRepo
}

func NewRepoStore(db *sql.DB) *RepoStore {
	return &RepoStore{
		Accounts:     repository.NewAccountRepo(db),
		Categories:   repository.NewCategoryRepo(db),
		Transactions: repository.NewTransactionRepo(db),
	}
}

// RunTransactions lists the rows created by a commit run. runID may be the
// full id or the eight-character prefix shown in reports.
func (s *RepoStore) RunTransactions(ctx context.Context, runID string) ([]repository.Transaction, error) {
	rows, err := s.Transactions.List(ctx, repository.TransactionFilters{ImportRunID: runID})
	if err != nil {
		return nil, fmt.Errorf("list run %s: %w", runID, err)
	}
	return rows, nil
}

// Settings are the importer knobs that come from configuration.
type Settings struct {
	WindowDays  int
	MaxEntries  int
	StrictDates bool
	Similarity  string
	// Location decides the calendar day used for undated entries.
	Location *time.Location
}

// NewLedgerImporter wires an Importer against the sqlite ledger in db.
func NewLedgerImporter(db *sql.DB, s Settings) *Importer {
	store := NewRepoStore(db)
	return &Importer{
		Normalizer: &Normalizer{
			Accounts:    store.Accounts,
			Categories:  store.Categories,
			StrictDates: s.StrictDates,
			Now:         clock(s.Location),
		},
		Matcher: &Matcher{
			Source:     store.Transactions,
			WindowDays: s.WindowDays,
			Similarity: SimilarityByName(s.Similarity),
		},
		Writer:     &LedgerWriter{DB: db},
		MaxEntries: s.MaxEntries,
	}
}

func clock(loc *time.Location) func() time.Time {
	if loc == nil {
		return time.Now
	}
	return func() time.Time { return time.Now().In(loc) }
}
