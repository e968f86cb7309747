package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jask/ledgerimport/internal/database/repository"
)

// AccountLookup resolves account references. Not found is (nil, nil).
type AccountLookup interface {
	AccountByID(ctx context.Context, id int64) (*repository.Account, error)
	// AccountByName matches exactly, ignoring case.
	AccountByName(ctx context.Context, name string) (*repository.Account, error)
}

// CategoryLookup resolves category references restricted to a transaction
// type. Not found is (nil, nil).
type CategoryLookup interface {
	CategoryByID(ctx context.Context, id int64, typ string) (*repository.Category, error)
	CategoryByName(ctx context.Context, name, typ string) (*repository.Category, error)
	// CategoryByNameLike returns the alphabetically first case-insensitive
	// substring match.
	CategoryByNameLike(ctx context.Context, name, typ string) (*repository.Category, error)
}

// CandidateSource lists existing ledger transactions that could duplicate a
// record, most recent date first, then most recently created.
type CandidateSource interface {
	FindCandidates(ctx context.Context, q repository.CandidateQuery) ([]repository.Transaction, error)
}

// NewTransaction is what the importer asks the ledger to create.
type NewTransaction struct {
	AccountID      int64
	Type           TxType
	Amount         decimal.Decimal
	Date           string
	Description    string
	CategoryID     *int64
	ConversionRate float64
	AIAssisted     bool
	ImportRunID    string
}

// TransactionWriter persists one transaction and its balance effect
// atomically.
type TransactionWriter interface {
	Create(ctx context.Context, t NewTransaction) (repository.Transaction, error)
}
