package repository

import "time"

// Transaction types stored in the ledger.
const (
	TypeExpense = "expense"
	TypeIncome  = "income"
)

// Account represents an account row. Balance is in cents.
type Account struct {
	ID           int64
	Name         string
	Institution  string
	AccountType  string
	BalanceCents int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Category represents a category row scoped to one transaction type.
type Category struct {
	ID        int64
	Name      string
	Type      string
	SortOrder int
}

// Transaction represents a transaction row. Date is stored as YYYY-MM-DD.
type Transaction struct {
	ID             int64
	AccountID      int64
	Type           string
	AmountCents    int64
	Date           string
	Description    string
	CategoryID     *int64
	ConversionRate float64
	AIAssisted     bool
	ImportRunID    *string
	CreatedAt      time.Time
}

// CandidateQuery selects existing transactions that could duplicate an
// incoming record. Date bounds and amount bounds are inclusive.
type CandidateQuery struct {
	AccountID int64
	Type      string
	FromDate  string
	ToDate    string
	MinCents  int64
	MaxCents  int64
	Limit     int
}
