package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jask/ledgerimport/internal/database/repository"
)

// TxType is the kind of ledger movement an entry describes. Transfers are not
// importable.
type TxType string

const (
	TypeExpense TxType = repository.TypeExpense
	TypeIncome  TxType = repository.TypeIncome
)

// Flex is a loosely typed scalar: it decodes JSON strings, numbers, booleans
// and null into their textual form. Objects and arrays keep their raw text so
// the normalizer can flag them.
type Flex string

func (f *Flex) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Flex(s)
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return fmt.Errorf("flex value %s: %w", data, err)
		}
		*f = Flex(buf.String())
	}
	return nil
}

func (f Flex) String() string { return strings.TrimSpace(string(f)) }

// RawEntry is one untrusted statement line, as read from a file or produced by
// an extraction step.
type RawEntry struct {
	Type             string `json:"type"`
	Amount           Flex   `json:"amount"`
	Date             string `json:"date"`
	TransactionDate  string `json:"transaction_date"`
	PostedDate       string `json:"posted_date"`
	Description      string `json:"description"`
	Merchant         string `json:"merchant"`
	Reference        Flex   `json:"reference"`
	AccountID        Flex   `json:"account_id"`
	Account          string `json:"account"`
	CategoryID       Flex   `json:"category_id"`
	Category         string `json:"category"`
	GroupKey         string `json:"group_key"`
	GroupDescription string `json:"group_description"`

	// Malformed holds the decode error of an entry that was not a JSON object.
	Malformed string `json:"-"`
}

// entryFields maps lower-cased field names to setters.
var entryFields = map[string]func(*RawEntry, string){
	"type":              func(e *RawEntry, v string) { e.Type = v },
	"amount":            func(e *RawEntry, v string) { e.Amount = Flex(v) },
	"date":              func(e *RawEntry, v string) { e.Date = v },
	"transaction_date":  func(e *RawEntry, v string) { e.TransactionDate = v },
	"posted_date":       func(e *RawEntry, v string) { e.PostedDate = v },
	"description":       func(e *RawEntry, v string) { e.Description = v },
	"merchant":          func(e *RawEntry, v string) { e.Merchant = v },
	"reference":         func(e *RawEntry, v string) { e.Reference = Flex(v) },
	"account_id":        func(e *RawEntry, v string) { e.AccountID = Flex(v) },
	"account":           func(e *RawEntry, v string) { e.Account = v },
	"category_id":       func(e *RawEntry, v string) { e.CategoryID = Flex(v) },
	"category":          func(e *RawEntry, v string) { e.Category = v },
	"group_key":         func(e *RawEntry, v string) { e.GroupKey = v },
	"group_description": func(e *RawEntry, v string) { e.GroupDescription = v },
}

// UnmarshalJSON decodes every known field as a Flex, so a badly typed value
// reaches the normalizer instead of failing the whole statement.
func (e *RawEntry) UnmarshalJSON(data []byte) error {
	var fields map[string]Flex
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("entry is not an object: %w", err)
	}
	*e = RawEntry{}
	for name, v := range fields {
		if set, ok := entryFields[strings.ToLower(name)]; ok {
			set(e, string(v))
		}
	}
	return nil
}

// ValidationKind tags a ValidationError.
type ValidationKind string

const (
	UnresolvedAccount  ValidationKind = "unresolved_account"
	UnresolvedCategory ValidationKind = "unresolved_category"
	InvalidAmount      ValidationKind = "invalid_amount"
	InvalidType        ValidationKind = "invalid_type"
	InvalidDate        ValidationKind = "invalid_date"
	MalformedEntry     ValidationKind = "malformed_entry"
)

// ValidationError is a per-record problem. A record carrying any of them is
// never grouped, matched or created.
type ValidationError struct {
	Kind   ValidationKind
	Detail string
}

func (e ValidationError) Error() string { return e.Detail }

// Record is a normalized, possibly grouped entry.
type Record struct {
	DisplayIndex     int
	SourceIndexes    []int
	Type             TxType
	Amount           decimal.Decimal
	Date             string
	Description      string
	GroupKey         string
	GroupDescription string
	Account          *repository.Account
	Category         *repository.Category
	Errors           []ValidationError
}

// Valid reports whether the record has no validation errors.
func (r Record) Valid() bool { return len(r.Errors) == 0 }

// Grouped reports whether more than one entry was merged into the record.
func (r Record) Grouped() bool { return len(r.SourceIndexes) > 1 }

func (r Record) accountID() int64 {
	if r.Account == nil {
		return 0
	}
	return r.Account.ID
}

func (r Record) categoryID() int64 {
	if r.Category == nil {
		return 0
	}
	return r.Category.ID
}

func (r *Record) addError(kind ValidationKind, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationError{Kind: kind, Detail: fmt.Sprintf(format, args...)})
}

// ErrorSummary joins the record's validation messages.
func (r Record) ErrorSummary() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Detail)
	}
	return strings.Join(msgs, "; ")
}

// Defaults are run-level fallbacks used when an entry does not name its own
// account or category. IDs win over names when both are set.
type Defaults struct {
	AccountID           int64
	AccountName         string
	ExpenseCategoryID   int64
	ExpenseCategoryName string
	IncomeCategoryID    int64
	IncomeCategoryName  string
}

func (d Defaults) category(t TxType) (int64, string) {
	if t == TypeIncome {
		return d.IncomeCategoryID, d.IncomeCategoryName
	}
	return d.ExpenseCategoryID, d.ExpenseCategoryName
}
