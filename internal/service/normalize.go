package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/jask/ledgerimport/internal/database/repository"
	"github.com/jask/ledgerimport/internal/logger"
)

const (
	isoDate              = "2006-01-02"
	maxDescriptionLength = 255
	fallbackDescription  = "statement entry"
)

// dateLayouts are tried in order; a layout only wins if formatting the
// parsed value reproduces the input exactly.
var dateLayouts = []string{isoDate, "02/01/2006", "02-01-2006"}

// Normalizer turns raw entries into records, resolving account and category
// references. It never writes.
type Normalizer struct {
	Accounts   AccountLookup
	Categories CategoryLookup
	Now        func() time.Time
	// StrictDates turns an unparsable date into a validation error instead of
	// falling back to today.
	StrictDates bool
}

// Normalize builds the record for the entry at the 1-based position index.
// Problems are collected on the record; they never stop normalization.
func (n *Normalizer) Normalize(ctx context.Context, index int, raw RawEntry, defaults Defaults) Record {
	rec := Record{
		DisplayIndex:     index,
		SourceIndexes:    []int{index},
		GroupKey:         strings.TrimSpace(raw.GroupKey),
		GroupDescription: strings.TrimSpace(raw.GroupDescription),
	}

	rec.Type = TypeExpense
	if raw.Malformed != "" {
		rec.Amount = decimal.Zero
		rec.Date = n.today()
		rec.Description = fallbackDescription
		rec.addError(MalformedEntry, "entry malformed: %s", raw.Malformed)
		return rec
	}
	switch t := strings.ToLower(strings.TrimSpace(raw.Type)); t {
	case "":
	case string(TypeExpense), string(TypeIncome):
		rec.Type = TxType(t)
	default:
		rec.addError(InvalidType, "type %q invalid (expected expense or income)", raw.Type)
	}

	if amount, ok := parseAmount(raw.Amount.String()); ok {
		rec.Amount = amount
	} else {
		rec.Amount = decimal.Zero
		rec.addError(InvalidAmount, "amount invalid")
	}

	rec.Date = n.resolveDate(&rec, raw)
	rec.Description = buildDescription(raw)

	rec.Account = n.resolveAccount(ctx, raw, defaults)
	if rec.Account == nil {
		rec.addError(UnresolvedAccount, "could not resolve account")
	}

	rec.Category = n.resolveCategory(ctx, raw, rec.Type, defaults)
	if rec.Category == nil {
		rec.addError(UnresolvedCategory, "missing category of type %s", rec.Type)
	}
	return rec
}

func (n *Normalizer) today() string {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	return now().Format(isoDate)
}

func (n *Normalizer) resolveDate(rec *Record, raw RawEntry) string {
	var supplied []string
	for _, s := range []string{raw.Date, raw.TransactionDate, raw.PostedDate} {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if d, ok := parseDate(s); ok {
			return d
		}
		supplied = append(supplied, s)
	}
	if len(supplied) > 0 && n.StrictDates {
		rec.addError(InvalidDate, "date %q invalid (use YYYY-MM-DD, DD/MM/YYYY or DD-MM-YYYY)", supplied[0])
	}
	return n.today()
}

func parseDate(s string) (string, bool) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil && t.Format(layout) == s {
			return t.Format(isoDate), true
		}
	}
	// timestamps such as 2024-01-05T10:30:00Z keep their calendar day
	if len(s) > len(isoDate) && (s[len(isoDate)] == 'T' || s[len(isoDate)] == ' ') {
		if t, err := time.Parse(isoDate, s[:len(isoDate)]); err == nil {
			return t.Format(isoDate), true
		}
	}
	return "", false
}

var (
	plainAmount     = regexp.MustCompile(`^\d+(\.\d+)?([eE][+-]?\d+)?$`)
	commaThousands  = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)
	dotThousands    = regexp.MustCompile(`^\d{1,3}(\.\d{3})+(,\d+)?$`)
	commaDecimal    = regexp.MustCompile(`^\d+,\d+$`)
	currencyCode    = regexp.MustCompile(`^[A-Z]{3}$`)
	currencyLetters = regexp.MustCompile(`^[A-Za-z]{1,3}`)
)

// parseAmount accepts "1234.56", "1,234.56", "1.234,56", "1,000", "12,50"
// and forms with a currency symbol or code around the number. A comma
// followed by exactly three digits groups thousands. Only positive values
// are valid.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	negative := false
	takeSign := func() {
		if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
			negative = s[0] == '-'
			s = s[1:]
		}
	}
	takeSign()
	s = stripCurrency(s)
	if !negative {
		takeSign()
	}

	var num string
	switch {
	case plainAmount.MatchString(s):
		num = s
	case commaThousands.MatchString(s):
		num = strings.ReplaceAll(s, ",", "")
	case dotThousands.MatchString(s):
		num = strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
	case commaDecimal.MatchString(s):
		num = strings.Replace(s, ",", ".", 1)
	default:
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(num)
	if err != nil || negative {
		return decimal.Zero, false
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// stripCurrency removes a leading currency symbol or code such as "$",
// "R$" or "USD", and a trailing symbol or three-letter code.
func stripCurrency(s string) string {
	s = strings.TrimLeftFunc(s, isCurrencyOrSpace)
	if m := currencyLetters.FindString(s); m != "" {
		rest := s[len(m):]
		r, _ := utf8.DecodeRuneInString(rest)
		if unicode.Is(unicode.Sc, r) || unicode.IsSpace(r) || currencyCode.MatchString(m) {
			s = strings.TrimLeftFunc(rest, isCurrencyOrSpace)
		}
	}
	s = strings.TrimRightFunc(s, isCurrencyOrSpace)
	if i := strings.LastIndexFunc(s, unicode.IsSpace); i >= 0 && currencyCode.MatchString(s[i+1:]) {
		s = strings.TrimRightFunc(s[:i], isCurrencyOrSpace)
	}
	return s
}

func isCurrencyOrSpace(r rune) bool {
	return unicode.Is(unicode.Sc, r) || unicode.IsSpace(r)
}

func buildDescription(raw RawEntry) string {
	desc := strings.TrimSpace(raw.Description)
	if desc == "" {
		desc = strings.TrimSpace(raw.Merchant)
	}
	if desc == "" {
		desc = fallbackDescription
	}
	if ref := raw.Reference.String(); ref != "" {
		desc = desc + " | ref " + ref
	}
	return truncateRunes(desc, maxDescriptionLength)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// splitRef interprets a loosely typed reference as either a numeric id or a name.
func splitRef(f Flex) (int64, string) {
	s := f.String()
	if s == "" {
		return 0, ""
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil && id > 0 {
		return id, ""
	}
	return 0, s
}

func (n *Normalizer) resolveAccount(ctx context.Context, raw RawEntry, defaults Defaults) *repository.Account {
	id, name := splitRef(raw.AccountID)
	if name == "" {
		name = strings.TrimSpace(raw.Account)
	}
	if a := n.lookupAccount(ctx, id, name); a != nil {
		return a
	}
	return n.lookupAccount(ctx, defaults.AccountID, strings.TrimSpace(defaults.AccountName))
}

func (n *Normalizer) lookupAccount(ctx context.Context, id int64, name string) *repository.Account {
	if n.Accounts == nil {
		return nil
	}
	log := logger.FromContext(ctx)
	if id > 0 {
		a, err := n.Accounts.AccountByID(ctx, id)
		if err != nil {
			log.Warn().Err(err).Int64("account_id", id).Msg("account lookup failed")
		} else if a != nil {
			return a
		}
	}
	if name != "" {
		a, err := n.Accounts.AccountByName(ctx, name)
		if err != nil {
			log.Warn().Err(err).Str("account", name).Msg("account lookup failed")
		} else if a != nil {
			return a
		}
	}
	return nil
}

func (n *Normalizer) resolveCategory(ctx context.Context, raw RawEntry, t TxType, defaults Defaults) *repository.Category {
	id, name := splitRef(raw.CategoryID)
	if name == "" {
		name = strings.TrimSpace(raw.Category)
	}
	if c := n.lookupCategory(ctx, id, name, t); c != nil {
		return c
	}
	defID, defName := defaults.category(t)
	return n.lookupCategory(ctx, defID, strings.TrimSpace(defName), t)
}

// lookupCategory tries id, then exact name, then substring match.
func (n *Normalizer) lookupCategory(ctx context.Context, id int64, name string, t TxType) *repository.Category {
	if n.Categories == nil {
		return nil
	}
	log := logger.FromContext(ctx)
	typ := string(t)
	if id > 0 {
		c, err := n.Categories.CategoryByID(ctx, id, typ)
		if err != nil {
			log.Warn().Err(err).Int64("category_id", id).Msg("category lookup failed")
		} else if c != nil {
			return c
		}
	}
	if name == "" {
		return nil
	}
	lookups := []func(context.Context, string, string) (*repository.Category, error){
		n.Categories.CategoryByName,
		n.Categories.CategoryByNameLike,
	}
	for _, find := range lookups {
		c, err := find(ctx, name, typ)
		if err != nil {
			log.Warn().Err(err).Str("category", name).Msg("category lookup failed")
			continue
		}
		if c != nil {
			return c
		}
	}
	return nil
}
