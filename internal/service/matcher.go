package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/ledgerimport/internal/database/repository"
)

const (
	// DuplicateThreshold is the minimum score accepted as a possible duplicate.
	DuplicateThreshold = 65
	// MaxCandidates caps how many ledger rows are scored per record.
	MaxCandidates = 20

	DefaultWindowDays = 7
	MaxWindowDays     = 30
)

var (
	hundred      = decimal.NewFromInt(100)
	oneCent      = decimal.RequireFromString("0.01")
	halfUnit     = decimal.RequireFromString("0.5")
	oneUnit      = decimal.NewFromInt(1)
	onePercent   = decimal.RequireFromString("0.01")
	threePercent = decimal.RequireFromString("0.03")
)

// MatchResult is the best-scoring existing transaction for a record.
type MatchResult struct {
	Candidate repository.Transaction
	Score     int
	Reason    string
}

// IsDuplicateScore reports whether score reaches DuplicateThreshold.
func IsDuplicateScore(score int) bool { return score >= DuplicateThreshold }

// ClampWindowDays maps non-positive values to the default and caps at MaxWindowDays.
func ClampWindowDays(days int) int {
	switch {
	case days <= 0:
		return DefaultWindowDays
	case days > MaxWindowDays:
		return MaxWindowDays
	default:
		return days
	}
}

// Matcher searches the ledger for transactions that look like a record.
// It only reads.
type Matcher struct {
	Source     CandidateSource
	WindowDays int
	Similarity SimilarityFunc
}

// AmountTolerance is the widest amount difference still considered:
// max(1.00, 3% of amount).
func AmountTolerance(amount decimal.Decimal) decimal.Decimal {
	return decimal.Max(oneUnit, amount.Mul(threePercent))
}

// Match returns the best candidate scoring at least DuplicateThreshold, or
// nil. Records without an account, or with validation errors, never match.
func (m *Matcher) Match(ctx context.Context, rec Record) (*MatchResult, error) {
	if rec.Account == nil || !rec.Valid() || m.Source == nil {
		return nil, nil
	}
	date, err := time.Parse(isoDate, rec.Date)
	if err != nil {
		return nil, fmt.Errorf("match record #%d: bad date %q: %w", rec.DisplayIndex, rec.Date, err)
	}

	window := ClampWindowDays(m.WindowDays)
	tol := AmountTolerance(rec.Amount)
	q := repository.CandidateQuery{
		AccountID: rec.Account.ID,
		Type:      string(rec.Type),
		FromDate:  date.AddDate(0, 0, -window).Format(isoDate),
		ToDate:    date.AddDate(0, 0, window).Format(isoDate),
		MinCents:  rec.Amount.Sub(tol).Mul(hundred).Ceil().IntPart(),
		MaxCents:  rec.Amount.Add(tol).Mul(hundred).Floor().IntPart(),
		Limit:     MaxCandidates,
	}
	candidates, err := m.Source.FindCandidates(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("match record #%d: find candidates: %w", rec.DisplayIndex, err)
	}
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}

	var best *MatchResult
	for _, c := range candidates {
		score, reason := m.Score(rec, c)
		// strictly greater: ties keep the earlier, more recent candidate
		if best == nil || score > best.Score {
			best = &MatchResult{Candidate: c, Score: score, Reason: reason}
		}
	}
	if best == nil || !IsDuplicateScore(best.Score) {
		return nil, nil
	}
	return best, nil
}

// Score rates how likely c is the same real-world transaction as rec. Each
// axis contributes only its highest satisfied tier.
func (m *Matcher) Score(rec Record, c repository.Transaction) (int, string) {
	var (
		points int
		labels []string
	)
	add := func(p int, label string) {
		points += p
		labels = append(labels, label)
	}

	diff := rec.Amount.Sub(decimal.New(c.AmountCents, -2)).Abs()
	switch {
	case diff.LessThanOrEqual(oneCent):
		add(45, "exact amount")
	case diff.LessThanOrEqual(decimal.Max(halfUnit, rec.Amount.Mul(onePercent))):
		add(30, "close amount")
	case diff.LessThanOrEqual(AmountTolerance(rec.Amount)):
		add(15, "amount within tolerance")
	}

	if days, ok := daysBetween(rec.Date, c.Date); ok {
		switch {
		case days == 0:
			add(30, "same day")
		case days <= 2:
			add(22, "within 2 days")
		case days <= 7:
			add(15, "within 7 days")
		case days <= ClampWindowDays(m.WindowDays):
			add(8, "within window")
		}
	}

	if rec.Category != nil && c.CategoryID != nil && *c.CategoryID == rec.Category.ID {
		add(12, "same category")
	}

	sim := m.similarity()(NormalizeText(rec.Description), NormalizeText(c.Description))
	switch {
	case sim >= 90:
		add(25, "very similar description")
	case sim >= 75:
		add(16, "similar description")
	case sim >= 60:
		add(8, "related description")
	}

	reason := strings.Join(labels, ", ")
	if reason == "" {
		reason = "matching pattern"
	}
	return points, reason
}

func (m *Matcher) similarity() SimilarityFunc {
	if m.Similarity != nil {
		return m.Similarity
	}
	return SimilarText
}

func daysBetween(a, b string) (int, bool) {
	ta, err := time.Parse(isoDate, a)
	if err != nil {
		return 0, false
	}
	tb, err := time.Parse(isoDate, b)
	if err != nil {
		return 0, false
	}
	return int(math.Abs(ta.Sub(tb).Hours()) / 24), true
}
