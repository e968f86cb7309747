package service

import (
	"fmt"
	"sort"
	"strings"
)

// GroupingStrategy selects how entries are merged before duplicate search.
type GroupingStrategy string

const (
	GroupNone               GroupingStrategy = "none"
	GroupManualKeys         GroupingStrategy = "manual_keys"
	GroupSupermarketMonthly GroupingStrategy = "supermarket_monthly"
)

// ParseGroupingStrategy maps unknown values to GroupNone.
func ParseGroupingStrategy(s string) GroupingStrategy {
	switch g := GroupingStrategy(strings.ToLower(strings.TrimSpace(s))); g {
	case GroupManualKeys, GroupSupermarketMonthly:
		return g
	default:
		return GroupNone
	}
}

// supermarketKeywords are matched as substrings of NormalizeText(description).
var supermarketKeywords = []string{
	"supermercado",
	"supermarket",
	"hipermercado",
	"mercado",
	"atacadao",
	"assai",
	"carrefour",
	"pao de acucar",
	"hortifruti",
	"grocery",
	"groceries",
	"woolworths",
	"coles",
	"aldi",
	"lidl",
	"tesco",
	"walmart",
}

func isSupermarket(description string) bool {
	normalized := NormalizeText(description)
	for _, kw := range supermarketKeywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// Group merges records that share a derived key and the same type, account
// and category. Invalid records and records without a key pass through.
// Output keeps first-seen order.
func Group(records []Record, strategy GroupingStrategy) []Record {
	if strategy != GroupManualKeys && strategy != GroupSupermarketMonthly {
		return records
	}

	out := make([]Record, 0, len(records))
	index := make(map[string]int, len(records))
	for _, rec := range records {
		key := groupKey(rec, strategy)
		if !rec.Valid() || key == "" {
			out = append(out, rec)
			continue
		}
		composite := fmt.Sprintf("%s|%s|%d|%d", key, rec.Type, rec.accountID(), rec.categoryID())
		if i, ok := index[composite]; ok {
			out[i] = merge(out[i], rec, strategy)
			continue
		}
		index[composite] = len(out)
		rec.SourceIndexes = append([]int(nil), rec.SourceIndexes...)
		out = append(out, rec)
	}

	for i := range out {
		if out[i].Grouped() {
			sort.Ints(out[i].SourceIndexes)
			out[i].DisplayIndex = out[i].SourceIndexes[0]
		}
	}
	return out
}

func groupKey(rec Record, strategy GroupingStrategy) string {
	switch strategy {
	case GroupManualKeys:
		return strings.ToLower(rec.GroupKey)
	case GroupSupermarketMonthly:
		if rec.Type != TypeExpense || !isSupermarket(rec.Description) {
			return ""
		}
		return fmt.Sprintf("supermarket:%d:%d:%s", rec.accountID(), rec.categoryID(), yearMonth(rec.Date))
	}
	return ""
}

func merge(into, rec Record, strategy GroupingStrategy) Record {
	into.Amount = into.Amount.Add(rec.Amount).Round(2)
	if rec.Date > into.Date {
		into.Date = rec.Date
	}
	into.SourceIndexes = unionInts(into.SourceIndexes, rec.SourceIndexes)

	switch {
	case into.GroupDescription != "":
		into.Description = into.GroupDescription
	case rec.GroupDescription != "":
		into.GroupDescription = rec.GroupDescription
		into.Description = rec.GroupDescription
	case strategy == GroupSupermarketMonthly:
		into.Description = "grouped supermarket purchases " + yearMonth(into.Date)
	}
	return into
}

func yearMonth(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

func unionInts(a, b []int) []int {
	seen := make(map[int]struct{}, len(a)+len(b))
	out := make([]int, 0, len(a)+len(b))
	for _, v := range append(append([]int(nil), a...), b...) {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
