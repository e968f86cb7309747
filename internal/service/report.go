package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultReportLines caps each report section when the caller passes <= 0.
const DefaultReportLines = 8

// Outcome aggregates one import run.
type Outcome struct {
	RunID string
	Mode  Mode

	Entries             int
	Processed           int
	NewWithoutDuplicate int
	PossibleDuplicates  int
	Invalid             int
	Failed              int
	Created             int
	CreatedForced       int
	SkippedDuplicates   int

	InvalidLines   []string
	NewLines       []string
	DuplicateLines []string
	CreatedLines   []string
	Notes          []string
	SkippedIndexes []int
}

// NeedsReview counts invalid records and failed creations together.
func (o Outcome) NeedsReview() int { return o.Invalid + o.Failed }

// Report renders the outcome as plain text. Each section shows at most
// maxLines lines followed by "+N more".
func (o Outcome) Report(maxLines int) string {
	if maxLines <= 0 {
		maxLines = DefaultReportLines
	}
	var b strings.Builder
	commit := o.Mode == ModeCommit

	title := "Statement import preview"
	if commit {
		title = "Statement import"
	}
	fmt.Fprintf(&b, "%s (run %s)\n", title, shortID(o.RunID))

	if o.Entries == 0 {
		for _, n := range o.Notes {
			fmt.Fprintf(&b, "%s\n", n)
		}
		return strings.TrimRight(b.String(), "\n")
	}

	fmt.Fprintf(&b, "Entries received: %d\n", o.Entries)
	fmt.Fprintf(&b, "Processed: %d\n", o.Processed)
	fmt.Fprintf(&b, "New without duplicate: %d\n", o.NewWithoutDuplicate)
	fmt.Fprintf(&b, "Possible duplicates: %d\n", o.PossibleDuplicates)
	fmt.Fprintf(&b, "Needs review: %d\n", o.NeedsReview())
	if commit {
		fmt.Fprintf(&b, "Created: %d (forced: %d)\n", o.Created, o.CreatedForced)
		fmt.Fprintf(&b, "Skipped duplicates: %d\n", o.SkippedDuplicates)
	}

	if commit {
		writeSection(&b, "Created", o.CreatedLines, maxLines)
	} else {
		writeSection(&b, "New candidates (would be created)", o.NewLines, maxLines)
	}
	dupTitle := "Possible duplicates (would be skipped)"
	if commit {
		dupTitle = "Possible duplicates"
	}
	writeSection(&b, dupTitle, o.DuplicateLines, maxLines)
	writeSection(&b, "Needs review", o.InvalidLines, maxLines)
	writeSection(&b, "Notes", o.Notes, maxLines)
	writeSection(&b, "Next steps", o.hints(), maxLines)

	return strings.TrimRight(b.String(), "\n")
}

func (o Outcome) hints() []string {
	var hints []string
	if o.Mode == ModeCommit {
		if o.SkippedDuplicates > 0 {
			hints = append(hints, fmt.Sprintf(
				"%d duplicate(s) were not created; re-run with create_if_duplicate=true or force_duplicate_indexes=[%s] to create them anyway",
				o.SkippedDuplicates, joinInts(o.SkippedIndexes)))
		}
		return hints
	}
	hints = append(hints, "nothing was written; run again with mode=commit to create the new candidates")
	if o.PossibleDuplicates > 0 {
		hints = append(hints, "possible duplicates are skipped on commit unless create_if_duplicate=true or their indexes are listed in force_duplicate_indexes")
	}
	return hints
}

func writeSection(b *strings.Builder, title string, lines []string, maxLines int) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	shown := lines
	if len(shown) > maxLines {
		shown = shown[:maxLines]
	}
	for _, l := range shown {
		fmt.Fprintf(b, "- %s\n", l)
	}
	if extra := len(lines) - len(shown); extra > 0 {
		fmt.Fprintf(b, "+%d more\n", extra)
	}
}

func recordSummary(rec Record) string {
	s := fmt.Sprintf("%s %s %s %s", rec.Date, rec.Type, rec.Amount.StringFixed(2), rec.Description)
	if rec.Category != nil {
		s += " [" + rec.Category.Name + "]"
	}
	if rec.Grouped() {
		refs := make([]string, len(rec.SourceIndexes))
		for i, idx := range rec.SourceIndexes {
			refs[i] = "#" + strconv.Itoa(idx)
		}
		s += " (grouped from " + strings.Join(refs, ", ") + ")"
	}
	return s
}

func describeRecord(rec Record) string {
	return fmt.Sprintf("#%d %s", rec.DisplayIndex, recordSummary(rec))
}

func describeDuplicate(rec Record, m *MatchResult) string {
	c := m.Candidate
	return fmt.Sprintf("#%d %s ~ transaction %d on %s %s %q (score %d: %s)",
		rec.DisplayIndex, recordSummary(rec), c.ID, c.Date,
		decimal.New(c.AmountCents, -2).StringFixed(2), c.Description, m.Score, m.Reason)
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
