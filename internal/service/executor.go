package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jask/ledgerimport/internal/database/repository"
	"github.com/jask/ledgerimport/internal/logger"
)

// Mode selects between a dry run and a persisting run.
type Mode string

const (
	ModePreview Mode = "preview"
	ModeCommit  Mode = "commit"
)

// DefaultMaxEntries bounds one import batch.
const DefaultMaxEntries = 120

// ParseMode returns ModeCommit only for "commit"; everything else previews.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeCommit)) {
		return ModeCommit
	}
	return ModePreview
}

// Options are the per-run settings of an import.
type Options struct {
	Mode     Mode
	Grouping GroupingStrategy
	// WindowDays overrides the matcher's window when non-zero.
	WindowDays int
	// CreateIfDuplicate forces creation of every detected duplicate.
	CreateIfDuplicate bool
	// ForceIndexes forces creation of duplicates by 1-based display index.
	ForceIndexes []int
	Defaults     Defaults
}

// Importer runs normalization, grouping, duplicate search and creation over
// one batch, sequentially.
type Importer struct {
	Normalizer *Normalizer
	Matcher    *Matcher
	Writer     TransactionWriter
	MaxEntries int
}

type run struct {
	opts    Options
	matcher *Matcher
	forced  map[int]bool
	log     zerolog.Logger
	out     *Outcome
}

// Run processes entries and returns the aggregated outcome. Per-entry
// problems end up in the outcome; Run itself never fails.
func (im *Importer) Run(ctx context.Context, entries []RawEntry, opts Options) Outcome {
	opts.Mode = ParseMode(string(opts.Mode))
	out := Outcome{RunID: uuid.NewString(), Mode: opts.Mode, Entries: len(entries)}
	log := logger.FromContext(ctx).With().
		Str("run_id", out.RunID).
		Str("mode", string(opts.Mode)).
		Logger()

	if len(entries) == 0 {
		out.Notes = append(out.Notes, "nothing to import: no entries were provided")
		log.Info().Msg("import skipped: empty batch")
		return out
	}

	limit := im.MaxEntries
	if limit <= 0 {
		limit = DefaultMaxEntries
	}
	if len(entries) > limit {
		out.Notes = append(out.Notes, fmt.Sprintf("only the first %d entries were processed; %d were ignored", limit, len(entries)-limit))
		entries = entries[:limit]
	}

	matcher := &Matcher{}
	if im.Matcher != nil {
		*matcher = *im.Matcher
	}
	if opts.WindowDays != 0 {
		matcher.WindowDays = opts.WindowDays
	}
	matcher.WindowDays = ClampWindowDays(matcher.WindowDays)

	r := &run{
		opts:    opts,
		matcher: matcher,
		forced:  make(map[int]bool, len(opts.ForceIndexes)),
		log:     log,
		out:     &out,
	}
	for _, idx := range opts.ForceIndexes {
		r.forced[idx] = true
	}

	log.Info().
		Int("entries", len(entries)).
		Str("grouping", string(opts.Grouping)).
		Int("window_days", matcher.WindowDays).
		Msg("import started")

	normalizer := im.Normalizer
	if normalizer == nil {
		normalizer = &Normalizer{}
	}
	records := make([]Record, 0, len(entries))
	for i, raw := range entries {
		records = append(records, normalizer.Normalize(ctx, i+1, raw, opts.Defaults))
	}
	records = Group(records, ParseGroupingStrategy(string(opts.Grouping)))

	for _, rec := range records {
		out.Processed++
		im.process(ctx, r, rec)
	}

	log.Info().
		Int("processed", out.Processed).
		Int("new", out.NewWithoutDuplicate).
		Int("duplicates", out.PossibleDuplicates).
		Int("invalid", out.Invalid).
		Int("failed", out.Failed).
		Int("created", out.Created).
		Int("created_forced", out.CreatedForced).
		Int("skipped_duplicates", out.SkippedDuplicates).
		Msg("import finished")
	return out
}

func (im *Importer) process(ctx context.Context, r *run, rec Record) {
	out := r.out
	log := r.log.With().Int("index", rec.DisplayIndex).Logger()

	if !rec.Valid() {
		out.Invalid++
		out.InvalidLines = append(out.InvalidLines, fmt.Sprintf("#%d: %s", rec.DisplayIndex, rec.ErrorSummary()))
		log.Debug().Str("errors", rec.ErrorSummary()).Msg("record invalid")
		return
	}

	match, err := r.matcher.Match(ctx, rec)
	if err != nil {
		log.Warn().Err(err).Msg("duplicate search failed, treating record as new")
		match = nil
	}

	if match == nil {
		out.NewWithoutDuplicate++
		log.Debug().Msg("no duplicate found")
		if r.opts.Mode == ModePreview {
			out.NewLines = append(out.NewLines, describeRecord(rec))
			return
		}
		im.create(ctx, r, rec, false)
		return
	}

	out.PossibleDuplicates++
	out.DuplicateLines = append(out.DuplicateLines, describeDuplicate(rec, match))
	log.Debug().
		Int64("candidate_id", match.Candidate.ID).
		Int("score", match.Score).
		Str("reason", match.Reason).
		Msg("possible duplicate")
	if r.opts.Mode == ModePreview {
		return
	}
	if r.opts.CreateIfDuplicate || r.forced[rec.DisplayIndex] {
		im.create(ctx, r, rec, true)
		return
	}
	out.SkippedDuplicates++
	out.SkippedIndexes = append(out.SkippedIndexes, rec.DisplayIndex)
}

func (im *Importer) create(ctx context.Context, r *run, rec Record, forced bool) {
	out := r.out
	var categoryID *int64
	if rec.Category != nil {
		id := rec.Category.ID
		categoryID = &id
	}
	created, err := im.safeCreate(ctx, NewTransaction{
		AccountID:      rec.accountID(),
		Type:           rec.Type,
		Amount:         rec.Amount,
		Date:           rec.Date,
		Description:    rec.Description,
		CategoryID:     categoryID,
		ConversionRate: 1.0,
		AIAssisted:     true,
		ImportRunID:    out.RunID,
	})
	if err != nil {
		out.Failed++
		out.InvalidLines = append(out.InvalidLines, fmt.Sprintf("#%d: failed to create: %v", rec.DisplayIndex, err))
		r.log.Warn().Err(err).Int("index", rec.DisplayIndex).Msg("create failed")
		return
	}
	out.Created++
	line := fmt.Sprintf("#%d -> transaction %d: %s", rec.DisplayIndex, created.ID, recordSummary(rec))
	if forced {
		out.CreatedForced++
		line += " (forced)"
	}
	out.CreatedLines = append(out.CreatedLines, line)
}

// safeCreate shields the batch from a panicking writer.
func (im *Importer) safeCreate(ctx context.Context, t NewTransaction) (created repository.Transaction, err error) {
	if im.Writer == nil {
		return created, fmt.Errorf("no transaction writer configured")
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("writer panic: %v", p)
		}
	}()
	return im.Writer.Create(ctx, t)
}
