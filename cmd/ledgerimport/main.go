package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"github.com/jask/ledgerimport/internal/config"
	"github.com/jask/ledgerimport/internal/database"
	"github.com/jask/ledgerimport/internal/database/repository"
	"github.com/jask/ledgerimport/internal/logger"
	"github.com/jask/ledgerimport/internal/service"
	"github.com/jask/ledgerimport/internal/testdata"
	"github.com/jask/ledgerimport/internal/tui"
)

type flags struct {
	file            string
	mode            string
	group           string
	window          int
	forceAll        bool
	force           []int
	account         string
	expenseCategory string
	incomeCategory  string
	interactive     bool
	seedSample      bool
	writeConfig     bool
	showRun         string
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := pflag.NewFlagSet("ledgerimport", pflag.ContinueOnError)
	fs.StringVarP(&f.file, "file", "f", "", "statement file (.json or .csv)")
	fs.StringVarP(&f.mode, "mode", "m", "", "preview or commit (default from config)")
	fs.StringVarP(&f.group, "group", "g", "", "grouping: none, manual_keys, supermarket_monthly")
	fs.IntVarP(&f.window, "window", "w", 0, "duplicate search window in days (1-30)")
	fs.BoolVar(&f.forceAll, "force-all", false, "create detected duplicates too")
	fs.IntSliceVar(&f.force, "force", nil, "entry indexes to create despite duplicates, e.g. --force 1,3")
	fs.StringVar(&f.account, "account", "", "default account name or id")
	fs.StringVar(&f.expenseCategory, "expense-category", "", "default expense category name or id")
	fs.StringVar(&f.incomeCategory, "income-category", "", "default income category name or id")
	fs.BoolVarP(&f.interactive, "interactive", "i", false, "review the preview before committing")
	fs.BoolVar(&f.seedSample, "seed-sample", false, "add a sample account and transactions")
	fs.BoolVar(&f.writeConfig, "write-config", false, "write the effective config file and exit")
	fs.StringVar(&f.showRun, "show-run", "", "list the transactions a commit run created, by run id or prefix")
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	return f, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if f.writeConfig {
		return config.Save(cfg)
	}

	log := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)
	ctx := logger.WithContext(context.Background(), log)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir db dir: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.RunMigrationsWithDB(db, cfg.Database.Migrations); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := database.SeedDefaults(ctx, db); err != nil {
		return err
	}
	if f.seedSample {
		sample, err := testdata.Seed(ctx, db, database.Now())
		if err != nil {
			return err
		}
		log.Info().Str("account", sample.Account.Name).Int("transactions", len(sample.Transactions)).Msg("sample ledger seeded")
		if f.file == "" {
			return nil
		}
	}

	if f.showRun != "" {
		rows, err := service.NewRepoStore(db).RunTransactions(ctx, f.showRun)
		if err != nil {
			return err
		}
		printRun(os.Stdout, f.showRun, rows)
		return nil
	}

	if f.file == "" {
		return fmt.Errorf("--file is required")
	}
	entries, err := service.ReadEntriesFile(f.file)
	if err != nil {
		return err
	}
	log = logger.WithFields(log, map[string]interface{}{
		"file": filepath.Base(f.file),
		"db":   cfg.Database.Path,
	})
	ctx = logger.WithContext(ctx, log)
	log.Debug().Int("entries", len(entries)).Msg("statement loaded")

	opts, err := buildOptions(cfg, f)
	if err != nil {
		return err
	}
	importer := service.NewLedgerImporter(db, service.Settings{
		WindowDays:  cfg.Import.WindowDays,
		MaxEntries:  cfg.Import.MaxEntries,
		StrictDates: cfg.Import.StrictDates,
		Similarity:  cfg.Import.Similarity,
		Location:    cfg.Location(),
	})

	if f.interactive {
		return runInteractive(ctx, log, importer, entries, opts, cfg.Import.ReportMaxLines)
	}
	outcome := importer.Run(ctx, entries, opts)
	fmt.Println(tui.RenderReport(outcome.Report(cfg.Import.ReportMaxLines)))
	return nil
}

func runInteractive(ctx context.Context, log zerolog.Logger, importer *service.Importer, entries []service.RawEntry, opts service.Options, maxLines int) error {
	// keep log lines from tearing the alt screen
	ctx = logger.WithContext(ctx, log.Level(zerolog.Disabled))
	p := tea.NewProgram(tui.NewReview(ctx, importer, entries, opts, maxLines), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("review: %w", err)
	}
	if review, ok := final.(*tui.Review); ok && review.Outcome() != nil {
		fmt.Println(tui.RenderReport(review.Outcome().Report(maxLines)))
	}
	return nil
}

func printRun(w io.Writer, runID string, rows []repository.Transaction) {
	if len(rows) == 0 {
		fmt.Fprintf(w, "run %s created no transactions\n", runID)
		return
	}
	fmt.Fprintf(w, "run %s created %d transactions\n", runID, len(rows))
	for _, t := range rows {
		fmt.Fprintf(w, "- transaction %d: %s %s %s %s\n",
			t.ID, t.Date, t.Type, decimal.New(t.AmountCents, -2).StringFixed(2), t.Description)
	}
}

func buildOptions(cfg config.Config, f flags) (service.Options, error) {
	mode := cfg.Import.Mode
	if f.mode != "" {
		mode = f.mode
	}
	grouping := cfg.Import.Grouping
	if f.group != "" {
		grouping = f.group
	}
	window := cfg.Import.WindowDays
	if f.window != 0 {
		window = f.window
	}
	for _, idx := range f.force {
		if idx < 1 {
			return service.Options{}, fmt.Errorf("invalid force index %d (indexes start at 1)", idx)
		}
	}

	opts := service.Options{
		Mode:              service.ParseMode(mode),
		Grouping:          service.ParseGroupingStrategy(grouping),
		WindowDays:        service.ClampWindowDays(window),
		CreateIfDuplicate: f.forceAll,
		ForceIndexes:      f.force,
	}
	opts.Defaults.AccountID, opts.Defaults.AccountName = idOrName(firstNonEmpty(f.account, cfg.Import.DefaultAccount))
	opts.Defaults.ExpenseCategoryID, opts.Defaults.ExpenseCategoryName = idOrName(firstNonEmpty(f.expenseCategory, cfg.Import.DefaultExpenseCategory))
	opts.Defaults.IncomeCategoryID, opts.Defaults.IncomeCategoryName = idOrName(firstNonEmpty(f.incomeCategory, cfg.Import.DefaultIncomeCategory))
	if opts.Defaults.AccountID == 0 && opts.Defaults.AccountName == "" {
		opts.Defaults.AccountName = database.DefaultAccountName
	}
	return opts, nil
}

func idOrName(s string) (int64, string) {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil && id > 0 {
		return id, ""
	}
	return 0, s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
