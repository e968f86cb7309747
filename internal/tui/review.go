package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/jask/ledgerimport/internal/service"
)

// Runner executes an import batch. *service.Importer satisfies it.
type Runner interface {
	Run(ctx context.Context, entries []service.RawEntry, opts service.Options) service.Outcome
}

type runDoneMsg struct {
	outcome service.Outcome
}

// Review previews a batch, then lets the user commit it.
type Review struct {
	ctx      context.Context
	runner   Runner
	entries  []service.RawEntry
	opts     service.Options
	maxLines int
	width    int

	outcome   *service.Outcome
	running   bool
	committed bool
	status    string
}

func NewReview(ctx context.Context, runner Runner, entries []service.RawEntry, opts service.Options, maxLines int) *Review {
	return &Review{
		ctx:      ctx,
		runner:   runner,
		entries:  entries,
		opts:     opts,
		maxLines: maxLines,
		running:  true,
		status:   "running preview...",
	}
}

// Outcome returns the last completed run, if any.
func (m *Review) Outcome() *service.Outcome { return m.outcome }

func (m *Review) Init() tea.Cmd {
	return m.runCmd(service.ModePreview)
}

func (m *Review) runCmd(mode service.Mode) tea.Cmd {
	opts := m.opts
	opts.Mode = mode
	return func() tea.Msg {
		return runDoneMsg{outcome: m.runner.Run(m.ctx, m.entries, opts)}
	}
}

func (m *Review) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runDoneMsg:
		m.running = false
		out := msg.outcome
		m.outcome = &out
		if out.Mode == service.ModeCommit {
			m.committed = true
			m.status = fmt.Sprintf("committed: %d created, %d skipped", out.Created, out.SkippedDuplicates)
		} else {
			m.status = "preview ready"
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Review) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		return m, tea.Quit
	}
	if m.running || m.committed {
		return m, nil
	}
	switch {
	case key.Matches(msg, keys.Commit):
		if m.outcome == nil || m.outcome.Processed == 0 {
			m.status = "nothing to commit"
			return m, nil
		}
		m.running = true
		m.status = "committing..."
		return m, m.runCmd(service.ModeCommit)
	case key.Matches(msg, keys.ForceAll):
		m.opts.CreateIfDuplicate = !m.opts.CreateIfDuplicate
		if m.opts.CreateIfDuplicate {
			m.status = "duplicates will be created on commit"
		} else {
			m.status = "duplicates will be skipped on commit"
		}
	case key.Matches(msg, keys.Rerun):
		m.running = true
		m.status = "running preview..."
		return m, m.runCmd(service.ModePreview)
	}
	return m, nil
}

func (m *Review) View() string {
	var b strings.Builder
	if m.outcome != nil {
		b.WriteString(m.fit(RenderReport(m.outcome.Report(m.maxLines))))
		b.WriteString("\n\n")
	}
	b.WriteString(mutedStyle.Render(m.status))
	b.WriteString("\n")
	help := helpLine(keys.Commit, keys.ForceAll, keys.Rerun, keys.Quit)
	if m.committed {
		help = helpLine(keys.Quit)
	}
	b.WriteString(mutedStyle.Render(help))
	b.WriteString("\n")
	return b.String()
}

// fit truncates each line to the terminal width once it is known.
func (m *Review) fit(s string) string {
	if m.width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = ansi.Truncate(l, m.width, "…")
	}
	return strings.Join(lines, "\n")
}
