package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Commit   key.Binding
	ForceAll key.Binding
	Rerun    key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Commit:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "commit")),
	ForceAll: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "toggle force-all")),
	Rerun:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "re-run preview")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

func helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, "  ")
}
