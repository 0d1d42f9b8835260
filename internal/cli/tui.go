package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/recompose/pkg/design"
)

var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// containerPair binds a source container name to a target container id.
type containerPair struct {
	Source string
	Target string
}

// =============================================================================
// MappingModel - Interactive container mapping
// =============================================================================

// MappingModel is the bubbletea model that lets the user pick a source
// container for every target container.
type MappingModel struct {
	Targets []design.Container
	Sources []string
	// Choice holds, per target, an index into Sources or -1 to leave the
	// target unbound.
	Choice  []int
	Cursor  int
	Done    bool
	Aborted bool
}

// NewMappingModel creates a picker preselected with initial pairs.
func NewMappingModel(targets []design.Container, sources []string, initial []containerPair) MappingModel {
	m := MappingModel{Targets: targets, Sources: sources, Choice: make([]int, len(targets))}
	for i, t := range targets {
		m.Choice[i] = -1
		for _, p := range initial {
			if p.Target != t.ID && p.Target != t.Name {
				continue
			}
			for j, s := range sources {
				if s == p.Source {
					m.Choice[i] = j
				}
			}
		}
	}
	return m
}

func (m MappingModel) Init() tea.Cmd {
	return nil
}

func (m MappingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		m.Aborted = true
		return m, tea.Quit
	case "enter":
		m.Done = true
		return m, tea.Quit
	}
	if len(m.Targets) == 0 {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.Targets)-1 {
			m.Cursor++
		}
	case "left", "h":
		m.Choice[m.Cursor] = m.cycle(m.Choice[m.Cursor], -1)
	case "right", "l", " ":
		m.Choice[m.Cursor] = m.cycle(m.Choice[m.Cursor], 1)
	}
	return m, nil
}

// cycle steps through -1 (unbound) and every source index.
func (m MappingModel) cycle(cur, step int) int {
	n := len(m.Sources) + 1
	return ((cur+1+step)%n+n)%n - 1
}

func (m MappingModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Map Containers"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ target  ←/→ source  ⏎ assemble  q quit"))
	b.WriteString("\n\n")

	rows := make([][]string, 0, len(m.Targets))
	for i, t := range m.Targets {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		src := "—"
		if c := m.Choice[i]; c >= 0 {
			src = m.Sources[c]
		}
		rows = append(rows, []string{cursor, t.Name, iconArrow, src})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Target", "", "Source").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			base := lipgloss.NewStyle()
			if row >= len(m.Choice) || m.Choice[row] < 0 {
				base = base.Foreground(colorDim)
			} else if col == 3 {
				base = base.Foreground(colorGreen)
			}
			if row == m.Cursor {
				base = base.Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  %d of %d targets bound", len(m.Pairs()), len(m.Targets))))
	return b.String()
}

// Pairs returns the bound targets in template order.
func (m MappingModel) Pairs() []containerPair {
	var out []containerPair
	for i, t := range m.Targets {
		if c := m.Choice[i]; c >= 0 {
			out = append(out, containerPair{Source: m.Sources[c], Target: t.ID})
		}
	}
	return out
}
