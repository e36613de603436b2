package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/hrhrng/clash-sub002/pkg/document"
)

// List styles
var (
	listDimStyle  = lipgloss.NewStyle().Foreground(colorDim)
	listHeadStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// inspect command
// =============================================================================

func (c *CLI) inspectCommand() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "inspect [patches.json]",
		Short: "Browse a patch set",
		Long: `Browse a patch set written with --patches.

Opens an interactive list of the patched nodes. With --plain the table is
printed once, which also works when stdout is not a terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := document.ReadPatchSetFile(args[0])
			if err != nil {
				return fmt.Errorf("load patches %s: %w", args[0], err)
			}
			m := NewPatchListModel(ps)
			if plain {
				m.Height = len(ps.Patches)
				fmt.Println(m.View())
				return nil
			}
			_, err = tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print the table instead of opening the browser")
	return cmd
}

// =============================================================================
// PatchListModel - Interactive patch browser
// =============================================================================

// PatchListModel is the bubbletea model for browsing a patch set.
type PatchListModel struct {
	PatchSet document.PatchSet
	Cursor   int
	Height   int
	Offset   int
}

// NewPatchListModel creates a new patch list model.
func NewPatchListModel(ps document.PatchSet) PatchListModel {
	return PatchListModel{PatchSet: ps, Height: 15}
}

func (m PatchListModel) Init() tea.Cmd {
	return nil
}

func (m PatchListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	n := len(m.PatchSet.Patches)
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc", "enter":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < n-1 {
				m.Cursor++
			}
		case "home", "g":
			m.Cursor = 0
		case "end", "G":
			m.Cursor = max(n-1, 0)
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}

	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
	return m, nil
}

func (m PatchListModel) View() string {
	var b strings.Builder
	ps := m.PatchSet

	title := "Patches: " + ps.Op
	if ps.Trigger != "" {
		title += " " + ps.Trigger
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(m.summary()))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(ps.Patches))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		p := ps.Patches[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		col := ""
		if c, ok := ps.Columns[p.ID]; ok {
			col = fmt.Sprint(c)
		}
		rows = append(rows, []string{cursor, p.ID, col, describeFields(p.Fields)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Node", "Col", "Changes").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return listHeadStyle
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
			}
			if col == 3 {
				return lipgloss.NewStyle().Foreground(colorGray)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	if len(ps.Patches) > 0 {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]  ↑/↓ navigate  q quit", m.Cursor+1, len(ps.Patches))))
	}

	return b.String()
}

func (m PatchListModel) summary() string {
	ps := m.PatchSet
	parts := []string{fmt.Sprintf("%d patches", len(ps.Patches))}
	if ps.NoOp {
		parts = append(parts, "no-op")
	}
	if !ps.Converged {
		parts = append(parts, StyleWarning.Render("unconverged"))
	}
	if ps.FallbackUsed {
		parts = append(parts, StyleWarning.Render("fallback placement"))
	}
	if len(ps.Grown) > 0 {
		parts = append(parts, "grown: "+strings.Join(ps.Grown, ", "))
	}
	return strings.Join(parts, " · ")
}
