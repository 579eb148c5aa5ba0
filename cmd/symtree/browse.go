package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lthms/symtree/internal/catalog"
	"github.com/lthms/symtree/internal/forest"
	"github.com/lthms/symtree/internal/render"
)

// BrowseCmd shows the forest in an interactive expand/collapse view.
type BrowseCmd struct {
	SourceFlags `embed:""`
	ForestFlags `embed:""`

	Kind bool `default:"true" negatable:"" help:"Show the catalog kind next to each label."`
}

// Run loads the forest and starts the viewer.
func (cmd *BrowseCmd) Run(cfg *Config) error {
	src, closeSrc, err := cmd.SourceFlags.open(cfg)
	if err != nil {
		return err
	}
	defer closeSrc()

	f, err := loadForest(context.Background(), src, cmd.ForestFlags, "", "")
	if err != nil {
		return err
	}

	p := tea.NewProgram(newBrowseModel(f, cmd.Kind), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

type browseKeys struct {
	Up          key.Binding
	Down        key.Binding
	Toggle      key.Binding
	Expand      key.Binding
	Collapse    key.Binding
	ExpandAll   key.Binding
	CollapseAll key.Binding
	Filter      key.Binding
	Quit        key.Binding
}

var defaultBrowseKeys = browseKeys{
	Up:          key.NewBinding(key.WithKeys("up", "k", "ctrl+p"), key.WithHelp("k", "up")),
	Down:        key.NewBinding(key.WithKeys("down", "j", "ctrl+n"), key.WithHelp("j", "down")),
	Toggle:      key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "toggle")),
	Expand:      key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("l", "expand")),
	Collapse:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("h", "collapse")),
	ExpandAll:   key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "expand all")),
	CollapseAll: key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "collapse all")),
	Filter:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
	Quit:        key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

// browseModel is the Bubble Tea model for the forest viewer.
type browseModel struct {
	full     *forest.Forest[catalog.Catalog]
	shown    *forest.Forest[catalog.Catalog] // full, or the filtered view
	expanded map[string]bool
	rows     []render.Row
	cursor   int
	offset   int
	showKind bool
	keys     browseKeys

	filter    textinput.Model
	filtering bool

	width  int
	height int
}

func newBrowseModel(f *forest.Forest[catalog.Catalog], showKind bool) browseModel {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "name or label"

	m := browseModel{
		full:     f,
		shown:    f,
		expanded: make(map[string]bool),
		showKind: showKind,
		keys:     defaultBrowseKeys,
		filter:   ti,
		width:    80,
		height:   24,
	}
	for _, r := range f.Roots() {
		m.expanded[r.Name] = true
	}
	m.refresh()
	return m
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scroll()
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.handleFilterInput(msg)
		}
		return m.handleNormalInput(msg)
	}
	return m, nil
}

func (m browseModel) handleNormalInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if msg.Type == tea.KeyEsc && m.shown != m.full {
			m.clearFilter()
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.move(-1)

	case key.Matches(msg, m.keys.Down):
		m.move(1)

	case key.Matches(msg, m.keys.Toggle):
		if row, ok := m.selected(); ok && row.HasChildren {
			m.expanded[row.Name] = !row.Expanded
			m.refresh()
		}

	case key.Matches(msg, m.keys.Expand):
		if row, ok := m.selected(); ok && row.HasChildren && !row.Expanded {
			m.expanded[row.Name] = true
			m.refresh()
		}

	case key.Matches(msg, m.keys.Collapse):
		m.collapse()

	case key.Matches(msg, m.keys.ExpandAll):
		m.shown.Walk(func(n *forest.Node[catalog.Catalog], _ int) error {
			if len(n.Children) > 0 {
				m.expanded[n.Name] = true
			}
			return nil
		})
		m.refresh()

	case key.Matches(msg, m.keys.CollapseAll):
		clear(m.expanded)
		m.cursor = 0
		m.refresh()

	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		return m, m.filter.Focus()
	}
	return m, nil
}

func (m browseModel) handleFilterInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.clearFilter()
		return m, nil
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		m.applyFilter(m.filter.Value())
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

// applyFilter narrows the view to catalogs whose name or label contains
// query, keeping their ancestors, with every remaining node expanded.
func (m *browseModel) applyFilter(query string) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		m.shown = m.full
		m.refresh()
		return
	}
	m.shown = m.full.Filter(func(c catalog.Catalog) bool {
		return strings.Contains(strings.ToLower(c.Name()), query) ||
			strings.Contains(strings.ToLower(catalog.DisplayName(c)), query)
	})
	m.shown.Walk(func(n *forest.Node[catalog.Catalog], _ int) error {
		m.expanded[n.Name] = true
		return nil
	})
	m.cursor = 0
	m.refresh()
}

func (m *browseModel) clearFilter() {
	m.filtering = false
	m.filter.Blur()
	m.filter.SetValue("")
	m.shown = m.full
	m.cursor = 0
	m.refresh()
}

// collapse folds the selected node, or moves to its parent when there is
// nothing to fold.
func (m *browseModel) collapse() {
	row, ok := m.selected()
	if !ok {
		return
	}
	if row.Expanded {
		m.expanded[row.Name] = false
		m.refresh()
		return
	}
	parent := row.Node.Parent()
	if parent == nil {
		return
	}
	for i, r := range m.rows {
		if r.Node == parent {
			m.cursor = i
			m.scroll()
			return
		}
	}
}

func (m browseModel) selected() (render.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return render.Row{}, false
	}
	return m.rows[m.cursor], true
}

func (m *browseModel) move(delta int) {
	m.cursor = max(0, min(len(m.rows)-1, m.cursor+delta))
	m.scroll()
}

func (m *browseModel) refresh() {
	m.rows = render.Rows(m.shown, func(n *forest.Node[catalog.Catalog]) bool {
		return m.expanded[n.Name]
	})
	m.cursor = max(0, min(len(m.rows)-1, m.cursor))
	m.scroll()
}

func (m browseModel) visibleRows() int {
	// title (2) + help (2)
	return max(1, m.height-4)
}

func (m *browseModel) scroll() {
	visible := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	} else if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	m.offset = max(0, min(m.offset, len(m.rows)-visible))
}

func (m browseModel) View() string {
	var b strings.Builder

	title := fmt.Sprintf("Catalogs (%d)", m.full.Len())
	if m.shown != m.full {
		title = fmt.Sprintf("Catalogs (%d of %d)", m.shown.Len(), m.full.Len())
	}
	b.WriteString(" ")
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(helpStyle.Render("  No catalogs"))
		b.WriteString("\n")
	}

	end := min(len(m.rows), m.offset+m.visibleRows())
	opts := render.Options{Width: m.width - 4, Color: true, ShowKind: m.showKind}
	for i := m.offset; i < end; i++ {
		row := m.rows[i]
		if i == m.cursor {
			b.WriteString(selectedStyle.Render(">"))
		} else {
			b.WriteString(" ")
		}
		switch {
		case !row.HasChildren:
			b.WriteString("  ")
		case row.Expanded:
			b.WriteString("▾ ")
		default:
			b.WriteString("▸ ")
		}
		b.WriteString(render.Line(row, opts))
		b.WriteString("\n")
	}

	b.WriteString("\n ")
	if m.filtering {
		b.WriteString(m.filter.View())
	} else {
		b.WriteString(helpStyle.Render("j/k move  enter toggle  h/l fold  E/C all  / filter  q quit"))
	}
	return b.String()
}
