package render

import (
	"bufio"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lthms/symtree/internal/catalog"
	"github.com/lthms/symtree/internal/forest"
)

// Options controls text rendering.
type Options struct {
	Width    int  // truncate lines to this many cells; 0 = no limit
	Color    bool // style labels with lipgloss
	ShowKind bool // append the catalog kind in brackets
}

var (
	rootStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa"))
	kindStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
	guideStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#585b70"))
)

// Text writes the forest as an indented tree, one catalog per line.
func Text(w io.Writer, f *forest.Forest[catalog.Catalog], opts Options) error {
	bw := bufio.NewWriter(w)
	for _, row := range Rows(f, nil) {
		bw.WriteString(Line(row, opts))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Line renders a single row: guides, label, then the name when it differs
// from the label and the kind when requested.
func Line(row Row, opts Options) string {
	label := row.Label
	var name, kind string
	if label != row.Name {
		name = "(" + row.Name + ")"
	}
	if opts.ShowKind && row.Kind != catalog.KindGeneric {
		kind = "[" + string(row.Kind) + "]"
	}

	if opts.Width > 0 {
		label, name, kind = fit(label, name, kind, opts.Width-lipgloss.Width(row.Prefix))
	}

	if !opts.Color {
		return join(row.Prefix+label, name, kind)
	}
	if row.Depth == 0 {
		label = rootStyle.Render(label)
	}
	if name != "" {
		name = dimStyle.Render(name)
	}
	if kind != "" {
		kind = kindStyle.Render(kind)
	}
	return join(guideStyle.Render(row.Prefix)+label, name, kind)
}

// fit drops trailing annotations, then shortens the label with an ellipsis,
// until everything takes at most room cells.
func fit(label, name, kind string, room int) (string, string, string) {
	w := func(parts ...string) int { return lipgloss.Width(join(parts...)) }
	if w(label, name, kind) <= room {
		return label, name, kind
	}
	if w(label, name) <= room {
		return label, name, ""
	}
	if w(label) <= room {
		return label, "", ""
	}
	room = max(room, 2)
	r := []rune(label)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > room {
		r = r[:len(r)-1]
	}
	return string(r) + "…", "", ""
}

func join(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
