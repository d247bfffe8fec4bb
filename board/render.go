package board

import (
	"fmt"
	"html"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/microcosm-cc/bluemonday"
)

// Dimensioni in colonne delle schede a terminale
const (
	pxPerColumn   = 8
	defaultColumn = 32
	minColumns    = 20
	maxColumns    = 60
	previewLines  = 6
)

var textPolicy = bluemonday.StrictPolicy()

// Palette per i temi supportati
type palette struct {
	border, title, text, muted, accent lipgloss.Color
}

var themes = map[string]palette{
	"dark": {
		border: lipgloss.Color("#555555"),
		title:  lipgloss.Color("#f5f5f5"),
		text:   lipgloss.Color("#cccccc"),
		muted:  lipgloss.Color("#777777"),
		accent: lipgloss.Color("#f1c40f"),
	},
	"light": {
		border: lipgloss.Color("#bbbbbb"),
		title:  lipgloss.Color("#111111"),
		text:   lipgloss.Color("#333333"),
		muted:  lipgloss.Color("#888888"),
		accent: lipgloss.Color("#e67e22"),
	},
}

// RenderOptions opzioni di disegno della board
type RenderOptions struct {
	Theme string // "dark" (default) o "light"
	Width int    // larghezza del terminale in colonne, 0 = 120
}

// PlainText riduce il contenuto rich-text a testo semplice su una riga per paragrafo
func PlainText(content string) string {
	// i tag di blocco diventano a capo prima di togliere il markup
	r := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n", "</li>", "\n", "</div>", "\n", "</h1>", "\n", "</h2>", "\n", "</h3>", "\n")
	text := html.UnescapeString(textPolicy.Sanitize(r.Replace(content)))

	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// Render disegna la board: titolo dell'atto, schede visibili e barra delle nascoste
func Render(s *State, opts RenderOptions) string {
	p, ok := themes[opts.Theme]
	if !ok {
		p = themes["dark"]
	}
	width := opts.Width
	if width <= 0 {
		width = 120
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(p.accent).Render(s.Act().Name())

	cards := s.Cards()
	var body string
	if len(cards) == 0 {
		body = lipgloss.NewStyle().Foreground(p.muted).Italic(true).
			Render("Nessuna sezione. Usa \"section add\" per aggiungere contenuti.")
	} else {
		body = layoutCards(cards, p, width)
	}

	parts := []string{header, body}
	if bar := renderHiddenBar(s.HiddenBar(), p); bar != "" {
		parts = append(parts, bar)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func layoutCards(cards []Card, p palette, width int) string {
	var rows []string
	var row []string
	used := 0
	for _, c := range cards {
		box := renderCard(c, p)
		w := lipgloss.Width(box)
		if used > 0 && used+w > width {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row, used = nil, 0
		}
		row = append(row, box)
		used += w
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderCard(c Card, p palette) string {
	cols := defaultColumn
	if c.Section.Width != nil {
		cols = int(*c.Section.Width) / pxPerColumn
	}
	cols = max(minColumns, min(maxColumns, cols))

	lines := previewLines
	if c.Section.Height != nil {
		lines = max(2, int(*c.Section.Height)/40)
	}

	border := p.border
	if c.LinkColor != "" {
		border = lipgloss.Color(c.LinkColor)
	}

	title := c.Section.Title
	if c.ChainLen > 0 {
		title = fmt.Sprintf("%s %s", title, chainMarker(c))
	}

	preview := truncateLines(PlainText(c.Section.Content), lines)
	if c.Section.Doodle != nil {
		preview += "\n✏️  annotazione"
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Foreground(p.title).Render(title),
		lipgloss.NewStyle().Foreground(p.text).Render(preview),
		lipgloss.NewStyle().Foreground(p.muted).Faint(true).Render(c.Section.ID),
	)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(cols).
		Render(content)
}

func chainMarker(c Card) string {
	var b strings.Builder
	if c.HasPrev() {
		b.WriteString("◀ ")
	}
	fmt.Fprintf(&b, "%d/%d", c.ChainPos+1, c.ChainLen)
	if c.HasNext() {
		b.WriteString(" ▶")
	}
	return b.String()
}

func renderHiddenBar(chips []Chip, p palette) string {
	if len(chips) == 0 {
		return ""
	}
	items := make([]string, 0, len(chips)+1)
	items = append(items, lipgloss.NewStyle().Foreground(p.muted).Render("Nascoste:"))
	for _, chip := range chips {
		color := p.muted
		if chip.LinkColor != "" {
			color = lipgloss.Color(chip.LinkColor)
		}
		label := chip.Section.Title
		if chip.NextInChain {
			label = "▶ " + label
		}
		items = append(items, lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(color).
			Padding(0, 1).
			Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, items...)
}

func truncateLines(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= n {
		return text
	}
	return strings.Join(lines[:n], "\n") + "\n…"
}
