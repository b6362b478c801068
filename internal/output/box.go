package output

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Kind selects the colour and prefix of a box
type Kind int

const (
	KindInfo Kind = iota
	KindSuccess
	KindWarning
	KindError
)

const (
	topLeft     = "╭"
	topRight    = "╮"
	bottomLeft  = "╰"
	bottomRight = "╯"
	horizontal  = "─"
	vertical    = "│"

	// defaultWidth is used when stdout is not a terminal
	defaultWidth = 80
	margin       = 8
)

var styles = map[Kind]struct {
	style  lipgloss.Style
	prefix string
}{
	KindInfo:    {lipgloss.NewStyle().Foreground(lipgloss.Color("86")), "ℹ"},
	KindSuccess: {lipgloss.NewStyle().Foreground(lipgloss.Color("42")), "✓"},
	KindWarning: {lipgloss.NewStyle().Foreground(lipgloss.Color("178")), "⚠"},
	KindError:   {lipgloss.NewStyle().Foreground(lipgloss.Color("196")), "✗"},
}

// Box is a framed message with a title line
type Box struct {
	kind  Kind
	title string
	lines []string
	width int
}

// NewBox creates a box sized to the terminal
func NewBox(kind Kind, title string) *Box {
	return &Box{
		kind:  kind,
		title: title,
		width: terminalWidth() - margin,
	}
}

// WithWidth overrides the maximum box width
func (b *Box) WithWidth(width int) *Box {
	b.width = width
	return b
}

// AddLine adds a line of text
func (b *Box) AddLine(text string) *Box {
	b.lines = append(b.lines, text)
	return b
}

// AddBullet adds a bulleted line
func (b *Box) AddBullet(text string) *Box {
	b.lines = append(b.lines, "• "+text)
	return b
}

// Render returns the framed box. Lines longer than the box are wrapped on
// word boundaries.
func (b *Box) Render() string {
	s, ok := styles[b.kind]
	if !ok {
		s = styles[KindInfo]
	}
	style := s.style

	contentWidth := b.width - 6
	if contentWidth < 10 {
		contentWidth = 10
	}

	var wrapped []string
	for _, line := range append([]string{b.title}, b.lines...) {
		if utf8.RuneCountInString(line) <= contentWidth {
			wrapped = append(wrapped, line)
			continue
		}
		wrapped = append(wrapped, wrapText(line, contentWidth)...)
	}

	boxWidth := 6
	for _, line := range wrapped {
		if n := utf8.RuneCountInString(line) + 6; n > boxWidth {
			boxWidth = n
		}
	}

	var sb strings.Builder
	sb.WriteString(style.Render(topLeft+strings.Repeat(horizontal, boxWidth-2)+topRight) + "\n")

	first := wrapped[0]
	sb.WriteString(fmt.Sprintf("%s %s %s%s %s\n",
		style.Render(vertical),
		style.Bold(true).Render(s.prefix),
		first,
		pad(boxWidth-utf8.RuneCountInString(first)-4-utf8.RuneCountInString(s.prefix)),
		style.Render(vertical)))

	for _, line := range wrapped[1:] {
		sb.WriteString(fmt.Sprintf("%s   %s%s %s\n",
			style.Render(vertical),
			line,
			pad(boxWidth-utf8.RuneCountInString(line)-4),
			style.Render(vertical)))
	}

	sb.WriteString(style.Render(bottomLeft + strings.Repeat(horizontal, boxWidth-2) + bottomRight))
	return sb.String()
}

func pad(n int) string {
	if n < 0 {
		return ""
	}
	return strings.Repeat(" ", n)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := words[0]
	width := utf8.RuneCountInString(current)

	for _, word := range words[1:] {
		n := utf8.RuneCountInString(word)
		if width+n+1 <= maxWidth {
			current += " " + word
			width += n + 1
			continue
		}
		lines = append(lines, current)
		current = word
		width = n
	}
	return append(lines, current)
}
