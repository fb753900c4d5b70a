package markdown

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headingColor = lipgloss.Color("12")
	codeColor    = lipgloss.Color("11")
	linkColor    = lipgloss.Color("14")
	quoteColor   = lipgloss.Color("7")

	headingStyle = lipgloss.NewStyle().
			Foreground(headingColor).
			Bold(true)

	boldStyle   = lipgloss.NewStyle().Bold(true)
	italicStyle = lipgloss.NewStyle().Italic(true)

	codeStyle = lipgloss.NewStyle().
			Foreground(codeColor)

	linkStyle = lipgloss.NewStyle().
			Foreground(linkColor).
			Underline(true)

	quoteStyle = lipgloss.NewStyle().
			Foreground(quoteColor)

	ruleStyle = lipgloss.NewStyle().
			Foreground(quoteColor)
)

// RenderTerminal parses source and renders it styled for a terminal.
func RenderTerminal(source string) string {
	return renderBlocks(Parse(source), "")
}

func renderBlocks(blocks []Block, indent string) string {
	var out strings.Builder

	for i, block := range blocks {
		if i > 0 {
			out.WriteString("\n")
		}
		switch block.Type {
		case BlockHeading:
			marker := strings.Repeat("#", block.Level) + " "
			out.WriteString(indent + headingStyle.Render(marker+renderInlines(block.Content)) + "\n")

		case BlockParagraph:
			out.WriteString(indent + renderInlines(block.Content) + "\n")

		case BlockCode:
			for _, line := range strings.Split(block.Code, "\n") {
				out.WriteString(indent + "  " + codeStyle.Render(line) + "\n")
			}

		case BlockList:
			for n, item := range block.Items {
				bullet := "• "
				if block.Ordered {
					bullet = fmt.Sprintf("%d. ", n+1)
				}
				out.WriteString(indent + bullet + renderInlines(item) + "\n")
			}

		case BlockQuote:
			inner := renderBlocks(block.Children, "")
			for _, line := range strings.Split(strings.TrimRight(inner, "\n"), "\n") {
				out.WriteString(indent + quoteStyle.Render("│ "+line) + "\n")
			}

		case BlockRule:
			out.WriteString(indent + ruleStyle.Render(strings.Repeat("─", 40)) + "\n")
		}
	}

	return out.String()
}

func renderInlines(spans []Inline) string {
	var out strings.Builder
	for _, span := range spans {
		switch span.Type {
		case InlineBold:
			out.WriteString(boldStyle.Render(span.Text))
		case InlineItalic:
			out.WriteString(italicStyle.Render(span.Text))
		case InlineCode:
			out.WriteString(codeStyle.Render(span.Text))
		case InlineLink:
			out.WriteString(linkStyle.Render(span.Text) + " (" + span.URL + ")")
		default:
			out.WriteString(span.Text)
		}
	}
	return out.String()
}
