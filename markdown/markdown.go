// Package markdown parses a restricted Markdown subset into a tree of typed
// nodes for safe display. It is not a CommonMark implementation: only
// headings, bold, italic, inline code, links, fenced code blocks, lists,
// blockquotes, horizontal rules and paragraphs are recognized, and anything
// else falls through as literal paragraph text.
//
// Parse is pure and stateless: the same input always yields the same tree.
package markdown

import "strings"

// BlockType discriminates Block nodes.
type BlockType string

const (
	BlockHeading   BlockType = "heading"
	BlockParagraph BlockType = "paragraph"
	BlockCode      BlockType = "code"
	BlockList      BlockType = "list"
	BlockQuote     BlockType = "blockquote"
	BlockRule      BlockType = "rule"
)

// InlineType discriminates Inline nodes.
type InlineType string

const (
	InlineText   InlineType = "text"
	InlineBold   InlineType = "bold"
	InlineItalic InlineType = "italic"
	InlineCode   InlineType = "code"
	InlineLink   InlineType = "link"
)

// Block is one block-level node. Which fields are populated depends on Type:
// headings use Level and Content, paragraphs use Content, code blocks use
// Lang and Code, lists use Items and Ordered, blockquotes use Children.
type Block struct {
	Type     BlockType
	Level    int        // heading level 1..6
	Content  []Inline   // heading and paragraph text
	Lang     string     // fenced code info string
	Code     string     // fenced code body, verbatim
	Ordered  bool       // list kind
	Items    [][]Inline // list items
	Children []Block    // blockquote contents
}

// Inline is one span-level node. Links carry their target in URL; all other
// kinds carry only Text.
type Inline struct {
	Type InlineType
	Text string
	URL  string
}

// Parse converts source text into block nodes in a single forward pass over
// its lines, recursing only into blockquote contents.
func Parse(source string) []Block {
	lines := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")
	return parseLines(lines)
}

func parseLines(lines []string) []Block {
	var blocks []Block

	for i := 0; i < len(lines); {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			i++

		case isFence(trimmed):
			block, next := parseFence(lines, i)
			blocks = append(blocks, block)
			i = next

		case isRule(trimmed):
			blocks = append(blocks, Block{Type: BlockRule})
			i++

		case strings.HasPrefix(trimmed, "#"):
			if block, ok := parseHeading(trimmed); ok {
				blocks = append(blocks, block)
				i++
				continue
			}
			// More than six #'s or no space: plain paragraph text.
			block, next := parseParagraph(lines, i)
			blocks = append(blocks, block)
			i = next

		case strings.HasPrefix(trimmed, ">"):
			block, next := parseBlockquote(lines, i)
			blocks = append(blocks, block)
			i = next

		case isListItem(trimmed):
			block, next := parseList(lines, i)
			blocks = append(blocks, block)
			i = next

		default:
			block, next := parseParagraph(lines, i)
			blocks = append(blocks, block)
			i = next
		}
	}

	return blocks
}

func isFence(trimmed string) bool {
	return strings.HasPrefix(trimmed, "```")
}

func isRule(trimmed string) bool {
	if len(trimmed) < 3 {
		return false
	}
	for _, marker := range []string{"-", "*", "_"} {
		if strings.Count(trimmed, marker) == len(trimmed) {
			return true
		}
	}
	return false
}

func isListItem(trimmed string) bool {
	if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "+ ") {
		return true
	}
	_, ok := splitOrderedItem(trimmed)
	return ok
}

// splitOrderedItem splits "3. text" into its text, reporting whether the
// line is an ordered-list item.
func splitOrderedItem(trimmed string) (string, bool) {
	dot := strings.Index(trimmed, ". ")
	if dot < 1 {
		return "", false
	}
	for _, r := range trimmed[:dot] {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return trimmed[dot+2:], true
}

func parseHeading(trimmed string) (Block, bool) {
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level > 6 || level == len(trimmed) || trimmed[level] != ' ' {
		return Block{}, false
	}
	return Block{
		Type:    BlockHeading,
		Level:   level,
		Content: ParseInline(strings.TrimSpace(trimmed[level:])),
	}, true
}

// parseFence consumes a fenced code block. An unclosed fence runs to the end
// of input; the body is kept verbatim with no inline parsing.
func parseFence(lines []string, start int) (Block, int) {
	info := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lines[start]), "```"))

	var body []string
	i := start + 1
	for ; i < len(lines); i++ {
		if isFence(strings.TrimSpace(lines[i])) {
			i++
			break
		}
		body = append(body, lines[i])
	}

	return Block{
		Type: BlockCode,
		Lang: info,
		Code: strings.Join(body, "\n"),
	}, i
}

// parseBlockquote strips the quote markers from the run of quoted lines and
// recursively parses what remains.
func parseBlockquote(lines []string, start int) (Block, int) {
	var inner []string
	i := start
	for ; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(trimmed, ">") {
			break
		}
		content := strings.TrimPrefix(trimmed, ">")
		content = strings.TrimPrefix(content, " ")
		inner = append(inner, content)
	}

	return Block{
		Type:     BlockQuote,
		Children: parseLines(inner),
	}, i
}

func parseList(lines []string, start int) (Block, int) {
	first := strings.TrimSpace(lines[start])
	_, ordered := splitOrderedItem(first)

	var items [][]Inline
	i := start
	for ; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if !isListItem(trimmed) {
			break
		}
		text, isOrdered := splitOrderedItem(trimmed)
		if isOrdered != ordered {
			break
		}
		if !isOrdered {
			text = trimmed[2:]
		}
		items = append(items, ParseInline(text))
	}

	return Block{
		Type:    BlockList,
		Ordered: ordered,
		Items:   items,
	}, i
}

// parseParagraph consumes consecutive plain lines into one paragraph,
// joining them with a single space.
func parseParagraph(lines []string, start int) (Block, int) {
	var parts []string
	i := start
	for ; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || isFence(trimmed) || isRule(trimmed) ||
			strings.HasPrefix(trimmed, ">") || isListItem(trimmed) {
			break
		}
		if _, ok := parseHeading(trimmed); ok {
			break
		}
		parts = append(parts, trimmed)
	}

	return Block{
		Type:    BlockParagraph,
		Content: ParseInline(strings.Join(parts, " ")),
	}, i
}

// ParseInline parses span-level markup within one line of text. Markers
// without a matching closer fall through as literal text.
func ParseInline(text string) []Inline {
	var spans []Inline
	var literal strings.Builder

	flush := func() {
		if literal.Len() > 0 {
			spans = append(spans, Inline{Type: InlineText, Text: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(text); {
		switch {
		case strings.HasPrefix(text[i:], "**") || strings.HasPrefix(text[i:], "__"):
			marker := text[i : i+2]
			if end := strings.Index(text[i+2:], marker); end > 0 {
				flush()
				spans = append(spans, Inline{Type: InlineBold, Text: text[i+2 : i+2+end]})
				i += 2 + end + 2
				continue
			}
			literal.WriteString(marker)
			i += 2

		case text[i] == '*' || text[i] == '_':
			marker := text[i]
			if end := strings.IndexByte(text[i+1:], marker); end > 0 {
				flush()
				spans = append(spans, Inline{Type: InlineItalic, Text: text[i+1 : i+1+end]})
				i += 1 + end + 1
				continue
			}
			literal.WriteByte(marker)
			i++

		case text[i] == '`':
			if end := strings.IndexByte(text[i+1:], '`'); end >= 0 {
				flush()
				spans = append(spans, Inline{Type: InlineCode, Text: text[i+1 : i+1+end]})
				i += 1 + end + 1
				continue
			}
			literal.WriteByte('`')
			i++

		case text[i] == '[':
			if label, url, length, ok := parseLink(text[i:]); ok {
				flush()
				spans = append(spans, Inline{Type: InlineLink, Text: label, URL: url})
				i += length
				continue
			}
			literal.WriteByte('[')
			i++

		default:
			literal.WriteByte(text[i])
			i++
		}
	}

	flush()
	return spans
}

// parseLink matches "[label](url)" at the start of text, returning the
// consumed length.
func parseLink(text string) (label, url string, length int, ok bool) {
	closeBracket := strings.IndexByte(text, ']')
	if closeBracket < 0 || closeBracket+1 >= len(text) || text[closeBracket+1] != '(' {
		return "", "", 0, false
	}
	closeParen := strings.IndexByte(text[closeBracket+2:], ')')
	if closeParen < 0 {
		return "", "", 0, false
	}
	label = text[1:closeBracket]
	url = text[closeBracket+2 : closeBracket+2+closeParen]
	return label, url, closeBracket + 2 + closeParen + 1, true
}
