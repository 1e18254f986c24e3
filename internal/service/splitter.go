package service

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// SplitText cuts text into overlapping chunks of at most size characters.
// A chunk that would end mid-sentence is trimmed back to the last period so
// retrieval scores whole statements instead of fragments.
func SplitText(input string, size int, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	runes := []rune(input)
	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		piece := runes[start:end]
		if end < len(runes) {
			if idx := lastIndexRune(piece, '.'); idx != -1 {
				piece = piece[:idx+1]
				end = start + idx + 1
			}
		}
		if chunk := strings.TrimSpace(string(piece)); chunk != "" {
			chunks = append(chunks, chunk)
		}
		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

type MarkdownSection struct {
	Heading string
	Body    string
}

// SplitMarkdown walks the document tree and groups content under its nearest
// heading, so each section can be chunked with its own context.
func SplitMarkdown(source []byte) []MarkdownSection {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(source))

	var sections []MarkdownSection
	current := MarkdownSection{}
	var body strings.Builder

	flush := func() {
		current.Body = strings.TrimSpace(body.String())
		if current.Heading != "" || current.Body != "" {
			sections = append(sections, current)
		}
		body.Reset()
	}

	for node := root.FirstChild(); node != nil; node = node.NextSibling() {
		if heading, ok := node.(*ast.Heading); ok {
			flush()
			current = MarkdownSection{Heading: string(nodeText(heading, source))}
			continue
		}
		if body.Len() > 0 {
			body.WriteString("\n\n")
		}
		body.Write(nodeText(node, source))
	}
	flush()
	return sections
}

func nodeText(node ast.Node, source []byte) []byte {
	var buf strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if txt, ok := n.(*ast.Text); ok {
			buf.Write(txt.Segment.Value(source))
			if txt.SoftLineBreak() || txt.HardLineBreak() {
				buf.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return []byte(buf.String())
}
