// Package render converts raw model output into platform-ready chunks:
// markdown is flattened to plain text, then split into pieces that fit the
// platform message limit.
package render

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var parser = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough),
)

// Flatten converts markdown to plain text. Block-level elements
// (paragraphs, headings, list items, table cells, line breaks) are each
// terminated with an explicit newline so the visual structure survives,
// and top-level blocks stay separated by blank lines for the splitter.
func Flatten(markdown string) string {
	source := []byte(markdown)
	doc := parser.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			switch t := n.(type) {
			case *ast.Text:
				b.Write(t.Segment.Value(source))
				if t.HardLineBreak() || t.SoftLineBreak() {
					b.WriteByte('\n')
				}
			case *ast.String:
				b.Write(t.Value)
			case *ast.AutoLink:
				b.Write(t.URL(source))
			case *ast.CodeBlock:
				writeLines(&b, source, t)
				return ast.WalkSkipChildren, nil
			case *ast.FencedCodeBlock:
				writeLines(&b, source, t)
				return ast.WalkSkipChildren, nil
			}
			return ast.WalkContinue, nil
		}

		switch n.(type) {
		case *ast.Paragraph:
			if insideListItem(n) {
				return ast.WalkContinue, nil
			}
			b.WriteString("\n\n")
		case *ast.Heading:
			b.WriteString("\n\n")
		case *ast.ListItem:
			b.WriteByte('\n')
		case *ast.List:
			if n.Parent() != nil && n.Parent().Kind() == ast.KindDocument {
				b.WriteByte('\n')
			}
		case *ast.Blockquote:
			// inner paragraphs already terminated the block
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			b.WriteByte('\n')
		case *ast.ThematicBreak:
			b.WriteString("\n\n")
		case *extast.TableCell:
			b.WriteByte('\n')
		case *extast.Table:
			b.WriteByte('\n')
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimRight(b.String(), "\n ")
}

func writeLines(b *strings.Builder, source []byte, n ast.Node) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
}

func insideListItem(n ast.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == ast.KindListItem {
			return true
		}
	}
	return false
}
