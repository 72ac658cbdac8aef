package parse

import (
	"bytes"
	"strings"
	"sync"

	"vinsly/internal/resource"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var (
	markdownOnce sync.Once
	markdown     goldmark.Markdown
)

func markdownParser() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdown
}

// Memory parses a CLAUDE.md style note. The title is the first heading and
// Sections counts the second-level headings.
func Memory(raw resource.Raw) (resource.Resource, error) {
	r, err := base(raw)
	if err != nil {
		return r, err
	}

	title, sections := outline([]byte(raw.Content))
	r.Description = title
	r.Memory = &resource.MemoryInfo{
		Title:    title,
		Sections: sections,
	}
	return r, nil
}

func outline(source []byte) (title string, sections int) {
	doc := markdownParser().Parser().Parse(text.NewReader(source))

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if title == "" {
			title = headingText(h, source)
		}
		if h.Level == 2 {
			sections++
		}
		return ast.WalkSkipChildren, nil
	})
	return title, sections
}

func headingText(h *ast.Heading, source []byte) string {
	var buf bytes.Buffer
	for c := h.FirstChild(); c != nil; c = c.NextSibling() {
		collectText(c, source, &buf)
	}
	return strings.TrimSpace(buf.String())
}

func collectText(n ast.Node, source []byte, buf *bytes.Buffer) {
	switch t := n.(type) {
	case *ast.Text:
		buf.Write(t.Segment.Value(source))
		if t.SoftLineBreak() {
			buf.WriteByte(' ')
		}
		return
	case *ast.String:
		buf.Write(t.Value)
		return
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		collectText(c, source, buf)
	}
}
