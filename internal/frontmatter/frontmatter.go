// Package frontmatter splits and decodes the YAML header of markdown files.
package frontmatter

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const fence = "---"

// Split separates a leading "---" fenced block from the body. ok is false when
// the content has no complete header, in which case body is the whole input.
func Split(raw string) (front, body string, ok bool) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	if !strings.HasPrefix(raw, fence+"\n") {
		return "", raw, false
	}

	lines := strings.Split(raw, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == fence {
			end = i
			break
		}
	}
	if end < 0 {
		return "", raw, false
	}

	front = strings.Join(lines[1:end], "\n")
	if end+1 < len(lines) {
		body = strings.Join(lines[end+1:], "\n")
	}
	return front, strings.TrimLeft(body, "\n"), true
}

// Decode unmarshals the header of raw into v and returns the body. Content
// without a header leaves v untouched.
func Decode(raw string, v any) (string, error) {
	front, body, ok := Split(raw)
	if !ok {
		return body, nil
	}
	if err := yaml.Unmarshal([]byte(front), v); err != nil {
		return body, fmt.Errorf("invalid frontmatter: %w", err)
	}
	return body, nil
}

// Compose renders v as a header followed by body.
func Compose(v any, body string) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(fence + "\n")
	b.Write(data)
	b.WriteString(fence + "\n")
	if body != "" {
		b.WriteString("\n")
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// List accepts either a YAML sequence or a comma separated string, which is
// how tool lists appear in agent headers.
type List []string

func (l *List) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := n.Decode(&items); err != nil {
			return err
		}
		*l = trimAll(items)
	case yaml.ScalarNode:
		var s string
		if err := n.Decode(&s); err != nil {
			return err
		}
		*l = trimAll(strings.Split(s, ","))
	default:
		return fmt.Errorf("line %d: expected list or string", n.Line)
	}
	return nil
}

func trimAll(items []string) List {
	out := make(List, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
