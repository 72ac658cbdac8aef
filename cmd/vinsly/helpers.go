package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"vinsly/internal/config"
	"vinsly/internal/resource"
	"vinsly/internal/workspace"
)

type AmbiguousMatchError struct {
	Query   string
	Matches []resource.Resource
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("multiple resources match %q", e.Query)
}

func (e *AmbiguousMatchError) WriteMatches(w io.Writer) {
	fmt.Fprintln(w, "Multiple resources match. Please be more specific:")
	for _, r := range e.Matches {
		fmt.Fprintf(w, "  - %s [%s, %s] (%s)\n", r.Name, r.Kind, r.Scope, config.ShortenPath(r.Locator()))
	}
}

func handleFindError(w io.Writer, err error) bool {
	var ambErr *AmbiguousMatchError
	if errors.As(err, &ambErr) {
		ambErr.WriteMatches(w)
		return true
	}
	return false
}

func parseKinds(names []string) ([]resource.Kind, error) {
	kinds := make([]resource.Kind, 0, len(names))
	for _, n := range names {
		k := resource.Kind(strings.ToLower(strings.TrimSpace(n)))
		if !knownKind(k) {
			return nil, fmt.Errorf("unknown kind %q", n)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func knownKind(k resource.Kind) bool {
	for _, spec := range workspace.Specs() {
		if slices.Contains(spec.Kinds, k) {
			return true
		}
	}
	return false
}

// searchResources matches query against identity keys, then names exactly,
// then name substrings, all case-insensitive.
func searchResources(items []resource.Resource, query string) []resource.Resource {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	for _, r := range items {
		if strings.ToLower(r.Key) == q {
			return []resource.Resource{r}
		}
	}

	var exact, partial []resource.Resource
	for _, r := range items {
		name := strings.ToLower(r.Name)
		switch {
		case name == q:
			exact = append(exact, r)
		case strings.Contains(name, q):
			partial = append(partial, r)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return partial
}

func findResource(ws *workspace.Workspace, query string, kinds ...resource.Kind) (resource.Resource, error) {
	ws.Hydrate()
	matches := searchResources(ws.Items(kinds...), query)
	if len(matches) == 0 {
		return resource.Resource{}, fmt.Errorf("no resource found matching: %s", query)
	}
	if len(matches) > 1 {
		return resource.Resource{}, &AmbiguousMatchError{Query: query, Matches: matches}
	}
	return matches[0], nil
}

func splitCommand(s string) []string {
	var result []string
	var current strings.Builder
	var inQuote rune

	for _, r := range s {
		if inQuote != 0 {
			if r == inQuote {
				inQuote = 0
			} else {
				current.WriteRune(r)
			}
			continue
		}
		switch r {
		case '"', '\'':
			inQuote = r
		case ' ', '\t':
			if current.Len() > 0 {
				result = append(result, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// expandPaths resolves each path to an absolute one.
func expandPaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := config.ExpandPath(p)
		if err != nil {
			return nil, fmt.Errorf("invalid path %q: %w", p, err)
		}
		out = append(out, abs)
	}
	return out, nil
}
