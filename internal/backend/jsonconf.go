package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"vinsly/internal/resource"

	"github.com/tidwall/jsonc"
)

const (
	mcpServersKey = "mcpServers"
	hooksKey      = "hooks"

	globalMCPFile  = ".claude.json"
	projectMCPFile = ".mcp.json"
	settingsFile   = "settings.json"
	settingsLocal  = "settings.local.json"
)

// readObject loads a JSON config file. Comments and trailing commas are
// accepted; a missing or blank file is an empty object.
func readObject(p string) (map[string]any, error) {
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", p, err)
	}
	if obj == nil {
		obj = map[string]any{}
	}
	return obj, nil
}

func writeObject(p string, obj map[string]any) error {
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(p, append(data, '\n'))
}

// editObject applies fn to the config at p under the edit lock and writes the
// result back.
func (fs *FS) editObject(p string, fn func(obj map[string]any) error) error {
	fs.jsonMu.Lock()
	defer fs.jsonMu.Unlock()

	obj, err := readObject(p)
	if err != nil {
		return err
	}
	if err := fn(obj); err != nil {
		return err
	}
	return writeObject(p, obj)
}

func childObject(obj map[string]any, key string) map[string]any {
	if m, ok := obj[key].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	obj[key] = m
	return m
}

func (fs *FS) mcpFile(scope resource.Scope, root string) string {
	if scope == resource.ScopeGlobal {
		return filepath.Join(root, globalMCPFile)
	}
	return filepath.Join(root, projectMCPFile)
}

func (fs *FS) listMCP(p string, scope resource.Scope) ([]resource.Raw, error) {
	fs.jsonMu.Lock()
	obj, err := readObject(p)
	fs.jsonMu.Unlock()
	if err != nil {
		return nil, err
	}

	servers, _ := obj[mcpServersKey].(map[string]any)
	var out []resource.Raw
	for _, name := range sortedKeys(servers) {
		fields, ok := servers[name].(map[string]any)
		if !ok {
			fs.logger.Warn("ignoring malformed mcp server entry", "file", p, "name", name)
			continue
		}
		out = append(out, resource.Raw{
			Kind:   resource.KindMCP,
			Scope:  scope,
			Name:   name,
			Source: p,
			Fields: fields,
		})
	}
	return out, nil
}

// target picks the config file a draft writes into: its recorded file when
// that is one of allowed, the default otherwise.
func target(d resource.Draft, def string, allowed ...string) string {
	if d.Target == "" {
		return def
	}
	for _, a := range allowed {
		if filepath.Clean(d.Target) == a {
			return a
		}
	}
	return def
}

func (fs *FS) writeMCP(root string, d resource.Draft) (string, error) {
	if err := resource.ValidateName(d.Name); err != nil {
		return "", err
	}
	var server map[string]any
	if err := json.Unmarshal(jsonc.ToJSON([]byte(d.Content)), &server); err != nil {
		return "", fmt.Errorf("%w: mcp server %s must be a JSON object: %v", resource.ErrInvalidName, d.Name, err)
	}

	def := fs.mcpFile(d.Scope, root)
	p := target(d, def, def)
	err := fs.editObject(p, func(obj map[string]any) error {
		childObject(obj, mcpServersKey)[d.Name] = server
		return nil
	})
	if err != nil {
		return "", err
	}
	return p, nil
}

func (fs *FS) deleteMCP(r resource.Resource) error {
	if err := ensureNamed(r.Source, globalMCPFile, projectMCPFile); err != nil {
		return err
	}
	return fs.editObject(r.Source, func(obj map[string]any) error {
		servers, _ := obj[mcpServersKey].(map[string]any)
		if _, ok := servers[r.Name]; !ok {
			return fmt.Errorf("%w: mcp server %s in %s", ErrNotFound, r.Name, r.Source)
		}
		delete(servers, r.Name)
		return nil
	})
}

func (fs *FS) hookFiles(scope resource.Scope, root string) []string {
	dir := filepath.Join(root, claudeDirName)
	if scope == resource.ScopeGlobal {
		return []string{filepath.Join(dir, settingsFile)}
	}
	return []string{filepath.Join(dir, settingsFile), filepath.Join(dir, settingsLocal)}
}

func groupsOf(v any) []map[string]any {
	list, _ := v.([]any)
	out := make([]map[string]any, 0, len(list))
	for _, g := range list {
		if m, ok := g.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func (fs *FS) listHooks(files []string, scope resource.Scope) ([]resource.Raw, error) {
	var out []resource.Raw
	for _, p := range files {
		fs.jsonMu.Lock()
		obj, err := readObject(p)
		fs.jsonMu.Unlock()
		if err != nil {
			return nil, err
		}

		events, _ := obj[hooksKey].(map[string]any)
		for _, event := range sortedKeys(events) {
			occurrences := make(map[[2]string]int)
			for _, group := range groupsOf(events[event]) {
				matcher, _ := group["matcher"].(string)
				entries, _ := group["hooks"].([]any)
				for _, e := range entries {
					entry, ok := e.(map[string]any)
					if !ok {
						continue
					}
					fields := map[string]any{
						"event":   event,
						"matcher": matcher,
					}
					for k, v := range entry {
						fields[k] = v
					}
					command, _ := entry["command"].(string)
					id := [2]string{matcher, command}
					fields["occurrence"] = occurrences[id]
					occurrences[id]++
					out = append(out, resource.Raw{
						Kind:   resource.KindHook,
						Scope:  scope,
						Name:   event,
						Source: p,
						Fields: fields,
					})
				}
			}
		}
	}
	return out, nil
}

func decodeHook(content string) (resource.Hook, error) {
	var h resource.Hook
	if err := json.Unmarshal(jsonc.ToJSON([]byte(content)), &h); err != nil {
		return h, fmt.Errorf("%w: hook must be a JSON object: %v", resource.ErrInvalidName, err)
	}
	if h.Event == "" || h.Command == "" {
		return h, fmt.Errorf("%w: hook needs an event and a command", resource.ErrInvalidName)
	}
	if h.Type == "" {
		h.Type = "command"
	}
	return h, nil
}

func sameCommand(e any, command string) bool {
	m, ok := e.(map[string]any)
	return ok && m["command"] == command
}

func hookEntry(h resource.Hook) map[string]any {
	entry := map[string]any{
		"type":    h.Type,
		"command": h.Command,
	}
	if h.Timeout > 0 {
		entry["timeout"] = h.Timeout
	}
	return entry
}

func (fs *FS) writeHook(root string, d resource.Draft) (string, error) {
	h, err := decodeHook(d.Content)
	if err != nil {
		return "", err
	}

	files := fs.hookFiles(d.Scope, root)
	p := target(d, files[0], files...)
	err = fs.editObject(p, func(obj map[string]any) error {
		events := childObject(obj, hooksKey)
		groups := groupsOf(events[h.Event])

		var group map[string]any
		seen := 0
		for _, g := range groups {
			if m, _ := g["matcher"].(string); m != h.Matcher {
				continue
			}
			if group == nil {
				group = g
			}
			entries, _ := g["hooks"].([]any)
			for i, e := range entries {
				if !sameCommand(e, h.Command) {
					continue
				}
				if seen == h.Occurrence {
					entries[i] = hookEntry(h)
					events[h.Event] = toAny(groups)
					return nil
				}
				seen++
			}
		}
		if group == nil {
			group = map[string]any{"matcher": h.Matcher, "hooks": []any{}}
			groups = append(groups, group)
		}

		entries, _ := group["hooks"].([]any)
		group["hooks"] = append(entries, hookEntry(h))
		events[h.Event] = toAny(groups)
		return nil
	})
	if err != nil {
		return "", err
	}
	return p, nil
}

func (fs *FS) deleteHook(r resource.Resource) error {
	if err := ensureNamed(r.Source, settingsFile, settingsLocal); err != nil {
		return err
	}
	var h resource.Hook
	if r.Hook != nil {
		h = *r.Hook
	} else {
		decoded, err := decodeHook(r.Content)
		if err != nil {
			return err
		}
		h = decoded
	}

	return fs.editObject(r.Source, func(obj map[string]any) error {
		events, _ := obj[hooksKey].(map[string]any)
		groups := groupsOf(events[h.Event])

		found := false
		seen := 0
		kept := groups[:0]
		for _, g := range groups {
			if m, _ := g["matcher"].(string); m == h.Matcher {
				entries, _ := g["hooks"].([]any)
				remaining := entries[:0]
				for _, e := range entries {
					if !found && sameCommand(e, h.Command) {
						if seen == h.Occurrence {
							found = true
							continue
						}
						seen++
					}
					remaining = append(remaining, e)
				}
				if len(remaining) == 0 {
					continue
				}
				g["hooks"] = remaining
			}
			kept = append(kept, g)
		}
		if !found {
			return fmt.Errorf("%w: hook %s in %s", ErrNotFound, r.Name, r.Source)
		}

		if len(kept) == 0 {
			delete(events, h.Event)
		} else {
			events[h.Event] = toAny(kept)
		}
		if len(events) == 0 {
			delete(obj, hooksKey)
		}
		return nil
	})
}

func toAny(groups []map[string]any) []any {
	out := make([]any, len(groups))
	for i, g := range groups {
		out[i] = g
	}
	return out
}
