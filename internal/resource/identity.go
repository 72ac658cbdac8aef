package resource

import (
	"encoding/hex"
	"path"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
)

const configMarker = "/.claude"

// IdentityKey is scope + ":" + the first of path, id, name that is set.
// A path change therefore yields a new identity.
func IdentityKey(r Resource) string {
	anchor := r.Path
	if anchor == "" {
		anchor = r.ID
	}
	if anchor == "" {
		anchor = r.Name
	}
	return string(r.Scope) + ":" + anchor
}

// NormalizeRoot returns p cleaned, with forward slashes and no trailing
// slash. Empty input stays empty.
func NormalizeRoot(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean(strings.ReplaceAll(p, `\`, "/"))
}

// ProjectRoot strips a resource locator back to the directory that owns its
// configuration: everything from the last "/.claude" component on, or the
// file name for locators that sit directly in the project (".mcp.json",
// "CLAUDE.md").
func ProjectRoot(locator string) string {
	p := NormalizeRoot(locator)
	if i := strings.LastIndex(p, configMarker+"/"); i >= 0 {
		return NormalizeRoot(p[:i])
	}
	if strings.HasSuffix(p, configMarker) {
		return NormalizeRoot(strings.TrimSuffix(p, configMarker))
	}
	return NormalizeRoot(path.Dir(p))
}

// HookID names a hook entry inside its settings file. The command is hashed
// so long shell lines still give a short, stable id. Repeated identical
// entries are told apart by their occurrence.
func HookID(event, matcher, command string, occurrence int) string {
	sum := blake3.Sum256([]byte(command))
	m := matcher
	if m == "" {
		m = "*"
	}
	id := event + "/" + m + "/" + hex.EncodeToString(sum[:6])
	if occurrence > 0 {
		id += "/" + strconv.Itoa(occurrence)
	}
	return id
}
