package backend

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"vinsly/internal/resource"
)

const (
	skillManifest = "SKILL.md"
	memoryFile    = "CLAUDE.md"
	memoryLocal   = "CLAUDE.local.md"
)

func readDir(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	return entries, nil
}

func listAgents(dir string, scope resource.Scope) ([]resource.Raw, error) {
	entries, err := readDir(dir)
	if err != nil {
		return nil, err
	}

	var out []resource.Raw
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		p := filepath.Join(dir, e.Name())
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		out = append(out, resource.Raw{
			Kind:    resource.KindAgent,
			Scope:   scope,
			Name:    strings.TrimSuffix(e.Name(), ".md"),
			Path:    p,
			Content: string(content),
		})
	}
	return out, nil
}

func listSkills(dir string, scope resource.Scope) ([]resource.Raw, error) {
	entries, err := readDir(dir)
	if err != nil {
		return nil, err
	}

	var out []resource.Raw
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		raw, ok, err := skillFromDir(filepath.Join(dir, e.Name()), scope)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, raw)
		}
	}
	return out, nil
}

func skillFromDir(dir string, scope resource.Scope) (resource.Raw, bool, error) {
	manifest := filepath.Join(dir, skillManifest)
	content, err := os.ReadFile(manifest)
	if os.IsNotExist(err) {
		return resource.Raw{}, false, nil
	}
	if err != nil {
		return resource.Raw{}, false, fmt.Errorf("failed to read skill file: %w", err)
	}
	return resource.Raw{
		Kind:      resource.KindSkill,
		Scope:     scope,
		Name:      filepath.Base(dir),
		Path:      manifest,
		Directory: dir,
		Content:   string(content),
		HasAssets: hasAssets(dir),
	}, true, nil
}

// hasAssets reports whether a skill directory holds anything besides its
// manifest.
func hasAssets(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() || e.Name() != skillManifest {
			return true
		}
	}
	return false
}

func listCommands(dir string, scope resource.Scope) ([]resource.Raw, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var out []resource.Raw
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(p) != ".md" {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		out = append(out, resource.Raw{
			Kind:    resource.KindCommand,
			Scope:   scope,
			Name:    commandName(rel),
			Path:    p,
			Content: string(content),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk commands: %w", err)
	}
	return out, nil
}

// commandName maps a path relative to the commands directory to its
// namespaced name: "git/commit.md" is "git:commit".
func commandName(rel string) string {
	rel = strings.TrimSuffix(filepath.ToSlash(rel), ".md")
	return strings.ReplaceAll(rel, "/", ":")
}

func commandPath(dir, name string) (string, error) {
	segments := strings.Split(name, ":")
	for _, s := range segments {
		if err := resource.ValidateName(s); err != nil {
			return "", err
		}
	}
	segments[len(segments)-1] += ".md"
	return filepath.Join(append([]string{dir}, segments...)...), nil
}

func (fs *FS) memoryNames(scope resource.Scope) []string {
	if scope == resource.ScopeGlobal {
		return []string{claudeDirName + "/" + memoryFile}
	}
	return []string{memoryFile, memoryLocal, claudeDirName + "/" + memoryFile}
}

func listMemory(root string, scope resource.Scope, names []string) ([]resource.Raw, error) {
	var out []resource.Raw
	for _, name := range names {
		p := filepath.Join(root, filepath.FromSlash(name))
		content, err := os.ReadFile(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read memory file: %w", err)
		}
		out = append(out, resource.Raw{
			Kind:    resource.KindMemory,
			Scope:   scope,
			Name:    name,
			Path:    p,
			Content: string(content),
		})
	}
	return out, nil
}

func prepareDir(root, subdir string) (string, error) {
	dir := filepath.Join(root, claudeDirName, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := ensureInClaudeSubdir(dir, subdir); err != nil {
		return "", err
	}
	return dir, nil
}

func writeAgent(root string, d resource.Draft) (string, error) {
	if err := resource.ValidateName(d.Name); err != nil {
		return "", err
	}
	dir, err := prepareDir(root, "agents")
	if err != nil {
		return "", err
	}
	p := filepath.Join(dir, d.Name+".md")
	if err := writeFileAtomic(p, []byte(d.Content)); err != nil {
		return "", err
	}
	return p, nil
}

func writeSkill(root string, d resource.Draft) (string, error) {
	if err := resource.ValidateName(d.Name); err != nil {
		return "", err
	}
	dir, err := prepareDir(root, "skills")
	if err != nil {
		return "", err
	}
	p := filepath.Join(dir, d.Name, skillManifest)
	if err := writeFileAtomic(p, []byte(d.Content)); err != nil {
		return "", err
	}
	return p, nil
}

func writeCommand(root string, d resource.Draft) (string, error) {
	dir, err := prepareDir(root, "commands")
	if err != nil {
		return "", err
	}
	p, err := commandPath(dir, d.Name)
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(p, []byte(d.Content)); err != nil {
		return "", err
	}
	return p, nil
}

func (fs *FS) writeMemory(root string, d resource.Draft) (string, error) {
	names := fs.memoryNames(d.Scope)
	if !slices.Contains(names, d.Name) {
		return "", fmt.Errorf("%w: memory file must be one of %s", resource.ErrInvalidName, strings.Join(names, ", "))
	}
	p := filepath.Join(root, filepath.FromSlash(d.Name))
	if err := writeFileAtomic(p, []byte(d.Content)); err != nil {
		return "", err
	}
	return p, nil
}

func deleteFile(p, subdir string) error {
	if err := ensureInClaudeSubdir(p, subdir); err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("failed to delete %s: %w", p, err)
	}
	return nil
}

func skillDir(r resource.Resource) string {
	if r.Skill != nil && r.Skill.Directory != "" {
		return r.Skill.Directory
	}
	if filepath.Base(r.Path) == skillManifest {
		return filepath.Dir(r.Path)
	}
	return r.Path
}

func deleteSkill(r resource.Resource) error {
	dir := skillDir(r)
	if err := ensureInClaudeSubdir(dir, "skills"); err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete skill folder: %w", err)
	}
	return nil
}

func deleteMemory(p string) error {
	if err := ensureNamed(p, memoryFile, memoryLocal); err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("failed to delete %s: %w", p, err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
