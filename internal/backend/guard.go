package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ensureInClaudeSubdir resolves p and requires a ".claude/<subdir>" pair among
// its components. p must exist.
func ensureInClaudeSubdir(p, subdir string) error {
	resolved, err := resolve(p)
	if err != nil {
		return err
	}

	sawClaude := false
	for _, part := range strings.Split(filepath.ToSlash(resolved), "/") {
		if part == "" {
			sawClaude = false
			continue
		}
		if sawClaude && part == subdir {
			return nil
		}
		sawClaude = part == claudeDirName
	}
	return fmt.Errorf("%w/%s: %s", ErrOutsideClaudeDir, subdir, p)
}

// ensureNamed requires the resolved base name of p to be one of names.
func ensureNamed(p string, names ...string) error {
	resolved, err := resolve(p)
	if err != nil {
		return err
	}
	if !slices.Contains(names, filepath.Base(resolved)) {
		return fmt.Errorf("%w: %s is not one of %s", ErrOutsideClaudeDir, p, strings.Join(names, ", "))
	}
	return nil
}

func resolve(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrNotFound)
	}
	resolved, err := filepath.EvalSymlinks(p)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	return filepath.Abs(resolved)
}

// writeFileAtomic writes data next to p and renames it into place.
func writeFileAtomic(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	return nil
}
