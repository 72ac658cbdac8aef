package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"vinsly/internal/resource"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
)

const macMetadataDir = "__MACOSX"

// addTree writes every entry under src into w, rooted at prefix.
func addTree(w *zip.Writer, src, prefix string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		name := prefix
		if rel != "." {
			name = path.Join(prefix, filepath.ToSlash(rel))
		}

		if d.IsDir() {
			_, err := w.CreateHeader(&zip.FileHeader{Name: name + "/", Method: zip.Store})
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()

		out, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return err
		}
		_, err = io.Copy(out, f)
		return err
	})
}

func zipDirs(dest string, dirs []string) (err error) {
	if parent := filepath.Dir(dest); parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("failed to prepare destination: %w", err)
		}
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := zip.NewWriter(f)
	for _, dir := range dirs {
		if err := addTree(w, dir, filepath.Base(dir)); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", dir, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalise archive: %w", err)
	}
	return nil
}

// ExportSkill zips one skill directory into dest with the skill folder as
// the archive root.
func (fs *FS) ExportSkill(ctx context.Context, dir, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ensureInClaudeSubdir(dir, "skills"); err != nil {
		return err
	}
	return zipDirs(dest, []string{filepath.Clean(dir)})
}

// ExportSkills bundles several skill directories into one archive. Missing
// directories are skipped.
func (fs *FS) ExportSkills(ctx context.Context, dirs []string, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(dirs) == 0 {
		return fmt.Errorf("%w: no skill directories provided", ErrArchiveLayout)
	}

	var existing []string
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		if err := ensureInClaudeSubdir(dir, "skills"); err != nil {
			return err
		}
		existing = append(existing, filepath.Clean(dir))
	}
	return zipDirs(dest, existing)
}

// ImportSkill unpacks an archive holding one skill folder into the skills
// directory of scope. A folder that already exists gets a numeric suffix.
// It returns the new skill directory.
func (fs *FS) ImportSkill(ctx context.Context, archive string, scope resource.Scope, projectPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := os.Stat(archive); err != nil {
		return "", fmt.Errorf("%w: archive %s", ErrNotFound, archive)
	}
	root, err := fs.root(scope, projectPath)
	if err != nil {
		return "", err
	}
	base, err := prepareDir(root, "skills")
	if err != nil {
		return "", err
	}
	return extract(archive, base, "")
}

// archiveRoot returns the single top-level folder of r.
func archiveRoot(r *zip.Reader) (string, error) {
	var root string
	for _, f := range r.File {
		name := strings.TrimSuffix(f.Name, "/")
		if !filepath.IsLocal(name) || strings.Contains(f.Name, `\`) {
			return "", fmt.Errorf("%w: unsafe path %q", ErrArchiveLayout, f.Name)
		}
		first, _, _ := strings.Cut(name, "/")
		if strings.HasPrefix(first, macMetadataDir) {
			continue
		}
		switch {
		case root == "":
			root = first
		case root != first:
			return "", fmt.Errorf("%w: archive must contain a single root folder", ErrArchiveLayout)
		}
	}
	if root == "" {
		return "", fmt.Errorf("%w: archive missing skill folder", ErrArchiveLayout)
	}
	return root, nil
}

func nextAvailable(base, desired string) string {
	candidate := filepath.Join(base, desired)
	for n := 1; ; n++ {
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate
		}
		candidate = filepath.Join(base, desired+"-"+strconv.Itoa(n))
	}
}

// extract unpacks archive below base. An empty name picks the first free
// folder name derived from the archive root; otherwise the folder is name and
// must not exist yet.
func extract(archive, base, name string) (string, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read archive: %v", ErrArchiveLayout, err)
	}
	defer zr.Close()

	root, err := archiveRoot(&zr.Reader)
	if err != nil {
		return "", err
	}

	var target string
	if name == "" {
		target = nextAvailable(base, root)
	} else {
		target = filepath.Join(base, name)
		if _, err := os.Lstat(target); err == nil {
			return "", fmt.Errorf("%w: %s already exists", ErrArchiveLayout, target)
		}
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("failed to create skill directory: %w", err)
	}

	if err := unpack(zr.File, root, target); err != nil {
		_ = os.RemoveAll(target)
		return "", err
	}
	if _, err := os.Stat(filepath.Join(target, skillManifest)); err != nil {
		_ = os.RemoveAll(target)
		return "", fmt.Errorf("%w: imported archive did not contain %s", ErrArchiveLayout, skillManifest)
	}
	return target, nil
}

func unpack(files []*zip.File, root, target string) error {
	for _, f := range files {
		name := strings.TrimSuffix(f.Name, "/")
		first, rest, _ := strings.Cut(name, "/")
		if first != root {
			continue
		}
		out := target
		if rest != "" {
			out = filepath.Join(target, filepath.FromSlash(rest))
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(out, 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}
		if err := unpackFile(f, out); err != nil {
			return err
		}
	}
	return nil
}

func unpackFile(f *zip.File, out string) (err error) {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	defer rc.Close()

	w, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(w, rc); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	return nil
}

// Snapshot archives a skill directory so a later Restore can bring it back
// after deletion. Other kinds need no snapshot and return "".
func (fs *FS) Snapshot(ctx context.Context, r resource.Resource) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.Kind != resource.KindSkill {
		return "", nil
	}
	dir := skillDir(r)
	if err := ensureInClaudeSubdir(dir, "skills"); err != nil {
		return "", err
	}
	dest := filepath.Join(os.TempDir(), "vinsly-snapshot-"+uuid.NewString()+".zip")
	if err := zipDirs(dest, []string{filepath.Clean(dir)}); err != nil {
		_ = os.Remove(dest)
		return "", err
	}
	fs.logger.Debug("snapshot taken", "skill", r.Name, "archive", dest)
	return dest, nil
}

// Restore recreates the skill directory of r from a snapshot.
func (fs *FS) Restore(ctx context.Context, snapshot string, r resource.Resource) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := skillDir(r)
	base := filepath.Dir(dir)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return fmt.Errorf("failed to prepare skills directory: %w", err)
	}
	if err := ensureInClaudeSubdir(base, "skills"); err != nil {
		return err
	}
	_, err := extract(snapshot, base, filepath.Base(dir))
	return err
}

func (fs *FS) Discard(snapshot string) error {
	if snapshot == "" {
		return nil
	}
	if err := os.Remove(snapshot); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
