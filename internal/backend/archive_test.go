package backend_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"vinsly/internal/backend"
	"vinsly/internal/resource"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSkill(t *testing.T, root, name string) string {
	t.Helper()
	dir := filepath.Join(root, ".claude", "skills", name)
	writeFile(t, filepath.Join(dir, "SKILL.md"), "---\nname: "+name+"\n---\n")
	writeFile(t, filepath.Join(dir, "scripts", "run.sh"), "echo run")
	return dir
}

func makeZip(t *testing.T, files map[string]string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "in.zip")
	f, err := os.Create(p)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, content := range files {
		out, err := w.Create(name)
		require.NoError(t, err)
		_, err = out.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return p
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip into another scope", func(t *testing.T) {
		fs, home, project := setup(t)
		dir := makeSkill(t, home, "pdf")
		archive := filepath.Join(t.TempDir(), "out", "pdf.zip")

		require.NoError(t, fs.ExportSkill(ctx, dir, archive))
		got, err := fs.ImportSkill(ctx, archive, resource.ScopeProject, project)

		require.NoError(t, err)
		assert.Equal(t, filepath.Join(project, ".claude", "skills", "pdf"), got)
		assert.FileExists(t, filepath.Join(got, "SKILL.md"))
		data, err := os.ReadFile(filepath.Join(got, "scripts", "run.sh"))
		require.NoError(t, err)
		assert.Equal(t, "echo run", string(data))
	})

	t.Run("existing folder gets a numeric suffix", func(t *testing.T) {
		fs, home, _ := setup(t)
		dir := makeSkill(t, home, "pdf")
		archive := filepath.Join(t.TempDir(), "pdf.zip")
		require.NoError(t, fs.ExportSkill(ctx, dir, archive))

		first, err := fs.ImportSkill(ctx, archive, resource.ScopeGlobal, "")
		require.NoError(t, err)
		second, err := fs.ImportSkill(ctx, archive, resource.ScopeGlobal, "")
		require.NoError(t, err)

		assert.Equal(t, "pdf-1", filepath.Base(first))
		assert.Equal(t, "pdf-2", filepath.Base(second))
	})

	t.Run("macOS metadata is ignored", func(t *testing.T) {
		fs, _, project := setup(t)
		archive := makeZip(t, map[string]string{
			"tool/SKILL.md":            "x",
			"__MACOSX/tool/._SKILL.md": "junk",
		})

		got, err := fs.ImportSkill(ctx, archive, resource.ScopeProject, project)

		require.NoError(t, err)
		assert.Equal(t, "tool", filepath.Base(got))
	})

	t.Run("several root folders are rejected", func(t *testing.T) {
		fs, _, project := setup(t)
		archive := makeZip(t, map[string]string{"a/SKILL.md": "x", "b/SKILL.md": "y"})

		_, err := fs.ImportSkill(ctx, archive, resource.ScopeProject, project)

		assert.ErrorIs(t, err, backend.ErrArchiveLayout)
	})

	t.Run("unsafe paths are rejected", func(t *testing.T) {
		fs, _, project := setup(t)
		archive := makeZip(t, map[string]string{"../escape/SKILL.md": "x"})

		_, err := fs.ImportSkill(ctx, archive, resource.ScopeProject, project)

		assert.ErrorIs(t, err, backend.ErrArchiveLayout)
	})

	t.Run("archive without manifest leaves nothing behind", func(t *testing.T) {
		fs, _, project := setup(t)
		archive := makeZip(t, map[string]string{"tool/readme.txt": "x"})

		_, err := fs.ImportSkill(ctx, archive, resource.ScopeProject, project)

		assert.ErrorIs(t, err, backend.ErrArchiveLayout)
		assert.NoDirExists(t, filepath.Join(project, ".claude", "skills", "tool"))
	})

	t.Run("export refuses directories outside .claude/skills", func(t *testing.T) {
		fs, home, _ := setup(t)
		dir := filepath.Join(home, "elsewhere")
		require.NoError(t, os.MkdirAll(dir, 0o755))

		err := fs.ExportSkill(ctx, dir, filepath.Join(t.TempDir(), "x.zip"))

		assert.ErrorIs(t, err, backend.ErrOutsideClaudeDir)
	})

	t.Run("bundle of several skills", func(t *testing.T) {
		fs, home, _ := setup(t)
		a := makeSkill(t, home, "a")
		b := makeSkill(t, home, "b")
		archive := filepath.Join(t.TempDir(), "all.zip")

		require.NoError(t, fs.ExportSkills(ctx, []string{a, b, filepath.Join(home, ".claude", "skills", "gone")}, archive))

		zr, err := zip.OpenReader(archive)
		require.NoError(t, err)
		defer zr.Close()
		var files []string
		for _, f := range zr.File {
			if !f.FileInfo().IsDir() {
				files = append(files, f.Name)
			}
		}
		assert.ElementsMatch(t, []string{"a/SKILL.md", "a/scripts/run.sh", "b/SKILL.md", "b/scripts/run.sh"}, files)

		assert.ErrorIs(t, fs.ExportSkills(ctx, nil, archive), backend.ErrArchiveLayout)
	})
}

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	fs, home, _ := setup(t)
	dir := makeSkill(t, home, "pdf")
	r := resource.Resource{
		Kind:  resource.KindSkill,
		Scope: resource.ScopeGlobal,
		Name:  "pdf",
		Path:  filepath.Join(dir, "SKILL.md"),
		Skill: &resource.SkillInfo{Directory: dir, HasAssets: true},
	}

	snap, err := fs.Snapshot(ctx, r)
	require.NoError(t, err)
	require.FileExists(t, snap)

	require.NoError(t, fs.Delete(ctx, r))
	require.NoDirExists(t, dir)

	require.NoError(t, fs.Restore(ctx, snap, r))
	assert.FileExists(t, filepath.Join(dir, "scripts", "run.sh"))

	assert.ErrorIs(t, fs.Restore(ctx, snap, r), backend.ErrArchiveLayout)

	require.NoError(t, fs.Discard(snap))
	assert.NoFileExists(t, snap)
	require.NoError(t, fs.Discard(snap))

	none, err := fs.Snapshot(ctx, resource.Resource{Kind: resource.KindAgent})
	require.NoError(t, err)
	assert.Empty(t, none)
}
