package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestBase(t *testing.T) {
	assert.Equal(t, "src/styles", Base("./src/styles/**/*.scss"))
	assert.Equal(t, ".", Base("**/*.html"))
	assert.Equal(t, "src/images", Base("src/images/**/*.{jpg,png}"))
}

func TestGlobMirrorsStructure(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/styles/style.scss":          "",
		"src/styles/object/_button.scss": "",
		"src/styles/readme.md":           "",
	})

	matches, err := Glob(root, "./src/styles/**/*.scss")
	require.NoError(t, err)

	assert.Equal(t, []Match{
		{Path: "src/styles/object/_button.scss", Rel: "object/_button.scss"},
		{Path: "src/styles/style.scss", Rel: "style.scss"},
	}, matches)
}

func TestGlobAllExcludes(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/scripts/main.js":              "",
		"src/scripts/config.js":            "",
		"src/scripts/modal.js":             "",
		"src/styles/style.scss":            "",
		"src/styles/foundation/_base.scss": "",
		"src/styles/object/_card.scss":     "",
	})

	matches, err := GlobAll(root,
		[]string{"src/styles/**/*.scss", "src/scripts/**/*.js"},
		[]string{"src/scripts/main.js", "src/scripts/config.js", "src/styles/foundation/*.scss", "src/styles/style.scss"},
	)
	require.NoError(t, err)

	var paths []string
	for _, m := range matches {
		paths = append(paths, m.Path)
	}
	assert.Equal(t, []string{"src/scripts/modal.js", "src/styles/object/_card.scss"}, paths)
}

func TestGlobBraces(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/images/a.png":       "",
		"src/images/icons/b.svg": "",
		"src/images/c.txt":       "",
	})

	matches, err := Glob(root, "src/images/**/*.{jpg,jpeg,png,svg,gif}")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "icons/b.svg", matches[1].Rel)
}

func TestGlobInvalidPattern(t *testing.T) {
	_, err := Glob(t.TempDir(), "src/[")
	assert.Error(t, err)
}

func TestMatchPath(t *testing.T) {
	assert.True(t, MatchPath("./src/styles/**/*.scss", "src/styles/a/b.scss"))
	assert.True(t, MatchPath("**/*.html", "index.html"))
	assert.False(t, MatchPath("src/scripts/**/*.js", "src/styles/a.scss"))
}

func TestWriteFileAtomic(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "nested", "out.css")

	require.NoError(t, WriteFile(dst, []byte("a{}")))
	require.NoError(t, WriteFile(dst, []byte("b{}")))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "b{}", string(data))

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	dst := filepath.Join(dir, "a", "b", "out.txt")
	require.NoError(t, CopyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	assert.Error(t, CopyFile(filepath.Join(dir, "missing"), dst))
}

func TestComponentPath(t *testing.T) {
	testCases := map[string]string{
		"src/styles/object/component/_button.scss": "components/button/style.scss",
		"src/scripts/modal.js":                     "components/modal/style.js",
		"src/styles/_side_nav.scss":                "components/side_nav/style.scss",
	}
	for src, expected := range testCases {
		assert.Equal(t, expected, ComponentPath(src), src)
	}
}

func TestReplaceExt(t *testing.T) {
	assert.Equal(t, "object/button.css", ReplaceExt("object/button.scss", ".css"))
}
