package styleguide

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/assetforge/internal/config"
	builderrors "github.com/conneroisu/assetforge/internal/errors"
)

func writeTree(t *testing.T, root string, tree map[string]string) {
	t.Helper()
	for name, content := range tree {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func project(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/styleguide/components/button/style.scss":        ".button { color: red; }\n",
		"src/styleguide/components/button/button.html":       `<button class="button">Click</button>`,
		"src/styleguide/components/button/button.config.yml": "title: Primary button\nstatus: ready\nnotes: Use for the main call to action.\n",
		"src/styleguide/components/card/style.scss":          ".card { padding: 1em; }\n",
		"src/styleguide/components/card/README.md":           "Cards group **related** content.\n",
		"src/styleguide/docs/01-introduction.md":             "# Welcome\n\nThis is the <em>style guide</em>.\n",
		"src/styleguide/docs/02-colors.md":                   "Brand colors.\n",
	})

	cfg, err := config.Default(root)
	require.NoError(t, err)
	return cfg
}

func TestScan(t *testing.T) {
	cfg := project(t)

	lib, err := Scan("Style guide", cfg.Path(cfg.Styleguide.Components), cfg.Path(cfg.Styleguide.Docs))
	require.NoError(t, err)

	require.Len(t, lib.Components, 2)
	button := lib.Components[0]
	assert.Equal(t, "button", button.Handle)
	assert.Equal(t, "Primary button", button.Title)
	assert.Equal(t, "ready", button.Status)
	assert.Contains(t, button.Preview, "<button")
	require.Len(t, button.Sources, 1)
	assert.Equal(t, "style.scss", button.Sources[0].Name)

	card := lib.Components[1]
	assert.Equal(t, "Card", card.Title)
	assert.Contains(t, card.Readme, "<strong>related</strong>")

	require.Len(t, lib.Docs, 2)
	assert.Equal(t, "introduction", lib.Docs[0].Slug)
	assert.Equal(t, "Welcome", lib.Docs[0].Title)
	assert.Equal(t, "colors", lib.Docs[1].Slug)
	assert.Equal(t, "Colors", lib.Docs[1].Title)
}

func TestScanMissingDirectories(t *testing.T) {
	lib, err := Scan("Empty", filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, lib.Components)
	assert.Empty(t, lib.Docs)
}

func TestHandleAndTitle(t *testing.T) {
	assert.Equal(t, "object-button", handle("object/button"))
	assert.Equal(t, "media-object", handle("Media_Object"))
	assert.Equal(t, "Media Object", titleFromName("media-object"))
	assert.Equal(t, "Button", titleFromName("_button"))
}

func TestBuildWritesSite(t *testing.T) {
	cfg := project(t)
	b := NewBuilder(cfg, nil)

	var progress [][2]int
	b.OnProgress(func(completed, total int) { progress = append(progress, [2]int{completed, total}) })

	written, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"index.html",
		"components/detail/button.html",
		"components/detail/card.html",
		"docs/introduction.html",
		"docs/colors.html",
		"assets/styleguide.css",
	}, written)
	assert.Equal(t, [][2]int{{1, 5}, {2, 5}, {3, 5}, {4, 5}, {5, 5}}, progress)

	dest := cfg.Path(cfg.Styleguide.Dest)
	index, err := os.ReadFile(filepath.Join(dest, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), `href="components/detail/button.html"`)
	assert.Contains(t, string(index), "Primary button")

	detail, err := os.ReadFile(filepath.Join(dest, "components", "detail", "button.html"))
	require.NoError(t, err)
	html := string(detail)
	assert.Contains(t, html, `<button class="button">Click</button>`, "preview is raw html")
	assert.Contains(t, html, ".button { color: red; }")
	assert.Contains(t, html, `href="../../assets/styleguide.css"`)

	doc, err := os.ReadFile(filepath.Join(dest, "docs", "introduction.html"))
	require.NoError(t, err)
	assert.Contains(t, string(doc), "<h1>Welcome</h1>")
}

func TestBuildEscapesSources(t *testing.T) {
	cfg := project(t)
	writeTree(t, cfg.Root, map[string]string{
		"src/styleguide/components/alert/style.js": "if (a < b && c > d) { alert('x'); }\n",
	})

	_, err := NewBuilder(cfg, nil).Build(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(cfg.Path(cfg.Styleguide.Dest), "components", "detail", "alert.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "a &lt; b &amp;&amp; c &gt; d")
}

func TestBuildIsDeterministicAndReplacesDestination(t *testing.T) {
	cfg := project(t)
	dest := cfg.Path(cfg.Styleguide.Dest)

	_, err := NewBuilder(cfg, nil).Build(context.Background())
	require.NoError(t, err)
	first := snapshot(t, dest)

	require.NoError(t, os.WriteFile(filepath.Join(dest, "stale.html"), []byte("old"), 0o644))

	_, err = NewBuilder(cfg, nil).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, snapshot(t, dest))
}

func TestBuildReportsInvalidComponentConfig(t *testing.T) {
	cfg := project(t)
	writeTree(t, cfg.Root, map[string]string{
		"src/styleguide/components/card/card.config.yml": "title: [unclosed\n",
	})

	b := NewBuilder(cfg, nil)
	var reported []error
	b.OnError(func(err error) { reported = append(reported, err) })

	_, err := b.Build(context.Background())
	require.Error(t, err)
	assert.True(t, builderrors.IsRenderError(err))
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], err)
}

func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, p)
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	assert.False(t, strings.Contains(strings.Join(keys(out), ","), "stale"))
	return out
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, c.Render(context.Background(), &b))
	return b.String()
}

func TestNavigationLinksFromNestedPage(t *testing.T) {
	lib := &Library{
		Title:      "Kit",
		Components: []*Component{{Handle: "button", Title: "Button"}},
		Docs:       []*Doc{{Slug: "intro", Title: "Intro <draft>"}},
	}

	html := render(t, navigation(lib, relRoot("components/detail/button.html")))

	assert.Contains(t, html, `<nav class="sg-nav">`)
	assert.Contains(t, html, `<a href="../../docs/intro.html">Intro &lt;draft&gt;</a>`)
	assert.Contains(t, html, `<a href="../../components/detail/button.html">Button</a>`)
	assert.Less(t, strings.Index(html, "Documentation"), strings.Index(html, "Components"))
}

func TestNavigationWithoutDocs(t *testing.T) {
	html := render(t, navigation(&Library{}, ""))
	assert.NotContains(t, html, "Documentation")
	assert.Contains(t, html, "<h2>Components</h2>")
}

func TestStatusBadge(t *testing.T) {
	assert.Empty(t, render(t, statusBadge("")))
	assert.Equal(t, ` <span class="sg-status sg-status-work-in-progress">Work in progress</span>`,
		render(t, statusBadge("Work in progress")))
}

func TestLayoutWrapsChildren(t *testing.T) {
	lib := &Library{Title: "Kit & Co"}
	html := render(t, withLayout(lib, "docs/a.html", "A", text("body text")))

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<title>A | Kit &amp; Co</title>")
	assert.Contains(t, html, `href="../assets/styleguide.css"`)
	assert.Contains(t, html, "<main class=\"sg-main\">body text</main>")
	assert.Equal(t, 1, strings.Count(html, "body text"), "children render once")
}
