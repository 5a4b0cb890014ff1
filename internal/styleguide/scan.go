// Package styleguide renders the component library and documentation
// pages into a static style-guide site.
package styleguide

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	builderrors "github.com/conneroisu/assetforge/internal/errors"
)

// Library is everything the style guide shows.
type Library struct {
	Title      string
	Components []*Component
	Docs       []*Doc
}

// Component is one directory under the components root.
type Component struct {
	// Handle is unique and URL safe, e.g. "object-button".
	Handle  string
	Title   string
	Status  string
	Notes   string
	Preview string
	// Readme is rendered HTML.
	Readme  string
	Sources []Source
}

// Source is a file shown verbatim on a component page.
type Source struct {
	Name    string
	Content string
}

// Doc is a Markdown page from the docs directory.
type Doc struct {
	Slug  string
	Title string
	HTML  string
}

// ComponentConfig is the optional <name>.config.yml beside a component.
type ComponentConfig struct {
	Title  string `yaml:"title"`
	Status string `yaml:"status"`
	Notes  string `yaml:"notes"`
}

var (
	orderPrefix = regexp.MustCompile(`^\d+[-_.]`)
	markdown    = goldmark.New()
)

// Scan reads the components and docs directories. Missing directories yield
// an empty library rather than an error.
func Scan(title, componentsDir, docsDir string) (*Library, error) {
	lib := &Library{Title: title}

	components, err := scanComponents(componentsDir)
	if err != nil {
		return nil, err
	}
	lib.Components = components

	docs, err := scanDocs(docsDir)
	if err != nil {
		return nil, err
	}
	lib.Docs = docs

	return lib, nil
}

func scanComponents(root string) ([]*Component, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var components []*Component
	seen := make(map[string]string)

	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || p == root {
			return nil
		}

		c, err := loadComponent(root, p)
		if err != nil {
			return err
		}
		if c == nil {
			return nil
		}
		if other, dup := seen[c.Handle]; dup {
			return builderrors.NewRenderError(builderrors.ErrCodeRenderFailed,
				fmt.Sprintf("component handle %q used by both %s and %s", c.Handle, other, p), nil)
		}
		seen[c.Handle] = p
		components = append(components, c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(components, func(i, j int) bool { return components[i].Handle < components[j].Handle })
	return components, nil
}

// loadComponent returns nil for directories holding no files.
func loadComponent(root, dir string) (*Component, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return nil, err
	}
	rel = filepath.ToSlash(rel)
	name := path.Base(rel)

	c := &Component{
		Handle: handle(rel),
		Title:  titleFromName(name),
	}

	hasFiles := false
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		hasFiles = true
		file := filepath.Join(dir, e.Name())

		switch e.Name() {
		case name + ".config.yml", name + ".config.yaml":
			if err := applyConfig(c, file); err != nil {
				return nil, err
			}
		case name + ".html", "preview.html":
			data, err := os.ReadFile(file)
			if err != nil {
				return nil, err
			}
			c.Preview = string(data)
		case "README.md":
			html, err := renderMarkdown(file)
			if err != nil {
				return nil, err
			}
			c.Readme = html
		default:
			data, err := os.ReadFile(file)
			if err != nil {
				return nil, err
			}
			c.Sources = append(c.Sources, Source{Name: e.Name(), Content: string(data)})
		}
	}

	if !hasFiles {
		return nil, nil
	}
	return c, nil
}

func applyConfig(c *Component, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	var cfg ComponentConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return builderrors.NewRenderError(builderrors.ErrCodeRenderFailed,
			fmt.Sprintf("invalid component config: %v", err), err).WithLocation(file, 0, 0)
	}
	if cfg.Title != "" {
		c.Title = cfg.Title
	}
	c.Status = cfg.Status
	c.Notes = cfg.Notes
	return nil
}

func scanDocs(root string) ([]*Doc, error) {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var docs []*Doc
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			continue
		}
		file := filepath.Join(root, e.Name())
		source, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}

		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		slug := handle(orderPrefix.ReplaceAllString(base, ""))
		title := firstHeading(source)
		if title == "" {
			title = titleFromName(slug)
		}

		html, err := convertMarkdown(file, source)
		if err != nil {
			return nil, err
		}

		docs = append(docs, &Doc{Slug: slug, Title: title, HTML: html})
	}

	// Directory order keeps numeric prefixes meaningful.
	return docs, nil
}

func renderMarkdown(file string) (string, error) {
	source, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return convertMarkdown(file, source)
}

func convertMarkdown(file string, source []byte) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(source, &buf); err != nil {
		return "", builderrors.NewRenderError(builderrors.ErrCodeRenderFailed,
			"rendering markdown", err).WithLocation(file, 0, 0)
	}
	return buf.String(), nil
}

func firstHeading(source []byte) string {
	for _, line := range strings.Split(string(source), "\n") {
		if h, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimSpace(h)
		}
	}
	return ""
}

func handle(rel string) string {
	h := strings.ToLower(rel)
	h = strings.NewReplacer("/", "-", " ", "-", "_", "-").Replace(h)
	return strings.Trim(h, "-")
}

func titleFromName(name string) string {
	name = strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimLeft(name, "_"))
	// Casers are stateful, so each call gets its own.
	return cases.Title(language.English).String(strings.TrimSpace(name))
}
