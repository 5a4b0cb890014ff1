package styleguide

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// Page paths inside the destination directory.
const (
	stylesheetPath = "assets/styleguide.css"
)

func componentPath(c *Component) string {
	return "components/detail/" + c.Handle + ".html"
}

func docPath(d *Doc) string {
	return "docs/" + d.Slug + ".html"
}

// relRoot returns the prefix leading from page back to the site root.
func relRoot(page string) string {
	return strings.Repeat("../", strings.Count(page, "/"))
}

// text renders escaped character data.
func text(s string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(s))
		return err
	})
}

// element renders children inside tag on its own line. An empty class
// omits the attribute.
func element(tag, class string, children ...templ.Component) templ.Component {
	return tagged(tag, class, "\n", children)
}

// inline is element for phrasing content.
func inline(tag, class string, children ...templ.Component) templ.Component {
	return tagged(tag, class, "", children)
}

func tagged(tag, class, after string, children []templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		open := "<" + tag
		if class != "" {
			open += ` class="` + templ.EscapeString(class) + `"`
		}
		if _, err := io.WriteString(w, open+">"); err != nil {
			return err
		}
		if err := templ.Join(children...).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</"+tag+">"+after)
		return err
	})
}

func link(href templ.SafeURL, children ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<a href="`+templ.EscapeString(string(href))+`">`); err != nil {
			return err
		}
		if err := templ.Join(children...).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</a>")
		return err
	})
}

// head renders the document head for a page titled title.
func head(lib *Library, root, title string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>`+templ.EscapeString(title)+" | "+templ.EscapeString(lib.Title)+`</title>
<link rel="stylesheet" href="`+templ.EscapeString(string(templ.URL(root+stylesheetPath)))+`">
</head>
`)
		return err
	})
}

func header(lib *Library, root string) templ.Component {
	return element("header", "sg-header", link(templ.URL(root+"index.html"), text(lib.Title)))
}

// layout wraps the children in the shared shell with navigation.
func layout(lib *Library, page, title string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		children := templ.GetChildren(ctx)
		ctx = templ.ClearChildren(ctx)

		root := relRoot(page)
		if _, err := io.WriteString(w, "<!DOCTYPE html>\n<html lang=\"en\">\n"); err != nil {
			return err
		}
		if err := head(lib, root, title).Render(ctx, w); err != nil {
			return err
		}
		body := element("body", "",
			header(lib, root),
			element("div", "sg-layout",
				navigation(lib, root),
				element("main", "sg-main", children),
			),
		)
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</html>\n")
		return err
	})
}

// withLayout renders body as the children of the page layout.
func withLayout(lib *Library, page, title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return layout(lib, page, title).Render(templ.WithChildren(ctx, body), w)
	})
}

type navItem struct {
	href  string
	title string
}

func navSection(heading string, items []navItem) templ.Component {
	entries := make([]templ.Component, len(items))
	for i, item := range items {
		entries[i] = element("li", "", link(templ.URL(item.href), text(item.title)))
	}
	return templ.Join(
		element("h2", "", text(heading)),
		element("ul", "", entries...),
	)
}

func navigation(lib *Library, root string) templ.Component {
	var sections []templ.Component
	if len(lib.Docs) > 0 {
		docs := make([]navItem, len(lib.Docs))
		for i, d := range lib.Docs {
			docs[i] = navItem{href: root + docPath(d), title: d.Title}
		}
		sections = append(sections, navSection("Documentation", docs))
	}
	components := make([]navItem, len(lib.Components))
	for i, c := range lib.Components {
		components[i] = navItem{href: root + componentPath(c), title: c.Title}
	}
	sections = append(sections, navSection("Components", components))
	return element("nav", "sg-nav", sections...)
}

func statusBadge(status string) templ.Component {
	if status == "" {
		return templ.NopComponent
	}
	return templ.Join(text(" "), inline("span", "sg-status sg-status-"+handle(status), text(status)))
}

func indexPage(lib *Library) templ.Component {
	entries := make([]templ.Component, len(lib.Components))
	for i, c := range lib.Components {
		entries[i] = element("li", "", link(templ.URL(componentPath(c)), text(c.Title)), statusBadge(c.Status))
	}
	summary := strconv.Itoa(len(lib.Components)) + " components, " +
		strconv.Itoa(len(lib.Docs)) + " documentation pages."

	body := templ.Join(
		element("h1", "", text(lib.Title)),
		element("p", "", text(summary)),
		element("ul", "sg-index", entries...),
	)
	return withLayout(lib, "index.html", "Overview", body)
}

// section renders trusted HTML inside a section, or nothing when html is empty.
func section(class, html string) templ.Component {
	if html == "" {
		return templ.NopComponent
	}
	return element("section", class, templ.Raw(html))
}

func sourceBlock(src Source) templ.Component {
	return element("section", "sg-source",
		element("h2", "", text(src.Name)),
		element("pre", "", inline("code", "", text(src.Content))),
	)
}

func componentPage(lib *Library, c *Component) templ.Component {
	parts := []templ.Component{
		element("h1", "", text(c.Title), statusBadge(c.Status)),
	}
	if c.Notes != "" {
		parts = append(parts, element("p", "sg-notes", text(c.Notes)))
	}
	parts = append(parts, section("sg-preview", c.Preview), section("sg-readme", c.Readme))
	for _, src := range c.Sources {
		parts = append(parts, sourceBlock(src))
	}
	return withLayout(lib, componentPath(c), c.Title, templ.Join(parts...))
}

func docPage(lib *Library, d *Doc) templ.Component {
	return withLayout(lib, docPath(d), d.Title, element("article", "sg-doc", templ.Raw(d.HTML)))
}

const stylesheet = `body{margin:0;font:15px/1.5 system-ui,sans-serif;color:#222}
a{color:#0b62a4}
.sg-header{padding:12px 24px;background:#1b1b1b}
.sg-header a{color:#fff;text-decoration:none;font-weight:600}
.sg-layout{display:flex}
.sg-nav{width:240px;padding:16px 24px;border-right:1px solid #ddd;min-height:100vh}
.sg-nav h2{font-size:12px;text-transform:uppercase;color:#777}
.sg-nav ul{list-style:none;padding:0}
.sg-main{flex:1;padding:16px 32px}
.sg-preview{padding:24px;border:1px solid #ddd;margin:16px 0}
.sg-source pre{background:#f6f6f6;padding:12px;overflow:auto}
.sg-status{font-size:12px;padding:2px 6px;border-radius:3px;background:#eee}
.sg-status-ready{background:#cdeccd}
.sg-status-wip{background:#f6e3b4}
`
