// Package page holds the state shared by the rendered html pages: title, locale and
// breadcrumbs.
package page

// BreadcrumbItem represents a single breadcrumb link.
type BreadcrumbItem struct {
	Title  string
	URL    string
	Active bool
}

// Context represents the page being rendered.
type Context struct {
	PageTitle   string
	Path        string // request path of the page
	Locale      string
	Breadcrumbs []BreadcrumbItem
}

// NewContext creates a new page context.
func NewContext(pageTitle, path, locale string) *Context {
	return &Context{
		PageTitle:   pageTitle,
		Path:        path,
		Locale:      locale,
		Breadcrumbs: make([]BreadcrumbItem, 0),
	}
}

// AddBreadcrumb adds a breadcrumb item to the context. The item linking to the page
// itself is marked active.
func (c *Context) AddBreadcrumb(title, url string) *Context {
	c.Breadcrumbs = append(c.Breadcrumbs, BreadcrumbItem{
		Title:  title,
		URL:    url,
		Active: c.IsActive(url),
	})

	return c
}

// IsActive reports whether url links to the page.
func (c *Context) IsActive(url string) bool {
	return url != "" && url == c.Path
}
