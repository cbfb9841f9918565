// Package web renders the dashboard's HTML pages and serves its static
// assets. Templates and assets are embedded in the binary.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/jmcleod/vocabadmin/catalog"
	"github.com/jmcleod/vocabadmin/session"
)

//go:embed templates static
var content embed.FS

// Page names accepted by Renderer.Render.
const (
	PageSignIn      = "signin"
	PageSignUp      = "signup"
	PageBooks       = "books"
	PageAdminUsers  = "admin_users"
	PagePlaceholder = "placeholder"
)

// NavItem is one entry of the sidebar navigation.
type NavItem struct {
	Href   string
	Label  string
	Icon   string
	Active bool
}

var navItems = []NavItem{
	{Href: "/books", Label: "Word Book Management", Icon: "book"},
	{Href: "/admin-users", Label: "Admin Users", Icon: "users"},
}

// Page is the data every template is executed with.
type Page struct {
	Title string
	// Path is the request path, used to highlight the active nav item.
	Path      string
	CSRFToken string
	Session   *session.Session
	// Revision is the session state revision the page was rendered at.
	Revision uint64
	// Watch makes the page reload when the session state changes.
	Watch bool
	// Refresh, when positive, reloads the page after that many seconds.
	Refresh int
	Message string
	Error   string
	// Form holds previously submitted values, never passwords.
	Form map[string]string
	Data any
}

// Nav returns the sidebar items with the current one marked active.
func (p Page) Nav() []NavItem {
	items := make([]NavItem, len(navItems))
	for i, item := range navItems {
		item.Active = item.Href == p.Path
		items[i] = item
	}
	return items
}

// BooksData backs the book management page.
type BooksData struct {
	Stats  catalog.BookStats
	Books  []catalog.Book
	Filter string
}

// AdminsData backs the admin users page.
type AdminsData struct {
	Stats  catalog.AdminStats
	Admins []catalog.Admin
	Filter string
}

type statCard struct {
	Title       string
	Description string
	Value       int
}

var funcs = template.FuncMap{
	"variant": catalog.StatusVariant,
	"count":   catalog.FormatCount,
	"stat": func(title, description string, value int) statCard {
		return statCard{Title: title, Description: description, Value: value}
	},
}

// Renderer executes the embedded page templates.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page under templates/pages together with the
// shared base and partial templates.
func NewRenderer() (*Renderer, error) {
	files, err := fs.Glob(content, "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("listing page templates: %w", err)
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".html")
		t, err := template.New(name).Funcs(funcs).ParseFS(content,
			"templates/base.html",
			"templates/partials.html",
			file,
		)
		if err != nil {
			return nil, fmt.Errorf("parsing page %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes page name with the given status. The page is executed into
// a buffer first so a template error never produces a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, p Page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", p); err != nil {
		return fmt.Errorf("rendering page %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// StaticHandler returns an http.Handler serving the embedded assets. Mount
// it with the URL prefix stripped.
func StaticHandler() (http.Handler, error) {
	fsys, err := fs.Sub(content, "static")
	if err != nil {
		return nil, fmt.Errorf("loading embedded web assets: %w", err)
	}
	return http.FileServer(http.FS(fsys)), nil
}
