// Package templates embeds the HTML pages and exposes them as a gin renderer.
package templates

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin/render"

	"github.com/cppla/newspaper/utils"
)

//go:embed *.html registration/*.html articles/*.html errors/*.html
var files embed.FS

const layout = "base.html"

// Funcs are the helpers available to every page.
var Funcs = template.FuncMap{
	"safeHTML": utils.SafeHTML,
	"date": func(t time.Time) string {
		return t.Format("January 2, 2006, 15:04")
	},
}

// Renderer maps a page name such as "articles/article_list.html" to the page parsed with the layout.
type Renderer struct {
	pages map[string]*template.Template
}

var _ render.HTMLRender = (*Renderer)(nil)

// New parses every embedded page.
func New() (*Renderer, error) {
	r := &Renderer{pages: map[string]*template.Template{}}
	err := fs.WalkDir(files, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path == layout || !strings.HasSuffix(path, ".html") {
			return nil
		}
		t, err := template.New(path).Funcs(Funcs).ParseFS(files, layout, path)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		r.pages[path] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// MustNew is New for process start-up.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Has reports whether name is a known page.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// Instance implements render.HTMLRender.
func (r *Renderer) Instance(name string, data interface{}) render.Render {
	t, ok := r.pages[name]
	if !ok {
		return missingPage(name)
	}
	return render.HTML{Template: t, Name: "base", Data: data}
}

type missingPage string

func (m missingPage) Render(w http.ResponseWriter) error {
	return fmt.Errorf("template %q not found", string(m))
}

func (m missingPage) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = []string{"text/html; charset=utf-8"}
	}
}
