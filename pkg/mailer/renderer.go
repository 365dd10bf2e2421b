package mailer

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html"
	htmltemplate "html/template"
	"io/fs"
	"path"
	"sync"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldhtml "github.com/yuin/goldmark/renderer/html"
)

//go:embed templates
var embedded embed.FS

// Templates returns the built-in invite and welcome templates.
func Templates() fs.FS {
	sub, _ := fs.Sub(embedded, "templates")
	return sub
}

// Rendered is the output of one template.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

type compiled struct {
	page    *page
	body    *template.Template
	subject *template.Template
}

// Renderer turns markdown templates with front matter into HTML wrapped in a
// layout from layouts/. Parsed templates are cached.
type Renderer struct {
	fsys   fs.FS
	md     goldmark.Markdown
	mu     sync.RWMutex
	pages  map[string]*compiled
	layout map[string]*htmltemplate.Template
}

func NewRenderer(fsys fs.FS) *Renderer {
	return &Renderer{
		fsys: fsys,
		md: goldmark.New(
			goldmark.WithExtensions(extension.Linkify),
			goldmark.WithRendererOptions(goldhtml.WithUnsafe()),
		),
		pages:  map[string]*compiled{},
		layout: map[string]*htmltemplate.Template{},
	}
}

// funcs are available to markdown templates. button emits a styled link;
// raw HTML passes through goldmark because the renderer runs unsafe.
var funcs = template.FuncMap{
	"button": func(label, href string) string {
		return fmt.Sprintf(`<a href="%s" class="btn">%s</a>`, html.EscapeString(href), html.EscapeString(label))
	},
}

func (r *Renderer) Render(layout, name string, data any) (*Rendered, error) {
	c, err := r.compile(name)
	if err != nil {
		return nil, err
	}

	var md, subj, body, out bytes.Buffer
	if err := c.body.Execute(&md, data); err != nil {
		return nil, errors.Join(ErrRenderFailed, err)
	}
	if err := c.subject.Execute(&subj, data); err != nil {
		return nil, errors.Join(ErrRenderFailed, err)
	}
	if err := r.md.Convert(md.Bytes(), &body); err != nil {
		return nil, errors.Join(ErrRenderFailed, err)
	}

	lt, err := r.loadLayout(layout)
	if err != nil {
		return nil, err
	}
	err = lt.Execute(&out, map[string]any{
		"Subject": subj.String(),
		"Content": htmltemplate.HTML(body.String()),
		"Meta":    c.page.meta,
	})
	if err != nil {
		return nil, errors.Join(ErrRenderFailed, err)
	}

	return &Rendered{Subject: subj.String(), HTML: out.String(), Text: md.String()}, nil
}

func (r *Renderer) compile(name string) (*compiled, error) {
	r.mu.RLock()
	c, ok := r.pages[name]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	src, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	p, err := parsePage(src)
	if err != nil {
		return nil, err
	}
	bt, err := template.New(name).Funcs(funcs).Parse(string(p.body))
	if err != nil {
		return nil, errors.Join(ErrRenderFailed, err)
	}
	st, err := template.New(name + ":subject").Parse(p.subject())
	if err != nil {
		return nil, errors.Join(ErrRenderFailed, err)
	}
	c = &compiled{page: p, body: bt, subject: st}

	r.mu.Lock()
	r.pages[name] = c
	r.mu.Unlock()
	return c, nil
}

func (r *Renderer) loadLayout(name string) (*htmltemplate.Template, error) {
	r.mu.RLock()
	t, ok := r.layout[name]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}

	src, err := fs.ReadFile(r.fsys, path.Join("layouts", name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLayoutNotFound, name)
	}
	t, err = htmltemplate.New(name).Parse(string(src))
	if err != nil {
		return nil, errors.Join(ErrRenderFailed, err)
	}

	r.mu.Lock()
	r.layout[name] = t
	r.mu.Unlock()
	return t, nil
}
