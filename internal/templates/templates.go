// Package templates renders generator templates with text/template and writes
// the results only when their content changes.
package templates

import (
	"bytes"
	"fmt"
	"io/fs"
	"sync"
	"text/template"

	genErrors "github.com/toyz/genloop/internal/errors"
)

// Renderer renders named templates from a file system. Parsed templates are
// cached for the renderer's lifetime.
type Renderer struct {
	fsys  fs.FS
	funcs template.FuncMap

	mu     sync.Mutex
	parsed map[string]*template.Template
}

// NewRenderer creates a renderer reading templates from fsys
func NewRenderer(fsys fs.FS) *Renderer {
	funcs := template.FuncMap{}
	for k, v := range DefaultFuncs() {
		funcs[k] = v
	}
	return &Renderer{
		fsys:   fsys,
		funcs:  funcs,
		parsed: make(map[string]*template.Template),
	}
}

// Funcs adds helper functions. It must be called before the first render.
func (r *Renderer) Funcs(extra template.FuncMap) *Renderer {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range extra {
		r.funcs[k] = v
	}
	return r
}

// Render executes the template stored at name
func (r *Renderer) Render(name string, data interface{}) ([]byte, error) {
	tmpl, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, genErrors.WrapTemplateError(name, "execute", err)
	}
	return buf.Bytes(), nil
}

// RenderFile renders name into outPath. The file is left untouched when it
// already holds the rendered content. It reports whether the file was written.
func (r *Renderer) RenderFile(name, outPath string, data interface{}) (bool, error) {
	content, err := r.Render(name, data)
	if err != nil {
		return false, err
	}
	return WriteIfChanged(outPath, content)
}

// CopyFile copies the static file name into outPath unless it is already
// identical
func (r *Renderer) CopyFile(name, outPath string) (bool, error) {
	content, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return false, genErrors.WrapFileSystemError("read", name, err)
	}
	return WriteIfChanged(outPath, content)
}

func (r *Renderer) lookup(name string) (*template.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tmpl, ok := r.parsed[name]; ok {
		return tmpl, nil
	}
	text, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return nil, genErrors.WrapTemplateError(name, "read", err)
	}
	tmpl, err := template.New(name).Funcs(r.funcs).Option("missingkey=error").Parse(string(text))
	if err != nil {
		return nil, genErrors.WrapTemplateError(name, "parse", err)
	}
	r.parsed[name] = tmpl
	return tmpl, nil
}

// ExecuteTemplate parses and executes an inline template
func ExecuteTemplate(name, templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New(name).Funcs(DefaultFuncs()).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}
