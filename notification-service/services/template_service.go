package services

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"sync"

	"portal-backend/shared/clients"
)

//go:embed templates/*.html
var templateFS embed.FS

// RenderedMail is a template after execution.
type RenderedMail struct {
	Subject string
	Body    string
}

// TemplateService renders the mail templates embedded in the binary. Each file
// defines a "subject" and a "body" block.
type TemplateService struct {
	fs    embed.FS
	cache map[clients.Template]*template.Template
	mu    sync.RWMutex
}

func NewTemplateService() *TemplateService {
	return &TemplateService{
		fs:    templateFS,
		cache: make(map[clients.Template]*template.Template),
	}
}

// Known reports whether id names a template this service can render.
func (ts *TemplateService) Known(id clients.Template) bool {
	_, err := ts.lookup(id)
	return err == nil
}

// Render executes template id with vars. Missing vars render as empty strings.
func (ts *TemplateService) Render(id clients.Template, vars map[string]string) (*RenderedMail, error) {
	tmpl, err := ts.lookup(id)
	if err != nil {
		return nil, err
	}
	if vars == nil {
		vars = map[string]string{}
	}

	var subject, body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&subject, "subject", vars); err != nil {
		return nil, fmt.Errorf("failed to render subject of %s: %w", id, err)
	}
	if err := tmpl.ExecuteTemplate(&body, "body", vars); err != nil {
		return nil, fmt.Errorf("failed to render body of %s: %w", id, err)
	}

	return &RenderedMail{
		Subject: strings.TrimSpace(subject.String()),
		Body:    strings.TrimSpace(body.String()),
	}, nil
}

func (ts *TemplateService) lookup(id clients.Template) (*template.Template, error) {
	ts.mu.RLock()
	tmpl, ok := ts.cache[id]
	ts.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	if strings.ContainsAny(string(id), "/\\.") || id == "" {
		return nil, fmt.Errorf("unknown template: %q", id)
	}

	tmpl, err := template.New(string(id)).Option("missingkey=zero").ParseFS(ts.fs, "templates/"+string(id)+".html")
	if err != nil {
		return nil, fmt.Errorf("unknown template: %q", id)
	}

	ts.mu.Lock()
	ts.cache[id] = tmpl
	ts.mu.Unlock()
	return tmpl, nil
}
