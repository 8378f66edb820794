// Package web serves the embedded browser UI: the login form, the chat
// screen, and the admin and metrics dashboards. Pages are plain server-side
// templates; all data loading happens from the browser against /api/v1.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html static/*
var content embed.FS

// Pages renders the embedded HTML pages
type Pages struct {
	templates *template.Template
}

// NewPages parses the embedded templates
func NewPages() (*Pages, error) {
	templates, err := template.ParseFS(content, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Pages{templates: templates}, nil
}

func (p *Pages) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := p.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("failed to render page")
	}
}

// Login renders the login form
func (p *Pages) Login(w http.ResponseWriter, r *http.Request) {
	p.render(w, "login.html", map[string]string{
		"Next": r.URL.Query().Get("next"),
	})
}

// Chat renders the chat screen
func (p *Pages) Chat(w http.ResponseWriter, r *http.Request) {
	p.render(w, "chat.html", nil)
}

// Admin renders the admin dashboard
func (p *Pages) Admin(w http.ResponseWriter, r *http.Request) {
	p.render(w, "admin.html", nil)
}

// Metrics renders the activity dashboard
func (p *Pages) Metrics(w http.ResponseWriter, r *http.Request) {
	p.render(w, "metrics.html", nil)
}

// Static returns the embedded asset filesystem rooted at static/
func Static() http.Handler {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
