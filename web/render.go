// Package web renders the study pages from the static directory. Pages are
// Go HTML templates: the renderer injects the participant's protocol
// position and the localized string table for the page, so the frontend
// never hardcodes step names or indices.
package web

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/affectlab/xai-dialogue/internal/localization"
)

// PageData is the render context handed to every study page template.
type PageData struct {
	ParticipantID string
	StepIndex     int
	StepName      string
	Language      string
	Strings       localization.Strings

	// WashoutSeconds is the countdown length on the washout page, zero
	// elsewhere.
	WashoutSeconds int
}

// Renderer serves study pages from a directory on disk, caching parsed
// templates by path.
type Renderer struct {
	dir    string
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// NewRenderer creates a Renderer over the given static directory.
func NewRenderer(dir string, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		dir:    dir,
		logger: logger,
		cache:  make(map[string]*template.Template),
	}
}

// Render writes the page at pagePath (e.g. /html/demographics.html) with the
// given data. Unknown pages return 404, template failures 500.
func (r *Renderer) Render(w http.ResponseWriter, pagePath string, data PageData) {
	tmpl, err := r.lookup(pagePath)
	if err != nil {
		r.logger.Warn("Page not found", "page", pagePath, "error", err)
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		r.logger.Error("Failed to render page", "page", pagePath, "error", err)
	}
}

// lookup returns the parsed template for a page, loading and caching it on
// first use.
func (r *Renderer) lookup(pagePath string) (*template.Template, error) {
	clean := filepath.Clean("/" + pagePath)
	if strings.Contains(clean, "..") {
		return nil, fmt.Errorf("invalid page path %q", pagePath)
	}

	r.mu.RLock()
	tmpl, ok := r.cache[clean]
	r.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	full := filepath.Join(r.dir, filepath.FromSlash(clean))
	tmpl, err := template.ParseFiles(full)
	if err != nil {
		return nil, fmt.Errorf("parse page template %s: %w", clean, err)
	}

	r.mu.Lock()
	r.cache[clean] = tmpl
	r.mu.Unlock()
	return tmpl, nil
}

// AssetsHandler serves the non-templated static assets (css, js, images)
// under the given URL prefix.
func (r *Renderer) AssetsHandler(prefix string) http.Handler {
	fs := http.FileServer(http.Dir(filepath.Join(r.dir, "assets")))
	return http.StripPrefix(prefix, fs)
}
