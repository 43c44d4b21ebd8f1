package web

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/affectlab/xai-dialogue/internal/localization"
)

func newTestRenderer(t *testing.T, pages map[string]string) *Renderer {
	t.Helper()
	dir := t.TempDir()
	for name, content := range pages {
		full := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return NewRenderer(dir, nil)
}

func TestRenderInjectsContext(t *testing.T) {
	r := newTestRenderer(t, map[string]string{
		"html/washout.html": "{{.ParticipantID}}/{{.StepName}}/{{.WashoutSeconds}}/{{.Strings.title}}",
	})

	w := httptest.NewRecorder()
	r.Render(w, "/html/washout.html", PageData{
		ParticipantID:  "P1",
		StepName:       "WASHOUT",
		WashoutSeconds: 300,
		Strings:        localization.ForPage("washout", "en"),
	})

	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Body.String(); got != "P1/WASHOUT/300/Short Break" {
		t.Errorf("rendered = %q", got)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
}

func TestRenderMissingPage(t *testing.T) {
	r := newTestRenderer(t, nil)

	w := httptest.NewRecorder()
	r.Render(w, "/html/missing.html", PageData{})
	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestRenderCachesTemplates(t *testing.T) {
	r := newTestRenderer(t, map[string]string{"index.html": "v1"})

	w := httptest.NewRecorder()
	r.Render(w, "/index.html", PageData{})
	if w.Body.String() != "v1" {
		t.Fatalf("first render = %q", w.Body.String())
	}

	// A rewrite on disk is invisible once cached.
	if err := os.WriteFile(filepath.Join(r.dir, "index.html"), []byte("v2"), 0644); err != nil {
		t.Fatal(err)
	}
	w = httptest.NewRecorder()
	r.Render(w, "/index.html", PageData{})
	if w.Body.String() != "v1" {
		t.Errorf("cached render = %q, want v1", w.Body.String())
	}
}
