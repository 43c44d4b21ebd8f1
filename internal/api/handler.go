// Package api provides the HTTP handlers of the experiment server.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/affectlab/xai-dialogue/internal/dialogue"
	"github.com/affectlab/xai-dialogue/internal/protocol"
	"github.com/affectlab/xai-dialogue/internal/record"
	"github.com/affectlab/xai-dialogue/internal/sentiment"
	"github.com/affectlab/xai-dialogue/internal/session"
	"github.com/affectlab/xai-dialogue/internal/store"
	"github.com/affectlab/xai-dialogue/web"
)

// Handler wires the experiment services into HTTP routes.
type Handler struct {
	repo     store.Repository
	proto    *protocol.Protocol
	sessions *session.Manager
	streamer *dialogue.Streamer
	analyzer *sentiment.Analyzer
	renderer *web.Renderer
	contacts *record.ContactBook
	events   record.EventLogger
	logger   *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewHandler creates a Handler with its dependencies.
func NewHandler(repo store.Repository, proto *protocol.Protocol, sessions *session.Manager,
	streamer *dialogue.Streamer, analyzer *sentiment.Analyzer, renderer *web.Renderer,
	contacts *record.ContactBook, events record.EventLogger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if events == nil {
		events = record.NoopLogger{}
	}
	return &Handler{
		repo:     repo,
		proto:    proto,
		sessions: sessions,
		streamer: streamer,
		analyzer: analyzer,
		renderer: renderer,
		contacts: contacts,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// RegisterRoutes mounts all experiment routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/start_experiment", h.StartExperiment)
	r.Post("/save_data", h.SaveData)
	r.Post("/chat", h.Chat)
	r.Post("/analyze", h.Analyze)
	r.Post("/end_dialogue", h.EndDialogue)
	r.Post("/save_contact", h.SaveContact)

	r.Get("/", h.ServePage)
	r.Get("/index.html", h.ServePage)
	r.Get("/html/{page}", h.ServePage)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"status": "error", "error": message})
}

// decode parses a JSON request body into v.
func decode(r *http.Request, v interface{}) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
