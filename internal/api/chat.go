package api

import (
	"net/http"
	"strings"

	"github.com/affectlab/xai-dialogue/internal/dialogue"
	"github.com/affectlab/xai-dialogue/internal/domain"
	"github.com/affectlab/xai-dialogue/internal/protocol"
)

type chatRequest struct {
	ParticipantID    string `json:"participant_id"`
	Message          string `json:"message"`
	ExplanationShown bool   `json:"explanation_shown"`
}

// Chat runs one dialogue turn and streams the reply as plain text chunks.
// The participant must be on a dialogue stage; the active condition and
// session part come from the persisted status, never from the client.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.ParticipantID == "" || req.Message == "" {
		Error(w, http.StatusBadRequest, "participant_id and message are required")
		return
	}

	status, err := h.repo.GetStatus(r.Context(), req.ParticipantID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load participant status")
		return
	}
	if status == nil {
		Error(w, http.StatusNotFound, "unknown participant")
		return
	}
	if !onDialogueStage(status) {
		Error(w, http.StatusForbidden, "participant is not on a dialogue stage")
		return
	}

	cond := status.CurrentCondition()
	tc := dialogue.TurnContext{
		ParticipantID: req.ParticipantID,
		Condition:     cond,
		SessionPart:   status.SessionPart(),
		// The client claim is only honored in the XAI condition.
		ExplanationShown: req.ExplanationShown && cond == domain.ConditionXAI,
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for fragment := range h.streamer.Stream(r.Context(), tc, req.Message) {
		if _, err := w.Write([]byte(fragment)); err != nil {
			// Client went away; the streamer's finalization still runs.
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

type analyzeRequest struct {
	ParticipantID string `json:"participant_id"`
	Message       string `json:"message"`
}

// Analyze classifies a message on demand. The explanation is generated only
// in the XAI condition; the NON_XAI response carries the classification
// alone so the frontend has nothing to accidentally display.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ParticipantID == "" || strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "participant_id and message are required")
		return
	}

	status, err := h.repo.GetStatus(r.Context(), req.ParticipantID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load participant status")
		return
	}
	if status == nil {
		Error(w, http.StatusNotFound, "unknown participant")
		return
	}

	cls := h.analyzer.Classify(r.Context(), req.Message)
	resp := map[string]any{
		"sentiment": map[string]any{
			"emotion":    cls.Emotion,
			"confidence": cls.Confidence,
		},
	}
	if status.CurrentCondition() == domain.ConditionXAI {
		resp["explanation"] = h.analyzer.Explain(r.Context(), req.Message, cls.Emotion)
	}
	JSON(w, http.StatusOK, resp)
}

// onDialogueStage reports whether the participant's current index is one of
// the two dialogue stages.
func onDialogueStage(status *domain.ParticipantStatus) bool {
	idx := status.CurrentStepIndex
	if idx < 0 || idx >= protocol.StageCount() {
		return false
	}
	key := protocol.StageAt(idx).Key
	return key == protocol.StepDialogue1 || key == protocol.StepDialogue2
}
