package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/affectlab/xai-dialogue/internal/domain"
	"github.com/affectlab/xai-dialogue/internal/protocol"
	"github.com/affectlab/xai-dialogue/internal/record"
	"github.com/affectlab/xai-dialogue/internal/sentiment"
	"github.com/affectlab/xai-dialogue/internal/store"
)

type startExperimentRequest struct {
	ParticipantID  string `json:"participant_id"`
	ConditionOrder string `json:"condition_order"`
	Language       string `json:"language"`
}

// StartExperiment registers (or resets) a participant: status record at the
// consent position, fresh dialogue session, counterbalancing order as given.
func (h *Handler) StartExperiment(w http.ResponseWriter, r *http.Request) {
	var req startExperimentRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.ParticipantID = strings.TrimSpace(req.ParticipantID)
	if req.ParticipantID == "" {
		Error(w, http.StatusBadRequest, "participant_id is required")
		return
	}
	order, err := domain.ParseConditionOrder(strings.ToUpper(strings.TrimSpace(req.ConditionOrder)))
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}

	now := h.now()
	status := &domain.ParticipantStatus{
		ParticipantID:    req.ParticipantID,
		ConditionOrder:   order,
		WashoutCompleted: false,
		CurrentStepIndex: -1,
		Language:         req.Language,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := h.repo.PutStatus(r.Context(), status); err != nil {
		h.logger.Error("Failed to create participant status",
			"participant_id", req.ParticipantID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to store participant status")
		return
	}

	// A restart must never inherit history from an earlier run.
	h.sessions.Clear(req.ParticipantID)

	h.events.Log(record.Event{
		ParticipantID: req.ParticipantID,
		Kind:          "experiment_start",
		Detail: map[string]any{
			"condition_order": string(order),
			"language":        req.Language,
		},
	})
	h.logger.Info("Experiment started",
		"participant_id", req.ParticipantID, "condition_order", order)

	JSON(w, http.StatusOK, map[string]any{
		"status":          "success",
		"participant_id":  req.ParticipantID,
		"condition_order": string(order),
		"redirect_url":    protocol.ConsentPage + "?pid=" + req.ParticipantID,
	})
}

type saveDataRequest struct {
	ParticipantID    string          `json:"participant_id"`
	StepName         string          `json:"step_name"`
	Data             json.RawMessage `json:"data"`
	CurrentStepIndex *int            `json:"current_step_index"`
}

// SaveData persists one stage's payload and advances the protocol. The
// payload is written before the index moves, so a crash between the two
// leaves the participant on the old step with the data already saved; the
// monotone Advance makes the retried save a no-op.
func (h *Handler) SaveData(w http.ResponseWriter, r *http.Request) {
	var req saveDataRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ParticipantID == "" || req.StepName == "" || req.CurrentStepIndex == nil {
		Error(w, http.StatusBadRequest, "participant_id, step_name and current_step_index are required")
		return
	}
	if len(req.Data) == 0 {
		Error(w, http.StatusBadRequest, "data payload is required")
		return
	}

	ctx := r.Context()
	status, err := h.repo.GetStatus(ctx, req.ParticipantID)
	if err != nil {
		h.logger.Error("Failed to load participant status",
			"participant_id", req.ParticipantID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load participant status")
		return
	}
	if status == nil {
		Error(w, http.StatusNotFound, "unknown participant")
		return
	}

	now := h.now()
	plan, err := h.proto.PlanSave(status, req.StepName, *req.CurrentStepIndex, now)
	switch {
	case errors.Is(err, protocol.ErrWashoutNotElapsed):
		JSON(w, http.StatusBadRequest, map[string]any{
			"status": "rejected",
			"error":  "washout interval not elapsed",
		})
		return
	case errors.Is(err, protocol.ErrStepMismatch):
		Error(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		Error(w, http.StatusInternalServerError, "failed to validate save")
		return
	}

	if err := h.repo.SaveStageData(ctx, req.ParticipantID, plan.StepName, req.Data); err != nil {
		h.logger.Error("Failed to persist stage data",
			"participant_id", req.ParticipantID, "step", plan.StepName, "error", err)
		Error(w, http.StatusInternalServerError, "failed to persist stage data")
		return
	}

	if plan.Washout {
		if err := h.repo.CompleteWashout(ctx, req.ParticipantID); err != nil {
			h.logger.Error("Failed to complete washout",
				"participant_id", req.ParticipantID, "error", err)
			Error(w, http.StatusInternalServerError, "failed to complete washout")
			return
		}
		// The second condition starts with a clean conversational slate.
		h.sessions.Clear(req.ParticipantID)
	}

	if err := h.repo.Advance(ctx, req.ParticipantID, plan.NextIndex); err != nil {
		if errors.Is(err, store.ErrNotAdvanced) {
			// A concurrent save already moved the index; the data above is
			// recorded, so report the current position instead of failing.
			h.logger.Warn("Step index already advanced",
				"participant_id", req.ParticipantID, "next_index", plan.NextIndex)
		} else {
			h.logger.Error("Failed to advance step index",
				"participant_id", req.ParticipantID, "error", err)
			Error(w, http.StatusInternalServerError, "failed to advance step")
			return
		}
	}

	if plan.NextIndex == protocol.WashoutIndex() {
		if err := h.repo.MarkWashoutStart(ctx, req.ParticipantID, now); err != nil {
			h.logger.Error("Failed to mark washout start",
				"participant_id", req.ParticipantID, "error", err)
		}
	}

	h.events.Log(record.Event{
		ParticipantID: req.ParticipantID,
		Kind:          "stage_data",
		Step:          plan.StepName,
		Detail:        map[string]any{"next_step_index": plan.NextIndex},
	})
	h.logger.Info("Stage data saved",
		"participant_id", req.ParticipantID, "step", plan.StepName, "next_index", plan.NextIndex)

	JSON(w, http.StatusOK, map[string]any{
		"status":          "success",
		"next_url":        plan.NextURL,
		"next_step_index": plan.NextIndex,
	})
}

type endDialogueRequest struct {
	ParticipantID string `json:"participant_id"`
}

// EndDialogue closes the current dialogue stage: it aggregates the sentiment
// trajectory into the fluctuation index, stores the stage-end record and
// advances past the dialogue step.
func (h *Handler) EndDialogue(w http.ResponseWriter, r *http.Request) {
	var req endDialogueRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ParticipantID == "" {
		Error(w, http.StatusBadRequest, "participant_id is required")
		return
	}

	ctx := r.Context()
	status, err := h.repo.GetStatus(ctx, req.ParticipantID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load participant status")
		return
	}
	if status == nil {
		Error(w, http.StatusNotFound, "unknown participant")
		return
	}

	plan, err := h.proto.NextAfterDialogue(status)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	turns, trajectory := h.sessions.Get(req.ParticipantID).Snapshot()
	fluctuation := sentiment.Fluctuation(trajectory)

	endRecord, err := json.Marshal(map[string]any{
		"status":           "completed",
		"condition":        string(status.CurrentCondition()),
		"session_part":     status.SessionPart(),
		"ended_at":         h.now().UTC().Format(time.RFC3339),
		"total_turns":      turns,
		"fluctuation":      fluctuation,
		"sentiment_scores": trajectory,
	})
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to encode dialogue record")
		return
	}
	if err := h.repo.SaveStageData(ctx, req.ParticipantID, plan.StepName, endRecord); err != nil {
		h.logger.Error("Failed to persist dialogue end record",
			"participant_id", req.ParticipantID, "step", plan.StepName, "error", err)
		Error(w, http.StatusInternalServerError, "failed to persist dialogue record")
		return
	}
	if err := h.repo.Advance(ctx, req.ParticipantID, plan.NextIndex); err != nil && !errors.Is(err, store.ErrNotAdvanced) {
		Error(w, http.StatusInternalServerError, "failed to advance step")
		return
	}

	h.events.Log(record.Event{
		ParticipantID: req.ParticipantID,
		Kind:          "dialogue_end",
		Step:          plan.StepName,
		Detail: map[string]any{
			"total_turns": turns,
			"fluctuation": fluctuation,
		},
	})
	h.logger.Info("Dialogue ended",
		"participant_id", req.ParticipantID, "step", plan.StepName,
		"turns", turns, "fluctuation", fluctuation)

	JSON(w, http.StatusOK, map[string]any{
		"status":          "success",
		"next_url":        plan.NextURL,
		"next_step_index": plan.NextIndex,
		"total_turns":     turns,
		"fluctuation":     fluctuation,
	})
}

type saveContactRequest struct {
	ParticipantID string `json:"participant_id"`
	Email         string `json:"email"`
}

// SaveContact stores a follow-up interview contact in the separate CSV so it
// never mixes with the anonymized study records.
func (h *Handler) SaveContact(w http.ResponseWriter, r *http.Request) {
	var req saveContactRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.ParticipantID == "" || req.Email == "" || !strings.Contains(req.Email, "@") {
		Error(w, http.StatusBadRequest, "participant_id and a valid email are required")
		return
	}

	if err := h.contacts.Save(req.ParticipantID, req.Email); err != nil {
		h.logger.Error("Failed to save contact",
			"participant_id", req.ParticipantID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to save contact")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "success"})
}
