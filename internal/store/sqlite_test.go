package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/affectlab/xai-dialogue/internal/domain"
)

func newTestRepo(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "study.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return repo
}

func TestGetStatusUnknownParticipant(t *testing.T) {
	repo := newTestRepo(t)

	st, err := repo.GetStatus(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if st != nil {
		t.Errorf("unknown participant returned %+v", st)
	}
}

func TestPutGetStatusRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	in := &domain.ParticipantStatus{
		ParticipantID:    "P1",
		ConditionOrder:   domain.OrderBA,
		CurrentStepIndex: -1,
		Language:         "zh-CN",
		CreatedAt:        time.Now(),
	}
	if err := repo.PutStatus(ctx, in); err != nil {
		t.Fatalf("PutStatus: %v", err)
	}

	got, err := repo.GetStatus(ctx, "P1")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if got == nil {
		t.Fatal("status not found after put")
	}
	if got.ConditionOrder != domain.OrderBA || got.CurrentStepIndex != -1 ||
		got.Language != "zh-CN" || got.WashoutCompleted || got.WashoutStart != nil {
		t.Errorf("round trip = %+v", got)
	}

	// Re-registering resets the position.
	in.CurrentStepIndex = -1
	in.ConditionOrder = domain.OrderAB
	if err := repo.PutStatus(ctx, in); err != nil {
		t.Fatalf("PutStatus overwrite: %v", err)
	}
	got, _ = repo.GetStatus(ctx, "P1")
	if got.ConditionOrder != domain.OrderAB {
		t.Errorf("overwrite kept order %s", got.ConditionOrder)
	}
}

func TestAdvanceIsMonotone(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	st := &domain.ParticipantStatus{
		ParticipantID:    "P1",
		ConditionOrder:   domain.OrderAB,
		CurrentStepIndex: -1,
		Language:         "en",
		CreatedAt:        time.Now(),
	}
	if err := repo.PutStatus(ctx, st); err != nil {
		t.Fatalf("PutStatus: %v", err)
	}

	if err := repo.Advance(ctx, "P1", 0); err != nil {
		t.Fatalf("Advance to 0: %v", err)
	}
	if err := repo.Advance(ctx, "P1", 1); err != nil {
		t.Fatalf("Advance to 1: %v", err)
	}

	// Replays and rollbacks must not move the index.
	if err := repo.Advance(ctx, "P1", 1); !errors.Is(err, ErrNotAdvanced) {
		t.Errorf("duplicate advance: err = %v, want ErrNotAdvanced", err)
	}
	if err := repo.Advance(ctx, "P1", 0); !errors.Is(err, ErrNotAdvanced) {
		t.Errorf("backwards advance: err = %v, want ErrNotAdvanced", err)
	}
	if err := repo.Advance(ctx, "ghost", 1); !errors.Is(err, ErrNotAdvanced) {
		t.Errorf("unknown participant: err = %v, want ErrNotAdvanced", err)
	}

	got, _ := repo.GetStatus(ctx, "P1")
	if got.CurrentStepIndex != 1 {
		t.Errorf("index = %d, want 1", got.CurrentStepIndex)
	}
}

func TestMarkWashoutStartFirstWins(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	st := &domain.ParticipantStatus{
		ParticipantID:    "P1",
		ConditionOrder:   domain.OrderAB,
		CurrentStepIndex: 5,
		Language:         "en",
		CreatedAt:        time.Now(),
	}
	if err := repo.PutStatus(ctx, st); err != nil {
		t.Fatalf("PutStatus: %v", err)
	}

	first := time.Now().Add(-10 * time.Minute).Truncate(time.Second)
	if err := repo.MarkWashoutStart(ctx, "P1", first); err != nil {
		t.Fatalf("MarkWashoutStart: %v", err)
	}
	// A page reload must not restart the washout clock.
	if err := repo.MarkWashoutStart(ctx, "P1", time.Now()); err != nil {
		t.Fatalf("second MarkWashoutStart: %v", err)
	}

	got, _ := repo.GetStatus(ctx, "P1")
	if got.WashoutStart == nil || !got.WashoutStart.Equal(first) {
		t.Errorf("washout start = %v, want %v", got.WashoutStart, first)
	}
}

func TestCompleteWashout(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	st := &domain.ParticipantStatus{
		ParticipantID:    "P1",
		ConditionOrder:   domain.OrderAB,
		CurrentStepIndex: 5,
		Language:         "en",
		CreatedAt:        time.Now(),
	}
	if err := repo.PutStatus(ctx, st); err != nil {
		t.Fatalf("PutStatus: %v", err)
	}
	if err := repo.CompleteWashout(ctx, "P1"); err != nil {
		t.Fatalf("CompleteWashout: %v", err)
	}

	got, _ := repo.GetStatus(ctx, "P1")
	if !got.WashoutCompleted {
		t.Error("washout not marked completed")
	}
	if got.CurrentCondition() != domain.ConditionNonXAI {
		t.Errorf("condition after washout = %s", got.CurrentCondition())
	}
}

func TestSaveStageData(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	payload := json.RawMessage(`{"age": 29, "gender": "female"}`)
	if err := repo.SaveStageData(ctx, "P1", "DEMOGRAPHICS", payload); err != nil {
		t.Fatalf("SaveStageData: %v", err)
	}
	// Appending the same step again must not fail: records are append-only.
	if err := repo.SaveStageData(ctx, "P1", "DEMOGRAPHICS", payload); err != nil {
		t.Fatalf("second SaveStageData: %v", err)
	}
}

func TestSaveTurnRecord(t *testing.T) {
	repo := newTestRepo(t)

	rec := &domain.TurnRecord{
		ParticipantID:    "P1",
		Condition:        domain.ConditionXAI,
		Turn:             1,
		SessionPart:      1,
		UserMetrics:      domain.MeasureText("hello there"),
		UserEmotion:      "joy",
		UserConfidence:   0.9,
		UserScore:        0.9,
		AgentMetrics:     domain.MeasureText("hi! how are you?"),
		AgentEmotion:     "neutral",
		AgentConfidence:  0.8,
		AgentScore:       0.0,
		ExplanationShown: true,
		RecordedAt:       time.Now(),
	}
	if err := repo.SaveTurnRecord(context.Background(), rec); err != nil {
		t.Fatalf("SaveTurnRecord: %v", err)
	}
}
