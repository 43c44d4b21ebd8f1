package protocol

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/affectlab/xai-dialogue/internal/domain"
	"github.com/affectlab/xai-dialogue/internal/store"
)

var (
	// ErrWashoutNotElapsed rejects a washout completion before the minimum
	// dwell time has passed. No state changes on rejection.
	ErrWashoutNotElapsed = errors.New("protocol: washout interval not elapsed")

	// ErrStepMismatch rejects a save for a stage the participant is not on.
	ErrStepMismatch = errors.New("protocol: step does not match participant position")
)

// Decision is the outcome of validating a page request: either serve the
// page with its render context, or redirect to the participant's expected
// URL.
type Decision struct {
	Serve       bool
	RedirectURL string // set when !Serve, always carries the participant id

	// Render context, set when Serve.
	PagePath  string // page to render, e.g. /html/demographics.html
	Module    string // localization module
	StepIndex int
	StepName  string
	Language  string
}

// SavePlan describes how a validated stage save advances the protocol.
type SavePlan struct {
	StepName  string
	NextIndex int
	NextURL   string // resolved with the post-save condition, carries pid
	Washout   bool   // this save completes the washout interval
}

// Protocol validates requested stages against each participant's persisted
// position. Validation is read-only; state advances only through Advance
// calls made by the save path.
type Protocol struct {
	statuses store.StatusStore
	minDwell time.Duration
}

// New creates a Protocol over the given status store.
func New(statuses store.StatusStore, minDwell time.Duration) *Protocol {
	return &Protocol{statuses: statuses, minDwell: minDwell}
}

// Resolve decides serve-or-redirect for a page request. A participant with
// no status record is treated as being on the consent page, so any deep
// link lands back at the entry point.
func (p *Protocol) Resolve(ctx context.Context, participantID, requestedPath string) (Decision, error) {
	status, err := p.statuses.GetStatus(ctx, participantID)
	if err != nil {
		return Decision{}, fmt.Errorf("resolve step for %s: %w", participantID, err)
	}

	expectedPage, module, stepIndex, stepName := p.expected(status)
	language := "en"
	if status != nil && status.Language != "" {
		language = status.Language
	}

	if path.Base(requestedPath) == path.Base(expectedPage) {
		return Decision{
			Serve:     true,
			PagePath:  expectedPage,
			Module:    module,
			StepIndex: stepIndex,
			StepName:  stepName,
			Language:  language,
		}, nil
	}
	return Decision{
		RedirectURL: withPID(expectedPage, participantID),
		StepIndex:   stepIndex,
		StepName:    stepName,
		Language:    language,
	}, nil
}

// expected computes the only page a participant may currently see.
func (p *Protocol) expected(status *domain.ParticipantStatus) (page, module string, index int, name string) {
	switch {
	case status == nil || status.CurrentStepIndex < 0:
		index = -1
		if status != nil {
			index = status.CurrentStepIndex
		}
		return ConsentPage, "consent", index, StepConsent
	case status.CurrentStepIndex >= len(stages):
		d := debriefStage()
		return d.Page, d.Module, status.CurrentStepIndex, d.Key
	default:
		s := stages[status.CurrentStepIndex]
		return s.URL(status.CurrentCondition()), s.Module, status.CurrentStepIndex, s.Key
	}
}

// PlanSave validates a stage data save against the participant's persisted
// position and returns the advance it justifies. The claimed index from the
// client must match the persisted one: a replayed or skipped-ahead save is
// rejected without any state change.
func (p *Protocol) PlanSave(status *domain.ParticipantStatus, stepName string, claimedIndex int, now time.Time) (SavePlan, error) {
	idx := status.CurrentStepIndex
	if claimedIndex != idx {
		return SavePlan{}, fmt.Errorf("%w: claimed index %d, expected %d", ErrStepMismatch, claimedIndex, idx)
	}

	var expectedStep string
	switch {
	case idx < 0:
		expectedStep = StepConsent
	case idx >= len(stages):
		return SavePlan{}, fmt.Errorf("%w: sequence already complete", ErrStepMismatch)
	default:
		expectedStep = stages[idx].Key
	}
	if stepName != expectedStep {
		return SavePlan{}, fmt.Errorf("%w: saving %s, expected %s", ErrStepMismatch, stepName, expectedStep)
	}

	plan := SavePlan{
		StepName:  stepName,
		NextIndex: idx + 1,
		Washout:   stepName == StepWashout,
	}

	if plan.Washout {
		if status.WashoutDwell(now) < p.minDwell {
			return SavePlan{}, fmt.Errorf("%w: dwell %s < %s",
				ErrWashoutNotElapsed, status.WashoutDwell(now).Truncate(time.Second), p.minDwell)
		}
	}

	// Resolve the next page with the condition as it will be after this
	// save; the washout save flips it.
	after := *status
	if plan.Washout {
		after.WashoutCompleted = true
	}
	plan.NextURL = withPID(p.pageForIndex(&after, plan.NextIndex), status.ParticipantID)

	return plan, nil
}

// NextAfterDialogue plans the advance triggered by end_dialogue. The
// participant must currently be on a dialogue stage.
func (p *Protocol) NextAfterDialogue(status *domain.ParticipantStatus) (SavePlan, error) {
	idx := status.CurrentStepIndex
	if idx < 0 || idx >= len(stages) || (stages[idx].Key != StepDialogue1 && stages[idx].Key != StepDialogue2) {
		return SavePlan{}, fmt.Errorf("%w: not on a dialogue stage (index %d)", ErrStepMismatch, idx)
	}
	next := idx + 1
	return SavePlan{
		StepName:  stages[idx].Key,
		NextIndex: next,
		NextURL:   withPID(p.pageForIndex(status, next), status.ParticipantID),
	}, nil
}

// pageForIndex resolves the page of an arbitrary index for a status.
func (p *Protocol) pageForIndex(status *domain.ParticipantStatus, index int) string {
	switch {
	case index < 0:
		return ConsentPage
	case index >= len(stages):
		return debriefStage().Page
	default:
		return stages[index].URL(status.CurrentCondition())
	}
}

// MinDwell is the washout acceptance threshold.
func (p *Protocol) MinDwell() time.Duration { return p.minDwell }

func withPID(page, participantID string) string {
	return page + "?pid=" + participantID
}
