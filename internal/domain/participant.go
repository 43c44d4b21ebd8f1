// Package domain contains core domain types for the dialogue experiment.
package domain

import (
	"fmt"
	"time"
)

// Condition is the experimental condition a participant is currently in.
type Condition string

const (
	// ConditionXAI shows generated explanations of detected emotion.
	ConditionXAI Condition = "XAI"
	// ConditionNonXAI shows no explanations.
	ConditionNonXAI Condition = "NON_XAI"
)

// ConditionOrder is the counterbalancing assignment for a participant.
type ConditionOrder string

const (
	// OrderAB runs the XAI condition first, NON_XAI after washout.
	OrderAB ConditionOrder = "AB"
	// OrderBA runs the NON_XAI condition first, XAI after washout.
	OrderBA ConditionOrder = "BA"
)

// ParseConditionOrder validates a raw order string.
func ParseConditionOrder(s string) (ConditionOrder, error) {
	switch ConditionOrder(s) {
	case OrderAB, OrderBA:
		return ConditionOrder(s), nil
	}
	return "", fmt.Errorf("invalid condition order %q (want AB or BA)", s)
}

// ParticipantStatus is the durable protocol position of one participant.
// CurrentStepIndex is -1 on the consent page, 0..N-1 within the stage list,
// and >= N once the participant reaches debrief. It only ever grows.
type ParticipantStatus struct {
	ParticipantID    string         `json:"participant_id"`
	ConditionOrder   ConditionOrder `json:"condition_order"`
	WashoutCompleted bool           `json:"washout_completed"`
	CurrentStepIndex int            `json:"current_step_index"`
	WashoutStart     *time.Time     `json:"washout_start,omitempty"`
	Language         string         `json:"language"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// CurrentCondition derives the active condition from the counterbalancing
// order and whether the washout interval has been completed. It is never
// stored, so a status record cannot drift from its order assignment.
func (p *ParticipantStatus) CurrentCondition() Condition {
	first, second := ConditionXAI, ConditionNonXAI
	if p.ConditionOrder == OrderBA {
		first, second = second, first
	}
	if p.WashoutCompleted {
		return second
	}
	return first
}

// SessionPart is 1 before washout completion and 2 after.
func (p *ParticipantStatus) SessionPart() int {
	if p.WashoutCompleted {
		return 2
	}
	return 1
}

// WashoutDwell reports how long the participant has been in the washout
// stage. Zero if washout has not started.
func (p *ParticipantStatus) WashoutDwell(now time.Time) time.Duration {
	if p.WashoutStart == nil {
		return 0
	}
	d := now.Sub(*p.WashoutStart)
	if d < 0 {
		return 0
	}
	return d
}
