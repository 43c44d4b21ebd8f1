// Package protocol implements the fixed experiment sequence: the ordered
// stage table, step validation for page requests, and the save/advance
// rules including the washout sub-protocol.
package protocol

import (
	"github.com/affectlab/xai-dialogue/internal/domain"
)

// StageKind distinguishes stages whose page depends on the active condition.
type StageKind int

const (
	// StageStatic resolves to the same page for both conditions.
	StageStatic StageKind = iota
	// StageConditional resolves per condition.
	StageConditional
)

// Stage is one tagged descriptor in the ordered experiment sequence.
type Stage struct {
	Key    string
	Kind   StageKind
	Module string // localization module of the page

	Page  string                      // static page path
	Pages map[domain.Condition]string // conditional page paths
}

// URL resolves the stage's page path for the given condition.
func (s Stage) URL(cond domain.Condition) string {
	if s.Kind == StageConditional {
		if p, ok := s.Pages[cond]; ok {
			return p
		}
		return s.Pages[domain.ConditionNonXAI]
	}
	return s.Page
}

// Stage keys of the within-subjects sequence.
const (
	StepConsent            = "CONSENT" // index -1, not part of the stage list
	StepDemographics       = "DEMOGRAPHICS"
	StepBaselineMood       = "BASELINE_MOOD"
	StepInstructions1      = "INSTRUCTIONS_1"
	StepDialogue1          = "DIALOGUE_1"
	StepPostQuestionnaire1 = "POST_QUESTIONNAIRE_1"
	StepWashout            = "WASHOUT"
	StepInstructions2      = "INSTRUCTIONS_2"
	StepDialogue2          = "DIALOGUE_2"
	StepPostQuestionnaire2 = "POST_QUESTIONNAIRE_2"
	StepOpenEndedQs        = "OPEN_ENDED_QS"
	StepDebrief            = "DEBRIEF"
)

// ConsentPage is the entry point of the experiment.
const ConsentPage = "/index.html"

var instructionPages = map[domain.Condition]string{
	domain.ConditionXAI:    "/html/instructions_xai.html",
	domain.ConditionNonXAI: "/html/instructions_non_xai.html",
}

var dialoguePages = map[domain.Condition]string{
	domain.ConditionXAI:    "/html/XAI_Version.html",
	domain.ConditionNonXAI: "/html/non-XAI_version.html",
}

// stages is the ordered experiment sequence. Page targets are looked up by
// index here and never re-derived from filenames.
var stages = []Stage{
	{Key: StepDemographics, Kind: StageStatic, Module: "demographics", Page: "/html/demographics.html"},
	{Key: StepBaselineMood, Kind: StageStatic, Module: "baseline_mood", Page: "/html/baseline_mood.html"},
	{Key: StepInstructions1, Kind: StageConditional, Module: "instructions", Pages: instructionPages},
	{Key: StepDialogue1, Kind: StageConditional, Module: "dialogue", Pages: dialoguePages},
	{Key: StepPostQuestionnaire1, Kind: StageStatic, Module: "post_questionnaire", Page: "/html/post_questionnaire.html"},
	{Key: StepWashout, Kind: StageStatic, Module: "washout", Page: "/html/washout.html"},
	{Key: StepInstructions2, Kind: StageConditional, Module: "instructions", Pages: instructionPages},
	{Key: StepDialogue2, Kind: StageConditional, Module: "dialogue", Pages: dialoguePages},
	{Key: StepPostQuestionnaire2, Kind: StageStatic, Module: "post_questionnaire", Page: "/html/post_questionnaire.html"},
	{Key: StepOpenEndedQs, Kind: StageStatic, Module: "open_ended_qs", Page: "/html/open_ended_qs.html"},
	{Key: StepDebrief, Kind: StageStatic, Module: "debrief", Page: "/html/debrief.html"},
}

// StageCount is the number of listed stages N; index -1 is consent and any
// index >= N is the debrief boundary.
func StageCount() int { return len(stages) }

// StageAt returns the stage descriptor for a valid index.
func StageAt(index int) Stage { return stages[index] }

// IndexOf returns the index of a stage key, or -1 when the key is not in
// the stage list.
func IndexOf(key string) int {
	for i, s := range stages {
		if s.Key == key {
			return i
		}
	}
	return -1
}

// WashoutIndex is the position of the washout stage.
func WashoutIndex() int { return IndexOf(StepWashout) }

// debriefStage is the boundary page once the sequence is exhausted.
func debriefStage() Stage { return stages[len(stages)-1] }
