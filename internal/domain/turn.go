package domain

import (
	"strings"
	"time"
)

// Message is one entry of a dialogue history.
type Message struct {
	Role    string `json:"role"` // "user" or "agent"
	Content string `json:"content"`
}

const (
	// RoleUser marks participant messages.
	RoleUser = "user"
	// RoleAgent marks generated replies.
	RoleAgent = "agent"
)

// TextMetrics are the anonymized length measures recorded instead of raw
// message text. Token count is approximated as one token per three
// characters, floored at one.
type TextMetrics struct {
	Chars  int `json:"length_char"`
	Words  int `json:"length_word"`
	Tokens int `json:"length_token"`
}

// MeasureText computes TextMetrics for a message.
func MeasureText(text string) TextMetrics {
	text = strings.TrimSpace(text)
	chars := len([]rune(text))
	tokens := chars / 3
	if tokens < 1 {
		tokens = 1
	}
	return TextMetrics{
		Chars:  chars,
		Words:  len(strings.Fields(text)),
		Tokens: tokens,
	}
}

// TurnRecord is the immutable per-turn measurement emitted after each
// completed exchange.
type TurnRecord struct {
	ParticipantID string    `json:"participant_id"`
	Condition     Condition `json:"condition"`
	Turn          int       `json:"turn"`
	SessionPart   int       `json:"session_part"`

	UserMetrics    TextMetrics `json:"user_metrics"`
	UserEmotion    string      `json:"user_emotion"`
	UserConfidence float64     `json:"user_confidence"`
	UserScore      float64     `json:"user_score"`

	AgentMetrics    TextMetrics `json:"agent_metrics"`
	AgentEmotion    string      `json:"agent_emotion"`
	AgentConfidence float64     `json:"agent_confidence"`
	AgentScore      float64     `json:"agent_score"`

	ExplanationShown bool      `json:"explanation_shown"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// StageRecord is one append-only stage data payload.
type StageRecord struct {
	ParticipantID string    `json:"participant_id"`
	StepName      string    `json:"step_name"`
	Payload       []byte    `json:"payload"`
	RecordedAt    time.Time `json:"recorded_at"`
}
