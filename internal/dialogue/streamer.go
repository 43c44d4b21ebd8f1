// Package dialogue drives one participant's streaming chat turns: prompt
// assembly, low-latency pass-through of generated fragments, and the
// exactly-once turn finalization that keeps session bookkeeping correct on
// every exit path.
package dialogue

import (
	"context"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/affectlab/xai-dialogue/internal/domain"
	"github.com/affectlab/xai-dialogue/internal/llm"
	"github.com/affectlab/xai-dialogue/internal/record"
	"github.com/affectlab/xai-dialogue/internal/sentiment"
	"github.com/affectlab/xai-dialogue/internal/session"
	"github.com/affectlab/xai-dialogue/internal/store"
)

// historyWindow is how many recent history entries go into the prompt
// verbatim; anything older is only represented by the rolling summary.
const historyWindow = 10

// errorToken is emitted inline when a turn cannot produce any reply.
const errorToken = "⚠️ The assistant is temporarily unavailable. Please try again."

// TurnContext carries the per-request facts finalization needs.
type TurnContext struct {
	ParticipantID    string
	Condition        domain.Condition
	SessionPart      int
	ExplanationShown bool
}

// Streamer produces dialogue reply streams and owns turn finalization. It
// is the only writer of turn counts and sentiment trajectories.
type Streamer struct {
	sessions        *session.Manager
	backend         llm.Backend
	analyzer        *sentiment.Analyzer
	recorder        store.DataRecorder
	events          record.EventLogger
	summaryInterval int
	logger          *slog.Logger
}

// NewStreamer wires a Streamer.
func NewStreamer(sessions *session.Manager, backend llm.Backend, analyzer *sentiment.Analyzer,
	recorder store.DataRecorder, events record.EventLogger, summaryInterval int, logger *slog.Logger) *Streamer {
	if logger == nil {
		logger = slog.Default()
	}
	if events == nil {
		events = record.NoopLogger{}
	}
	return &Streamer{
		sessions:        sessions,
		backend:         backend,
		analyzer:        analyzer,
		recorder:        recorder,
		events:          events,
		summaryInterval: summaryInterval,
		logger:          logger,
	}
}

// Stream runs one dialogue turn and yields reply fragments as they arrive.
// The user message is appended to history before generation starts. The
// deferred finalize runs exactly once whether the stream completes, the
// backend fails, or the consumer stops consuming; a partial reply still
// closes the turn with whatever text accumulated. Transport failures are
// reported as an inline diagnostic fragment, never as a panic or a dropped
// connection.
func (s *Streamer) Stream(ctx context.Context, tc TurnContext, userMessage string) iter.Seq[string] {
	return func(yield func(string) bool) {
		sess := s.sessions.Get(tc.ParticipantID)

		sess.Lock()
		sess.AppendMessage(domain.RoleUser, userMessage)
		turn := sess.TurnCount() + 1
		prompt := buildPrompt(sess.Summary(), sess.Recent(historyWindow))
		sess.Unlock()

		var reply strings.Builder
		defer func() {
			s.finalize(ctx, tc, sess, userMessage, turn, reply.String())
		}()

		for fragment, err := range s.backend.Generate(ctx, systemPromptFor(userMessage), prompt) {
			if err != nil {
				s.logger.Error("Dialogue stream failed",
					"participant_id", tc.ParticipantID, "turn", turn, "error", err)
				yield(errorToken)
				return
			}
			reply.WriteString(fragment)
			if !yield(fragment) {
				return
			}
		}
	}
}

// finalize closes the turn. With accumulated text it appends the agent
// reply, increments the turn counter, refreshes the rolling summary on the
// configured interval, scores both sides and emits the TurnRecord. With no
// text it leaves the session untouched beyond the already-appended user
// message.
func (s *Streamer) finalize(ctx context.Context, tc TurnContext, sess *session.Session, userMessage string, turn int, reply string) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		s.logger.Warn("Turn produced no reply, not finalized",
			"participant_id", tc.ParticipantID, "turn", turn)
		return
	}

	// The consumer may already be gone; bookkeeping still has to finish.
	fctx := context.WithoutCancel(ctx)

	userCls := s.analyzer.Classify(fctx, userMessage)
	agentCls := s.analyzer.Classify(fctx, reply)

	sess.Lock()
	sess.AppendMessage(domain.RoleAgent, reply)
	turnCount := sess.CompleteTurn(userCls.Score())
	needSummary := turnCount%s.summaryInterval == 0
	previousSummary := sess.Summary()
	window := append([]domain.Message(nil), sess.Recent(historyWindow)...)
	sess.Unlock()

	if needSummary {
		summary, err := s.backend.Complete(fctx, summaryInstructions,
			buildSummaryInput(previousSummary, window))
		if err != nil {
			s.logger.Warn("Failed to refresh rolling summary",
				"participant_id", tc.ParticipantID, "turn", turnCount, "error", err)
		} else if summary != "" {
			sess.Lock()
			sess.SetSummary(summary)
			sess.Unlock()
		}
	}

	rec := &domain.TurnRecord{
		ParticipantID:    tc.ParticipantID,
		Condition:        tc.Condition,
		Turn:             turnCount,
		SessionPart:      tc.SessionPart,
		UserMetrics:      domain.MeasureText(userMessage),
		UserEmotion:      userCls.Emotion,
		UserConfidence:   userCls.Confidence,
		UserScore:        userCls.Score(),
		AgentMetrics:     domain.MeasureText(reply),
		AgentEmotion:     agentCls.Emotion,
		AgentConfidence:  agentCls.Confidence,
		AgentScore:       agentCls.Score(),
		ExplanationShown: tc.ExplanationShown && tc.Condition == domain.ConditionXAI,
		RecordedAt:       time.Now(),
	}
	if err := s.recorder.SaveTurnRecord(fctx, rec); err != nil {
		s.logger.Error("Failed to persist turn record",
			"participant_id", tc.ParticipantID, "turn", turnCount, "error", err)
	}
	s.events.Log(record.Event{
		ParticipantID: tc.ParticipantID,
		Kind:          "turn",
		Detail: map[string]any{
			"turn":              turnCount,
			"condition":         string(tc.Condition),
			"session_part":      tc.SessionPart,
			"user_emotion":      userCls.Emotion,
			"agent_emotion":     agentCls.Emotion,
			"explanation_shown": rec.ExplanationShown,
		},
	})

	s.logger.Info("Turn finalized",
		"participant_id", tc.ParticipantID,
		"turn", turnCount,
		"condition", tc.Condition,
		"reply_chars", len(reply),
	)
}
