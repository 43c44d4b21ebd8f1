package dialogue

import (
	"fmt"
	"strings"

	"github.com/affectlab/xai-dialogue/internal/domain"
	"github.com/affectlab/xai-dialogue/internal/sentiment"
)

// systemPromptEN instructs the main model for empathetic dialogue.
const systemPromptEN = "You are a gentle and empathetic conversational partner. " +
	"Always respond in a natural, human-like manner. " +
	"Keep your responses consistent with the user's language. " +
	"Do not comment on the user's language skills."

const systemPromptZH = "你是一位温和、有同理心的对话伙伴。" +
	"请始终以自然、贴近人类的方式回应。" +
	"保持与用户相同的语言。" +
	"不要评论用户的语言能力。"

// systemPromptFor matches the system instruction to the user's language.
func systemPromptFor(userMessage string) string {
	if sentiment.ContainsChinese(userMessage) {
		return systemPromptZH
	}
	return systemPromptEN
}

// buildPrompt assembles the generation prompt: the rolling summary when
// present, then a sliding window of recent history. Older context is only
// reachable through the summary, never verbatim.
func buildPrompt(summary string, window []domain.Message) string {
	var b strings.Builder
	if summary != "" {
		b.WriteString("Context Summary:\n")
		b.WriteString(summary)
		b.WriteString("\n\n")
	}
	for _, m := range window {
		prefix := "User:"
		if m.Role == domain.RoleAgent {
			prefix = "AI:"
		}
		fmt.Fprintf(&b, "%s %s\n", prefix, m.Content)
	}
	b.WriteString("AI:")
	return b.String()
}

// summaryInstructions condenses recent dialogue plus the previous summary
// into a fresh rolling summary.
const summaryInstructions = "Summarize the following conversation into a concise summary of no " +
	"more than 150 words. Focus on the user's main emotions, topics, and " +
	"intents. Keep the summary in English. Output only the new summary."

// buildSummaryInput renders the summarization input from the previous
// summary and the recent dialogue window.
func buildSummaryInput(previousSummary string, window []domain.Message) string {
	var b strings.Builder
	b.WriteString("Previous summary (if any):\n")
	if previousSummary == "" {
		b.WriteString("(None)\n")
	} else {
		b.WriteString(previousSummary)
		b.WriteString("\n")
	}
	b.WriteString("\nNew conversation:\n")
	for _, m := range window {
		role := "User"
		if m.Role == domain.RoleAgent {
			role = "AI"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}
	return b.String()
}
