// Package sentiment classifies messages into a fixed emotion taxonomy and
// aggregates per-turn scores into a fluctuation statistic.
package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode"

	"github.com/affectlab/xai-dialogue/internal/llm"
)

// Emotions is the fixed Ekman taxonomy every classification maps into.
var Emotions = []string{"anger", "disgust", "fear", "joy", "neutral", "sadness", "surprise"}

// Neutral is the fallback class for empty input and unusable classifier output.
const Neutral = "neutral"

// polarity holds the signed weight of each emotion label.
var polarity = map[string]float64{
	"joy":      1.0,
	"surprise": 0.1,
	"neutral":  0.0,
	"sadness":  -1.0,
	"fear":     -1.0,
	"anger":    -1.0,
	"disgust":  -1.0,
}

// Classification is one scored emotion label.
type Classification struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// Score returns the signed weighted score of the classification.
func (c Classification) Score() float64 {
	return WeightedScore(c.Emotion, c.Confidence)
}

// WeightedScore is polarity(label) * confidence. Labels outside the
// taxonomy score zero.
func WeightedScore(label string, confidence float64) float64 {
	return polarity[strings.ToLower(label)] * confidence
}

// Fluctuation is the dispersion of a signed score trajectory: 0.0 for
// trajectories of length <= 1, otherwise the standard deviation around the
// mean. A symmetric two-point trajectory [1, -1] yields exactly 1.0.
func Fluctuation(scores []float64) float64 {
	n := len(scores)
	if n <= 1 {
		return 0.0
	}
	var mean float64
	for _, s := range scores {
		mean += s
	}
	mean /= float64(n)

	var sum float64
	for _, s := range scores {
		d := s - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

// Analyzer performs zero-shot classification through the aux backend.
type Analyzer struct {
	backend llm.Completer
	logger  *slog.Logger
}

// NewAnalyzer creates an Analyzer on top of the given backend.
func NewAnalyzer(backend llm.Completer, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{backend: backend, logger: logger}
}

var classificationSchema = llm.GenerateSchema[Classification]()

// Classify maps text to one taxonomy label with a confidence in [0, 1].
// It never fails: backend errors and out-of-taxonomy labels degrade to the
// neutral class so a flaky classifier cannot break a dialogue turn.
func (a *Analyzer) Classify(ctx context.Context, text string) Classification {
	text = strings.TrimSpace(text)
	if text == "" {
		return Classification{Emotion: Neutral, Confidence: 0.0}
	}

	var out Classification
	err := a.backend.CompleteJSON(ctx,
		classifyInstructions(text),
		fmt.Sprintf("User input: %q", text),
		"EmotionClassification", classificationSchema, &out)
	if err != nil {
		a.logger.Warn("sentiment classification failed", "error", err)
		return Classification{Emotion: Neutral, Confidence: 0.0}
	}

	out.Emotion = normalizeLabel(out.Emotion)
	out.Confidence = clamp01(out.Confidence)
	return out
}

// Explain produces a short third-person explanation of the detected emotion
// and the agent's intent. Falls back to a fixed notice when the backend is
// unavailable.
func (a *Analyzer) Explain(ctx context.Context, text, emotion string) string {
	out, err := a.backend.Complete(ctx, explainInstructions(emotion),
		fmt.Sprintf("User input: %q\nDetected emotion: %s", text, emotion))
	if err != nil {
		a.logger.Warn("explanation generation failed", "emotion", emotion, "error", err)
		return "System analysis unavailable."
	}
	return out
}

// normalizeLabel maps classifier output onto the taxonomy, trying a keyword
// substring match before giving up and returning neutral.
func normalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	for _, e := range Emotions {
		if label == e {
			return e
		}
	}
	switch {
	case strings.Contains(label, "happy"), strings.Contains(label, "joy"):
		return "joy"
	case strings.Contains(label, "sad"):
		return "sadness"
	case strings.Contains(label, "angry"), strings.Contains(label, "anger"):
		return "anger"
	case strings.Contains(label, "fear"), strings.Contains(label, "afraid"):
		return "fear"
	case strings.Contains(label, "disgust"):
		return "disgust"
	case strings.Contains(label, "surprise"):
		return "surprise"
	}
	return Neutral
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ContainsChinese reports whether the text holds any Han characters. Used
// to match prompt language to the participant's input.
func ContainsChinese(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
