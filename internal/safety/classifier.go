// Package safety classifies text spans into discrete risk levels by keyword
// presence. The keyword tables are data, not control flow, so deployments can
// swap them through configuration.
package safety

import (
	"strings"

	"github.com/manualkit/manualkit/internal/model"
)

const (
	LevelInfo   = 1
	LevelMedium = 2
	LevelHigh   = 3
)

var defaultHighRisk = []string{"warning", "danger", "fatal", "death", "serious injury"}

var defaultMediumRisk = []string{"caution", "attention", "careful", "important safety"}

type Classifier struct {
	high   []string
	medium []string
}

// NewClassifier builds a classifier over the given keyword tiers. Empty
// slices fall back to the built-in tables.
func NewClassifier(high, medium []string) *Classifier {
	if len(high) == 0 {
		high = defaultHighRisk
	}
	if len(medium) == 0 {
		medium = defaultMediumRisk
	}
	return &Classifier{high: lowerAll(high), medium: lowerAll(medium)}
}

// Classify is pure: the same text always maps to the same level.
func (c *Classifier) Classify(text string) int {
	lower := strings.ToLower(text)
	for _, kw := range c.high {
		if strings.Contains(lower, kw) {
			return LevelHigh
		}
	}
	for _, kw := range c.medium {
		if strings.Contains(lower, kw) {
			return LevelMedium
		}
	}
	return LevelInfo
}

// ResponseLevel computes the response-time level: the maximum over the stored
// levels of every contributing chunk and a fresh classification of the
// consolidated answer text. It is never lower than any contributor.
func (c *Classifier) ResponseLevel(answer string, chunks []model.ScoredChunk) int {
	level := c.Classify(answer)
	for _, sc := range chunks {
		if sc.Chunk.SafetyLevel > level {
			level = sc.Chunk.SafetyLevel
		}
	}
	return level
}

// Banner returns the warning banner for the given level, or "" when no banner
// applies. The text names the risk tier rather than showing a bare symbol.
func (c *Classifier) Banner(level int) string {
	switch {
	case level >= LevelHigh:
		return "🚨 CRITICAL SAFETY WARNING 🚨\n" +
			"This procedure involves a high risk of serious injury or death. " +
			"Read and follow all safety instructions carefully."
	case level == LevelMedium:
		return "⚠️ SAFETY WARNING ⚠️\n" +
			"This procedure requires caution. " +
			"Read and follow all safety instructions carefully."
	default:
		return ""
	}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
