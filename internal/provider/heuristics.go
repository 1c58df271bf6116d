package provider

import (
	"strings"

	"github.com/samber/lo"
)

// IndicatorCount is the number of independent heuristic indicators.
const IndicatorCount = 4

// DefaultThreshold is how many indicators must hold before an unknown
// extension is treated as a provider.
const DefaultThreshold = 2

var aiTerms = []string{
	"ai", "copilot", "assistant", "completion", "claude", "gpt", "llm",
	"openai", "anthropic", "gemini", "codex", "intellicode", "autocomplete",
	"chatbot", "machine learning",
}

var aiCategories = []string{
	"ai", "machine learning", "chat", "data science",
}

var commandTerms = []string{
	"complete", "suggest", "chat", "ai", "generate", "explain", "ask",
	"copilot", "assistant", "prompt",
}

// Indicators holds the outcome of each heuristic check, in order:
// AI term in text fields, AI category, AI command, completion contribution.
type Indicators [IndicatorCount]bool

// Count returns how many indicators are true.
func (ind Indicators) Count() int {
	return lo.CountBy(ind[:], func(v bool) bool { return v })
}

// Score evaluates the four indicators for one extension. It never fails;
// missing fields simply leave their indicator false.
func Score(meta ExtensionMetadata) Indicators {
	return Indicators{
		hasAITerm(meta),
		hasAICategory(meta),
		hasAICommand(meta),
		meta.HasContribution(ContributionCompletionProvider) ||
			meta.HasContribution(ContributionInlineCompletionProvider),
	}
}

func hasAITerm(meta ExtensionMetadata) bool {
	fields := append([]string{meta.Description, meta.DisplayName}, meta.Keywords...)
	return lo.SomeBy(fields, func(f string) bool {
		return containsAny(f, aiTerms)
	})
}

func hasAICategory(meta ExtensionMetadata) bool {
	return lo.SomeBy(meta.Categories, func(c string) bool {
		return lo.Contains(aiCategories, strings.ToLower(strings.TrimSpace(c)))
	})
}

func hasAICommand(meta ExtensionMetadata) bool {
	return lo.SomeBy(meta.Commands, func(c Command) bool {
		return containsAny(c.ID, commandTerms) || containsAny(c.Title, commandTerms)
	})
}

func hasChatCommand(meta ExtensionMetadata) bool {
	return lo.SomeBy(meta.Commands, func(c Command) bool {
		return strings.Contains(strings.ToLower(c.Title), "chat")
	})
}

// containsAny is a case-insensitive substring test against a vocabulary.
func containsAny(s string, terms []string) bool {
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	return lo.SomeBy(terms, func(t string) bool {
		return strings.Contains(lower, t)
	})
}

// InferCapabilities derives capabilities for a heuristically detected
// provider from its declared contributions and commands.
func InferCapabilities(meta ExtensionMetadata) []Capability {
	var caps []Capability

	completion := meta.HasContribution(ContributionCompletionProvider)
	inline := meta.HasContribution(ContributionInlineCompletionProvider)
	if completion || inline {
		caps = append(caps, CapabilityCodeCompletion)
	}
	if inline {
		caps = append(caps, CapabilityInlineCompletion)
	}
	if hasChatCommand(meta) || meta.HasContribution(ContributionChatParticipant) {
		caps = append(caps, CapabilityChat)
	}

	if len(caps) == 0 {
		return []Capability{CapabilityUnknown}
	}
	return caps
}
