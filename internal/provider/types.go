// Package provider classifies installed editor extensions as AI-assistant
// providers. Extensions in a static allow-list are trusted verbatim; all
// others go through an indicator-counting heuristic over their metadata.
package provider

import "strings"

// Capability is a feature an AI provider offers.
type Capability string

const (
	CapabilityCodeCompletion   Capability = "code-completion"
	CapabilityInlineCompletion Capability = "inline-completion"
	CapabilityChat             Capability = "chat"
	CapabilityCodeGeneration   Capability = "code-generation"
	CapabilityCodeReview       Capability = "code-review"
	CapabilityExplanation      Capability = "explanation"
	CapabilityUnknown          Capability = "unknown"
)

// ContributionKind is a contribution point an extension declares in its
// manifest. Only the kinds relevant to classification are represented;
// everything else is dropped when the manifest is normalized.
type ContributionKind int

const (
	ContributionCompletionProvider ContributionKind = iota + 1
	ContributionInlineCompletionProvider
	ContributionChatParticipant
	ContributionCommands
	ContributionLanguageModels
)

// String returns the manifest-style name of the contribution kind.
func (k ContributionKind) String() string {
	switch k {
	case ContributionCompletionProvider:
		return "completionProvider"
	case ContributionInlineCompletionProvider:
		return "inlineCompletionProvider"
	case ContributionChatParticipant:
		return "chatParticipants"
	case ContributionCommands:
		return "commands"
	case ContributionLanguageModels:
		return "languageModels"
	default:
		return "unknown"
	}
}

// ParseContributionKind maps a manifest key to a ContributionKind.
// The second return value is false for keys that carry no signal.
func ParseContributionKind(key string) (ContributionKind, bool) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "completionprovider", "completionproviders", "completionitemprovider":
		return ContributionCompletionProvider, true
	case "inlinecompletionprovider", "inlinecompletionproviders", "inlinecompletions":
		return ContributionInlineCompletionProvider, true
	case "chatparticipants", "chatparticipant":
		return ContributionChatParticipant, true
	case "commands":
		return ContributionCommands, true
	case "languagemodels", "languagemodelchatproviders":
		return ContributionLanguageModels, true
	default:
		return 0, false
	}
}

// Command is a command an extension declares.
type Command struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ExtensionMetadata is the normalized view of one installed extension.
// Every field is optional; absent values are empty.
type ExtensionMetadata struct {
	ID            string             `json:"id"`
	DisplayName   string             `json:"displayName,omitempty"`
	Description   string             `json:"description,omitempty"`
	Keywords      []string           `json:"keywords,omitempty"`
	Categories    []string           `json:"categories,omitempty"`
	Commands      []Command          `json:"commands,omitempty"`
	Contributions []ContributionKind `json:"contributions,omitempty"`
	Version       string             `json:"version,omitempty"`
	Active        bool               `json:"active"`
	Path          string             `json:"path,omitempty"`
}

// HasContribution reports whether the extension declares the given kind.
func (m ExtensionMetadata) HasContribution(kind ContributionKind) bool {
	for _, c := range m.Contributions {
		if c == kind {
			return true
		}
	}
	return false
}

// ProviderDescriptor describes one detected AI provider. Built fresh on
// every detection pass.
type ProviderDescriptor struct {
	ID           string       `json:"id"`
	DisplayName  string       `json:"displayName"`
	Capabilities []Capability `json:"capabilities"`
	IsKnown      bool         `json:"isKnown"`
}

// HasCapability reports whether the descriptor lists the capability.
func (d ProviderDescriptor) HasCapability(c Capability) bool {
	for _, have := range d.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}
