package provider

import (
	"sort"
	"strings"
)

type knownProvider struct {
	displayName  string
	capabilities []Capability
}

// knownProviders is keyed by the exact marketplace id (publisher.name).
var knownProviders = map[string]knownProvider{
	"GitHub.copilot": {
		displayName:  "GitHub Copilot",
		capabilities: []Capability{CapabilityCodeCompletion, CapabilityInlineCompletion, CapabilityCodeGeneration},
	},
	"GitHub.copilot-chat": {
		displayName:  "GitHub Copilot Chat",
		capabilities: []Capability{CapabilityChat, CapabilityExplanation, CapabilityCodeGeneration},
	},
	"TabNine.tabnine-vscode": {
		displayName:  "Tabnine",
		capabilities: []Capability{CapabilityCodeCompletion, CapabilityInlineCompletion, CapabilityChat},
	},
	"Codeium.codeium": {
		displayName:  "Codeium",
		capabilities: []Capability{CapabilityCodeCompletion, CapabilityInlineCompletion, CapabilityChat},
	},
	"AmazonWebServices.amazon-q-vscode": {
		displayName:  "Amazon Q",
		capabilities: []Capability{CapabilityCodeCompletion, CapabilityInlineCompletion, CapabilityChat, CapabilityCodeReview},
	},
	"Continue.continue": {
		displayName:  "Continue",
		capabilities: []Capability{CapabilityCodeCompletion, CapabilityChat, CapabilityCodeGeneration},
	},
	"sourcegraph.cody-ai": {
		displayName:  "Cody AI",
		capabilities: []Capability{CapabilityCodeCompletion, CapabilityChat, CapabilityExplanation},
	},
	"saoudrizwan.claude-dev": {
		displayName:  "Cline",
		capabilities: []Capability{CapabilityChat, CapabilityCodeGeneration},
	},
	"anthropic.claude-code": {
		displayName:  "Claude Code",
		capabilities: []Capability{CapabilityChat, CapabilityCodeGeneration, CapabilityCodeReview},
	},
	"VisualStudioExptTeam.vscodeintellicode": {
		displayName:  "IntelliCode",
		capabilities: []Capability{CapabilityCodeCompletion},
	},
	"Google.geminicodeassist": {
		displayName:  "Gemini Code Assist",
		capabilities: []Capability{CapabilityCodeCompletion, CapabilityChat, CapabilityCodeGeneration},
	},
}

// IsKnownProvider reports whether id is on the allow-list. The match is
// exact; ids differing only in case are not known.
func IsKnownProvider(id string) bool {
	_, ok := knownProviders[id]
	return ok
}

// KnownProviders returns the allow-list as descriptors sorted by display name.
func KnownProviders() []ProviderDescriptor {
	out := make([]ProviderDescriptor, 0, len(knownProviders))
	for id := range knownProviders {
		out = append(out, knownDescriptor(id))
	}
	sort.Slice(out, func(i, j int) bool {
		return lessByDisplayName(out[i], out[j])
	})
	return out
}

// knownDescriptor builds the descriptor for an allow-listed id. The
// capability slice is copied so callers cannot mutate the table.
func knownDescriptor(id string) ProviderDescriptor {
	entry := knownProviders[id]
	caps := make([]Capability, len(entry.capabilities))
	copy(caps, entry.capabilities)
	return ProviderDescriptor{
		ID:           id,
		DisplayName:  entry.displayName,
		Capabilities: caps,
		IsKnown:      true,
	}
}

func lessByDisplayName(a, b ProviderDescriptor) bool {
	an, bn := strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName)
	if an != bn {
		return an < bn
	}
	return a.ID < b.ID
}
