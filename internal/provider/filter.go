package provider

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

type descriptorSource []ProviderDescriptor

func (s descriptorSource) String(i int) string {
	return s[i].DisplayName + " " + s[i].ID
}

func (s descriptorSource) Len() int {
	return len(s)
}

// Filter returns the descriptors whose display name or id fuzzy-matches
// query, best match first. An empty query returns descs unchanged.
func Filter(descs []ProviderDescriptor, query string) []ProviderDescriptor {
	query = strings.TrimSpace(query)
	if query == "" {
		return descs
	}
	matches := fuzzy.FindFrom(query, descriptorSource(descs))
	out := make([]ProviderDescriptor, 0, len(matches))
	for _, m := range matches {
		out = append(out, descs[m.Index])
	}
	return out
}
